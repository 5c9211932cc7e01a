package registration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"coursely/internal/allocation"
	"coursely/internal/catalog"
	"coursely/internal/eventbus"
	"coursely/internal/scoring"
	"coursely/internal/seatmap"
	"coursely/internal/waitlist"
	"coursely/pkg/logger"
)

// Outcome is the student-facing result class of an application.
type Outcome string

const (
	OutcomeEnrolled   Outcome = "enrolled"
	OutcomeWaitlisted Outcome = "waitlisted"
)

// ApplyRequest is one student's application to one course.
type ApplyRequest struct {
	StudentID     string
	CourseID      string
	PreferredSeat string
	AutoRegister  bool
}

// ApplyResult reports what happened to an application.
type ApplyResult struct {
	Outcome      Outcome           `json:"outcome"`
	StudentID    string            `json:"studentId"`
	CourseID     string            `json:"courseId"`
	CourseCode   string            `json:"courseCode"`
	SeatLabel    string            `json:"seatLabel,omitempty"`
	Scores       scoring.Breakdown `json:"scores"`
	Position     int               `json:"position,omitempty"`
	WaitlistSize int               `json:"waitlistSize,omitempty"`
}

// Promotion records one waitlisted student pulled into a freed seat.
type Promotion struct {
	StudentID string  `json:"studentId"`
	SeatLabel string  `json:"seatLabel"`
	Score     float64 `json:"score"`
}

// DropResult reports a seat release and the auto-fills it triggered.
type DropResult struct {
	Dropped   bool        `json:"dropped"`
	StudentID string      `json:"studentId"`
	CourseID  string      `json:"courseId"`
	SeatLabel string      `json:"seatLabel,omitempty"`
	Promoted  []Promotion `json:"promoted,omitempty"`
}

// Options tunes the registration service.
type Options struct {
	DefaultRows        int
	DefaultSeatsPerRow int
}

// Service is the registration core. It owns the per-course locks, the
// in-memory seat map and waitlist, and is the single writer of both; the
// repository provides durability and the bus provides fan-out.
type Service struct {
	catalog catalog.Repository
	repo    Repository
	scorer  *scoring.Engine
	alloc   *allocation.Engine
	seats   *seatmap.Map
	queue   *waitlist.Store
	bus     *eventbus.Bus
	locks   *courseLocks
	log     *logger.Logger
	opts    Options

	now func() time.Time

	mu         sync.RWMutex
	configs    map[string]*SeatConfig
	bookingIDs map[string]map[string]uuid.UUID // courseID -> studentID -> booking ID
}

// NewService wires the registration core together.
func NewService(cat catalog.Repository, repo Repository, scorer *scoring.Engine, alloc *allocation.Engine, bus *eventbus.Bus, log *logger.Logger, opts Options) *Service {
	if opts.DefaultRows < 1 {
		opts.DefaultRows = 5
	}
	if opts.DefaultSeatsPerRow < 1 {
		opts.DefaultSeatsPerRow = 6
	}
	return &Service{
		catalog:    cat,
		repo:       repo,
		scorer:     scorer,
		alloc:      alloc,
		seats:      seatmap.NewMap(),
		queue:      waitlist.NewStore(),
		bus:        bus,
		locks:      newCourseLocks(),
		log:        log,
		opts:       opts,
		now:        time.Now,
		configs:    make(map[string]*SeatConfig),
		bookingIDs: make(map[string]map[string]uuid.UUID),
	}
}

// Bus exposes the event bus for streaming subscribers.
func (s *Service) Bus() *eventbus.Bus {
	return s.bus
}

// Load rebuilds the in-memory seat map and waitlists from the repository.
// Call once at startup before serving requests.
func (s *Service) Load(ctx context.Context) error {
	configs, err := s.repo.SeatConfigs(ctx)
	if err != nil {
		return fmt.Errorf("load seat configs: %w", err)
	}
	for i := range configs {
		cfg := configs[i]
		if err := s.seats.Configure(cfg.CourseID, cfg.Rows, cfg.SeatsPerRow); err != nil {
			return fmt.Errorf("configure seats for %s: %w", cfg.CourseID, err)
		}

		bookings, err := s.repo.ActiveBookings(ctx, cfg.CourseID)
		if err != nil {
			return fmt.Errorf("load bookings for %s: %w", cfg.CourseID, err)
		}
		for _, b := range bookings {
			if err := s.seats.Occupy(cfg.CourseID, b.SeatLabel, b.StudentID); err != nil {
				return fmt.Errorf("restore booking %s: %w", b.ID, err)
			}
			s.rememberBooking(cfg.CourseID, b.StudentID, b.ID)
		}

		entries, err := s.repo.WaitingEntries(ctx, cfg.CourseID)
		if err != nil {
			return fmt.Errorf("load waitlist for %s: %w", cfg.CourseID, err)
		}
		for j := range entries {
			e := entries[j]
			if err := s.queue.Insert(cfg.CourseID, &e); err != nil {
				return fmt.Errorf("restore waitlist entry %s: %w", e.ID, err)
			}
		}

		s.mu.Lock()
		s.configs[cfg.CourseID] = &cfg
		s.mu.Unlock()

		s.log.Info("course state restored",
			"course_id", cfg.CourseID,
			"status", cfg.Status.String(),
			"occupied", len(bookings),
			"waitlisted", len(entries),
		)
	}
	return nil
}

func (s *Service) rememberBooking(courseID, studentID string, id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bookingIDs[courseID] == nil {
		s.bookingIDs[courseID] = make(map[string]uuid.UUID)
	}
	s.bookingIDs[courseID][studentID] = id
}

func (s *Service) forgetBooking(courseID, studentID string) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bookingIDs[courseID][studentID]
	if ok {
		delete(s.bookingIDs[courseID], studentID)
	}
	return id, ok
}

// configFor returns the runtime config for a course, creating a CLOSED
// default-grid config on first contact. Caller must hold the course lock.
func (s *Service) configFor(course *catalog.Course) (*SeatConfig, bool, error) {
	s.mu.RLock()
	cfg, ok := s.configs[course.ID]
	s.mu.RUnlock()
	if ok {
		return cfg, false, nil
	}

	cfg = &SeatConfig{
		CourseID:    course.ID,
		Rows:        s.opts.DefaultRows,
		SeatsPerRow: s.opts.DefaultSeatsPerRow,
		TotalSeats:  s.opts.DefaultRows * s.opts.DefaultSeatsPerRow,
		Status:      StatusClosed,
		CreatedAt:   s.now().UTC(),
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.seats.Configure(course.ID, cfg.Rows, cfg.SeatsPerRow); err != nil {
		return nil, false, WrapError(CodeConfigurationInvalid, "invalid default seat grid", err)
	}
	s.mu.Lock()
	s.configs[course.ID] = cfg
	s.mu.Unlock()
	return cfg, true, nil
}

func (s *Service) openedAt(cfg *SeatConfig) time.Time {
	if cfg.OpenedAt == nil {
		return time.Time{}
	}
	return *cfg.OpenedAt
}

// commit persists a change set and maps repository failures to coded errors.
func (s *Service) commit(ctx context.Context, cs ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return WrapError(CodeTimeout, "request cancelled before commit", err)
	}
	if err := s.repo.Apply(ctx, cs); err != nil {
		switch {
		case errors.Is(err, ErrRepoConflict):
			return WrapError(CodeConflict, "concurrent modification detected", err)
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return WrapError(CodeTimeout, "request timed out during commit", err)
		default:
			return WrapError(CodeInternal, "failed to persist registration state", err)
		}
	}
	return nil
}

func (s *Service) publish(events []eventbus.Event) {
	for _, ev := range events {
		s.bus.Publish(ev)
	}
	if len(events) > 0 {
		s.invalidateSnapshot(events[0].CourseID)
	}
}

// newEvent builds the bus event and its audit row together so the trail
// always matches what subscribers saw.
func (s *Service) newEvent(evType eventbus.EventType, courseID, studentID, seatLabel string, payload map[string]interface{}) (eventbus.Event, RegistrationEvent) {
	ts := s.now().UTC()
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if studentID != "" {
		payload["studentId"] = studentID
	}
	if seatLabel != "" {
		payload["seatLabel"] = seatLabel
	}
	busEv := eventbus.Event{
		Type:      evType,
		CourseID:  courseID,
		Payload:   payload,
		Timestamp: ts,
	}
	audit := RegistrationEvent{
		ID:        uuid.New(),
		EventType: string(evType),
		CourseID:  courseID,
		StudentID: studentID,
		SeatLabel: seatLabel,
		Payload:   JSONMap(payload),
		Timestamp: ts,
	}
	return busEv, audit
}

// Apply processes one application. Depending on course state and the
// autoRegister flag the student is either seated immediately or added to
// the waitlist at their scored position.
func (s *Service) Apply(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	res, err := s.applyOnce(ctx, req)
	if err != nil && CodeOf(err) == CodeConflict {
		res, err = s.applyOnce(ctx, req)
	}
	return res, err
}

func (s *Service) applyOnce(ctx context.Context, req ApplyRequest) (*ApplyResult, error) {
	student, err := s.catalog.GetStudent(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "student %s not found", req.StudentID)
		}
		return nil, WrapError(CodeInternal, "failed to load student", err)
	}
	course, err := s.catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "course %s not found", req.CourseID)
		}
		return nil, WrapError(CodeInternal, "failed to load course", err)
	}
	if !scoring.PrerequisitesMet(student, course) {
		return nil, Errorf(CodePrerequisiteMissing, "student %s has not completed the prerequisites for %s", student.ID, course.Code)
	}

	unlock := s.locks.Lock(course.ID)
	defer unlock()

	cfg, created, err := s.configFor(course)
	if err != nil {
		return nil, err
	}
	if !cfg.Status.AllowsApply() {
		return nil, Errorf(CodeBookingClosed, "course %s no longer accepts applications", course.Code)
	}
	if _, enrolled := s.seats.SeatOf(course.ID, student.ID); enrolled {
		return nil, Errorf(CodeAlreadyEnrolled, "student %s already holds a seat in %s", student.ID, course.Code)
	}
	if _, waitlisted := s.queue.Get(course.ID, student.ID); waitlisted {
		return nil, Errorf(CodeAlreadyWaitlisted, "student %s is already waitlisted for %s", student.ID, course.Code)
	}

	appliedAt := s.now().UTC()
	breakdown := s.scorer.Score(student, course, appliedAt, s.openedAt(cfg))

	directSeat := cfg.Status == StatusOpen && req.AutoRegister && s.seats.FreeCount(course.ID) > 0
	if directSeat {
		return s.enroll(ctx, student, course, cfg, created, req.PreferredSeat, breakdown, appliedAt, false)
	}
	return s.joinWaitlist(ctx, student, course, cfg, created, req, breakdown, appliedAt)
}

// enroll seats the student immediately. Caller holds the course lock.
func (s *Service) enroll(ctx context.Context, student *catalog.Student, course *catalog.Course, cfg *SeatConfig, cfgDirty bool, preferredSeat string, breakdown scoring.Breakdown, appliedAt time.Time, autoFilled bool) (*ApplyResult, error) {
	label, err := s.takeSeat(course.ID, preferredSeat, student.ID)
	if err != nil {
		return nil, err
	}

	booking := SeatBooking{
		ID:         uuid.New(),
		CourseID:   course.ID,
		StudentID:  student.ID,
		SeatLabel:  label,
		Active:     true,
		AutoFilled: autoFilled,
		BookedAt:   appliedAt,
	}

	var busEvents []eventbus.Event
	cs := ChangeSet{CourseID: course.ID, CreateBookings: []SeatBooking{booking}}

	free := s.seats.FreeCount(course.ID)
	booked, audit := s.newEvent(eventbus.SeatBooked, course.ID, student.ID, label, map[string]interface{}{
		"availableSeats": free,
		"compositeScore": breakdown.Composite,
	})
	busEvents = append(busEvents, booked)
	cs.Events = append(cs.Events, audit)

	prevStatus := cfg.Status
	if free == 0 && cfg.Status == StatusOpen {
		cfg.Status = StatusWaitlistOnly
		cfgDirty = true
		ev, au := s.newEvent(eventbus.BookingStatusChanged, course.ID, "", "", map[string]interface{}{
			"status":         cfg.Status.String(),
			"previousStatus": prevStatus.String(),
		})
		busEvents = append(busEvents, ev)
		cs.Events = append(cs.Events, au)
	}
	if cfgDirty {
		cfg.UpdatedAt = s.now().UTC()
		snapshot := *cfg
		cs.UpsertConfig = &snapshot
	}

	if err := s.commit(ctx, cs); err != nil {
		s.seats.Release(course.ID, label)
		cfg.Status = prevStatus
		return nil, err
	}
	s.rememberBooking(course.ID, student.ID, booking.ID)
	s.publish(busEvents)
	s.log.Info("seat booked",
		"course_id", course.ID,
		"student_id", student.ID,
		"seat", label,
		"auto_filled", autoFilled,
	)

	return &ApplyResult{
		Outcome:    OutcomeEnrolled,
		StudentID:  student.ID,
		CourseID:   course.ID,
		CourseCode: course.Code,
		SeatLabel:  label,
		Scores:     breakdown,
	}, nil
}

// takeSeat occupies the preferred seat when it is valid and free, otherwise
// the lowest free seat in row-major order.
func (s *Service) takeSeat(courseID, preferred, studentID string) (string, error) {
	if preferred != "" && s.seats.Valid(courseID, preferred) {
		err := s.seats.Occupy(courseID, preferred, studentID)
		if err == nil {
			return preferred, nil
		}
		if !errors.Is(err, seatmap.ErrSeatTaken) {
			return "", WrapError(CodeInternal, "failed to occupy seat", err)
		}
	}
	label, err := s.seats.PickLowestFree(courseID)
	if err != nil {
		return "", Errorf(CodeCapacityExceeded, "no free seats available")
	}
	if err := s.seats.Occupy(courseID, label, studentID); err != nil {
		return "", WrapError(CodeInternal, "failed to occupy seat", err)
	}
	return label, nil
}

// joinWaitlist inserts a scored entry. Caller holds the course lock.
func (s *Service) joinWaitlist(ctx context.Context, student *catalog.Student, course *catalog.Course, cfg *SeatConfig, cfgDirty bool, req ApplyRequest, breakdown scoring.Breakdown, appliedAt time.Time) (*ApplyResult, error) {
	entry := &waitlist.Entry{
		ID:            uuid.New(),
		CourseID:      course.ID,
		StudentID:     student.ID,
		Scores:        breakdown,
		Status:        waitlist.StatusWaiting,
		AppliedAt:     appliedAt,
		PreferredSeat: req.PreferredSeat,
	}
	if err := s.queue.Insert(course.ID, entry); err != nil {
		return nil, Errorf(CodeAlreadyWaitlisted, "student %s is already waitlisted for %s", student.ID, course.Code)
	}
	position, _ := s.queue.RankOf(course.ID, student.ID)
	size := s.queue.Size(course.ID)

	cs := ChangeSet{CourseID: course.ID, UpsertEntries: []waitlist.Entry{*entry}}
	ev, audit := s.newEvent(eventbus.WaitlistUpdated, course.ID, student.ID, "", map[string]interface{}{
		"action":       "joined",
		"position":     position,
		"waitlistSize": size,
	})
	cs.Events = append(cs.Events, audit)
	if cfgDirty {
		cfg.UpdatedAt = s.now().UTC()
		snapshot := *cfg
		cs.UpsertConfig = &snapshot
	}

	if err := s.commit(ctx, cs); err != nil {
		s.queue.Remove(course.ID, student.ID)
		return nil, err
	}
	s.publish([]eventbus.Event{ev})
	s.log.Info("student waitlisted",
		"course_id", course.ID,
		"student_id", student.ID,
		"position", position,
		"composite", breakdown.Composite,
	)

	return &ApplyResult{
		Outcome:      OutcomeWaitlisted,
		StudentID:    student.ID,
		CourseID:     course.ID,
		CourseCode:   course.Code,
		Scores:       breakdown,
		Position:     position,
		WaitlistSize: size,
	}, nil
}

// ApplyAll applies one student to every course on their preference list,
// most preferred first. Individual failures do not stop the sweep.
func (s *Service) ApplyAll(ctx context.Context, studentID string, autoRegister bool) ([]ApplyAllItem, error) {
	prefs, err := s.catalog.GetPreferences(ctx, studentID)
	if err != nil {
		return nil, WrapError(CodeInternal, "failed to load preferences", err)
	}
	if len(prefs) == 0 {
		return nil, Errorf(CodeNotFound, "student %s has no course preferences", studentID)
	}
	catalog.SortByPriority(prefs)

	out := make([]ApplyAllItem, 0, len(prefs))
	for _, p := range prefs {
		item := ApplyAllItem{CourseID: p.CourseID, Priority: p.Priority}
		res, err := s.Apply(ctx, ApplyRequest{
			StudentID:    studentID,
			CourseID:     p.CourseID,
			AutoRegister: autoRegister,
		})
		if err != nil {
			item.Error = CodeOf(err)
			item.Message = err.Error()
		} else {
			item.Result = res
		}
		out = append(out, item)
	}
	return out, nil
}

// ApplyAllItem is one course outcome of an ApplyAll sweep.
type ApplyAllItem struct {
	CourseID string       `json:"courseId"`
	Priority int          `json:"priority"`
	Result   *ApplyResult `json:"result,omitempty"`
	Error    Code         `json:"error,omitempty"`
	Message  string       `json:"message,omitempty"`
}

// BookSeat books a specific seat while booking is OPEN.
func (s *Service) BookSeat(ctx context.Context, studentID, courseID, seatLabel string) (*ApplyResult, error) {
	res, err := s.bookSeatOnce(ctx, studentID, courseID, seatLabel)
	if err != nil && CodeOf(err) == CodeConflict {
		res, err = s.bookSeatOnce(ctx, studentID, courseID, seatLabel)
	}
	return res, err
}

func (s *Service) bookSeatOnce(ctx context.Context, studentID, courseID, seatLabel string) (*ApplyResult, error) {
	student, err := s.catalog.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "student %s not found", studentID)
		}
		return nil, WrapError(CodeInternal, "failed to load student", err)
	}
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "course %s not found", courseID)
		}
		return nil, WrapError(CodeInternal, "failed to load course", err)
	}
	if !scoring.PrerequisitesMet(student, course) {
		return nil, Errorf(CodePrerequisiteMissing, "student %s has not completed the prerequisites for %s", student.ID, course.Code)
	}

	unlock := s.locks.Lock(course.ID)
	defer unlock()

	cfg, _, err := s.configFor(course)
	if err != nil {
		return nil, err
	}
	if !cfg.Status.AllowsDirectBooking() {
		return nil, Errorf(CodeBookingClosed, "course %s is not open for direct booking", course.Code)
	}
	if !s.seats.Valid(course.ID, seatLabel) {
		return nil, Errorf(CodeInvalidSeatLabel, "seat %q does not exist in this classroom", seatLabel)
	}
	if _, enrolled := s.seats.SeatOf(course.ID, student.ID); enrolled {
		return nil, Errorf(CodeAlreadyEnrolled, "student %s already holds a seat in %s", student.ID, course.Code)
	}
	if s.seats.FreeCount(course.ID) == 0 {
		return nil, Errorf(CodeCapacityExceeded, "classroom for %s is full", course.Code)
	}

	bookedAt := s.now().UTC()
	breakdown := s.scorer.Score(student, course, bookedAt, s.openedAt(cfg))

	if err := s.seats.Occupy(course.ID, seatLabel, student.ID); err != nil {
		if errors.Is(err, seatmap.ErrSeatTaken) {
			return nil, Errorf(CodeSeatTaken, "seat %s is already occupied", seatLabel)
		}
		return nil, WrapError(CodeInternal, "failed to occupy seat", err)
	}

	booking := SeatBooking{
		ID:        uuid.New(),
		CourseID:  course.ID,
		StudentID: student.ID,
		SeatLabel: seatLabel,
		Active:    true,
		BookedAt:  bookedAt,
	}
	cs := ChangeSet{CourseID: course.ID, CreateBookings: []SeatBooking{booking}}
	var busEvents []eventbus.Event

	// A direct booking supersedes any waitlist entry on the same course.
	var removedEntry *waitlist.Entry
	if entry, ok := s.queue.Get(course.ID, student.ID); ok {
		s.queue.Remove(course.ID, student.ID)
		entry.Status = waitlist.StatusCancelled
		removedEntry = &entry
		cs.UpsertEntries = append(cs.UpsertEntries, entry)
		ev, au := s.newEvent(eventbus.WaitlistUpdated, course.ID, student.ID, "", map[string]interface{}{
			"action":       "left",
			"waitlistSize": s.queue.Size(course.ID),
		})
		busEvents = append(busEvents, ev)
		cs.Events = append(cs.Events, au)
	}

	free := s.seats.FreeCount(course.ID)
	booked, audit := s.newEvent(eventbus.SeatBooked, course.ID, student.ID, seatLabel, map[string]interface{}{
		"availableSeats": free,
		"compositeScore": breakdown.Composite,
	})
	busEvents = append(busEvents, booked)
	cs.Events = append(cs.Events, audit)

	prevStatus := cfg.Status
	if free == 0 {
		cfg.Status = StatusWaitlistOnly
		cfg.UpdatedAt = bookedAt
		snapshot := *cfg
		cs.UpsertConfig = &snapshot
		ev, au := s.newEvent(eventbus.BookingStatusChanged, course.ID, "", "", map[string]interface{}{
			"status":         cfg.Status.String(),
			"previousStatus": prevStatus.String(),
		})
		busEvents = append(busEvents, ev)
		cs.Events = append(cs.Events, au)
	}

	if err := s.commit(ctx, cs); err != nil {
		s.seats.Release(course.ID, seatLabel)
		cfg.Status = prevStatus
		if removedEntry != nil {
			removedEntry.Status = waitlist.StatusWaiting
			s.queue.Insert(course.ID, removedEntry)
		}
		return nil, err
	}
	s.rememberBooking(course.ID, student.ID, booking.ID)
	s.publish(busEvents)
	s.log.Info("seat booked", "course_id", course.ID, "student_id", student.ID, "seat", seatLabel)

	return &ApplyResult{
		Outcome:    OutcomeEnrolled,
		StudentID:  student.ID,
		CourseID:   course.ID,
		CourseCode: course.Code,
		SeatLabel:  seatLabel,
		Scores:     breakdown,
	}, nil
}

// Drop releases a student's seat and promotes waitlisted students into the
// freed capacity. Dropping without a seat is a no-op, so retries are safe.
func (s *Service) Drop(ctx context.Context, studentID, courseID string) (*DropResult, error) {
	res, err := s.dropOnce(ctx, studentID, courseID)
	if err != nil && CodeOf(err) == CodeConflict {
		res, err = s.dropOnce(ctx, studentID, courseID)
	}
	return res, err
}

// ProcessDropout is Drop under its mid-course name: a student leaving after
// the course started frees the seat for the waitlist the same way.
func (s *Service) ProcessDropout(ctx context.Context, studentID, courseID string) (*DropResult, error) {
	return s.Drop(ctx, studentID, courseID)
}

func (s *Service) dropOnce(ctx context.Context, studentID, courseID string) (*DropResult, error) {
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "course %s not found", courseID)
		}
		return nil, WrapError(CodeInternal, "failed to load course", err)
	}

	unlock := s.locks.Lock(course.ID)
	defer unlock()

	cfg, _, err := s.configFor(course)
	if err != nil {
		return nil, err
	}

	label, enrolled := s.seats.SeatOf(course.ID, studentID)
	if !enrolled {
		return &DropResult{Dropped: false, StudentID: studentID, CourseID: course.ID}, nil
	}
	if !cfg.Status.AllowsDrop() {
		return nil, Errorf(CodeBookingClosed, "course %s does not allow drops in status %s", course.Code, cfg.Status)
	}

	var undo []func()
	rollback := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	s.seats.Release(course.ID, label)
	undo = append(undo, func() { s.seats.Occupy(course.ID, label, studentID) })

	cs := ChangeSet{CourseID: course.ID}
	var busEvents []eventbus.Event

	s.mu.RLock()
	bookingID, hasBooking := s.bookingIDs[course.ID][studentID]
	s.mu.RUnlock()
	if hasBooking {
		cs.ReleaseBookings = append(cs.ReleaseBookings, bookingID)
	}

	ev, audit := s.newEvent(eventbus.SeatReleased, course.ID, studentID, label, map[string]interface{}{
		"availableSeats": s.seats.FreeCount(course.ID),
	})
	busEvents = append(busEvents, ev)
	cs.Events = append(cs.Events, audit)

	// Pull waitlisted students into the freed capacity, best ranked first.
	promoted := s.autoFill(&cs, &busEvents, &undo, course.ID)

	prevStatus := cfg.Status
	if cfg.Status == StatusWaitlistOnly && s.seats.FreeCount(course.ID) > 0 {
		cfg.Status = StatusOpen
		cfg.UpdatedAt = s.now().UTC()
		snapshot := *cfg
		cs.UpsertConfig = &snapshot
		ev, au := s.newEvent(eventbus.BookingStatusChanged, course.ID, "", "", map[string]interface{}{
			"status":         cfg.Status.String(),
			"previousStatus": prevStatus.String(),
		})
		busEvents = append(busEvents, ev)
		cs.Events = append(cs.Events, au)
	}

	if err := s.commit(ctx, cs); err != nil {
		cfg.Status = prevStatus
		rollback()
		return nil, err
	}
	s.forgetBooking(course.ID, studentID)
	for i := range cs.CreateBookings {
		b := cs.CreateBookings[i]
		s.rememberBooking(course.ID, b.StudentID, b.ID)
	}
	s.publish(busEvents)
	s.log.Info("seat dropped",
		"course_id", course.ID,
		"student_id", studentID,
		"seat", label,
		"promoted", len(promoted),
	)

	return &DropResult{
		Dropped:   true,
		StudentID: studentID,
		CourseID:  course.ID,
		SeatLabel: label,
		Promoted:  promoted,
	}, nil
}

// autoFill seats top-of-waitlist students while free capacity remains.
// It appends the bookings, entry updates, and events to the pending change
// set; undo steps restore the in-memory state if the commit fails. Caller
// holds the course lock.
func (s *Service) autoFill(cs *ChangeSet, busEvents *[]eventbus.Event, undo *[]func(), courseID string) []Promotion {
	var promoted []Promotion
	for s.seats.FreeCount(courseID) > 0 && s.queue.Size(courseID) > 0 {
		entry, err := s.queue.PopTop(courseID)
		if err != nil {
			break
		}
		popped := *entry
		*undo = append(*undo, func() {
			restored := popped
			restored.Status = waitlist.StatusWaiting
			s.queue.Insert(courseID, &restored)
		})

		label, err := s.takeSeat(courseID, entry.PreferredSeat, entry.StudentID)
		if err != nil {
			// No seat could be taken after all; put the entry back.
			entry.Status = waitlist.StatusWaiting
			s.queue.Insert(courseID, entry)
			*undo = (*undo)[:len(*undo)-1]
			break
		}
		seatLabel := label
		studentID := entry.StudentID
		*undo = append(*undo, func() { s.seats.Release(courseID, seatLabel) })

		booking := SeatBooking{
			ID:         uuid.New(),
			CourseID:   courseID,
			StudentID:  studentID,
			SeatLabel:  seatLabel,
			Active:     true,
			AutoFilled: true,
			BookedAt:   s.now().UTC(),
		}
		cs.CreateBookings = append(cs.CreateBookings, booking)

		entry.Status = waitlist.StatusAllocated
		cs.UpsertEntries = append(cs.UpsertEntries, *entry)

		ev, audit := s.newEvent(eventbus.StudentAutoEnrolled, courseID, studentID, seatLabel, map[string]interface{}{
			"compositeScore": entry.Scores.Composite,
			"availableSeats": s.seats.FreeCount(courseID),
		})
		*busEvents = append(*busEvents, ev)
		cs.Events = append(cs.Events, audit)

		promoted = append(promoted, Promotion{
			StudentID: studentID,
			SeatLabel: seatLabel,
			Score:     entry.Scores.Composite,
		})
	}
	if len(promoted) > 0 {
		ev, audit := s.newEvent(eventbus.WaitlistUpdated, courseID, "", "", map[string]interface{}{
			"action":       "promoted",
			"promoted":     len(promoted),
			"waitlistSize": s.queue.Size(courseID),
		})
		*busEvents = append(*busEvents, ev)
		cs.Events = append(cs.Events, audit)
	}
	return promoted
}

// LeaveWaitlist withdraws a student's waitlist entry. Idempotent.
func (s *Service) LeaveWaitlist(ctx context.Context, studentID, courseID string) (bool, error) {
	course, err := s.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return false, Errorf(CodeNotFound, "course %s not found", courseID)
		}
		return false, WrapError(CodeInternal, "failed to load course", err)
	}

	unlock := s.locks.Lock(course.ID)
	defer unlock()

	entry, ok := s.queue.Get(course.ID, studentID)
	if !ok {
		return false, nil
	}
	s.queue.Remove(course.ID, studentID)
	entry.Status = waitlist.StatusCancelled

	cs := ChangeSet{CourseID: course.ID, UpsertEntries: []waitlist.Entry{entry}}
	ev, audit := s.newEvent(eventbus.WaitlistUpdated, course.ID, studentID, "", map[string]interface{}{
		"action":       "left",
		"waitlistSize": s.queue.Size(course.ID),
	})
	cs.Events = append(cs.Events, audit)

	if err := s.commit(ctx, cs); err != nil {
		entry.Status = waitlist.StatusWaiting
		s.queue.Insert(course.ID, &entry)
		return false, err
	}
	s.publish([]eventbus.Event{ev})
	return true, nil
}

// knownCourseIDs returns every course with runtime state, sorted.
func (s *Service) knownCourseIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.configs))
	for id := range s.configs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
