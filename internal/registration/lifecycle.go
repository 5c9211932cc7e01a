package registration

import (
	"context"
	"errors"

	"coursely/internal/catalog"
	"coursely/internal/eventbus"
	"coursely/internal/waitlist"
)

func (s *Service) resolveCourse(ctx context.Context, idOrCode string) (*catalog.Course, error) {
	course, err := s.catalog.GetCourse(ctx, idOrCode)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "course %s not found", idOrCode)
		}
		return nil, WrapError(CodeInternal, "failed to load course", err)
	}
	return course, nil
}

// OpenBooking configures the classroom grid and transitions the course to
// OPEN. Zero rows or seatsPerRow fall back to the configured defaults. The
// grid cannot be resized once seats are occupied.
func (s *Service) OpenBooking(ctx context.Context, courseID string, rows, seatsPerRow int) (*SeatConfig, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if rows < 0 || seatsPerRow < 0 {
		return nil, Errorf(CodeConfigurationInvalid, "seat grid dimensions must be positive")
	}
	if rows == 0 {
		rows = s.opts.DefaultRows
	}
	if seatsPerRow == 0 {
		seatsPerRow = s.opts.DefaultSeatsPerRow
	}

	unlock := s.locks.Lock(course.ID)
	defer unlock()

	cfg, _, err := s.configFor(course)
	if err != nil {
		return nil, err
	}
	switch cfg.Status {
	case StatusOpen, StatusWaitlistOnly:
		return nil, Errorf(CodeBookingAlreadyOpen, "booking for %s is already open", course.Code)
	case StatusStarted, StatusCompleted:
		return nil, Errorf(CodeConflict, "course %s already started", course.Code)
	}

	occupied := s.seats.OccupiedCount(course.ID)
	if occupied > 0 && (rows != cfg.Rows || seatsPerRow != cfg.SeatsPerRow) {
		return nil, Errorf(CodeConfigurationInvalid, "cannot resize classroom with %d occupied seats", occupied)
	}
	if occupied == 0 && (rows != cfg.Rows || seatsPerRow != cfg.SeatsPerRow) {
		if err := s.seats.Configure(course.ID, rows, seatsPerRow); err != nil {
			return nil, WrapError(CodeConfigurationInvalid, "invalid seat grid", err)
		}
	}

	prev := *cfg
	now := s.now().UTC()
	cfg.Rows = rows
	cfg.SeatsPerRow = seatsPerRow
	cfg.TotalSeats = rows * seatsPerRow
	cfg.Status = StatusOpen
	cfg.OpenedAt = &now
	cfg.UpdatedAt = now

	snapshot := *cfg
	cs := ChangeSet{CourseID: course.ID, UpsertConfig: &snapshot}
	ev, audit := s.newEvent(eventbus.BookingStatusChanged, course.ID, "", "", map[string]interface{}{
		"status":         cfg.Status.String(),
		"previousStatus": prev.Status.String(),
		"totalSeats":     cfg.TotalSeats,
	})
	cs.Events = append(cs.Events, audit)

	if err := s.commit(ctx, cs); err != nil {
		*cfg = prev
		return nil, err
	}
	s.publish([]eventbus.Event{ev})
	s.log.Info("booking opened",
		"course_id", course.ID,
		"rows", rows,
		"seats_per_row", seatsPerRow,
	)
	return &snapshot, nil
}

// CloseBooking transitions the course to CLOSED and runs a final allocation
// pass over its waitlist.
func (s *Service) CloseBooking(ctx context.Context, courseID string) (*SeatConfig, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.transition(ctx, course, StatusClosed, func(st BookingStatus) bool {
		return st == StatusOpen || st == StatusWaitlistOnly
	})
	if err != nil {
		return nil, err
	}

	// Final pass so the strongest waitlisted students get any remaining seats.
	if _, err := s.RunAllocation(ctx, []string{course.ID}, ""); err != nil {
		s.log.Error("post-close allocation failed", "course_id", course.ID, "error", err.Error())
	}
	return snapshot, nil
}

// StartCourse marks the course as in session. Remaining waitlist entries
// expire; applications and direct bookings are rejected from here on, but
// dropouts still trigger auto-fill against the expired-free waitlist.
func (s *Service) StartCourse(ctx context.Context, courseID string) (*SeatConfig, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(course.ID)
	defer unlock()

	cfg, _, err := s.configFor(course)
	if err != nil {
		return nil, err
	}
	if !cfg.Status.CanTransitionTo(StatusStarted) {
		return nil, Errorf(CodeConflict, "course %s cannot start from status %s", course.Code, cfg.Status)
	}

	prev := *cfg
	now := s.now().UTC()
	cfg.Status = StatusStarted
	cfg.UpdatedAt = now

	snapshot := *cfg
	cs := ChangeSet{CourseID: course.ID, UpsertConfig: &snapshot}
	var busEvents []eventbus.Event

	expired := s.queue.Snapshot(course.ID)
	for i := range expired {
		s.queue.Remove(course.ID, expired[i].StudentID)
		expired[i].Status = waitlist.StatusExpired
		cs.UpsertEntries = append(cs.UpsertEntries, expired[i])
	}
	if len(expired) > 0 {
		ev, audit := s.newEvent(eventbus.WaitlistUpdated, course.ID, "", "", map[string]interface{}{
			"action":       "expired",
			"expired":      len(expired),
			"waitlistSize": 0,
		})
		busEvents = append(busEvents, ev)
		cs.Events = append(cs.Events, audit)
	}

	ev, audit := s.newEvent(eventbus.BookingStatusChanged, course.ID, "", "", map[string]interface{}{
		"status":         cfg.Status.String(),
		"previousStatus": prev.Status.String(),
	})
	busEvents = append(busEvents, ev)
	cs.Events = append(cs.Events, audit)

	if err := s.commit(ctx, cs); err != nil {
		*cfg = prev
		for i := range expired {
			e := expired[i]
			e.Status = waitlist.StatusWaiting
			s.queue.Insert(course.ID, &e)
		}
		return nil, err
	}
	s.publish(busEvents)
	s.log.Info("course started", "course_id", course.ID, "expired_entries", len(expired))
	return &snapshot, nil
}

// CompleteCourse marks an in-session course as finished.
func (s *Service) CompleteCourse(ctx context.Context, courseID string) (*SeatConfig, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, course, StatusCompleted, func(st BookingStatus) bool {
		return st.CanTransitionTo(StatusCompleted)
	})
}

// transition applies a simple status change under the course lock.
func (s *Service) transition(ctx context.Context, course *catalog.Course, target BookingStatus, allowed func(BookingStatus) bool) (*SeatConfig, error) {
	unlock := s.locks.Lock(course.ID)
	defer unlock()

	cfg, _, err := s.configFor(course)
	if err != nil {
		return nil, err
	}
	if !allowed(cfg.Status) {
		return nil, Errorf(CodeConflict, "course %s cannot move from %s to %s", course.Code, cfg.Status, target)
	}

	prev := *cfg
	cfg.Status = target
	cfg.UpdatedAt = s.now().UTC()

	snapshot := *cfg
	cs := ChangeSet{CourseID: course.ID, UpsertConfig: &snapshot}
	ev, audit := s.newEvent(eventbus.BookingStatusChanged, course.ID, "", "", map[string]interface{}{
		"status":         cfg.Status.String(),
		"previousStatus": prev.Status.String(),
	})
	cs.Events = append(cs.Events, audit)

	if err := s.commit(ctx, cs); err != nil {
		*cfg = prev
		return nil, err
	}
	s.publish([]eventbus.Event{ev})
	s.log.Info("booking status changed",
		"course_id", course.ID,
		"from", prev.Status.String(),
		"to", target.String(),
	)
	return &snapshot, nil
}
