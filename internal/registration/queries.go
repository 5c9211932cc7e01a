package registration

import (
	"context"
	"time"

	"coursely/internal/seatmap"
	"coursely/internal/waitlist"
	"coursely/pkg/cache"
)

const snapshotTTL = 5 * time.Second

func snapshotKey(courseID string) string {
	return "classroom:" + courseID
}

func snapshotCache() cache.Service {
	if c := cache.Client(); c != nil {
		return cache.NewService(c)
	}
	return nil
}

// CourseListItem is one row of the course directory with live availability.
type CourseListItem struct {
	CourseID     string        `json:"courseId"`
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Category     string        `json:"category,omitempty"`
	Status       BookingStatus `json:"status"`
	TotalSeats   int           `json:"totalSeats"`
	Available    int           `json:"available"`
	WaitlistSize int           `json:"waitlistSize"`
}

// ListCourses returns the full catalog with per-course availability. Courses
// that never opened report CLOSED with an empty grid.
func (s *Service) ListCourses(ctx context.Context) ([]CourseListItem, error) {
	courses, err := s.catalog.ListCourses(ctx)
	if err != nil {
		return nil, WrapError(CodeInternal, "failed to list courses", err)
	}

	out := make([]CourseListItem, 0, len(courses))
	for _, c := range courses {
		item := CourseListItem{
			CourseID: c.ID,
			Code:     c.Code,
			Name:     c.Name,
			Category: c.Category,
			Status:   StatusClosed,
		}
		s.mu.RLock()
		cfg, ok := s.configs[c.ID]
		s.mu.RUnlock()
		if ok {
			item.Status = cfg.Status
			item.TotalSeats = s.seats.TotalSeats(c.ID)
			item.Available = s.seats.FreeCount(c.ID)
			item.WaitlistSize = s.queue.Size(c.ID)
		}
		out = append(out, item)
	}
	return out, nil
}

// ClassroomView is the full classroom snapshot served to clients.
type ClassroomView struct {
	CourseID     string         `json:"courseId"`
	Status       BookingStatus  `json:"status"`
	Rows         int            `json:"rows"`
	SeatsPerRow  int            `json:"seatsPerRow"`
	TotalSeats   int            `json:"totalSeats"`
	Occupied     int            `json:"occupied"`
	Available    int            `json:"available"`
	WaitlistSize int            `json:"waitlistSize"`
	Seats        []seatmap.Seat `json:"seats"`
	OpenedAt     *time.Time     `json:"openedAt,omitempty"`
}

// ClassroomState returns the seat grid snapshot for a course. Snapshots are
// cached briefly in Redis when it is available; mutations invalidate the key.
func (s *Service) ClassroomState(ctx context.Context, courseID string) (*ClassroomView, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if svc := snapshotCache(); svc != nil {
		var view ClassroomView
		if err := svc.Get(ctx, snapshotKey(course.ID), &view); err == nil {
			return &view, nil
		}
	}

	s.mu.RLock()
	cfg, ok := s.configs[course.ID]
	s.mu.RUnlock()
	if !ok {
		return nil, Errorf(CodeNotFound, "course %s has no classroom configured", course.Code)
	}

	state, err := s.seats.State(course.ID)
	if err != nil {
		return nil, WrapError(CodeInternal, "failed to snapshot classroom", err)
	}

	view := &ClassroomView{
		CourseID:     course.ID,
		Status:       cfg.Status,
		Rows:         cfg.Rows,
		SeatsPerRow:  cfg.SeatsPerRow,
		TotalSeats:   state.TotalSeats,
		Occupied:     state.Occupied,
		Available:    state.Available,
		WaitlistSize: s.queue.Size(course.ID),
		Seats:        state.Seats,
		OpenedAt:     cfg.OpenedAt,
	}

	if svc := snapshotCache(); svc != nil {
		svc.Set(ctx, snapshotKey(course.ID), view, snapshotTTL)
	}
	return view, nil
}

func (s *Service) invalidateSnapshot(courseID string) {
	if svc := snapshotCache(); svc != nil {
		svc.Delete(context.Background(), snapshotKey(courseID))
	}
}

// WaitlistEntryView is one ranked waitlist row.
type WaitlistEntryView struct {
	Position      int       `json:"position"`
	StudentID     string    `json:"studentId"`
	Composite     float64   `json:"compositeScore"`
	AppliedAt     time.Time `json:"appliedAt"`
	PreferredSeat string    `json:"preferredSeat,omitempty"`
}

// WaitlistView returns the ranked waitlist, truncated to limit when positive.
func (s *Service) WaitlistView(ctx context.Context, courseID string, limit int) ([]WaitlistEntryView, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	entries := s.queue.Snapshot(course.ID)
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	out := make([]WaitlistEntryView, 0, len(entries))
	for i, e := range entries {
		out = append(out, WaitlistEntryView{
			Position:      i + 1,
			StudentID:     e.StudentID,
			Composite:     e.Scores.Composite,
			AppliedAt:     e.AppliedAt,
			PreferredSeat: e.PreferredSeat,
		})
	}
	return out, nil
}

// CourseStatusView is the lifecycle and occupancy summary of one course.
type CourseStatusView struct {
	CourseID     string        `json:"courseId"`
	CourseCode   string        `json:"courseCode"`
	Status       BookingStatus `json:"status"`
	TotalSeats   int           `json:"totalSeats"`
	Occupied     int           `json:"occupied"`
	Available    int           `json:"available"`
	WaitlistSize int           `json:"waitlistSize"`
	OpenedAt     *time.Time    `json:"openedAt,omitempty"`
}

// CourseStatus summarizes one course's booking state.
func (s *Service) CourseStatus(ctx context.Context, courseID string) (*CourseStatusView, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	cfg, ok := s.configs[course.ID]
	s.mu.RUnlock()
	if !ok {
		return nil, Errorf(CodeNotFound, "course %s has no classroom configured", course.Code)
	}

	return &CourseStatusView{
		CourseID:     course.ID,
		CourseCode:   course.Code,
		Status:       cfg.Status,
		TotalSeats:   s.seats.TotalSeats(course.ID),
		Occupied:     s.seats.OccupiedCount(course.ID),
		Available:    s.seats.FreeCount(course.ID),
		WaitlistSize: s.queue.Size(course.ID),
		OpenedAt:     cfg.OpenedAt,
	}, nil
}

// StudentCourseView is one course a student is enrolled in or waiting on.
type StudentCourseView struct {
	CourseID  string  `json:"courseId"`
	State     string  `json:"state"`
	SeatLabel string  `json:"seatLabel,omitempty"`
	Position  int     `json:"position,omitempty"`
	Composite float64 `json:"compositeScore,omitempty"`
}

// StudentStatusView is the cross-course view of one student.
type StudentStatusView struct {
	StudentID  string              `json:"studentId"`
	Enrolled   []StudentCourseView `json:"enrolled"`
	Waitlisted []StudentCourseView `json:"waitlisted"`
}

// StudentStatus reports every seat the student holds and every waitlist
// position they occupy, with live ranks.
func (s *Service) StudentStatus(ctx context.Context, studentID string) (*StudentStatusView, error) {
	view := &StudentStatusView{StudentID: studentID}
	for _, courseID := range s.knownCourseIDs() {
		if label, ok := s.seats.SeatOf(courseID, studentID); ok {
			view.Enrolled = append(view.Enrolled, StudentCourseView{
				CourseID:  courseID,
				State:     "enrolled",
				SeatLabel: label,
			})
			continue
		}
		if entry, ok := s.queue.Get(courseID, studentID); ok {
			position, _ := s.queue.RankOf(courseID, studentID)
			view.Waitlisted = append(view.Waitlisted, StudentCourseView{
				CourseID:  courseID,
				State:     "waitlisted",
				Position:  position,
				Composite: entry.Scores.Composite,
			})
		}
	}
	return view, nil
}

// WaitlistRank returns a student's live 1-based rank, or zero when absent.
func (s *Service) WaitlistRank(courseID, studentID string) int {
	rank, ok := s.queue.RankOf(courseID, studentID)
	if !ok {
		return 0
	}
	return rank
}

// History returns the recorded event trail for a course, newest first.
func (s *Service) History(ctx context.Context, courseID string, limit int) ([]RegistrationEvent, error) {
	course, err := s.resolveCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.Events(ctx, course.ID, limit)
	if err != nil {
		return nil, WrapError(CodeInternal, "failed to load event history", err)
	}
	return events, nil
}

// WaitlistEntryOf exposes a student's waitlist entry for inspection.
func (s *Service) WaitlistEntryOf(courseID, studentID string) (waitlist.Entry, bool) {
	return s.queue.Get(courseID, studentID)
}
