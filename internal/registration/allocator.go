package registration

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"coursely/internal/allocation"
	"coursely/internal/eventbus"
	"coursely/internal/waitlist"
)

// Award is one seat granted during a batch allocation run.
type Award struct {
	StudentID string  `json:"studentId"`
	CourseID  string  `json:"courseId"`
	SeatLabel string  `json:"seatLabel"`
	Priority  int     `json:"priority"`
	Score     float64 `json:"score"`
}

// AllocationReport summarizes one batch allocation run.
type AllocationReport struct {
	Strategy  allocation.Strategy `json:"strategy"`
	Courses   []string            `json:"courses"`
	Awards    []Award             `json:"awards"`
	Cascaded  int                 `json:"cascaded"`
	StartedAt time.Time           `json:"startedAt"`
}

// RunAllocation runs batch allocation over the given courses (all courses
// when empty) with the configured strategy, or a one-off override. Every
// involved course is locked for the duration, in sorted ID order.
func (s *Service) RunAllocation(ctx context.Context, courseIDs []string, strategyOverride string) (*AllocationReport, error) {
	engine := s.alloc
	if strategyOverride != "" {
		strategy, err := allocation.ParseStrategy(strategyOverride)
		if err != nil {
			return nil, WrapError(CodeConfigurationInvalid, "invalid strategy", err)
		}
		engine = allocation.NewEngine(strategy)
	}

	if len(courseIDs) == 0 {
		courseIDs = s.knownCourseIDs()
	}

	// Only courses that have not started participate.
	eligible := make([]string, 0, len(courseIDs))
	s.mu.RLock()
	for _, id := range courseIDs {
		cfg, ok := s.configs[id]
		if !ok {
			continue
		}
		switch cfg.Status {
		case StatusClosed, StatusOpen, StatusWaitlistOnly:
			eligible = append(eligible, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(eligible)

	report := &AllocationReport{
		Strategy:  engine.Strategy(),
		Courses:   eligible,
		StartedAt: s.now().UTC(),
	}
	if len(eligible) == 0 {
		return report, nil
	}

	release := s.locks.LockAll(eligible)
	defer release()

	inSet := make(map[string]bool, len(eligible))
	inputs := make([]allocation.CourseInput, 0, len(eligible))
	students := make(map[string]bool)
	for _, id := range eligible {
		inSet[id] = true
		entries := s.queue.Snapshot(id)
		for _, e := range entries {
			students[e.StudentID] = true
		}
		inputs = append(inputs, allocation.CourseInput{
			CourseID:  id,
			FreeSeats: s.seats.FreeCount(id),
			Entries:   entries,
		})
	}

	priorities, err := s.loadPriorities(ctx, students)
	if err != nil {
		return nil, err
	}

	result := engine.Run(allocation.Input{Courses: inputs, Priorities: priorities})

	byCourse := make(map[string][]allocation.Assignment)
	for _, a := range result.Assignments {
		byCourse[a.CourseID] = append(byCourse[a.CourseID], a)
	}

	changesets := make(map[string]*ChangeSet, len(eligible))
	busEvents := make(map[string][]eventbus.Event, len(eligible))
	changeFor := func(courseID string) *ChangeSet {
		cs, ok := changesets[courseID]
		if !ok {
			cs = &ChangeSet{CourseID: courseID}
			changesets[courseID] = cs
		}
		return cs
	}

	// The in-memory seat map and waitlists mutate before the commits below.
	// Every mutation records its inverse, grouped by course, so a failed
	// commit can restore the courses whose change sets never made it to
	// storage.
	undos := make(map[string][]func(), len(eligible))
	pushUndo := func(courseID string, fn func()) {
		undos[courseID] = append(undos[courseID], fn)
	}

	for _, courseID := range eligible {
		assignments := byCourse[courseID]
		awarded := 0
		for _, a := range assignments {
			// Skip entries a higher-priority win already cancelled.
			if _, still := s.queue.Get(courseID, a.StudentID); !still {
				continue
			}
			label, err := s.takeSeat(courseID, a.Entry.PreferredSeat, a.StudentID)
			if err != nil {
				continue
			}
			seatLabel := label
			pushUndo(courseID, func() { s.seats.Release(courseID, seatLabel) })

			s.queue.Remove(courseID, a.StudentID)
			waiting := a.Entry
			pushUndo(courseID, func() {
				restored := waiting
				s.queue.Insert(courseID, &restored)
			})

			cs := changeFor(courseID)
			booking := SeatBooking{
				ID:         uuid.New(),
				CourseID:   courseID,
				StudentID:  a.StudentID,
				SeatLabel:  label,
				Active:     true,
				AutoFilled: true,
				BookedAt:   s.now().UTC(),
			}
			cs.CreateBookings = append(cs.CreateBookings, booking)

			entry := a.Entry
			entry.Status = waitlist.StatusAllocated
			cs.UpsertEntries = append(cs.UpsertEntries, entry)

			ev, audit := s.newEvent(eventbus.StudentAutoEnrolled, courseID, a.StudentID, label, map[string]interface{}{
				"compositeScore": entry.Scores.Composite,
				"strategy":       string(engine.Strategy()),
			})
			busEvents[courseID] = append(busEvents[courseID], ev)
			cs.Events = append(cs.Events, audit)

			report.Awards = append(report.Awards, Award{
				StudentID: a.StudentID,
				CourseID:  courseID,
				SeatLabel: label,
				Priority:  a.Priority,
				Score:     entry.Scores.Composite,
			})
			awarded++

			// A ranked win cancels the student's entries on courses they
			// prefer less.
			report.Cascaded += s.cascade(busEvents, changeFor, pushUndo, inSet, a, priorities)
		}

		if awarded > 0 {
			cs := changeFor(courseID)
			ev, audit := s.newEvent(eventbus.WaitlistUpdated, courseID, "", "", map[string]interface{}{
				"action":       "allocated",
				"allocated":    awarded,
				"waitlistSize": s.queue.Size(courseID),
			})
			busEvents[courseID] = append(busEvents[courseID], ev)
			cs.Events = append(cs.Events, audit)
		}

		s.mu.RLock()
		cfg := s.configs[courseID]
		s.mu.RUnlock()
		if cfg != nil && cfg.Status == StatusOpen && s.seats.FreeCount(courseID) == 0 {
			prev := cfg.Status
			cfg.Status = StatusWaitlistOnly
			cfg.UpdatedAt = s.now().UTC()
			pushUndo(courseID, func() { cfg.Status = prev })
			cs := changeFor(courseID)
			snapshot := *cfg
			cs.UpsertConfig = &snapshot
			ev, audit := s.newEvent(eventbus.BookingStatusChanged, courseID, "", "", map[string]interface{}{
				"status":         cfg.Status.String(),
				"previousStatus": prev.String(),
			})
			busEvents[courseID] = append(busEvents[courseID], ev)
			cs.Events = append(cs.Events, audit)
		}
	}

	// Commit course by course in deterministic order; publish after each
	// successful commit. A commit failure rolls back the in-memory state of
	// every course whose change set is still unpersisted; already committed
	// courses stand.
	committed := make(map[string]bool, len(changesets))
	for _, courseID := range eligible {
		cs, ok := changesets[courseID]
		if !ok || cs.Empty() {
			continue
		}
		err := s.commit(ctx, *cs)
		if err != nil && CodeOf(err) == CodeConflict {
			err = s.commit(ctx, *cs)
		}
		if err != nil {
			s.log.Error("allocation commit failed",
				"course_id", courseID,
				"committed", len(committed),
				"error", err.Error(),
			)
			for j := len(eligible) - 1; j >= 0; j-- {
				id := eligible[j]
				if committed[id] {
					continue
				}
				fns := undos[id]
				for k := len(fns) - 1; k >= 0; k-- {
					fns[k]()
				}
			}
			return nil, err
		}
		for i := range cs.CreateBookings {
			b := cs.CreateBookings[i]
			s.rememberBooking(courseID, b.StudentID, b.ID)
		}
		committed[courseID] = true
		s.publish(busEvents[courseID])
	}

	s.log.Info("allocation run finished",
		"strategy", string(engine.Strategy()),
		"courses", len(eligible),
		"awards", len(report.Awards),
		"cascaded", report.Cascaded,
	)
	return report, nil
}

// cascade cancels the winner's waitlist entries on courses ranked below the
// one they just won. Unranked wins cancel nothing. Caller holds all locks.
func (s *Service) cascade(busEvents map[string][]eventbus.Event, changeFor func(string) *ChangeSet, pushUndo func(string, func()), inSet map[string]bool, won allocation.Assignment, priorities map[string]map[string]int) int {
	prefs, ok := priorities[won.StudentID]
	if !ok {
		return 0
	}
	wonPriority, ranked := prefs[won.CourseID]
	if !ranked {
		return 0
	}

	cancelled := 0
	courses := make([]string, 0, len(prefs))
	for courseID := range prefs {
		courses = append(courses, courseID)
	}
	sort.Strings(courses)

	for _, courseID := range courses {
		if courseID == won.CourseID || !inSet[courseID] {
			continue
		}
		if prefs[courseID] <= wonPriority {
			continue
		}
		entry, still := s.queue.Get(courseID, won.StudentID)
		if !still {
			continue
		}
		s.queue.Remove(courseID, won.StudentID)
		waiting := entry
		pushUndo(courseID, func() {
			restored := waiting
			s.queue.Insert(courseID, &restored)
		})
		entry.Status = waitlist.StatusCancelled

		cs := changeFor(courseID)
		cs.UpsertEntries = append(cs.UpsertEntries, entry)
		ev, audit := s.newEvent(eventbus.WaitlistUpdated, courseID, won.StudentID, "", map[string]interface{}{
			"action":       "cascaded",
			"wonCourseId":  won.CourseID,
			"waitlistSize": s.queue.Size(courseID),
		})
		busEvents[courseID] = append(busEvents[courseID], ev)
		cs.Events = append(cs.Events, audit)
		cancelled++
	}
	return cancelled
}

func (s *Service) loadPriorities(ctx context.Context, students map[string]bool) (map[string]map[string]int, error) {
	ids := make([]string, 0, len(students))
	for id := range students {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make(map[string]map[string]int, len(ids))
	for _, studentID := range ids {
		prefs, err := s.catalog.GetPreferences(ctx, studentID)
		if err != nil {
			return nil, WrapError(CodeInternal, "failed to load preferences", err)
		}
		if len(prefs) == 0 {
			continue
		}
		m := make(map[string]int, len(prefs))
		for _, p := range prefs {
			m[p.CourseID] = p.Priority
		}
		out[studentID] = m
	}
	return out, nil
}

// RunPeriodicAllocation runs batch allocation on a fixed interval until the
// context is cancelled. Intended to run in its own goroutine.
func (s *Service) RunPeriodicAllocation(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("periodic allocation started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("periodic allocation stopped")
			return
		case <-ticker.C:
			if _, err := s.RunAllocation(ctx, nil, ""); err != nil {
				s.log.Error("periodic allocation failed", "error", err.Error())
			}
		}
	}
}
