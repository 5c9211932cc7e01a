package registration

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"coursely/internal/waitlist"
)

// MemoryRepository keeps everything in process. It backs tests and
// single-node deployments without Postgres; Apply enforces the same
// uniqueness rules the database indexes do.
type MemoryRepository struct {
	mu       sync.RWMutex
	configs  map[string]SeatConfig
	bookings map[uuid.UUID]SeatBooking
	entries  map[uuid.UUID]waitlist.Entry
	events   []RegistrationEvent
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		configs:  make(map[string]SeatConfig),
		bookings: make(map[uuid.UUID]SeatBooking),
		entries:  make(map[uuid.UUID]waitlist.Entry),
	}
}

func (r *MemoryRepository) Apply(ctx context.Context, cs ChangeSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	released := make(map[uuid.UUID]bool, len(cs.ReleaseBookings))
	for _, id := range cs.ReleaseBookings {
		released[id] = true
	}

	// Check active-booking uniqueness against the state after releases.
	for _, nb := range cs.CreateBookings {
		for id, b := range r.bookings {
			if !b.Active || released[id] || b.CourseID != nb.CourseID {
				continue
			}
			if b.StudentID == nb.StudentID || b.SeatLabel == nb.SeatLabel {
				return ErrRepoConflict
			}
		}
	}

	for _, id := range cs.ReleaseBookings {
		b, ok := r.bookings[id]
		if !ok {
			continue
		}
		b.Active = false
		r.bookings[id] = b
	}
	for _, b := range cs.CreateBookings {
		r.bookings[b.ID] = b
	}
	for _, e := range cs.UpsertEntries {
		r.entries[e.ID] = e
	}
	if cs.UpsertConfig != nil {
		r.configs[cs.UpsertConfig.CourseID] = *cs.UpsertConfig
	}
	r.events = append(r.events, cs.Events...)
	return nil
}

func (r *MemoryRepository) SeatConfigs(ctx context.Context) ([]SeatConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SeatConfig, 0, len(r.configs))
	for _, c := range r.configs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (r *MemoryRepository) SeatConfig(ctx context.Context, courseID string) (*SeatConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.configs[courseID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *MemoryRepository) ActiveBookings(ctx context.Context, courseID string) ([]SeatBooking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SeatBooking
	for _, b := range r.bookings {
		if b.Active && b.CourseID == courseID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatLabel < out[j].SeatLabel })
	return out, nil
}

func (r *MemoryRepository) StudentBookings(ctx context.Context, studentID string) ([]SeatBooking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []SeatBooking
	for _, b := range r.bookings {
		if b.StudentID == studentID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookedAt.Before(out[j].BookedAt) })
	return out, nil
}

func (r *MemoryRepository) WaitingEntries(ctx context.Context, courseID string) ([]waitlist.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []waitlist.Entry
	for _, e := range r.entries {
		if e.CourseID == courseID && !e.Status.IsTerminal() {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return waitlist.Less(&out[i], &out[j]) })
	return out, nil
}

func (r *MemoryRepository) StudentEntries(ctx context.Context, studentID string) ([]waitlist.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []waitlist.Entry
	for _, e := range r.entries {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppliedAt.Before(out[j].AppliedAt) })
	return out, nil
}

func (r *MemoryRepository) Events(ctx context.Context, courseID string, limit int) ([]RegistrationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []RegistrationEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].CourseID != courseID {
			continue
		}
		out = append(out, r.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
