package registration

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"coursely/internal/waitlist"
)

// ErrRepoConflict signals a uniqueness violation inside Apply. The service
// retries the whole operation once on this error.
var ErrRepoConflict = errors.New("repository conflict")

// ChangeSet is the transactional write unit for one course. Everything in it
// commits atomically or not at all; the in-memory seat map and waitlist are
// only considered durable once Apply returns nil.
type ChangeSet struct {
	CourseID string

	UpsertConfig    *SeatConfig
	CreateBookings  []SeatBooking
	ReleaseBookings []uuid.UUID
	UpsertEntries   []waitlist.Entry
	Events          []RegistrationEvent
}

// Empty reports whether the change set carries no writes.
func (cs *ChangeSet) Empty() bool {
	return cs.UpsertConfig == nil &&
		len(cs.CreateBookings) == 0 &&
		len(cs.ReleaseBookings) == 0 &&
		len(cs.UpsertEntries) == 0 &&
		len(cs.Events) == 0
}

// Repository persists registration state. The in-memory seat map and waitlist
// store remain the runtime authority; the repository exists for durability,
// history queries, and startup rebuild.
type Repository interface {
	// Apply commits one course's change set atomically.
	Apply(ctx context.Context, cs ChangeSet) error

	SeatConfigs(ctx context.Context) ([]SeatConfig, error)
	SeatConfig(ctx context.Context, courseID string) (*SeatConfig, error)
	ActiveBookings(ctx context.Context, courseID string) ([]SeatBooking, error)
	StudentBookings(ctx context.Context, studentID string) ([]SeatBooking, error)
	WaitingEntries(ctx context.Context, courseID string) ([]waitlist.Entry, error)
	StudentEntries(ctx context.Context, studentID string) ([]waitlist.Entry, error)
	Events(ctx context.Context, courseID string, limit int) ([]RegistrationEvent, error)
}
