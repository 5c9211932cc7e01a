package registration

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the course booking lifecycle state.
type BookingStatus string

const (
	StatusClosed       BookingStatus = "CLOSED"
	StatusOpen         BookingStatus = "OPEN"
	StatusWaitlistOnly BookingStatus = "WAITLIST_ONLY"
	StatusStarted      BookingStatus = "STARTED"
	StatusCompleted    BookingStatus = "COMPLETED"
)

// IsValid checks whether the status is a known lifecycle state.
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusClosed, StatusOpen, StatusWaitlistOnly, StatusStarted, StatusCompleted:
		return true
	}
	return false
}

// CanTransitionTo enforces the booking lifecycle state machine.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	allowed, ok := statusTransitions[s]
	if !ok {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

var statusTransitions = map[BookingStatus][]BookingStatus{
	StatusClosed:       {StatusOpen, StatusStarted},
	StatusOpen:         {StatusWaitlistOnly, StatusClosed},
	StatusWaitlistOnly: {StatusOpen, StatusClosed},
	StatusStarted:      {StatusCompleted},
	StatusCompleted:    {},
}

// AllowsApply reports whether new applications are accepted. Before the
// course starts a student can always at least join the waitlist.
func (s BookingStatus) AllowsApply() bool {
	switch s {
	case StatusClosed, StatusOpen, StatusWaitlistOnly:
		return true
	}
	return false
}

// AllowsDirectBooking reports whether a specific seat can be booked.
func (s BookingStatus) AllowsDirectBooking() bool {
	return s == StatusOpen
}

// AllowsDrop reports whether enrolled students can release their seat.
func (s BookingStatus) AllowsDrop() bool {
	switch s {
	case StatusOpen, StatusWaitlistOnly, StatusStarted:
		return true
	}
	return false
}

func (s BookingStatus) String() string {
	return string(s)
}

// SeatConfig is the per-course classroom and booking lifecycle record.
type SeatConfig struct {
	CourseID    string        `gorm:"primaryKey;column:course_id" json:"courseId"`
	Rows        int           `gorm:"not null" json:"rows"`
	SeatsPerRow int           `gorm:"not null;column:seats_per_row" json:"seatsPerRow"`
	TotalSeats  int           `gorm:"not null;column:total_seats" json:"totalSeats"`
	Status      BookingStatus `gorm:"type:varchar(20);not null;default:'CLOSED'" json:"status"`
	OpenedAt    *time.Time    `gorm:"column:opened_at" json:"openedAt,omitempty"`
	ClosesAt    *time.Time    `gorm:"column:closes_at" json:"closesAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (SeatConfig) TableName() string {
	return "seat_configs"
}

// Validate checks the grid shape invariant.
func (c *SeatConfig) Validate() error {
	if c.Rows < 1 || c.SeatsPerRow < 1 {
		return errors.New("seat grid must be at least 1x1")
	}
	if c.TotalSeats != c.Rows*c.SeatsPerRow {
		return errors.New("total seats must equal rows times seats per row")
	}
	if !c.Status.IsValid() {
		return errors.New("unknown booking status")
	}
	return nil
}

// SeatBooking is one student's hold on one seat. At most one active booking
// exists per (course, student) and per (course, seat); released bookings are
// kept for history.
type SeatBooking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID   string     `gorm:"not null;column:course_id;index:idx_bookings_course;uniqueIndex:idx_active_course_student,where:active;uniqueIndex:idx_active_course_seat,where:active" json:"courseId"`
	StudentID  string     `gorm:"not null;column:student_id;index:idx_bookings_student;uniqueIndex:idx_active_course_student,where:active" json:"studentId"`
	SeatLabel  string     `gorm:"not null;column:seat_label;uniqueIndex:idx_active_course_seat,where:active" json:"seatLabel"`
	Active     bool       `gorm:"not null;default:true" json:"active"`
	AutoFilled bool       `gorm:"not null;default:false;column:auto_filled" json:"autoFilled"`
	BookedAt   time.Time  `gorm:"not null;column:booked_at" json:"bookedAt"`
	ReleasedAt *time.Time `gorm:"column:released_at" json:"releasedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (SeatBooking) TableName() string {
	return "seat_bookings"
}

// JSONMap stores unstructured event payloads as jsonb.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("unsupported jsonb source type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, m)
}

func (JSONMap) GormDataType() string {
	return "jsonb"
}

// RegistrationEvent is the append-only audit trail row mirroring every event
// published on the in-process bus.
type RegistrationEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventType string    `gorm:"not null;column:event_type" json:"eventType"`
	CourseID  string    `gorm:"not null;column:course_id;index:idx_events_course" json:"courseId"`
	StudentID string    `gorm:"column:student_id" json:"studentId,omitempty"`
	SeatLabel string    `gorm:"column:seat_label" json:"seatLabel,omitempty"`
	Payload   JSONMap   `gorm:"type:jsonb" json:"payload,omitempty"`
	Timestamp time.Time `gorm:"not null;index:idx_events_course" json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
}

func (RegistrationEvent) TableName() string {
	return "registration_events"
}
