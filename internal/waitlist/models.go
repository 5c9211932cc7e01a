package waitlist

import (
	"time"

	"github.com/google/uuid"

	"coursely/internal/scoring"
)

// Status is the lifecycle state of a waitlist entry.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusProcessing Status = "PROCESSING"
	StatusAllocated  Status = "ALLOCATED"
	StatusExpired    Status = "EXPIRED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusProcessing, StatusAllocated, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether the entry can no longer change.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusAllocated, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Entry is one student's scored application sitting on a course waitlist.
// At most one entry per (course, student) may exist in a non-terminal status.
type Entry struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	CourseID      string            `json:"course_id" gorm:"index:idx_wl_course_student;not null"`
	StudentID     string            `json:"student_id" gorm:"index:idx_wl_course_student;not null"`
	Scores        scoring.Breakdown `json:"scores" gorm:"embedded;embeddedPrefix:score_"`
	Status        Status            `json:"status" gorm:"type:varchar(20);not null;index"`
	AppliedAt     time.Time         `json:"applied_at" gorm:"not null"`
	PreferredSeat string            `json:"preferred_seat,omitempty"`
	CreatedAt     time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the GORM table name
func (Entry) TableName() string {
	return "waitlist_entries"
}

// Less defines the waitlist total order: composite score descending, then
// applied time ascending, then student ID ascending. The two tie-breakers
// make rankings reproducible.
func Less(a, b *Entry) bool {
	if a.Scores.Composite != b.Scores.Composite {
		return a.Scores.Composite > b.Scores.Composite
	}
	if !a.AppliedAt.Equal(b.AppliedAt) {
		return a.AppliedAt.Before(b.AppliedAt)
	}
	return a.StudentID < b.StudentID
}
