package catalog

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringList is a JSON-encoded string slice column.
type StringList []string

// Value implements the driver.Valuer interface for database storage
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for database retrieval
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}

// GormDataType tells GORM how to handle this type
func (StringList) GormDataType() string {
	return "jsonb"
}

// IntList is a JSON-encoded int slice column.
type IntList []int

func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]int{})
	}
	return json.Marshal(l)
}

func (l *IntList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}

func (IntList) GormDataType() string {
	return "jsonb"
}

// Student is created upstream and consumed read-only by the registration core.
type Student struct {
	ID               string     `json:"student_id" gorm:"column:id;primaryKey"`
	Name             string     `json:"name" gorm:"not null"`
	Email            string     `json:"email" gorm:"uniqueIndex"`
	GPA              float64    `json:"gpa" gorm:"not null"`
	Major            string     `json:"major"`
	Year             int        `json:"year" gorm:"not null"`
	Interests        StringList `json:"interests" gorm:"type:jsonb"`
	CompletedCourses StringList `json:"completed_courses" gorm:"type:jsonb"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Schedule is the weekly meeting pattern of a course.
type Schedule struct {
	Weekdays  StringList `json:"weekdays"`
	StartTime string     `json:"start_time"`
	EndTime   string     `json:"end_time"`
}

func (s Schedule) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *Schedule) Scan(value interface{}) error {
	if value == nil {
		*s = Schedule{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, s)
}

func (Schedule) GormDataType() string {
	return "jsonb"
}

// Course is created upstream and consumed read-only by the registration core.
// Code is the human identifier (e.g. CS101); ID is the opaque one. Either
// resolves through the repository.
type Course struct {
	ID             string     `json:"course_id" gorm:"column:id;primaryKey"`
	Code           string     `json:"code" gorm:"uniqueIndex;not null"`
	Name           string     `json:"name" gorm:"not null"`
	Category       string     `json:"category"`
	Difficulty     string     `json:"difficulty"`
	InstructorID   string     `json:"instructor_id"`
	Schedule       Schedule   `json:"schedule" gorm:"type:jsonb"`
	ClassroomID    string     `json:"classroom_id"`
	MinGPA         float64    `json:"min_gpa"`
	Prerequisites  StringList `json:"prerequisites" gorm:"type:jsonb"`
	Tags           StringList `json:"tags" gorm:"type:jsonb"`
	PreferredYears IntList    `json:"preferred_years" gorm:"type:jsonb"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// CoursePreference ranks a course for a student. Priorities within a student
// are unique and dense (1..K), 1 being the most preferred. The whole list is
// overwritten en bloc by the recommendation system.
type CoursePreference struct {
	ID          uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	StudentID   string    `json:"student_id" gorm:"index:idx_pref_student_course,unique;not null"`
	CourseID    string    `json:"course_id" gorm:"index:idx_pref_student_course,unique;not null"`
	Priority    int       `json:"priority" gorm:"not null"`
	MatchReason string    `json:"match_reason"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}
