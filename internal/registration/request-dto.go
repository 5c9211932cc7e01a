package registration

// ApplyRequestDTO is the application payload.
type ApplyRequestDTO struct {
	StudentID     string `json:"student_id" validate:"required"`
	CourseID      string `json:"course_id" validate:"required"`
	PreferredSeat string `json:"preferred_seat,omitempty"`
	AutoRegister  bool   `json:"auto_register"`
}

// ApplyAllRequestDTO sweeps a student's whole preference list.
type ApplyAllRequestDTO struct {
	StudentID    string `json:"student_id" validate:"required"`
	AutoRegister bool   `json:"auto_register"`
}

// BookSeatRequestDTO books one specific seat.
type BookSeatRequestDTO struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
	SeatLabel string `json:"seat_label" validate:"required"`
}

// DropRequestDTO releases a student's seat.
type DropRequestDTO struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// PreferenceItemDTO is one ranked course in a preference replacement.
type PreferenceItemDTO struct {
	CourseID    string `json:"course_id" validate:"required"`
	Priority    int    `json:"priority" validate:"required,min=1"`
	MatchReason string `json:"match_reason,omitempty"`
}

// ReplacePreferencesRequestDTO replaces a student's preference list en bloc.
// An empty list clears it.
type ReplacePreferencesRequestDTO struct {
	StudentID   string              `json:"student_id" validate:"required"`
	Preferences []PreferenceItemDTO `json:"preferences" validate:"dive"`
}

// OpenBookingRequestDTO configures the classroom grid. Zero dimensions use
// the server defaults.
type OpenBookingRequestDTO struct {
	Rows        int `json:"rows" validate:"min=0,max=100"`
	SeatsPerRow int `json:"seats_per_row" validate:"min=0,max=100"`
}

// AllocationRequestDTO triggers a batch allocation run.
type AllocationRequestDTO struct {
	CourseIDs []string `json:"course_ids,omitempty"`
	Strategy  string   `json:"strategy,omitempty" validate:"omitempty,oneof=balanced student-optimal course-optimal greedy"`
}
