package registration

import (
	"context"
	"errors"

	"coursely/internal/catalog"
)

// PreferenceView is one ranked course recommendation.
type PreferenceView struct {
	CourseID    string `json:"courseId"`
	CourseCode  string `json:"courseCode,omitempty"`
	Priority    int    `json:"priority"`
	MatchReason string `json:"matchReason,omitempty"`
}

// PreferenceInput is one row of a replacement preference list. CourseID
// accepts either the opaque ID or the human code.
type PreferenceInput struct {
	CourseID    string
	Priority    int
	MatchReason string
}

func (s *Service) resolveStudent(ctx context.Context, idOrEmail string) (*catalog.Student, error) {
	student, err := s.catalog.GetStudent(ctx, idOrEmail)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, Errorf(CodeNotFound, "student %s not found", idOrEmail)
		}
		return nil, WrapError(CodeInternal, "failed to load student", err)
	}
	return student, nil
}

// Preferences returns a student's ranked course list, most preferred first.
func (s *Service) Preferences(ctx context.Context, studentID string) ([]PreferenceView, error) {
	student, err := s.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.catalog.GetPreferences(ctx, student.ID)
	if err != nil {
		return nil, WrapError(CodeInternal, "failed to load preferences", err)
	}
	return s.preferenceViews(ctx, prefs), nil
}

// ReplacePreferences overwrites a student's preference list en bloc, the way
// the recommendation system delivers it. Priorities must be unique and dense
// starting at 1; an empty list clears the preferences.
func (s *Service) ReplacePreferences(ctx context.Context, studentID string, inputs []PreferenceInput) ([]PreferenceView, error) {
	student, err := s.resolveStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	prefs := make([]catalog.CoursePreference, 0, len(inputs))
	for _, in := range inputs {
		course, err := s.resolveCourse(ctx, in.CourseID)
		if err != nil {
			return nil, err
		}
		prefs = append(prefs, catalog.CoursePreference{
			StudentID:   student.ID,
			CourseID:    course.ID,
			Priority:    in.Priority,
			MatchReason: in.MatchReason,
		})
	}
	if err := catalog.ValidatePreferences(prefs); err != nil {
		return nil, WrapError(CodeConfigurationInvalid, "invalid preference list", err)
	}
	if err := s.catalog.ReplacePreferences(ctx, student.ID, prefs); err != nil {
		return nil, WrapError(CodeInternal, "failed to store preferences", err)
	}

	catalog.SortByPriority(prefs)
	s.log.Info("preferences replaced", "student_id", student.ID, "count", len(prefs))
	return s.preferenceViews(ctx, prefs), nil
}

func (s *Service) preferenceViews(ctx context.Context, prefs []catalog.CoursePreference) []PreferenceView {
	out := make([]PreferenceView, 0, len(prefs))
	for _, p := range prefs {
		view := PreferenceView{
			CourseID:    p.CourseID,
			Priority:    p.Priority,
			MatchReason: p.MatchReason,
		}
		if course, err := s.catalog.GetCourse(ctx, p.CourseID); err == nil {
			view.CourseCode = course.Code
		}
		out = append(out, view)
	}
	return out
}
