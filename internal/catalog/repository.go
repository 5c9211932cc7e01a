package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a student or course cannot be resolved.
var ErrNotFound = errors.New("not found")

// Repository provides read access to students and courses plus the
// preference lists the recommendation system maintains.
type Repository interface {
	GetStudent(ctx context.Context, idOrEmail string) (*Student, error)
	GetCourse(ctx context.Context, idOrCode string) (*Course, error)
	ListCourses(ctx context.Context) ([]Course, error)

	GetPreferences(ctx context.Context, studentID string) ([]CoursePreference, error)
	ReplacePreferences(ctx context.Context, studentID string, prefs []CoursePreference) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a gorm-backed catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetStudent(ctx context.Context, idOrEmail string) (*Student, error) {
	var student Student
	err := r.db.WithContext(ctx).
		Where("id = ? OR email = ?", idOrEmail, idOrEmail).
		First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (r *repository) GetCourse(ctx context.Context, idOrCode string) (*Course, error) {
	var course Course
	err := r.db.WithContext(ctx).
		Where("id = ? OR code = ?", idOrCode, idOrCode).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return &course, nil
}

func (r *repository) ListCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := r.db.WithContext(ctx).Order("id").Find(&courses).Error; err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return courses, nil
}

func (r *repository) GetPreferences(ctx context.Context, studentID string) ([]CoursePreference, error) {
	var prefs []CoursePreference
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("priority").
		Find(&prefs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

func (r *repository) ReplacePreferences(ctx context.Context, studentID string, prefs []CoursePreference) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", studentID).Delete(&CoursePreference{}).Error; err != nil {
			return fmt.Errorf("failed to clear preferences: %w", err)
		}
		if len(prefs) == 0 {
			return nil
		}
		if err := tx.Create(&prefs).Error; err != nil {
			return fmt.Errorf("failed to insert preferences: %w", err)
		}
		return nil
	})
}

// ValidatePreferences checks the dense unique priority invariant (1..K).
func ValidatePreferences(prefs []CoursePreference) error {
	seen := make(map[int]bool, len(prefs))
	for _, p := range prefs {
		if p.Priority < 1 {
			return fmt.Errorf("priority must be >= 1, got %d", p.Priority)
		}
		if seen[p.Priority] {
			return fmt.Errorf("duplicate priority %d", p.Priority)
		}
		seen[p.Priority] = true
	}
	for i := 1; i <= len(prefs); i++ {
		if !seen[i] {
			return fmt.Errorf("priorities must be dense 1..%d, missing %d", len(prefs), i)
		}
	}
	return nil
}

// SortByPriority orders a preference list most-preferred first.
func SortByPriority(prefs []CoursePreference) {
	sort.Slice(prefs, func(i, j int) bool { return prefs[i].Priority < prefs[j].Priority })
}
