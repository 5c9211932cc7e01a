package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory catalog used by tests and demo mode.
type MemoryRepository struct {
	mu       sync.RWMutex
	students map[string]Student
	courses  map[string]Course
	byCode   map[string]string
	prefs    map[string][]CoursePreference
}

// NewMemoryRepository creates an empty in-memory catalog.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		students: make(map[string]Student),
		courses:  make(map[string]Course),
		byCode:   make(map[string]string),
		prefs:    make(map[string][]CoursePreference),
	}
}

// AddStudent registers or replaces a student.
func (r *MemoryRepository) AddStudent(s Student) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[s.ID] = s
}

// AddCourse registers or replaces a course.
func (r *MemoryRepository) AddCourse(c Course) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses[c.ID] = c
	if c.Code != "" {
		r.byCode[c.Code] = c.ID
	}
}

func (r *MemoryRepository) GetStudent(ctx context.Context, idOrEmail string) (*Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.students[idOrEmail]; ok {
		cp := s
		return &cp, nil
	}
	for _, s := range r.students {
		if s.Email == idOrEmail {
			cp := s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) GetCourse(ctx context.Context, idOrCode string) (*Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := idOrCode
	if mapped, ok := r.byCode[idOrCode]; ok {
		id = mapped
	}
	if c, ok := r.courses[id]; ok {
		cp := c
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListCourses(ctx context.Context) ([]Course, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Course, 0, len(r.courses))
	for _, c := range r.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) GetPreferences(ctx context.Context, studentID string) ([]CoursePreference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefs := make([]CoursePreference, len(r.prefs[studentID]))
	copy(prefs, r.prefs[studentID])
	SortByPriority(prefs)
	return prefs, nil
}

func (r *MemoryRepository) ReplacePreferences(ctx context.Context, studentID string, prefs []CoursePreference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]CoursePreference, len(prefs))
	copy(cp, prefs)
	r.prefs[studentID] = cp
	return nil
}
