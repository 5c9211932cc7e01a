package waitlist

import (
	"errors"
	"sort"
	"sync"
)

var (
	// ErrDuplicate is returned when the student already holds a
	// non-terminal entry on the course.
	ErrDuplicate = errors.New("student already waitlisted")
	// ErrEmpty is returned by PopTop on an empty waitlist.
	ErrEmpty = errors.New("waitlist is empty")
)

// Store keeps a deterministic priority queue per course. Entries are ordered
// by Less; a per-course student index keeps membership checks constant-time
// and positional lookups logarithmic. All mutating calls are safe for
// concurrent use, though callers serialize per-course mutation under the
// course lock anyway.
type Store struct {
	mu      sync.RWMutex
	queues  map[string][]*Entry
	indexes map[string]map[string]*Entry
}

// NewStore creates an empty waitlist store.
func NewStore() *Store {
	return &Store{
		queues:  make(map[string][]*Entry),
		indexes: make(map[string]map[string]*Entry),
	}
}

// positionOf locates an entry already in the queue. Less is a strict total
// order (studentID breaks all ties), so the lower bound is the exact slot.
func positionOf(queue []*Entry, target *Entry) int {
	return sort.Search(len(queue), func(i int) bool {
		return !Less(queue[i], target)
	})
}

// Insert adds an entry at its ordered position. Fails with ErrDuplicate if
// the student is already present on the course.
func (s *Store) Insert(courseID string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.indexes[courseID]
	if index == nil {
		index = make(map[string]*Entry)
		s.indexes[courseID] = index
	}
	if _, ok := index[entry.StudentID]; ok {
		return ErrDuplicate
	}

	queue := s.queues[courseID]
	idx := sort.Search(len(queue), func(i int) bool {
		return Less(entry, queue[i])
	})
	queue = append(queue, nil)
	copy(queue[idx+1:], queue[idx:])
	queue[idx] = entry
	s.queues[courseID] = queue
	index[entry.StudentID] = entry
	return nil
}

// Remove deletes a student's entry. Idempotent; reports whether an entry
// was removed.
func (s *Store) Remove(courseID, studentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.indexes[courseID][studentID]
	if !ok {
		return false
	}
	queue := s.queues[courseID]
	idx := positionOf(queue, target)
	s.queues[courseID] = append(queue[:idx], queue[idx+1:]...)
	delete(s.indexes[courseID], studentID)
	return true
}

// TopK returns copies of the first k entries in rank order.
func (s *Store) TopK(courseID string, k int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := s.queues[courseID]
	if k > len(queue) {
		k = len(queue)
	}
	out := make([]Entry, 0, k)
	for _, e := range queue[:k] {
		out = append(out, *e)
	}
	return out
}

// RankOf returns the 1-based position of a student, or false if absent.
func (s *Store) RankOf(courseID, studentID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target, ok := s.indexes[courseID][studentID]
	if !ok {
		return 0, false
	}
	return positionOf(s.queues[courseID], target) + 1, true
}

// Get returns a copy of a student's entry, or false if absent.
func (s *Store) Get(courseID, studentID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.indexes[courseID][studentID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// PopTop atomically removes and returns the highest-ranked entry.
func (s *Store) PopTop(courseID string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := s.queues[courseID]
	if len(queue) == 0 {
		return nil, ErrEmpty
	}
	top := queue[0]
	s.queues[courseID] = queue[1:]
	delete(s.indexes[courseID], top.StudentID)
	return top, nil
}

// Size returns the number of entries on a course waitlist.
func (s *Store) Size(courseID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queues[courseID])
}

// Snapshot returns an ordered copy of the full waitlist for batch allocation.
func (s *Store) Snapshot(courseID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := s.queues[courseID]
	out := make([]Entry, 0, len(queue))
	for _, e := range queue {
		out = append(out, *e)
	}
	return out
}

// Courses returns the IDs of courses with at least one waitlisted entry.
func (s *Store) Courses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.queues))
	for id, q := range s.queues {
		if len(q) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
