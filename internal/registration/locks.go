package registration

import (
	"sort"
	"sync"
)

// courseLocks serializes all mutation per course. Batch allocation takes the
// locks of every involved course in sorted ID order, which prevents deadlock
// against any other multi-course holder.
type courseLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newCourseLocks() *courseLocks {
	return &courseLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *courseLocks) lockFor(courseID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[courseID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[courseID] = l
	}
	return l
}

// Lock acquires one course lock.
func (c *courseLocks) Lock(courseID string) func() {
	l := c.lockFor(courseID)
	l.Lock()
	return l.Unlock
}

// LockAll acquires several course locks in sorted ID order and returns a
// single release function.
func (c *courseLocks) LockAll(courseIDs []string) func() {
	ids := make([]string, 0, len(courseIDs))
	seen := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		l := c.lockFor(id)
		l.Lock()
		held = append(held, l)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
