package stream

import (
	"context"
	"sort"
	"sync"

	"coursely/internal/eventbus"
	"coursely/pkg/logger"
)

// Hub tracks which course channels each student follows and fans bus events
// into SSE connections. Subscriptions survive reconnects; the SSE connection
// itself is transient.
type Hub struct {
	bus *eventbus.Bus
	log *logger.Logger

	mu        sync.RWMutex
	interests map[string]map[string]bool // studentID -> courseID set
}

// NewHub creates a streaming hub on top of the event bus.
func NewHub(bus *eventbus.Bus, log *logger.Logger) *Hub {
	return &Hub{
		bus:       bus,
		log:       log,
		interests: make(map[string]map[string]bool),
	}
}

// Subscribe registers a student's interest in a course channel.
func (h *Hub) Subscribe(studentID, courseID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.interests[studentID] == nil {
		h.interests[studentID] = make(map[string]bool)
	}
	h.interests[studentID][courseID] = true
}

// Unsubscribe removes a student's interest. Reports whether it existed.
func (h *Hub) Unsubscribe(studentID, courseID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.interests[studentID]
	if !ok || !set[courseID] {
		return false
	}
	delete(set, courseID)
	if len(set) == 0 {
		delete(h.interests, studentID)
	}
	return true
}

// Interests returns the sorted course channels a student follows.
func (h *Hub) Interests(studentID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.interests[studentID]))
	for courseID := range h.interests[studentID] {
		out = append(out, courseID)
	}
	sort.Strings(out)
	return out
}

// CourseEvents subscribes to one course topic for the lifetime of ctx.
func (h *Hub) CourseEvents(ctx context.Context, courseID string) <-chan eventbus.Event {
	sub := h.bus.Subscribe(courseID)
	go func() {
		<-ctx.Done()
		sub.Cancel()
	}()
	return sub.Events()
}

// StudentEvents merges the student's followed course topics into one channel
// for the lifetime of ctx. The channel closes when ctx is cancelled.
func (h *Hub) StudentEvents(ctx context.Context, studentID string) <-chan eventbus.Event {
	courses := h.Interests(studentID)
	merged := make(chan eventbus.Event, 16)

	var wg sync.WaitGroup
	for _, courseID := range courses {
		sub := h.bus.Subscribe(courseID)
		go func() {
			<-ctx.Done()
			sub.Cancel()
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range sub.Events() {
				select {
				case merged <- ev:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(merged)
	}()
	return merged
}
