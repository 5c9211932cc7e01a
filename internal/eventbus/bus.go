package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the classroom state changes broadcast to subscribers.
type EventType string

const (
	SeatBooked           EventType = "SEAT_BOOKED"
	SeatReleased         EventType = "SEAT_RELEASED"
	WaitlistUpdated      EventType = "WAITLIST_UPDATED"
	BookingStatusChanged EventType = "BOOKING_STATUS_CHANGED"
	StudentAutoEnrolled  EventType = "STUDENT_AUTO_ENROLLED"
)

// Event is one classroom state change on a course topic.
type Event struct {
	Type      EventType              `json:"type"`
	CourseID  string                 `json:"courseId"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// Subscription receives events for a single course topic. Events arrive in
// publish order; a subscriber that cannot keep up has events dropped rather
// than blocking publishers, and must reconcile via a snapshot query.
type Subscription struct {
	id       string
	courseID string
	ch       chan Event
	bus      *Bus
	once     sync.Once
}

// Events returns the subscription's delivery channel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// CourseID returns the subscribed course topic.
func (s *Subscription) CourseID() string {
	return s.courseID
}

// Cancel detaches the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.bus.unsubscribe(s)
	})
}

// Bus is an in-process topic-per-course publish/subscribe surface.
// Publishers on a single course are already serialized by the course lock,
// so per-topic delivery order matches commit order.
type Bus struct {
	mu         sync.RWMutex
	topics     map[string]map[string]*Subscription
	firehose   map[string]*Subscription
	bufferSize int
	delivered  uint64
	dropped    uint64
}

const defaultBufferSize = 64

// NewBus creates an event bus. bufferSize <= 0 uses the default.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		topics:     make(map[string]map[string]*Subscription),
		firehose:   make(map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers for a course topic.
func (b *Bus) Subscribe(courseID string) *Subscription {
	sub := &Subscription{
		id:       uuid.New().String(),
		courseID: courseID,
		ch:       make(chan Event, b.bufferSize),
		bus:      b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topics[courseID] == nil {
		b.topics[courseID] = make(map[string]*Subscription)
	}
	b.topics[courseID][sub.id] = sub
	return sub
}

// SubscribeAll registers for events on every course topic. Used by relays
// that mirror the whole stream to external systems.
func (b *Bus) SubscribeAll() *Subscription {
	sub := &Subscription{
		id:  uuid.New().String(),
		ch:  make(chan Event, b.bufferSize),
		bus: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.firehose[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.courseID == "" {
		delete(b.firehose, sub.id)
	} else if subs, ok := b.topics[sub.courseID]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.topics, sub.courseID)
		}
	}
	close(sub.ch)
}

// Publish delivers an event to every subscriber of the course topic.
// Delivery is non-blocking; full subscriber buffers drop the event.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.topics[ev.CourseID] {
		select {
		case sub.ch <- ev:
			atomic.AddUint64(&b.delivered, 1)
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
	for _, sub := range b.firehose {
		select {
		case sub.ch <- ev:
			atomic.AddUint64(&b.delivered, 1)
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
}

// SubscriberCount returns the number of subscriptions on a course topic.
func (b *Bus) SubscriberCount(courseID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[courseID])
}

// Stats returns delivered and dropped event counts.
func (b *Bus) Stats() (delivered, dropped uint64) {
	return atomic.LoadUint64(&b.delivered), atomic.LoadUint64(&b.dropped)
}
