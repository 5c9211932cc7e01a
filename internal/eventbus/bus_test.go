package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesCourseSubscribers(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe("crs-1")
	defer sub.Cancel()

	bus.Publish(Event{Type: SeatBooked, CourseID: "crs-1"})

	select {
	case ev := <-sub.Events():
		assert.Equal(t, SeatBooked, ev.Type)
		assert.Equal(t, "crs-1", ev.CourseID)
		assert.False(t, ev.Timestamp.IsZero(), "timestamp stamped on publish")
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus(8)
	subA := bus.Subscribe("crs-a")
	subB := bus.Subscribe("crs-b")
	defer subA.Cancel()
	defer subB.Cancel()

	bus.Publish(Event{Type: SeatBooked, CourseID: "crs-a"})

	select {
	case <-subA.Events():
	case <-time.After(time.Second):
		t.Fatal("subscriber on crs-a missed its event")
	}

	select {
	case ev := <-subB.Events():
		t.Fatalf("crs-b subscriber received foreign event %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliveryPreservesPublishOrder(t *testing.T) {
	bus := NewBus(16)
	sub := bus.Subscribe("crs-1")
	defer sub.Cancel()

	types := []EventType{SeatBooked, WaitlistUpdated, SeatReleased, StudentAutoEnrolled, BookingStatusChanged}
	for _, typ := range types {
		bus.Publish(Event{Type: typ, CourseID: "crs-1"})
	}

	for _, want := range types {
		select {
		case ev := <-sub.Events():
			assert.Equal(t, want, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("missing event")
		}
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe("crs-1")
	defer sub.Cancel()

	// Buffer holds 2; the rest must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Type: SeatBooked, CourseID: "crs-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	delivered, dropped := bus.Stats()
	assert.Equal(t, uint64(2), delivered)
	assert.Equal(t, uint64(8), dropped)
}

func TestCancelClosesChannelAndDetaches(t *testing.T) {
	bus := NewBus(8)
	sub := bus.Subscribe("crs-1")
	require.Equal(t, 1, bus.SubscriberCount("crs-1"))

	sub.Cancel()
	assert.Equal(t, 0, bus.SubscriberCount("crs-1"))

	_, open := <-sub.Events()
	assert.False(t, open, "channel closed after cancel")

	// Double cancel is safe.
	sub.Cancel()

	// Publishing after cancel must not panic.
	bus.Publish(Event{Type: SeatBooked, CourseID: "crs-1"})
}

func TestSubscribeAllSeesEveryTopic(t *testing.T) {
	bus := NewBus(8)
	all := bus.SubscribeAll()
	defer all.Cancel()

	bus.Publish(Event{Type: SeatBooked, CourseID: "crs-a"})
	bus.Publish(Event{Type: SeatReleased, CourseID: "crs-b"})

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case ev := <-all.Events():
			got = append(got, ev.CourseID)
		case <-time.After(time.Second):
			t.Fatal("firehose missed an event")
		}
	}
	assert.Equal(t, []string{"crs-a", "crs-b"}, got)
}

func TestFirehoseCancelDetaches(t *testing.T) {
	bus := NewBus(8)
	all := bus.SubscribeAll()
	all.Cancel()

	_, open := <-all.Events()
	assert.False(t, open)

	bus.Publish(Event{Type: SeatBooked, CourseID: "crs-a"})
	delivered, _ := bus.Stats()
	assert.Equal(t, uint64(0), delivered)
}

func TestZeroBufferSizeUsesDefault(t *testing.T) {
	bus := NewBus(0)
	sub := bus.Subscribe("crs-1")
	defer sub.Cancel()
	assert.Equal(t, defaultBufferSize, cap(sub.ch))
}
