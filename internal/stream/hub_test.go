package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursely/internal/eventbus"
	"coursely/pkg/logger"
)

func newHub() (*Hub, *eventbus.Bus) {
	bus := eventbus.NewBus(16)
	return NewHub(bus, logger.New()), bus
}

func TestSubscribeUnsubscribe(t *testing.T) {
	hub, _ := newHub()

	hub.Subscribe("s1", "crs-a")
	hub.Subscribe("s1", "crs-b")
	hub.Subscribe("s1", "crs-a") // duplicate is a no-op

	assert.Equal(t, []string{"crs-a", "crs-b"}, hub.Interests("s1"))

	assert.True(t, hub.Unsubscribe("s1", "crs-a"))
	assert.False(t, hub.Unsubscribe("s1", "crs-a"))
	assert.Equal(t, []string{"crs-b"}, hub.Interests("s1"))

	assert.True(t, hub.Unsubscribe("s1", "crs-b"))
	assert.Empty(t, hub.Interests("s1"))
}

func TestCourseEventsDeliversAndStopsOnCancel(t *testing.T) {
	hub, bus := newHub()
	ctx, cancel := context.WithCancel(context.Background())

	events := hub.CourseEvents(ctx, "crs-a")
	bus.Publish(eventbus.Event{Type: eventbus.SeatBooked, CourseID: "crs-a"})

	select {
	case ev := <-events:
		assert.Equal(t, eventbus.SeatBooked, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case _, open := <-events:
		assert.False(t, open, "channel closes after context cancel")
	case <-time.After(time.Second):
		t.Fatal("channel did not close")
	}
}

func TestStudentEventsMergesFollowedCourses(t *testing.T) {
	hub, bus := newHub()
	hub.Subscribe("s1", "crs-a")
	hub.Subscribe("s1", "crs-b")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := hub.StudentEvents(ctx, "s1")
	bus.Publish(eventbus.Event{Type: eventbus.SeatBooked, CourseID: "crs-a"})
	bus.Publish(eventbus.Event{Type: eventbus.SeatReleased, CourseID: "crs-b"})
	bus.Publish(eventbus.Event{Type: eventbus.SeatBooked, CourseID: "crs-other"})

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		select {
		case ev := <-events:
			seen[ev.CourseID] = true
		case <-time.After(time.Second):
			t.Fatal("merged channel missed an event")
		}
	}
	assert.True(t, seen["crs-a"])
	assert.True(t, seen["crs-b"])

	select {
	case ev := <-events:
		t.Fatalf("received event for unfollowed course %s", ev.CourseID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStudentEventsClosesWhenCancelled(t *testing.T) {
	hub, _ := newHub()
	hub.Subscribe("s1", "crs-a")

	ctx, cancel := context.WithCancel(context.Background())
	events := hub.StudentEvents(ctx, "s1")
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("merged channel did not close")
		}
	}
}

func TestStudentEventsWithNoInterests(t *testing.T) {
	hub, _ := newHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := hub.StudentEvents(ctx, "nobody")
	select {
	case _, open := <-events:
		require.False(t, open, "no followed courses yields an immediately closed channel")
	case <-time.After(time.Second):
		t.Fatal("channel did not close")
	}
}
