package stream

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursely/internal/eventbus"
)

func TestFramesAreNamedCourseUpdate(t *testing.T) {
	var buf bytes.Buffer
	err := writeFrame(&buf, eventbus.Event{
		Type:      eventbus.SeatBooked,
		CourseID:  "crs-a",
		Payload:   map[string]interface{}{"seatLabel": "A1"},
		Timestamp: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	frame := buf.String()
	assert.Contains(t, frame, "event:course:update", "clients listen on a single event name")
	assert.Contains(t, frame, `"type":"SEAT_BOOKED"`, "the change type travels in the body")
	assert.Contains(t, frame, `"courseId":"crs-a"`)
	assert.Contains(t, frame, `"seatLabel":"A1"`)
	assert.Contains(t, frame, `"timestamp"`)
}

func TestFrameNameIsStableAcrossEventTypes(t *testing.T) {
	for _, typ := range []eventbus.EventType{
		eventbus.SeatBooked,
		eventbus.SeatReleased,
		eventbus.WaitlistUpdated,
		eventbus.BookingStatusChanged,
		eventbus.StudentAutoEnrolled,
	} {
		var buf bytes.Buffer
		require.NoError(t, writeFrame(&buf, eventbus.Event{Type: typ, CourseID: "crs-a"}))
		assert.Contains(t, buf.String(), "event:course:update", "type %s", typ)
	}
}
