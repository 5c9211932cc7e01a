package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to BookingStatus
	}{
		{StatusClosed, StatusOpen},
		{StatusClosed, StatusStarted},
		{StatusOpen, StatusWaitlistOnly},
		{StatusOpen, StatusClosed},
		{StatusWaitlistOnly, StatusOpen},
		{StatusWaitlistOnly, StatusClosed},
		{StatusStarted, StatusCompleted},
	}
	for _, tt := range allowed {
		assert.True(t, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	forbidden := []struct {
		from, to BookingStatus
	}{
		{StatusClosed, StatusWaitlistOnly},
		{StatusClosed, StatusCompleted},
		{StatusOpen, StatusStarted},
		{StatusOpen, StatusCompleted},
		{StatusStarted, StatusOpen},
		{StatusStarted, StatusClosed},
		{StatusCompleted, StatusOpen},
		{StatusCompleted, StatusStarted},
	}
	for _, tt := range forbidden {
		assert.False(t, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestStatusGates(t *testing.T) {
	assert.True(t, StatusClosed.AllowsApply())
	assert.True(t, StatusOpen.AllowsApply())
	assert.True(t, StatusWaitlistOnly.AllowsApply())
	assert.False(t, StatusStarted.AllowsApply())
	assert.False(t, StatusCompleted.AllowsApply())

	assert.True(t, StatusOpen.AllowsDirectBooking())
	assert.False(t, StatusWaitlistOnly.AllowsDirectBooking())
	assert.False(t, StatusClosed.AllowsDirectBooking())

	assert.True(t, StatusOpen.AllowsDrop())
	assert.True(t, StatusWaitlistOnly.AllowsDrop())
	assert.True(t, StatusStarted.AllowsDrop())
	assert.False(t, StatusClosed.AllowsDrop())
	assert.False(t, StatusCompleted.AllowsDrop())
}

func TestSeatConfigValidate(t *testing.T) {
	cfg := &SeatConfig{CourseID: "crs", Rows: 5, SeatsPerRow: 6, TotalSeats: 30, Status: StatusClosed}
	assert.NoError(t, cfg.Validate())

	assert.Error(t, (&SeatConfig{Rows: 0, SeatsPerRow: 6, TotalSeats: 0, Status: StatusClosed}).Validate())
	assert.Error(t, (&SeatConfig{Rows: 5, SeatsPerRow: 6, TotalSeats: 29, Status: StatusClosed}).Validate())
	assert.Error(t, (&SeatConfig{Rows: 5, SeatsPerRow: 6, TotalSeats: 30, Status: "BOGUS"}).Validate())
}
