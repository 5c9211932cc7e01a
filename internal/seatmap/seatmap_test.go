package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "A1", Label(0, 0))
	assert.Equal(t, "A6", Label(0, 5))
	assert.Equal(t, "E6", Label(4, 5))
	assert.Equal(t, "Z1", Label(25, 0))
	assert.Equal(t, "AA1", Label(26, 0))
	assert.Equal(t, "AB3", Label(27, 2))
}

func TestParseLabel(t *testing.T) {
	row, col, err := ParseLabel("A1")
	require.NoError(t, err)
	assert.Equal(t, 0, row)
	assert.Equal(t, 0, col)

	row, col, err = ParseLabel("E6")
	require.NoError(t, err)
	assert.Equal(t, 4, row)
	assert.Equal(t, 5, col)

	row, col, err = ParseLabel("AA10")
	require.NoError(t, err)
	assert.Equal(t, 26, row)
	assert.Equal(t, 9, col)

	for _, bad := range []string{"", "A", "1", "A0", "a1", "A-1", "1A"} {
		_, _, err := ParseLabel(bad)
		assert.ErrorIs(t, err, ErrInvalidLabel, "label %q", bad)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	for row := 0; row < 30; row++ {
		for col := 0; col < 8; col++ {
			gotRow, gotCol, err := ParseLabel(Label(row, col))
			require.NoError(t, err)
			assert.Equal(t, row, gotRow)
			assert.Equal(t, col, gotCol)
		}
	}
}

func TestConfigureRejectsDegenerateGrids(t *testing.T) {
	m := NewMap()
	assert.Error(t, m.Configure("crs", 0, 5))
	assert.Error(t, m.Configure("crs", 5, 0))
	assert.NoError(t, m.Configure("crs", 1, 1))
}

func TestOccupyAndRelease(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 2, 3))

	require.NoError(t, m.Occupy("crs", "A2", "stu-1"))
	assert.Equal(t, 1, m.OccupiedCount("crs"))
	assert.Equal(t, 5, m.FreeCount("crs"))

	label, ok := m.SeatOf("crs", "stu-1")
	require.True(t, ok)
	assert.Equal(t, "A2", label)

	// Same seat again fails.
	assert.ErrorIs(t, m.Occupy("crs", "A2", "stu-2"), ErrSeatTaken)

	// Out of grid fails.
	assert.ErrorIs(t, m.Occupy("crs", "C1", "stu-2"), ErrInvalidLabel)
	assert.ErrorIs(t, m.Occupy("crs", "A4", "stu-2"), ErrInvalidLabel)

	student, err := m.Release("crs", "A2")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", student)
	assert.Equal(t, 0, m.OccupiedCount("crs"))

	// Releasing a free seat is a no-op.
	student, err = m.Release("crs", "A2")
	require.NoError(t, err)
	assert.Empty(t, student)
}

func TestOccupyUnknownCourse(t *testing.T) {
	m := NewMap()
	assert.ErrorIs(t, m.Occupy("ghost", "A1", "stu"), ErrUnknownCourse)
	_, err := m.Release("ghost", "A1")
	assert.ErrorIs(t, err, ErrUnknownCourse)
	_, err = m.State("ghost")
	assert.ErrorIs(t, err, ErrUnknownCourse)
}

func TestCapacityExceeded(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 1, 2))
	require.NoError(t, m.Occupy("crs", "A1", "s1"))
	require.NoError(t, m.Occupy("crs", "A2", "s2"))

	assert.ErrorIs(t, m.Occupy("crs", "A1", "s3"), ErrCapacityExceeded)
	_, err := m.PickLowestFree("crs")
	assert.ErrorIs(t, err, ErrFull)
}

func TestPickLowestFreeRowMajor(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 2, 2))

	label, err := m.PickLowestFree("crs")
	require.NoError(t, err)
	assert.Equal(t, "A1", label)

	require.NoError(t, m.Occupy("crs", "A1", "s1"))
	require.NoError(t, m.Occupy("crs", "A2", "s2"))

	label, err = m.PickLowestFree("crs")
	require.NoError(t, err)
	assert.Equal(t, "B1", label)
}

func TestValid(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 2, 3))

	assert.True(t, m.Valid("crs", "A1"))
	assert.True(t, m.Valid("crs", "B3"))
	assert.False(t, m.Valid("crs", "C1"))
	assert.False(t, m.Valid("crs", "A4"))
	assert.False(t, m.Valid("crs", "nope"))
	assert.False(t, m.Valid("ghost", "A1"))
}

func TestStateSnapshot(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 2, 2))
	require.NoError(t, m.Occupy("crs", "B2", "stu-9"))

	st, err := m.State("crs")
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalSeats)
	assert.Equal(t, 1, st.Occupied)
	assert.Equal(t, 3, st.Available)
	require.Len(t, st.Seats, 4)

	// Row-major order.
	assert.Equal(t, "A1", st.Seats[0].Label)
	assert.Equal(t, "B2", st.Seats[3].Label)
	assert.True(t, st.Seats[3].Occupied)
	assert.Equal(t, "stu-9", st.Seats[3].StudentID)
	assert.False(t, st.Seats[0].Occupied)
}

func TestOccupantsSorted(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 3, 3))
	require.NoError(t, m.Occupy("crs", "C1", "s3"))
	require.NoError(t, m.Occupy("crs", "A2", "s1"))
	require.NoError(t, m.Occupy("crs", "B3", "s2"))

	occ := m.Occupants("crs")
	require.Len(t, occ, 3)
	assert.Equal(t, []string{"A2", "B3", "C1"}, []string{occ[0].Label, occ[1].Label, occ[2].Label})
}

func TestReconfigureResetsGrid(t *testing.T) {
	m := NewMap()
	require.NoError(t, m.Configure("crs", 2, 2))
	require.NoError(t, m.Occupy("crs", "A1", "s1"))

	require.NoError(t, m.Configure("crs", 3, 3))
	assert.Equal(t, 0, m.OccupiedCount("crs"))
	assert.Equal(t, 9, m.TotalSeats("crs"))
}
