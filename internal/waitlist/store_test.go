package waitlist

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursely/internal/scoring"
)

func entry(studentID string, composite float64, appliedAt time.Time) *Entry {
	return &Entry{
		ID:        uuid.New(),
		CourseID:  "crs-1",
		StudentID: studentID,
		Scores:    scoring.Breakdown{Composite: composite},
		Status:    StatusWaiting,
		AppliedAt: appliedAt,
	}
}

var baseTime = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func TestInsertOrdersByCompositeDescending(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("low", 0.4, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("high", 0.9, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("mid", 0.6, baseTime)))

	snap := store.Snapshot("crs-1")
	require.Len(t, snap, 3)
	assert.Equal(t, "high", snap[0].StudentID)
	assert.Equal(t, "mid", snap[1].StudentID)
	assert.Equal(t, "low", snap[2].StudentID)
}

func TestInsertTieBreaksOnAppliedAtThenStudentID(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("later", 0.5, baseTime.Add(time.Minute))))
	require.NoError(t, store.Insert("crs-1", entry("earlier", 0.5, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("zed", 0.5, baseTime)))

	snap := store.Snapshot("crs-1")
	require.Len(t, snap, 3)
	assert.Equal(t, "earlier", snap[0].StudentID)
	assert.Equal(t, "zed", snap[1].StudentID, "same time breaks on student ID")
	assert.Equal(t, "later", snap[2].StudentID)
}

func TestInsertRejectsDuplicateStudent(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("stu", 0.5, baseTime)))
	err := store.Insert("crs-1", entry("stu", 0.9, baseTime))
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, 1, store.Size("crs-1"))
}

func TestSameStudentOnDifferentCourses(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("stu", 0.5, baseTime)))
	require.NoError(t, store.Insert("crs-2", entry("stu", 0.5, baseTime)))
	assert.Equal(t, 1, store.Size("crs-1"))
	assert.Equal(t, 1, store.Size("crs-2"))
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("stu", 0.5, baseTime)))
	assert.True(t, store.Remove("crs-1", "stu"))
	assert.False(t, store.Remove("crs-1", "stu"))
	assert.Equal(t, 0, store.Size("crs-1"))
}

func TestRankOf(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("a", 0.9, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("b", 0.5, baseTime)))

	rank, ok := store.RankOf("crs-1", "b")
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	_, ok = store.RankOf("crs-1", "ghost")
	assert.False(t, ok)
}

func TestRanksShiftAfterRemoval(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("a", 0.9, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("b", 0.7, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("c", 0.5, baseTime)))

	store.Remove("crs-1", "a")

	rank, ok := store.RankOf("crs-1", "b")
	require.True(t, ok)
	assert.Equal(t, 1, rank)
	rank, _ = store.RankOf("crs-1", "c")
	assert.Equal(t, 2, rank)
}

func TestPopTop(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("low", 0.3, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("high", 0.8, baseTime)))

	top, err := store.PopTop("crs-1")
	require.NoError(t, err)
	assert.Equal(t, "high", top.StudentID)
	assert.Equal(t, 1, store.Size("crs-1"))

	top, err = store.PopTop("crs-1")
	require.NoError(t, err)
	assert.Equal(t, "low", top.StudentID)

	_, err = store.PopTop("crs-1")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestTopK(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-1", entry("a", 0.9, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("b", 0.7, baseTime)))
	require.NoError(t, store.Insert("crs-1", entry("c", 0.5, baseTime)))

	top := store.TopK("crs-1", 2)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].StudentID)
	assert.Equal(t, "b", top[1].StudentID)

	assert.Len(t, store.TopK("crs-1", 10), 3, "k larger than queue")
	assert.Empty(t, store.TopK("ghost", 5))
}

func TestCourses(t *testing.T) {
	store := NewStore()

	require.NoError(t, store.Insert("crs-b", entry("x", 0.5, baseTime)))
	require.NoError(t, store.Insert("crs-a", entry("y", 0.5, baseTime)))

	assert.Equal(t, []string{"crs-a", "crs-b"}, store.Courses())

	store.Remove("crs-a", "y")
	assert.Equal(t, []string{"crs-b"}, store.Courses())
}

func TestStatusTerminality(t *testing.T) {
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusAllocated.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())

	assert.True(t, StatusWaiting.IsValid())
	assert.False(t, Status("BOGUS").IsValid())
}

func TestRanksAndLookupsStayAlignedAtScale(t *testing.T) {
	store := NewStore()
	for i := 0; i < 60; i++ {
		composite := float64((i*37)%100) / 100.0
		appliedAt := baseTime.Add(time.Duration(i%7) * time.Minute)
		require.NoError(t, store.Insert("crs-1", entry(fmt.Sprintf("s%02d", i), composite, appliedAt)))
	}

	snap := store.Snapshot("crs-1")
	require.Len(t, snap, 60)
	for i, e := range snap {
		rank, ok := store.RankOf("crs-1", e.StudentID)
		require.True(t, ok)
		assert.Equal(t, i+1, rank)

		got, ok := store.Get("crs-1", e.StudentID)
		require.True(t, ok)
		assert.Equal(t, e.StudentID, got.StudentID)
	}

	// Removals from the middle keep every remaining rank aligned.
	require.True(t, store.Remove("crs-1", snap[30].StudentID))
	require.True(t, store.Remove("crs-1", snap[10].StudentID))
	_, ok := store.Get("crs-1", snap[30].StudentID)
	assert.False(t, ok)

	snap = store.Snapshot("crs-1")
	require.Len(t, snap, 58)
	for i, e := range snap {
		rank, ok := store.RankOf("crs-1", e.StudentID)
		require.True(t, ok)
		assert.Equal(t, i+1, rank)
	}

	// PopTop drains in rank order and drops the popped student's lookup.
	top, err := store.PopTop("crs-1")
	require.NoError(t, err)
	assert.Equal(t, snap[0].StudentID, top.StudentID)
	_, ok = store.Get("crs-1", top.StudentID)
	assert.False(t, ok)
}
