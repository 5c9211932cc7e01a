package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursely/internal/scoring"
	"coursely/internal/waitlist"
)

var allocBase = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

func wlEntry(studentID string, composite float64) waitlist.Entry {
	return waitlist.Entry{
		ID:        uuid.New(),
		StudentID: studentID,
		Scores:    scoring.Breakdown{Composite: composite},
		Status:    waitlist.StatusWaiting,
		AppliedAt: allocBase,
	}
}

func awardsOf(result Result) map[string]string {
	out := make(map[string]string)
	for _, a := range result.Assignments {
		out[a.StudentID+"/"+a.CourseID] = a.CourseID
	}
	return out
}

func TestParseStrategy(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Strategy
	}{
		{"", StrategyBalanced},
		{"balanced", StrategyBalanced},
		{"student-optimal", StrategyStudentOptimal},
		{"course-optimal", StrategyCourseOptimal},
		{"greedy", StrategyGreedy},
	} {
		got, err := ParseStrategy(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStrategy("lottery")
	assert.Error(t, err)
}

func TestGreedyFillsEachCourseIndependently(t *testing.T) {
	engine := NewEngine(StrategyGreedy)
	in := Input{Courses: []CourseInput{
		{
			CourseID:  "crs-a",
			FreeSeats: 1,
			Entries:   []waitlist.Entry{wlEntry("s1", 0.9), wlEntry("s2", 0.7)},
		},
		{
			CourseID:  "crs-b",
			FreeSeats: 2,
			Entries:   []waitlist.Entry{wlEntry("s1", 0.8), wlEntry("s3", 0.6)},
		},
	}}

	result := engine.Run(in)
	awards := awardsOf(result)

	// s1 wins on both courses: greedy does not deconflict.
	assert.Len(t, result.Assignments, 3)
	assert.Contains(t, awards, "s1/crs-a")
	assert.Contains(t, awards, "s1/crs-b")
	assert.Contains(t, awards, "s3/crs-b")
	assert.NotContains(t, awards, "s2/crs-a")
}

func TestCourseOptimalAssignsEachStudentOnce(t *testing.T) {
	engine := NewEngine(StrategyCourseOptimal)
	in := Input{Courses: []CourseInput{
		{
			CourseID:  "crs-a",
			FreeSeats: 1,
			Entries:   []waitlist.Entry{wlEntry("s1", 0.9), wlEntry("s2", 0.7)},
		},
		{
			CourseID:  "crs-b",
			FreeSeats: 1,
			Entries:   []waitlist.Entry{wlEntry("s1", 0.8), wlEntry("s3", 0.6)},
		},
	}}

	result := engine.Run(in)
	awards := awardsOf(result)

	// crs-a takes s1 first; crs-b then skips s1 and takes s3.
	assert.Len(t, result.Assignments, 2)
	assert.Contains(t, awards, "s1/crs-a")
	assert.Contains(t, awards, "s3/crs-b")
}

func TestBalancedRespectsStudentPreferences(t *testing.T) {
	engine := NewEngine(StrategyBalanced)
	in := Input{
		Courses: []CourseInput{
			{
				CourseID:  "crs-a",
				FreeSeats: 1,
				Entries:   []waitlist.Entry{wlEntry("s1", 0.9), wlEntry("s2", 0.7)},
			},
			{
				CourseID:  "crs-b",
				FreeSeats: 1,
				Entries:   []waitlist.Entry{wlEntry("s1", 0.8), wlEntry("s3", 0.6)},
			},
		},
		// s1 prefers crs-b even though crs-a would offer first.
		Priorities: map[string]map[string]int{
			"s1": {"crs-a": 2, "crs-b": 1},
		},
	}

	result := engine.Run(in)
	awards := awardsOf(result)

	assert.Contains(t, awards, "s1/crs-b")
	assert.Contains(t, awards, "s2/crs-a", "seat freed by s1's rejection goes to s2")
	assert.NotContains(t, awards, "s1/crs-a")
	assert.NotContains(t, awards, "s3/crs-b")
}

func TestStudentOptimalRespectsWaitlistOrderAtCourses(t *testing.T) {
	engine := NewEngine(StrategyStudentOptimal)
	in := Input{
		Courses: []CourseInput{
			{
				CourseID:  "crs-a",
				FreeSeats: 1,
				// Waitlist order: s1 above s2.
				Entries: []waitlist.Entry{wlEntry("s1", 0.9), wlEntry("s2", 0.7)},
			},
			{
				CourseID:  "crs-b",
				FreeSeats: 1,
				Entries:   []waitlist.Entry{wlEntry("s2", 0.7)},
			},
		},
		Priorities: map[string]map[string]int{
			"s1": {"crs-a": 1},
			"s2": {"crs-a": 1, "crs-b": 2},
		},
	}

	result := engine.Run(in)
	awards := awardsOf(result)

	// Both propose to crs-a; s1 outranks s2 there, so s2 falls to crs-b.
	assert.Contains(t, awards, "s1/crs-a")
	assert.Contains(t, awards, "s2/crs-b")
	assert.Len(t, result.Assignments, 2)
}

func TestRunDoesNotMutateInput(t *testing.T) {
	engine := NewEngine(StrategyBalanced)
	entries := []waitlist.Entry{wlEntry("s1", 0.9), wlEntry("s2", 0.7)}
	in := Input{Courses: []CourseInput{{CourseID: "crs-a", FreeSeats: 1, Entries: entries}}}

	engine.Run(in)

	assert.Equal(t, "s1", in.Courses[0].Entries[0].StudentID)
	assert.Equal(t, "s2", in.Courses[0].Entries[1].StudentID)
	assert.Equal(t, 1, in.Courses[0].FreeSeats)
}

func TestRunIsDeterministic(t *testing.T) {
	in := Input{
		Courses: []CourseInput{
			{
				CourseID:  "crs-b",
				FreeSeats: 2,
				Entries:   []waitlist.Entry{wlEntry("s1", 0.8), wlEntry("s4", 0.5), wlEntry("s2", 0.4)},
			},
			{
				CourseID:  "crs-a",
				FreeSeats: 1,
				Entries:   []waitlist.Entry{wlEntry("s2", 0.9), wlEntry("s3", 0.6)},
			},
		},
		Priorities: map[string]map[string]int{
			"s2": {"crs-a": 1, "crs-b": 2},
			"s1": {"crs-b": 1},
		},
	}

	for _, strategy := range []Strategy{StrategyBalanced, StrategyStudentOptimal, StrategyCourseOptimal, StrategyGreedy} {
		engine := NewEngine(strategy)
		first := engine.Run(in)
		for i := 0; i < 5; i++ {
			again := engine.Run(in)
			assert.Equal(t, first.Assignments, again.Assignments, "strategy %s", strategy)
		}
	}
}

func TestAssignmentsSortedByCourseThenRank(t *testing.T) {
	engine := NewEngine(StrategyGreedy)
	in := Input{Courses: []CourseInput{
		{
			CourseID:  "crs-b",
			FreeSeats: 2,
			Entries:   []waitlist.Entry{wlEntry("s3", 0.9), wlEntry("s4", 0.5)},
		},
		{
			CourseID:  "crs-a",
			FreeSeats: 2,
			Entries:   []waitlist.Entry{wlEntry("s1", 0.8), wlEntry("s2", 0.6)},
		},
	}}

	result := engine.Run(in)
	require.Len(t, result.Assignments, 4)
	assert.Equal(t, "crs-a", result.Assignments[0].CourseID)
	assert.Equal(t, "s1", result.Assignments[0].StudentID)
	assert.Equal(t, "s2", result.Assignments[1].StudentID)
	assert.Equal(t, "crs-b", result.Assignments[2].CourseID)
	assert.Equal(t, "s3", result.Assignments[2].StudentID)
}

func TestZeroFreeSeatsAwardsNothing(t *testing.T) {
	for _, strategy := range []Strategy{StrategyBalanced, StrategyStudentOptimal, StrategyCourseOptimal, StrategyGreedy} {
		engine := NewEngine(strategy)
		result := engine.Run(Input{Courses: []CourseInput{
			{CourseID: "crs-a", FreeSeats: 0, Entries: []waitlist.Entry{wlEntry("s1", 0.9)}},
		}})
		assert.Empty(t, result.Assignments, "strategy %s", strategy)
	}
}
