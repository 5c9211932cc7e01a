package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursely/internal/catalog"
)

func testStudent() *catalog.Student {
	return &catalog.Student{
		ID:               "stu-1",
		Name:             "Test Student",
		GPA:              3.5,
		Year:             3,
		Interests:        catalog.StringList{"systems", "databases"},
		CompletedCourses: catalog.StringList{"CS101", "CS201"},
	}
}

func testCourse() *catalog.Course {
	return &catalog.Course{
		ID:             "crs-1",
		Code:           "CS301",
		Name:           "Distributed Systems",
		Tags:           catalog.StringList{"systems", "networking"},
		Prerequisites:  catalog.StringList{"CS201"},
		PreferredYears: catalog.IntList{3, 4},
	}
}

func TestNewEngineValidatesWeights(t *testing.T) {
	_, err := NewEngine(Weights{GPA: 0.5, Interest: 0.5, Time: 0.5}, 0)
	assert.Error(t, err)

	_, err = NewEngine(Weights{GPA: 1.2, Interest: -0.2}, 0)
	assert.Error(t, err)

	engine, err := NewEngine(DefaultWeights(), 0)
	require.NoError(t, err)
	assert.InDelta(t, DefaultLambda, engine.lambda, 1e-12)
}

func TestGPAScoreNormalization(t *testing.T) {
	assert.InDelta(t, 1.0, gpaScore(4.0), 1e-9)
	assert.InDelta(t, 0.875, gpaScore(3.5), 1e-9)
	assert.InDelta(t, 0.0, gpaScore(0), 1e-9)
	assert.InDelta(t, 1.0, gpaScore(4.3), 1e-9, "clamped above 4.0")
	assert.InDelta(t, 0.0, gpaScore(-1), 1e-9, "clamped below 0")
}

func TestInterestScoreJaccard(t *testing.T) {
	// {systems, databases} vs {systems, networking}: 1 shared of 3 total
	got := interestScore([]string{"systems", "databases"}, []string{"systems", "networking"})
	assert.InDelta(t, 1.0/3.0, got, 1e-9)

	assert.InDelta(t, 1.0, interestScore([]string{"ml"}, []string{"ML"}), 1e-9, "case insensitive")
	assert.InDelta(t, 0.0, interestScore(nil, nil), 1e-9, "empty union")
	assert.InDelta(t, 0.0, interestScore([]string{"art"}, []string{"math"}), 1e-9)
}

func TestTimeScoreDecay(t *testing.T) {
	engine, err := NewEngine(DefaultWeights(), 0)
	require.NoError(t, err)

	opened := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, engine.timeScore(opened, opened), 1e-9, "applied at open")
	assert.InDelta(t, 1.0, engine.timeScore(opened.Add(-time.Hour), opened), 1e-9, "applied before open")
	assert.InDelta(t, 1.0, engine.timeScore(opened, time.Time{}), 1e-9, "zero openedAt")

	// Default lambda halves the score every 24 hours.
	assert.InDelta(t, 0.5, engine.timeScore(opened.Add(24*time.Hour), opened), 1e-9)
	assert.InDelta(t, 0.25, engine.timeScore(opened.Add(48*time.Hour), opened), 1e-9)

	// Strictly monotonic in elapsed time.
	earlier := engine.timeScore(opened.Add(2*time.Hour), opened)
	later := engine.timeScore(opened.Add(5*time.Hour), opened)
	assert.Greater(t, earlier, later)
}

func TestYearScore(t *testing.T) {
	assert.InDelta(t, 1.0, yearScore(3, []int{3, 4}), 1e-9, "exact match")
	assert.InDelta(t, 0.75, yearScore(2, []int{3, 4}), 1e-9, "distance 1")
	assert.InDelta(t, 0.5, yearScore(1, []int{3, 4}), 1e-9, "distance 2")
	assert.InDelta(t, 1.0, yearScore(1, nil), 1e-9, "no preference")
	assert.InDelta(t, 0.0, yearScore(1, []int{6}), 1e-9, "distance clamps at zero")
}

func TestPrereqScore(t *testing.T) {
	assert.InDelta(t, 1.0, prereqScore(nil, nil), 1e-9, "no prerequisites")
	assert.InDelta(t, 1.0, prereqScore([]string{"CS101"}, []string{"CS101"}), 1e-9)
	assert.InDelta(t, 0.5, prereqScore([]string{"CS101"}, []string{"CS101", "CS201"}), 1e-9)
	assert.InDelta(t, 0.0, prereqScore(nil, []string{"CS101"}), 1e-9)
}

func TestPrerequisitesMet(t *testing.T) {
	student := testStudent()
	course := testCourse()
	assert.True(t, PrerequisitesMet(student, course))

	course.Prerequisites = catalog.StringList{"CS201", "MATH301"}
	assert.False(t, PrerequisitesMet(student, course))
}

func TestScoreCompositeIsWeightedSum(t *testing.T) {
	weights := DefaultWeights()
	engine, err := NewEngine(weights, 0)
	require.NoError(t, err)

	opened := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	applied := opened.Add(12 * time.Hour)

	b := engine.Score(testStudent(), testCourse(), applied, opened)

	want := weights.GPA*b.GPA +
		weights.Interest*b.Interest +
		weights.Time*b.Time +
		weights.Year*b.Year +
		weights.Prereq*b.Prereq
	want = math.Round(want*1e6) / 1e6

	assert.InDelta(t, want, b.Composite, 1e-12)
	assert.GreaterOrEqual(t, b.Composite, 0.0)
	assert.LessOrEqual(t, b.Composite, 1.0)
}

func TestScoreDeterministic(t *testing.T) {
	engine, err := NewEngine(DefaultWeights(), 0)
	require.NoError(t, err)

	opened := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	applied := opened.Add(3 * time.Hour)

	first := engine.Score(testStudent(), testCourse(), applied, opened)
	second := engine.Score(testStudent(), testCourse(), applied, opened)
	assert.Equal(t, first, second)
}

func TestEarlierApplicantOutscoresLaterTwin(t *testing.T) {
	engine, err := NewEngine(DefaultWeights(), 0)
	require.NoError(t, err)

	opened := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	course := testCourse()

	early := engine.Score(testStudent(), course, opened.Add(time.Hour), opened)
	late := engine.Score(testStudent(), course, opened.Add(30*time.Hour), opened)
	assert.Greater(t, early.Composite, late.Composite)
}
