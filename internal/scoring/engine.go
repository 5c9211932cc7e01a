package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"coursely/internal/catalog"
)

// DefaultLambda is the time-decay rate: the time score reaches 0.5 at
// 24 hours after booking opens.
var DefaultLambda = math.Ln2 / 24.0

// Breakdown holds the per-factor scores and the weighted composite,
// all in [0, 1]. The composite is rounded to 6 decimals so rankings are
// reproducible across platforms.
type Breakdown struct {
	GPA       float64 `json:"gpa_score"`
	Interest  float64 `json:"interest_score"`
	Time      float64 `json:"time_score"`
	Year      float64 `json:"year_score"`
	Prereq    float64 `json:"prereq_score"`
	Composite float64 `json:"composite_score"`
}

// Engine computes student-course fit scores. It is stateless and safe for
// concurrent use.
type Engine struct {
	weights Weights
	lambda  float64
}

// NewEngine validates the weights and returns a scoring engine.
// A non-positive lambda falls back to DefaultLambda.
func NewEngine(weights Weights, lambda float64) (*Engine, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	if lambda <= 0 {
		lambda = DefaultLambda
	}
	return &Engine{weights: weights, lambda: lambda}, nil
}

// Weights returns the engine's weight configuration.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Score computes the composite score for a student applying to a course.
// openedAt is when booking opened for the course; a zero openedAt is treated
// as "just opened" so the time factor is maximal.
func (e *Engine) Score(student *catalog.Student, course *catalog.Course, appliedAt, openedAt time.Time) Breakdown {
	b := Breakdown{
		GPA:      gpaScore(student.GPA),
		Interest: interestScore(student.Interests, course.Tags),
		Time:     e.timeScore(appliedAt, openedAt),
		Year:     yearScore(student.Year, course.PreferredYears),
		Prereq:   prereqScore(student.CompletedCourses, course.Prerequisites),
	}
	composite := e.weights.GPA*b.GPA +
		e.weights.Interest*b.Interest +
		e.weights.Time*b.Time +
		e.weights.Year*b.Year +
		e.weights.Prereq*b.Prereq
	b.Composite = math.Round(composite*1e6) / 1e6
	return b
}

func gpaScore(gpa float64) float64 {
	return clamp(gpa/4.0, 0, 1)
}

// interestScore is the Jaccard similarity between the student's interests
// and the course tags, case-insensitive. Empty union scores 0.
func interestScore(interests, tags []string) float64 {
	set := func(values []string) map[string]struct{} {
		m := make(map[string]struct{}, len(values))
		for _, v := range values {
			m[strings.ToLower(v)] = struct{}{}
		}
		return m
	}
	a, b := set(interests), set(tags)

	intersection := 0
	for v := range a {
		if _, ok := b[v]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func (e *Engine) timeScore(appliedAt, openedAt time.Time) float64 {
	if openedAt.IsZero() || !appliedAt.After(openedAt) {
		return 1.0
	}
	hours := appliedAt.Sub(openedAt).Hours()
	return math.Exp(-e.lambda * hours)
}

func yearScore(year int, preferred []int) float64 {
	if len(preferred) == 0 {
		return 1.0
	}
	minDistance := math.MaxInt
	for _, p := range preferred {
		d := year - p
		if d < 0 {
			d = -d
		}
		if d < minDistance {
			minDistance = d
		}
	}
	if minDistance == 0 {
		return 1.0
	}
	return math.Max(0, 1.0-float64(minDistance)/4.0)
}

func prereqScore(completed, prerequisites []string) float64 {
	if len(prerequisites) == 0 {
		return 1.0
	}
	done := make(map[string]struct{}, len(completed))
	for _, c := range completed {
		done[c] = struct{}{}
	}
	met := 0
	for _, p := range prerequisites {
		if _, ok := done[p]; ok {
			met++
		}
	}
	return float64(met) / float64(len(prerequisites))
}

// PrerequisitesMet reports whether the student completed every prerequisite.
func PrerequisitesMet(student *catalog.Student, course *catalog.Course) bool {
	return prereqScore(student.CompletedCourses, course.Prerequisites) == 1.0
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
