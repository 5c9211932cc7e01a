package allocation

import (
	"fmt"
	"sort"

	"coursely/internal/waitlist"
)

// Strategy selects the batch matching algorithm.
type Strategy string

const (
	// StrategyBalanced is course-proposing deferred acceptance: stable,
	// favors course preferences among stable matchings.
	StrategyBalanced Strategy = "balanced"
	// StrategyStudentOptimal is student-proposing deferred acceptance.
	StrategyStudentOptimal Strategy = "student-optimal"
	// StrategyCourseOptimal is a single greedy pass in course ID order.
	StrategyCourseOptimal Strategy = "course-optimal"
	// StrategyGreedy fills each course independently by score; it does not
	// deconflict students appearing on multiple waitlists.
	StrategyGreedy Strategy = "greedy"
)

// ParseStrategy resolves a configuration string. Empty means balanced.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyBalanced:
		return StrategyBalanced, nil
	case StrategyStudentOptimal, StrategyCourseOptimal, StrategyGreedy:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown allocation strategy: %q", s)
	}
}

// unrankedPriority sorts after every explicit preference.
const unrankedPriority = 999

// CourseInput is one course's capacity and waitlist snapshot, already in
// waitlist rank order.
type CourseInput struct {
	CourseID  string
	FreeSeats int
	Entries   []waitlist.Entry
}

// Input is the complete batch allocation problem.
type Input struct {
	Courses []CourseInput
	// Priorities maps studentID -> courseID -> preference priority
	// (1 = most preferred). Missing pairs are treated as unranked.
	Priorities map[string]map[string]int
}

func (in Input) priority(studentID, courseID string) int {
	if prefs, ok := in.Priorities[studentID]; ok {
		if p, ok := prefs[courseID]; ok {
			return p
		}
	}
	return unrankedPriority
}

// Assignment awards one seatless waitlist entry a seat on a course.
type Assignment struct {
	StudentID string
	CourseID  string
	Priority  int
	Entry     waitlist.Entry
}

// Result is the outcome of one batch run, in deterministic order
// (course ID ascending, then waitlist rank).
type Result struct {
	Strategy    Strategy
	Assignments []Assignment
}

// Engine runs batch allocation. It is stateless; the registration service
// owns commits, locking, and event emission.
type Engine struct {
	strategy Strategy
}

// NewEngine creates an allocation engine for the given strategy.
func NewEngine(strategy Strategy) *Engine {
	return &Engine{strategy: strategy}
}

// Strategy returns the configured strategy.
func (e *Engine) Strategy() Strategy {
	return e.strategy
}

// Run computes assignments for the input without mutating it.
func (e *Engine) Run(in Input) Result {
	courses := make([]CourseInput, len(in.Courses))
	copy(courses, in.Courses)
	sort.Slice(courses, func(i, j int) bool { return courses[i].CourseID < courses[j].CourseID })

	var assignments []Assignment
	switch e.strategy {
	case StrategyGreedy:
		assignments = runGreedy(courses)
	case StrategyCourseOptimal:
		assignments = runCourseOptimal(courses)
	case StrategyStudentOptimal:
		assignments = runStudentOptimal(courses, in)
	default:
		assignments = runBalanced(courses, in)
	}

	sortAssignments(assignments)
	return Result{Strategy: e.strategy, Assignments: assignments}
}

func sortAssignments(assignments []Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].CourseID != assignments[j].CourseID {
			return assignments[i].CourseID < assignments[j].CourseID
		}
		return waitlist.Less(&assignments[i].Entry, &assignments[j].Entry)
	})
}

// runGreedy takes the top-K of every course independently. A student on
// several waitlists can win several seats; ties resolve by waitlist order.
func runGreedy(courses []CourseInput) []Assignment {
	var out []Assignment
	for _, c := range courses {
		n := c.FreeSeats
		if n > len(c.Entries) {
			n = len(c.Entries)
		}
		for _, entry := range c.Entries[:n] {
			out = append(out, Assignment{
				StudentID: entry.StudentID,
				CourseID:  c.CourseID,
				Priority:  unrankedPriority,
				Entry:     entry,
			})
		}
	}
	return out
}

// runCourseOptimal is one pass in course ID order; each course takes its
// best still-unassigned applicants.
func runCourseOptimal(courses []CourseInput) []Assignment {
	assigned := make(map[string]bool)
	var out []Assignment
	for _, c := range courses {
		taken := 0
		for _, entry := range c.Entries {
			if taken >= c.FreeSeats {
				break
			}
			if assigned[entry.StudentID] {
				continue
			}
			assigned[entry.StudentID] = true
			taken++
			out = append(out, Assignment{
				StudentID: entry.StudentID,
				CourseID:  c.CourseID,
				Priority:  unrankedPriority,
				Entry:     entry,
			})
		}
	}
	return out
}

type offer struct {
	courseID string
	priority int
	entry    waitlist.Entry
}

// betterForStudent reports whether a beats b from the student's point of
// view: lower priority number wins, ties break on course ID so rounds are
// reproducible.
func betterForStudent(a, b offer) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.courseID < b.courseID
}

// runBalanced is course-proposing deferred acceptance. Each course offers
// seats down its waitlist; a student holds the best pending offer by their
// preference priority and rejects the rest, freeing those slots for later
// rounds. Every course proposes to every applicant at most once, so the
// loop terminates.
func runBalanced(courses []CourseInput, in Input) []Assignment {
	next := make(map[string]int, len(courses)) // courseID -> next entry index
	held := make(map[string]int, len(courses)) // courseID -> held offer count
	holding := make(map[string]offer)          // studentID -> current best offer

	for {
		progressed := false
		for _, c := range courses {
			for held[c.CourseID] < c.FreeSeats && next[c.CourseID] < len(c.Entries) {
				entry := c.Entries[next[c.CourseID]]
				next[c.CourseID]++
				progressed = true

				proposed := offer{
					courseID: c.CourseID,
					priority: in.priority(entry.StudentID, c.CourseID),
					entry:    entry,
				}
				current, has := holding[entry.StudentID]
				if !has || betterForStudent(proposed, current) {
					if has {
						held[current.courseID]--
					}
					holding[entry.StudentID] = proposed
					held[c.CourseID]++
				}
				// rejected offers are simply not held; the course keeps
				// proposing further down its list
			}
		}
		if !progressed {
			break
		}
	}

	out := make([]Assignment, 0, len(holding))
	for studentID, o := range holding {
		out = append(out, Assignment{
			StudentID: studentID,
			CourseID:  o.courseID,
			Priority:  o.priority,
			Entry:     o.entry,
		})
	}
	return out
}

// runStudentOptimal is student-proposing deferred acceptance. Students
// propose in preference order to courses holding an entry for them; each
// course tentatively keeps its top capacity-many proposers by waitlist
// order and rejections cascade.
func runStudentOptimal(courses []CourseInput, in Input) []Assignment {
	byID := make(map[string]CourseInput, len(courses))
	entryOf := make(map[string]map[string]waitlist.Entry) // studentID -> courseID -> entry
	for _, c := range courses {
		byID[c.CourseID] = c
		for _, e := range c.Entries {
			if entryOf[e.StudentID] == nil {
				entryOf[e.StudentID] = make(map[string]waitlist.Entry)
			}
			entryOf[e.StudentID][c.CourseID] = e
		}
	}

	// Each student's proposal order: the courses they are waitlisted on,
	// most-preferred first.
	proposalOrder := make(map[string][]string)
	for studentID, perCourse := range entryOf {
		order := make([]string, 0, len(perCourse))
		for courseID := range perCourse {
			order = append(order, courseID)
		}
		sort.Slice(order, func(i, j int) bool {
			pi, pj := in.priority(studentID, order[i]), in.priority(studentID, order[j])
			if pi != pj {
				return pi < pj
			}
			return order[i] < order[j]
		})
		proposalOrder[studentID] = order
	}

	nextProposal := make(map[string]int)
	tentative := make(map[string][]waitlist.Entry) // courseID -> held entries

	free := make([]string, 0, len(entryOf))
	for studentID := range entryOf {
		free = append(free, studentID)
	}
	sort.Strings(free)

	for len(free) > 0 {
		var stillFree []string
		for _, studentID := range free {
			order := proposalOrder[studentID]
			idx := nextProposal[studentID]
			if idx >= len(order) {
				continue // exhausted all preferences
			}
			courseID := order[idx]
			nextProposal[studentID] = idx + 1

			entry := entryOf[studentID][courseID]
			course := byID[courseID]
			if course.FreeSeats == 0 {
				stillFree = append(stillFree, studentID)
				continue
			}

			heldEntries := append(tentative[courseID], entry)
			sort.Slice(heldEntries, func(i, j int) bool {
				return waitlist.Less(&heldEntries[i], &heldEntries[j])
			})
			if len(heldEntries) > course.FreeSeats {
				rejected := heldEntries[len(heldEntries)-1]
				heldEntries = heldEntries[:len(heldEntries)-1]
				stillFree = append(stillFree, rejected.StudentID)
			}
			tentative[courseID] = heldEntries
		}
		sort.Strings(stillFree)
		free = stillFree
	}

	var out []Assignment
	for courseID, entries := range tentative {
		for _, e := range entries {
			out = append(out, Assignment{
				StudentID: e.StudentID,
				CourseID:  courseID,
				Priority:  in.priority(e.StudentID, courseID),
				Entry:     e,
			})
		}
	}
	return out
}
