package seatmap

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrInvalidLabel is returned for labels outside the course grid.
	ErrInvalidLabel = errors.New("invalid seat label")
	// ErrSeatTaken is returned when the target seat has an occupant.
	ErrSeatTaken = errors.New("seat already occupied")
	// ErrCapacityExceeded is returned when no seat can be occupied.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrFull is returned by PickLowestFree when every seat is occupied.
	ErrFull = errors.New("no free seats")
	// ErrUnknownCourse is returned when the course has no configured grid.
	ErrUnknownCourse = errors.New("course has no seat grid")
)

// Label renders a (row, column) cell as its seat label: row letters in
// spreadsheet style (A..Z, AA..), column index starting at 1. Row and column
// are 0-based.
func Label(row, column int) string {
	letters := ""
	r := row
	for {
		letters = string(rune('A'+r%26)) + letters
		r = r/26 - 1
		if r < 0 {
			break
		}
	}
	return letters + strconv.Itoa(column+1)
}

// ParseLabel decodes a seat label back to its 0-based (row, column).
func ParseLabel(label string) (row, column int, err error) {
	i := 0
	for i < len(label) && label[i] >= 'A' && label[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(label) {
		return 0, 0, ErrInvalidLabel
	}
	row = 0
	for _, c := range label[:i] {
		row = row*26 + int(c-'A') + 1
	}
	row--
	column, err = strconv.Atoi(label[i:])
	if err != nil || column < 1 {
		return 0, 0, ErrInvalidLabel
	}
	return row, column - 1, nil
}

// Seat is one cell in a classroom state snapshot.
type Seat struct {
	Label     string `json:"label"`
	Row       int    `json:"row"`
	Column    int    `json:"column"`
	Occupied  bool   `json:"occupied"`
	StudentID string `json:"student_id,omitempty"`
}

// State is the full classroom snapshot for a course.
type State struct {
	TotalSeats int    `json:"total_seats"`
	Occupied   int    `json:"occupied"`
	Available  int    `json:"available"`
	Seats      []Seat `json:"seats"`
}

type grid struct {
	rows        int
	seatsPerRow int
	occupants   map[string]string // label -> studentID
	byStudent   map[string]string // studentID -> label
}

func (g *grid) total() int {
	return g.rows * g.seatsPerRow
}

// Map tracks the seat grids of all courses. Mutation happens under the
// per-course registration lock; the internal mutex only protects the maps
// for concurrent readers.
type Map struct {
	mu    sync.RWMutex
	grids map[string]*grid
}

// NewMap creates an empty seat map.
func NewMap() *Map {
	return &Map{grids: make(map[string]*grid)}
}

// Configure creates (or resets) the grid for a course.
func (m *Map) Configure(courseID string, rows, seatsPerRow int) error {
	if rows < 1 || seatsPerRow < 1 {
		return fmt.Errorf("seat grid must be at least 1x1, got %dx%d", rows, seatsPerRow)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids[courseID] = &grid{
		rows:        rows,
		seatsPerRow: seatsPerRow,
		occupants:   make(map[string]string),
		byStudent:   make(map[string]string),
	}
	return nil
}

func (m *Map) grid(courseID string) (*grid, error) {
	g, ok := m.grids[courseID]
	if !ok {
		return nil, ErrUnknownCourse
	}
	return g, nil
}

// Valid reports whether a label addresses a cell inside the course grid.
func (m *Map) Valid(courseID, label string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, err := m.grid(courseID)
	if err != nil {
		return false
	}
	row, col, err := ParseLabel(label)
	if err != nil {
		return false
	}
	return row < g.rows && col < g.seatsPerRow
}

// Occupy assigns a seat to a student.
func (m *Map) Occupy(courseID, label, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grid(courseID)
	if err != nil {
		return err
	}
	row, col, err := ParseLabel(label)
	if err != nil || row >= g.rows || col >= g.seatsPerRow {
		return ErrInvalidLabel
	}
	if len(g.occupants) >= g.total() {
		return ErrCapacityExceeded
	}
	if _, taken := g.occupants[label]; taken {
		return ErrSeatTaken
	}
	g.occupants[label] = studentID
	g.byStudent[studentID] = label
	return nil
}

// Release frees a seat and returns its previous occupant, or "" if the seat
// was already free.
func (m *Map) Release(courseID, label string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, err := m.grid(courseID)
	if err != nil {
		return "", err
	}
	student, ok := g.occupants[label]
	if !ok {
		return "", nil
	}
	delete(g.occupants, label)
	delete(g.byStudent, student)
	return student, nil
}

// PickLowestFree returns the first free seat in row-major order. This is the
// canonical "any seat" policy and is deterministic.
func (m *Map) PickLowestFree(courseID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return "", err
	}
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.seatsPerRow; col++ {
			label := Label(row, col)
			if _, taken := g.occupants[label]; !taken {
				return label, nil
			}
		}
	}
	return "", ErrFull
}

// SeatOf returns the seat currently held by a student, or false.
func (m *Map) SeatOf(courseID, studentID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return "", false
	}
	label, ok := g.byStudent[studentID]
	return label, ok
}

// OccupiedCount returns the number of occupied seats.
func (m *Map) OccupiedCount(courseID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return 0
	}
	return len(g.occupants)
}

// FreeCount returns the number of free seats.
func (m *Map) FreeCount(courseID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return 0
	}
	return g.total() - len(g.occupants)
}

// TotalSeats returns the grid capacity.
func (m *Map) TotalSeats(courseID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return 0
	}
	return g.total()
}

// State returns the full snapshot in row-major order.
func (m *Map) State(courseID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return nil, err
	}
	st := &State{
		TotalSeats: g.total(),
		Occupied:   len(g.occupants),
		Available:  g.total() - len(g.occupants),
		Seats:      make([]Seat, 0, g.total()),
	}
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.seatsPerRow; col++ {
			label := Label(row, col)
			student, taken := g.occupants[label]
			st.Seats = append(st.Seats, Seat{
				Label:     label,
				Row:       row,
				Column:    col,
				Occupied:  taken,
				StudentID: student,
			})
		}
	}
	return st, nil
}

// Occupants returns label -> student for a course, sorted by label for
// deterministic iteration.
func (m *Map) Occupants(courseID string) []Seat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, err := m.grid(courseID)
	if err != nil {
		return nil
	}
	out := make([]Seat, 0, len(g.occupants))
	for label, student := range g.occupants {
		row, col, _ := ParseLabel(label)
		out = append(out, Seat{Label: label, Row: row, Column: col, Occupied: true, StudentID: student})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out
}
