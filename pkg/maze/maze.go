// Package maze owns the shared 2-D grid that all connected players occupy.
package maze

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/duskforge/mazewars/pkg/metrics"
)

// EmptyCell is the byte value of an unoccupied, non-wall cell.
const EmptyCell = ' '

// OutOfBoundsCell is reported for view cells that fall off the grid edge.
const OutOfBoundsCell = '*'

// ViewDepth is the maximum number of rows a view query returns.
const ViewDepth = 6

// maxPlaceAttempts bounds PlaceRandom's sampling loop.
const maxPlaceAttempts = 1000

var (
	// ErrOccupied is returned by Place when the cell is out of bounds or not empty.
	ErrOccupied = errors.New("maze: cell occupied")
	// ErrBlocked is returned when a move's destination cell is not available.
	ErrBlocked = errors.New("maze: move blocked")
	// ErrFull is returned when PlaceRandom could not find an empty cell.
	ErrFull = errors.New("maze: no empty cell available")
	// ErrConfig is returned for a malformed template.
	ErrConfig = errors.New("maze: invalid template")
)

// IsEmpty reports whether c is the empty cell value.
func IsEmpty(c byte) bool {
	return c == EmptyCell
}

// IsAvatar reports whether c identifies a player avatar.
func IsAvatar(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

// ViewRow is one row of a ray-cast first-person view.
type ViewRow struct {
	Left, Corridor, Right byte
}

// Maze is the shared grid. All operations are serialized by a single mutex;
// callers never see a torn read.
type Maze struct {
	mu         sync.Mutex
	rows, cols int
	cells      [][]byte
	metrics    *metrics.Metrics
}

// New parses template into a rectangular grid. Every row must have the same
// length, or ErrConfig is returned.
func New(template []string) (*Maze, error) {
	if len(template) == 0 {
		return nil, fmt.Errorf("%w: empty template", ErrConfig)
	}
	cols := len(template[0])
	cells := make([][]byte, len(template))
	for i, row := range template {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has length %d, want %d", ErrConfig, i, len(row), cols)
		}
		cells[i] = []byte(row)
	}
	return &Maze{rows: len(template), cols: cols, cells: cells}, nil
}

// SetMetrics wires mx so Place/PlaceRandom/Remove keep
// mazewars_grid_occupied_cells current. Call once, before the maze is
// shared across goroutines.
func (m *Maze) SetMetrics(mx *metrics.Metrics) {
	m.metrics = mx
}

// Dims returns the grid's fixed dimensions.
func (m *Maze) Dims() (rows, cols int) {
	return m.rows, m.cols
}

func (m *Maze) inBounds(row, col int) bool {
	return row >= 0 && row < m.rows && col >= 0 && col < m.cols
}

// Place writes avatar into (row, col) if that cell is empty and in bounds.
func (m *Maze) Place(avatar byte, row, col int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inBounds(row, col) || !IsEmpty(m.cells[row][col]) {
		return ErrOccupied
	}
	m.cells[row][col] = avatar
	if m.metrics != nil {
		m.metrics.GridOccupied.Inc()
	}
	return nil
}

// PlaceRandom samples uniformly at random for an empty cell and places
// avatar there, giving up after maxPlaceAttempts.
func (m *Maze) PlaceRandom(avatar byte) (row, col int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < maxPlaceAttempts; i++ {
		r := rand.Intn(m.rows)
		c := rand.Intn(m.cols)
		if IsEmpty(m.cells[r][c]) {
			m.cells[r][c] = avatar
			if m.metrics != nil {
				m.metrics.GridOccupied.Inc()
			}
			return r, c, nil
		}
	}
	return 0, 0, ErrFull
}

// Remove clears avatar from (row, col) if it is still there. No-op otherwise.
func (m *Maze) Remove(avatar byte, row, col int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inBounds(row, col) && m.cells[row][col] == avatar {
		m.cells[row][col] = EmptyCell
		if m.metrics != nil {
			m.metrics.GridOccupied.Dec()
		}
	}
}

// Move relocates the avatar at (row, col) one step in dir, if that step
// lands on an empty, in-bounds cell.
func (m *Maze) Move(row, col int, dir Direction) (newRow, newCol int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inBounds(row, col) || !IsAvatar(m.cells[row][col]) {
		return 0, 0, ErrBlocked
	}
	nr := row + rowDelta[dir]
	nc := col + colDelta[dir]
	if !m.inBounds(nr, nc) || !IsEmpty(m.cells[nr][nc]) {
		return 0, 0, ErrBlocked
	}
	m.cells[nr][nc] = m.cells[row][col]
	m.cells[row][col] = EmptyCell
	return nr, nc, nil
}

// FindTarget scans from one step beyond (row, col) in dir until it leaves
// the grid or hits a non-empty cell. It reports that cell's avatar, or
// EmptyCell if the first non-empty cell hit is not an avatar (or none was
// found before the grid edge).
func (m *Maze) FindTarget(row, col int, dir Direction) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, c := row, col
	for {
		r += rowDelta[dir]
		c += colDelta[dir]
		if !m.inBounds(r, c) {
			return EmptyCell
		}
		if cell := m.cells[r][c]; !IsEmpty(cell) {
			if IsAvatar(cell) {
				return cell
			}
			return EmptyCell
		}
	}
}

// GetView ray-casts up to depth rows starting at (row, col) looking toward
// gaze, stopping early at the grid boundary. Out-of-bounds lateral cells
// report OutOfBoundsCell.
func (m *Maze) GetView(row, col int, gaze Direction, depth int) []ViewRow {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]ViewRow, 0, depth)
	for d := 0; d < depth; d++ {
		pr := row + rowDelta[gaze]*d
		pc := col + colDelta[gaze]*d
		if !m.inBounds(pr, pc) {
			break
		}

		left := TurnLeft(gaze)
		right := TurnRight(gaze)
		lr, lc := pr+rowDelta[left], pc+colDelta[left]
		rr, rc := pr+rowDelta[right], pc+colDelta[right]

		view := ViewRow{Corridor: m.cells[pr][pc]}
		if m.inBounds(lr, lc) {
			view.Left = m.cells[lr][lc]
		} else {
			view.Left = OutOfBoundsCell
		}
		if m.inBounds(rr, rc) {
			view.Right = m.cells[rr][rc]
		} else {
			view.Right = OutOfBoundsCell
		}
		rows = append(rows, view)
	}
	return rows
}
