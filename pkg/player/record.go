// Package player owns the table of logged-in players and the actions that
// mutate their state: movement, rotation, firing, chat, and respawn.
package player

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/duskforge/mazewars/pkg/maze"
)

// AnonymousName is used when a login supplies an empty display name.
const AnonymousName = "Anonymous"

// Record is one logged-in player. Two distinct, non-recursive mutexes guard
// it: dataMu serializes game-state fields, sendMu serializes writes to the
// connection. Never hold dataMu while acquiring another record's lock, and
// never hold a lock while blocking on another connection's I/O.
type Record struct {
	Avatar byte
	Name   string
	Conn   net.Conn
	ConnID uuid.UUID

	// Interrupt delivers asynchronous hit notifications to the owning
	// session goroutine. Buffered at capacity 1; sends are non-blocking.
	Interrupt chan struct{}

	dataMu sync.Mutex
	score  int32
	row    int
	col    int
	dir    maze.Direction
	view   []maze.ViewRow

	hitFlag atomic.Bool

	sendMu sync.Mutex

	refMu sync.Mutex
	refs  int
}

func newRecord(conn net.Conn, connID uuid.UUID, avatar byte, name string) *Record {
	if name == "" {
		name = AnonymousName
	}
	return &Record{
		Avatar:    avatar,
		Name:      name,
		Conn:      conn,
		ConnID:    connID,
		Interrupt: make(chan struct{}, 1),
		refs:      1,
	}
}

// Score returns the player's current score.
func (r *Record) Score() int32 {
	r.dataMu.Lock()
	defer r.dataMu.Unlock()
	return r.score
}

// Position returns the player's current cell and facing.
func (r *Record) Position() (row, col int, dir maze.Direction) {
	r.dataMu.Lock()
	defer r.dataMu.Unlock()
	return r.row, r.col, r.dir
}

// View returns a copy of the last computed view buffer.
func (r *Record) View() []maze.ViewRow {
	r.dataMu.Lock()
	defer r.dataMu.Unlock()
	out := make([]maze.ViewRow, len(r.view))
	copy(out, r.view)
	return out
}

// SetHit marks the player as hit and wakes its session goroutine.
func (r *Record) SetHit() {
	r.hitFlag.Store(true)
	select {
	case r.Interrupt <- struct{}{}:
	default:
	}
}

// ConsumeHit reports and clears the hit flag.
func (r *Record) ConsumeHit() bool {
	return r.hitFlag.Swap(false)
}

// send writes a single frame to the player's connection under sendMu, never
// while dataMu or another record's lock is held.
func (r *Record) send(writeFn func(net.Conn) error) error {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()
	return writeFn(r.Conn)
}

func (r *Record) ref() {
	r.refMu.Lock()
	r.refs++
	r.refMu.Unlock()
}

// unref drops a reference, returning true if this call dropped it to zero.
func (r *Record) unref() bool {
	r.refMu.Lock()
	defer r.refMu.Unlock()
	r.refs--
	return r.refs == 0
}
