package player

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duskforge/mazewars/pkg/maze"
	"github.com/duskforge/mazewars/pkg/metrics"
)

// MaxPlayers is the number of distinct avatars ('A'..'Z').
const MaxPlayers = 26

var (
	// ErrInvalidAvatar is returned for an avatar byte outside 'A'..'Z'.
	ErrInvalidAvatar = errors.New("player: invalid avatar")
	// ErrAvatarInUse is returned when the requested avatar's slot is occupied.
	ErrAvatarInUse = errors.New("player: avatar already in use")
)

// Table owns every logged-in player's Record, keyed by avatar.
type Table struct {
	mu      sync.Mutex
	slots   [MaxPlayers]*Record
	maze    *maze.Maze
	log     *logrus.Logger
	metrics *metrics.Metrics
	done    <-chan struct{}
}

// NewTable builds a Table backed by m. done is closed at server shutdown and
// cuts short any in-progress purgatory delay.
func NewTable(m *maze.Maze, log *logrus.Logger, mx *metrics.Metrics, done <-chan struct{}) *Table {
	return &Table{maze: m, log: log, metrics: mx, done: done}
}

func indexOf(avatar byte) (int, bool) {
	if avatar < 'A' || avatar > 'Z' {
		return 0, false
	}
	return int(avatar - 'A'), true
}

// Login creates and installs a new Record for avatar, or fails if the
// avatar is invalid or already occupied.
func (t *Table) Login(conn net.Conn, connID uuid.UUID, avatar byte, name string) (*Record, error) {
	idx, ok := indexOf(avatar)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAvatar, avatar)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots[idx] != nil {
		return nil, fmt.Errorf("%w: %q", ErrAvatarInUse, avatar)
	}

	r := newRecord(conn, connID, avatar, name)
	t.slots[idx] = r
	if t.metrics != nil {
		t.metrics.Logins.Inc()
		t.metrics.PlayersActive.Inc()
	}
	if t.log != nil {
		t.log.WithFields(logrus.Fields{"avatar": string(avatar), "name": r.Name, "conn_id": connID}).Info("player logged in")
	}
	return r, nil
}

// FirstAvailableAvatar returns the lowest unused avatar letter, or false if
// the table is full.
func (t *Table) FirstAvailableAvatar() (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, s := range t.slots {
		if s == nil {
			return byte('A' + i), true
		}
	}
	return 0, false
}

// Get looks up avatar and, if present, increments its refcount before
// returning it. Callers must Unref exactly once.
func (t *Table) Get(avatar byte) (*Record, bool) {
	idx, ok := indexOf(avatar)
	if !ok {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.slots[idx]
	if r == nil {
		return nil, false
	}
	r.ref()
	return r, true
}

// ByIndex returns the record at slot i (0..25) without bumping its refcount,
// for best-effort table scans such as broadcasts.
func (t *Table) ByIndex(i int) (*Record, bool) {
	if i < 0 || i >= MaxPlayers {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.slots[i]
	return r, r != nil
}

// Snapshot returns every currently logged-in record, each with its refcount
// bumped by one. Callers must Unref every returned record exactly once.
// This is the mechanism that avoids a recursive per-record lock: callers
// broadcast to the snapshot without ever holding a sender's own lock.
func (t *Table) Snapshot() []*Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Record, 0, MaxPlayers)
	for _, r := range t.slots {
		if r != nil {
			r.ref()
			out = append(out, r)
		}
	}
	return out
}

// Unref drops a reference on r, destroying it once the count reaches zero.
// Destruction never happens while any lock of r is held.
func (t *Table) Unref(r *Record) {
	if r.unref() {
		t.destroy(r)
	}
}

func (t *Table) destroy(r *Record) {
	if t.log != nil {
		t.log.WithFields(logrus.Fields{"avatar": string(r.Avatar), "conn_id": r.ConnID}).Debug("player record destroyed")
	}
}

// Logout removes avatar's record from the table, clears it from the maze,
// notifies everyone of the departure, and drops the table's own reference.
func (t *Table) Logout(r *Record) {
	idx, _ := indexOf(r.Avatar)

	t.mu.Lock()
	if t.slots[idx] == r {
		t.slots[idx] = nil
	}
	t.mu.Unlock()

	row, col, _ := r.Position()
	t.maze.Remove(r.Avatar, row, col)

	if t.metrics != nil {
		t.metrics.Logouts.Inc()
		t.metrics.PlayersActive.Dec()
	}
	if t.log != nil {
		t.log.WithFields(logrus.Fields{"avatar": string(r.Avatar), "conn_id": r.ConnID}).Info("player logged out")
	}

	t.broadcastDeparture(r)
	t.Unref(r)
}
