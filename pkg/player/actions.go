package player

import (
	"errors"
	"fmt"
	"net"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	"github.com/sirupsen/logrus"

	"github.com/duskforge/mazewars/pkg/chat"
	"github.com/duskforge/mazewars/pkg/maze"
	"github.com/duskforge/mazewars/pkg/protocol"
)

// PurgatoryDelay is how long a hit player waits before respawning.
const PurgatoryDelay = 3 * time.Second

// ErrNotMoved is returned by Move when the underlying maze rejects the
// attempted step; it is never fatal to the session.
var ErrNotMoved = errors.New("player: move not applied")

func sendFrame(r *Record, h protocol.Header, payload []byte) error {
	return r.send(func(conn net.Conn) error {
		return protocol.Send(conn, h, payload)
	})
}

// Move advances or retreats the player one cell, per sign ({+1: forward,
// -1: backward}). On success the view is recomputed and sent.
func (t *Table) Move(r *Record, sign int8) error {
	r.dataMu.Lock()
	dir := r.dir
	if sign == -1 {
		dir = maze.Reverse(dir)
	}
	row, col := r.row, r.col
	r.dataMu.Unlock()

	newRow, newCol, err := t.maze.Move(row, col, dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotMoved, err)
	}

	r.dataMu.Lock()
	r.row, r.col = newRow, newCol
	r.dataMu.Unlock()

	t.UpdateView(r)
	return nil
}

// Rotate turns the player left or right ({+1: left, -1: right}) and
// invalidates its cached view.
func (t *Table) Rotate(r *Record, sense int8) {
	r.dataMu.Lock()
	if sense == 1 {
		r.dir = maze.TurnLeft(r.dir)
	} else {
		r.dir = maze.TurnRight(r.dir)
	}
	r.dataMu.Unlock()
	t.InvalidateView(r)
}

// InvalidateView clears r's cached view buffer.
func (t *Table) InvalidateView(r *Record) {
	r.dataMu.Lock()
	r.view = nil
	r.dataMu.Unlock()
}

// UpdateView recomputes r's view from the maze and streams it as a Clear
// frame followed by Show frames in depth-outer, side-inner order.
func (t *Table) UpdateView(r *Record) {
	row, col, dir := r.Position()
	rows := t.maze.GetView(row, col, dir, maze.ViewDepth)

	r.dataMu.Lock()
	r.view = rows
	r.dataMu.Unlock()

	if err := sendFrame(r, protocol.Header{Type: protocol.TypeClear}, nil); err != nil {
		return
	}
	for d, vr := range rows {
		for side := byte(0); side < 3; side++ {
			var cell byte
			switch side {
			case 0:
				cell = vr.Left
			case 1:
				cell = vr.Corridor
			case 2:
				cell = vr.Right
			}
			h := protocol.Header{Type: protocol.TypeShow, Param1: cell, Param2: side, Param3: byte(d)}
			if err := sendFrame(r, h, nil); err != nil {
				return
			}
		}
	}
}

// Fire ray-casts from r's position and facing; on a hit, flags the target
// and wakes its session, then credits r's score and broadcasts it.
func (t *Table) Fire(r *Record) {
	if t.metrics != nil {
		t.metrics.ShotsFired.Inc()
	}
	row, col, dir := r.Position()
	target := t.maze.FindTarget(row, col, dir)
	if target == maze.EmptyCell {
		return
	}

	victim, ok := t.Get(target)
	if !ok {
		return
	}
	victim.SetHit()
	t.Unref(victim)

	r.dataMu.Lock()
	r.score++
	score := r.score
	r.dataMu.Unlock()

	if t.metrics != nil {
		t.metrics.Hits.Inc()
	}
	if t.log != nil {
		t.log.WithFields(logrus.Fields{"shooter": string(r.Avatar), "target": string(target)}).Info("laser hit")
	}

	t.broadcastScore(r.Avatar, score)
}

// SendChat relays msg, prefixed with the sender's name and avatar, to every
// logged-in player.
func (t *Table) SendChat(r *Record, msg []byte) {
	payload := chat.Format(r.Name, r.Avatar, msg, protocol.MaxPayloadSize)

	if t.metrics != nil {
		t.metrics.ChatMessages.Inc()
	}

	for _, peer := range t.Snapshot() {
		_ = sendFrame(peer, protocol.Header{Type: protocol.TypeChat}, payload)
		t.Unref(peer)
	}
}

// CheckHit, if r's hit flag is set, removes it from the maze, notifies it,
// updates every other player's view, waits out the purgatory delay
// (cancellable via the table's shutdown channel), then respawns r.
func (t *Table) CheckHit(r *Record) {
	if !r.ConsumeHit() {
		return
	}

	row, col, _ := r.Position()
	t.maze.Remove(r.Avatar, row, col)

	_ = sendFrame(r, protocol.Header{Type: protocol.TypeScore, Param1: r.Avatar, Param2: byte(int8(-1))}, nil)
	_ = sendFrame(r, protocol.Header{Type: protocol.TypeAlert}, nil)

	for _, peer := range t.Snapshot() {
		if peer != r {
			t.InvalidateView(peer)
			t.UpdateView(peer)
		}
		t.Unref(peer)
	}

	select {
	case <-channerics.NewTicker(t.done, PurgatoryDelay):
	case <-t.done:
	}

	t.Reset(r)
}

// Reset removes r from its current cell, places it randomly, refreshes
// every player's view, and rebroadcasts the scoreboard.
func (t *Table) Reset(r *Record) {
	row, col, _ := r.Position()
	t.maze.Remove(r.Avatar, row, col)

	newRow, newCol, err := t.maze.PlaceRandom(r.Avatar)
	if err != nil {
		if t.log != nil {
			t.log.WithField("avatar", string(r.Avatar)).Warn("could not place player, maze full")
		}
		return
	}

	r.dataMu.Lock()
	r.row, r.col = newRow, newCol
	r.dataMu.Unlock()

	t.UpdateView(r)

	for _, peer := range t.Snapshot() {
		if peer != r {
			t.InvalidateView(peer)
			t.UpdateView(peer)
		}
		t.Unref(peer)
	}

	for _, peer := range t.Snapshot() {
		t.broadcastScore(peer.Avatar, peer.Score())
		t.Unref(peer)
	}
}

func (t *Table) broadcastScore(avatar byte, score int32) {
	for _, peer := range t.Snapshot() {
		_ = sendFrame(peer, protocol.Header{Type: protocol.TypeScore, Param1: avatar, Param2: byte(clampScore(score))}, nil)
		t.Unref(peer)
	}
}

// AnnounceLogin broadcasts r's current score together with its name payload
// so every connected client can associate the avatar with a display name.
func (t *Table) AnnounceLogin(r *Record) {
	payload := []byte(r.Name)
	for _, peer := range t.Snapshot() {
		h := protocol.Header{Type: protocol.TypeScore, Param1: r.Avatar, Param2: byte(clampScore(r.Score()))}
		_ = sendFrame(peer, h, payload)
		t.Unref(peer)
	}
}

func (t *Table) broadcastDeparture(r *Record) {
	for _, peer := range t.Snapshot() {
		_ = sendFrame(peer, protocol.Header{Type: protocol.TypeScore, Param1: r.Avatar, Param2: byte(int8(-1))}, nil)
		t.Unref(peer)
	}
}

func clampScore(score int32) int8 {
	if score > 127 {
		return 127
	}
	if score < -127 {
		return -127
	}
	return int8(score)
}
