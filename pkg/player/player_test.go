package player

import (
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/duskforge/mazewars/pkg/maze"
	"github.com/duskforge/mazewars/pkg/protocol"
)

func testMaze(t *testing.T) *maze.Maze {
	t.Helper()
	m, err := maze.New([]string{
		"#####",
		"#   #",
		"#   #",
		"#   #",
		"#####",
	})
	if err != nil {
		t.Fatalf("maze.New() error: %v", err)
	}
	return m
}

func drain(conn net.Conn) {
	buf := make([]byte, 4096)
	for {
		if _, err := conn.Read(buf); err != nil {
			return
		}
	}
}

func newTestTable(t *testing.T) (*Table, chan struct{}) {
	t.Helper()
	done := make(chan struct{})
	return NewTable(testMaze(t), nil, nil, done), done
}

func loginTestPlayer(t *testing.T, table *Table, avatar byte) (*Record, net.Conn) {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })
	go drain(c2)

	r, err := table.Login(c1, uuid.New(), avatar, "")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	return r, c2
}

func TestLoginDefaultsAnonymousName(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')
	if r.Name != AnonymousName {
		t.Errorf("Name = %q, want %q", r.Name, AnonymousName)
	}
}

func TestLoginRejectsOccupiedAvatar(t *testing.T) {
	table, _ := newTestTable(t)
	loginTestPlayer(t, table, 'A')

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()
	if _, err := table.Login(c1, uuid.New(), 'A', "Bob"); err == nil {
		t.Fatal("Login() on occupied avatar = nil error, want ErrAvatarInUse")
	}
}

func TestLoginRejectsInvalidAvatar(t *testing.T) {
	table, _ := newTestTable(t)
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()
	if _, err := table.Login(c1, uuid.New(), '1', "Bob"); err == nil {
		t.Fatal("Login() with non-letter avatar = nil error, want ErrInvalidAvatar")
	}
}

func TestGetBumpsRefcountAndUnrefDestroys(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')

	got, ok := table.Get('A')
	if !ok || got != r {
		t.Fatalf("Get() = (%v, %v), want (%v, true)", got, ok, r)
	}
	table.Unref(got)

	table.Logout(r)
	if _, ok := table.Get('A'); ok {
		t.Fatal("Get() found a record after Logout()")
	}
}

func TestMoveUpdatesPosition(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')

	if err := table.maze.Place('A', 2, 2); err != nil {
		t.Fatalf("Place() error: %v", err)
	}
	r.dataMu.Lock()
	r.row, r.col, r.dir = 2, 2, maze.East
	r.dataMu.Unlock()

	if err := table.Move(r, 1); err != nil {
		t.Fatalf("Move() error: %v", err)
	}
	row, col, _ := r.Position()
	if row != 2 || col != 3 {
		t.Errorf("Position() = (%d,%d), want (2,3)", row, col)
	}
}

func TestMoveBlockedReturnsError(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')

	if err := table.maze.Place('A', 1, 1); err != nil {
		t.Fatalf("Place() error: %v", err)
	}
	r.dataMu.Lock()
	r.row, r.col, r.dir = 1, 1, maze.North
	r.dataMu.Unlock()

	if err := table.Move(r, 1); err == nil {
		t.Fatal("Move() into wall = nil error, want ErrNotMoved")
	}
}

func TestRotateTurnsLeftAndRight(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')
	r.dataMu.Lock()
	r.dir = maze.North
	r.dataMu.Unlock()

	table.Rotate(r, 1)
	_, _, dir := r.Position()
	if dir != maze.West {
		t.Errorf("Rotate(+1) dir = %v, want %v", dir, maze.West)
	}

	table.Rotate(r, -1)
	_, _, dir = r.Position()
	if dir != maze.North {
		t.Errorf("Rotate(-1) dir = %v, want %v", dir, maze.North)
	}
}

func TestFireHitsAndIncrementsScore(t *testing.T) {
	table, _ := newTestTable(t)
	shooter, _ := loginTestPlayer(t, table, 'A')
	victim, _ := loginTestPlayer(t, table, 'B')

	if err := table.maze.Place('A', 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := table.maze.Place('B', 1, 3); err != nil {
		t.Fatal(err)
	}
	shooter.dataMu.Lock()
	shooter.row, shooter.col, shooter.dir = 1, 1, maze.East
	shooter.dataMu.Unlock()
	victim.dataMu.Lock()
	victim.row, victim.col = 1, 3
	victim.dataMu.Unlock()

	table.Fire(shooter)

	if got := shooter.Score(); got != 1 {
		t.Errorf("shooter Score() = %d, want 1", got)
	}
	if !victim.ConsumeHit() {
		t.Error("victim hit flag was not set")
	}
}

func TestCheckHitRespawnsAfterPurgatory(t *testing.T) {
	table, done := newTestTable(t)
	defer close(done)
	r, _ := loginTestPlayer(t, table, 'A')
	r.SetHit()

	start := time.Now()
	table.CheckHit(r)
	if elapsed := time.Since(start); elapsed < PurgatoryDelay {
		t.Errorf("CheckHit() returned after %v, want >= %v", elapsed, PurgatoryDelay)
	}
	if r.ConsumeHit() {
		t.Error("hit flag still set after CheckHit()")
	}
}

func TestCheckHitCutShortByShutdown(t *testing.T) {
	table, done := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')
	r.SetHit()

	go func() {
		time.Sleep(10 * time.Millisecond)
		close(done)
	}()

	start := time.Now()
	table.CheckHit(r)
	if elapsed := time.Since(start); elapsed >= PurgatoryDelay {
		t.Errorf("CheckHit() took %v, want cut short by shutdown", elapsed)
	}
}

func TestUpdateViewPopulatesRecordView(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'A')

	if err := table.maze.Place('A', 1, 1); err != nil {
		t.Fatalf("Place() error: %v", err)
	}
	r.dataMu.Lock()
	r.row, r.col, r.dir = 1, 1, maze.East
	r.dataMu.Unlock()

	table.UpdateView(r)

	view := r.View()
	if len(view) == 0 {
		t.Fatal("View() returned no rows after UpdateView()")
	}
	if view[0].Corridor != 'A' {
		t.Errorf("View()[0].Corridor = %q, want 'A' (viewer's own cell)", view[0].Corridor)
	}
}

func TestByIndexFindsLoggedInSlotWithoutRefcount(t *testing.T) {
	table, _ := newTestTable(t)
	r, _ := loginTestPlayer(t, table, 'C')

	got, ok := table.ByIndex(2) // 'C' - 'A' == 2
	if !ok || got != r {
		t.Fatalf("ByIndex(2) = (%v, %v), want (%v, true)", got, ok, r)
	}

	if _, ok := table.ByIndex(-1); ok {
		t.Error("ByIndex(-1) = true, want false for out-of-range index")
	}
	if _, ok := table.ByIndex(MaxPlayers); ok {
		t.Error("ByIndex(MaxPlayers) = true, want false for out-of-range index")
	}
	if _, ok := table.ByIndex(5); ok {
		t.Error("ByIndex(5) = true, want false for empty slot")
	}
}

func TestSendChatPrefixesNameAndAvatar(t *testing.T) {
	table, _ := newTestTable(t)
	sender, _ := loginTestPlayer(t, table, 'A')

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()
	recipient, err := table.Login(c1, uuid.New(), 'B', "Bob")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	_ = recipient

	received := make(chan []byte, 1)
	go func() {
		f, err := protocol.Recv(c2)
		if err != nil {
			return
		}
		if f.Header.Type == protocol.TypeChat {
			received <- f.Payload
		}
	}()

	table.SendChat(sender, []byte("hello"))

	select {
	case payload := <-received:
		want := sender.Name + "[A] hello"
		if string(payload) != want {
			t.Errorf("chat payload = %q, want %q", payload, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chat frame")
	}
}
