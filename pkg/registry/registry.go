// Package registry tracks every live client connection so the server can
// drive a coordinated, graceful shutdown.
package registry

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
)

// ErrFull is returned when the registry is already tracking as many
// connections as its limit allows.
var ErrFull = errors.New("registry: too many clients")

// MaxClients bounds the number of simultaneously tracked connections.
const MaxClients = 1024

// halfCloser is satisfied by net.TCPConn; tests may supply a fake.
type halfCloser interface {
	CloseRead() error
}

// Registry tracks live connections by a minted UUID and coordinates
// ShutdownAll/WaitEmpty for graceful termination.
type Registry struct {
	mu       sync.Mutex
	clients  map[uuid.UUID]net.Conn
	empty    *sync.Cond
	waitDone bool // set by WaitEmpty's caller giving up, to stop the helper goroutine from parking forever
	maxConns int
}

// New creates an empty Registry bounded by MaxClients.
func New() *Registry {
	return NewWithLimit(MaxClients)
}

// NewWithLimit creates an empty Registry bounded by max. A non-positive max
// falls back to MaxClients.
func NewWithLimit(max int) *Registry {
	if max <= 0 {
		max = MaxClients
	}
	r := &Registry{clients: make(map[uuid.UUID]net.Conn), maxConns: max}
	r.empty = sync.NewCond(&r.mu)
	return r
}

// Register starts tracking conn and returns the UUID minted for it.
func (r *Registry) Register(conn net.Conn) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.clients) >= r.maxConns {
		return uuid.Nil, ErrFull
	}
	id := uuid.New()
	r.clients[id] = conn
	return id, nil
}

// Unregister stops tracking id. Safe to call more than once.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[id]; !ok {
		return
	}
	delete(r.clients, id)
	if len(r.clients) == 0 {
		r.empty.Broadcast()
	}
}

// Count reports the number of currently tracked connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// WaitEmpty blocks until no connections are tracked or ctx is done.
func (r *Registry) WaitEmpty(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.mu.Lock()
		for len(r.clients) > 0 && !r.waitDone {
			r.empty.Wait()
		}
		r.waitDone = false
		r.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		r.waitDone = true
		r.mu.Unlock()
		r.empty.Broadcast()
		<-done
		return ctx.Err()
	}
}

// ShutdownAll half-closes the read side of every tracked connection so
// goroutines blocked in a read wake with io.EOF. It does not unregister
// anything; each session removes itself as it exits.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conn := range r.clients {
		if hc, ok := conn.(halfCloser); ok {
			_ = hc.CloseRead()
		} else {
			_ = conn.Close()
		}
	}
}
