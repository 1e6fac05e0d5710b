// Package session drives a single connected client end-to-end: login,
// frame dispatch, asynchronous hit delivery, and teardown.
package session

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/duskforge/mazewars/pkg/metrics"
	"github.com/duskforge/mazewars/pkg/player"
	"github.com/duskforge/mazewars/pkg/protocol"
	"github.com/duskforge/mazewars/pkg/registry"
)

// maxLoginNameSize bounds the payload size of a Login frame's name field.
const maxLoginNameSize = 256

// pollInterval bounds how long a single Recv call blocks before the loop
// re-checks for a pending hit notification.
const pollInterval = 500 * time.Millisecond

// Session services one connection from accept to close.
type Session struct {
	conn     net.Conn
	table    *player.Table
	registry *registry.Registry
	metrics  *metrics.Metrics
	log      *logrus.Logger

	connID   uuid.UUID
	record   *player.Record
	loggedIn bool
}

// New builds a Session for conn, backed by table and registry.
func New(conn net.Conn, table *player.Table, reg *registry.Registry, mx *metrics.Metrics, log *logrus.Logger) *Session {
	return &Session{conn: conn, table: table, registry: reg, metrics: mx, log: log}
}

// Run services the connection until it disconnects, errors, or the
// registry signals shutdown. It always cleans up: logs the player out if
// logged in, closes the connection, and unregisters from the registry.
func (s *Session) Run() {
	id, err := s.registry.Register(s.conn)
	if err != nil {
		_ = protocol.Send(s.conn, protocol.Header{Type: protocol.TypeInUse}, nil)
		s.conn.Close()
		return
	}
	s.connID = id
	if s.metrics != nil {
		s.metrics.ConnectionsOpen.Inc()
	}

	defer func() {
		if s.loggedIn && s.record != nil {
			s.table.Logout(s.record)
		}
		s.conn.Close()
		s.registry.Unregister(id)
		if s.metrics != nil {
			s.metrics.ConnectionsOpen.Dec()
		}
	}()

	for {
		if s.loggedIn {
			select {
			case <-s.record.Interrupt:
				s.table.CheckHit(s.record)
			default:
			}
		}

		s.conn.SetReadDeadline(time.Now().Add(pollInterval))
		frame, err := protocol.Recv(s.conn)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if s.metrics != nil {
				s.metrics.ProtocolErrors.Inc()
			}
			s.logf(logrus.WarnLevel, "session read error: %v", err)
			return
		}

		if !s.loggedIn && frame.Header.Type != protocol.TypeLogin {
			if !s.autoLogin() {
				return
			}
		}

		if frame.Header.Type == protocol.TypeLogin {
			if !s.handleLogin(frame) {
				return
			}
			continue
		}

		s.dispatch(frame)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *Session) logf(level logrus.Level, format string, args ...interface{}) {
	if s.log == nil {
		return
	}
	s.log.WithField("conn_id", s.connID).Logf(level, format, args...)
}
