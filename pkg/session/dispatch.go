package session

import (
	"github.com/sirupsen/logrus"

	"github.com/duskforge/mazewars/pkg/player"
	"github.com/duskforge/mazewars/pkg/protocol"
)

// autoLogin picks the lowest unused avatar and logs the session in as
// Anonymous. It returns false if the session should be torn down (no
// avatars left).
func (s *Session) autoLogin() bool {
	avatar, ok := s.table.FirstAvailableAvatar()
	if !ok {
		_ = protocol.Send(s.conn, protocol.Header{Type: protocol.TypeInUse}, nil)
		return false
	}
	return s.completeLogin(avatar, player.AnonymousName)
}

// handleLogin processes an explicit Login frame. Returns false if the
// session should be torn down.
func (s *Session) handleLogin(frame protocol.Frame) bool {
	if s.loggedIn {
		return true
	}

	name := ""
	if n := int(frame.Header.Size); n > 0 {
		if n > maxLoginNameSize {
			_ = protocol.Send(s.conn, protocol.Header{Type: protocol.TypeInUse}, nil)
			return false
		}
		name = string(frame.Payload)
	}

	avatar := frame.Header.Param1
	if ok := s.completeLogin(avatar, name); ok {
		return true
	}

	// Retry with the next free avatar only for the default anonymous case;
	// an explicitly chosen name that collides is a hard failure.
	if name == "" || name == player.AnonymousName {
		if alt, ok := s.table.FirstAvailableAvatar(); ok {
			return s.completeLogin(alt, name)
		}
	}
	_ = protocol.Send(s.conn, protocol.Header{Type: protocol.TypeInUse}, nil)
	return false
}

func (s *Session) completeLogin(avatar byte, name string) bool {
	r, err := s.table.Login(s.conn, s.connID, avatar, name)
	if err != nil {
		return false
	}
	s.record = r
	s.loggedIn = true

	_ = protocol.Send(s.conn, protocol.Header{Type: protocol.TypeReady}, nil)
	s.table.Reset(r)
	s.table.AnnounceLogin(r)
	return true
}

// dispatch routes one post-login frame to the player-table action it names.
func (s *Session) dispatch(frame protocol.Frame) {
	if !s.loggedIn {
		return
	}
	r := s.record

	switch frame.Header.Type {
	case protocol.TypeMove:
		sign := int8(frame.Header.Param1)
		if sign != 1 && sign != -1 {
			s.logf(logrus.DebugLevel, "ignoring MOVE with undefined sign %d", sign)
			return
		}
		_ = s.table.Move(r, sign)

	case protocol.TypeTurn:
		sense := int8(frame.Header.Param1)
		if sense != 1 && sense != -1 {
			s.logf(logrus.DebugLevel, "ignoring TURN with undefined sense %d", sense)
			return
		}
		s.table.Rotate(r, sense)
		s.table.UpdateView(r)

	case protocol.TypeFire:
		s.table.Fire(r)

	case protocol.TypeRefresh:
		s.table.InvalidateView(r)
		s.table.UpdateView(r)

	case protocol.TypeSend:
		s.table.SendChat(r, frame.Payload)

	default:
		s.logf(logrus.DebugLevel, "unhandled frame type %v", frame.Header.Type)
	}
}
