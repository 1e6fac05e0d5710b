package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Type identifies the kind of frame exchanged between client and server.
type Type byte

const (
	TypeLogin Type = iota
	TypeReady
	TypeInUse
	TypeTurn
	TypeFire
	TypeRefresh
	TypeSend
	TypeMove
	TypeAlert
	TypeView
	TypeClear
	TypeShow
	TypeScore
	TypeChat
)

func (t Type) String() string {
	switch t {
	case TypeLogin:
		return "LOGIN"
	case TypeReady:
		return "READY"
	case TypeInUse:
		return "IN_USE"
	case TypeTurn:
		return "TURN"
	case TypeFire:
		return "FIRE"
	case TypeRefresh:
		return "REFRESH"
	case TypeSend:
		return "SEND"
	case TypeMove:
		return "MOVE"
	case TypeAlert:
		return "ALERT"
	case TypeView:
		return "VIEW"
	case TypeClear:
		return "CLEAR"
	case TypeShow:
		return "SHOW"
	case TypeScore:
		return "SCORE"
	case TypeChat:
		return "CHAT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(t))
	}
}

// HeaderSize is the fixed on-wire size of a Header, in bytes.
const HeaderSize = 16

// MaxPayloadSize bounds the payload a single frame may carry.
const MaxPayloadSize = 1024

// Sentinel errors. Recv/Send wrap the underlying cause with %w; callers
// should compare with errors.Is.
var (
	ErrIO       = errors.New("protocol: io error")
	ErrProtocol = errors.New("protocol: malformed frame")
)

// Header is the fixed 16-byte frame header. Param1-3 carry frame-specific
// arguments; Size is the length of the payload that follows on the wire.
type Header struct {
	Type          Type
	Param1        byte
	Param2        byte
	Param3        byte
	Size          uint16
	TimestampSec  uint32
	TimestampNsec uint32
}

// Frame is a received Header paired with its payload, if any.
type Frame struct {
	Header  Header
	Payload []byte
}

// Send writes header and payload (if any) to w as a single buffered write,
// using network byte order for all multi-byte fields. Short/partial writes
// are reported as ErrIO.
func Send(w io.Writer, h Header, payload []byte) error {
	if int(h.Size) != len(payload) {
		h.Size = uint16(len(payload))
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(payload)))
	_ = WriteByte(buf, byte(h.Type))
	_ = WriteByte(buf, h.Param1)
	_ = WriteByte(buf, h.Param2)
	_ = WriteByte(buf, h.Param3)
	_ = WriteUint16(buf, h.Size)
	_ = WriteUint32(buf, h.TimestampSec)
	_ = WriteUint32(buf, h.TimestampNsec)
	buf.Write([]byte{0, 0}) // reserved
	buf.Write(payload)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("send frame: %w: %w", ErrIO, err)
	}
	return nil
}

// Recv reads one frame from r. A clean disconnect before any bytes are read
// is reported as io.EOF; any other short read is ErrIO. A payload size
// beyond MaxPayloadSize is ErrProtocol.
func Recv(r io.Reader) (Frame, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("recv header: %w: %w", ErrIO, err)
	}

	hr := bytes.NewReader(raw[:])
	typ, _ := ReadByte(hr)
	p1, _ := ReadByte(hr)
	p2, _ := ReadByte(hr)
	p3, _ := ReadByte(hr)
	size, _ := ReadUint16(hr)
	sec, _ := ReadUint32(hr)
	nsec, _ := ReadUint32(hr)

	h := Header{
		Type:          Type(typ),
		Param1:        p1,
		Param2:        p2,
		Param3:        p3,
		Size:          size,
		TimestampSec:  sec,
		TimestampNsec: nsec,
	}

	if h.Size == 0 {
		return Frame{Header: h}, nil
	}
	if int(h.Size) > MaxPayloadSize {
		return Frame{}, fmt.Errorf("payload size %d exceeds max %d: %w", h.Size, MaxPayloadSize, ErrProtocol)
	}

	payload := make([]byte, h.Size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("recv payload: %w: %w", ErrIO, err)
	}
	return Frame{Header: h, Payload: payload}, nil
}
