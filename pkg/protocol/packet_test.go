package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	h := Header{
		Type:          TypeShow,
		Param1:        'A',
		Param2:        1,
		Param3:        3,
		TimestampSec:  1700000000,
		TimestampNsec: 123456,
	}
	payload := []byte("corridor")

	var buf bytes.Buffer
	if err := Send(&buf, h, payload); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	got, err := Recv(&buf)
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if got.Header.Type != h.Type || got.Header.Param1 != h.Param1 || got.Header.Param2 != h.Param2 || got.Header.Param3 != h.Param3 {
		t.Errorf("Header fields = %+v, want %+v", got.Header, h)
	}
	if got.Header.TimestampSec != h.TimestampSec || got.Header.TimestampNsec != h.TimestampNsec {
		t.Errorf("Header timestamps = %+v, want %+v", got.Header, h)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Errorf("Payload = %q, want %q", got.Payload, payload)
	}
}

func TestFrameNoPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, Header{Type: TypeFire}, nil); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	got, err := Recv(&buf)
	if err != nil {
		t.Fatalf("Recv error: %v", err)
	}
	if got.Header.Type != TypeFire {
		t.Errorf("Type = %v, want %v", got.Header.Type, TypeFire)
	}
	if len(got.Payload) != 0 {
		t.Errorf("Payload = %v, want empty", got.Payload)
	}
}

func TestRecvCleanDisconnect(t *testing.T) {
	_, err := Recv(bytes.NewReader(nil))
	if !errors.Is(err, io.EOF) {
		t.Errorf("Recv on empty reader = %v, want io.EOF", err)
	}
}

func TestRecvOversizePayloadIsProtocolError(t *testing.T) {
	h := Header{Type: TypeSend, Size: MaxPayloadSize + 1}
	var buf bytes.Buffer
	buf.Write([]byte{byte(h.Type), 0, 0, 0})
	_ = WriteUint16(&buf, h.Size)
	_ = WriteUint32(&buf, 0)
	_ = WriteUint32(&buf, 0)
	buf.Write([]byte{0, 0}) // reserved

	_, err := Recv(&buf)
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Recv with oversize payload = %v, want ErrProtocol", err)
	}
}

func TestNetworkByteOrderOnWire(t *testing.T) {
	var buf bytes.Buffer
	if err := Send(&buf, Header{Type: TypeMove, Size: 0, TimestampSec: 0x01020304}, nil); err != nil {
		t.Fatalf("Send error: %v", err)
	}
	wire := buf.Bytes()
	if wire[6] != 0x01 || wire[7] != 0x02 || wire[8] != 0x03 || wire[9] != 0x04 {
		t.Errorf("TimestampSec not encoded big-endian: %v", wire[6:10])
	}
}
