package pebble

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Pebble Protocol endpoints used by the bridge.
const (
	EndpointAppMessage uint16 = 0x30
)

// MaxPayload is the largest payload a frame length can describe.
const MaxPayload = 0xFFFF

var (
	ErrShortFrame      = errors.New("short frame")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Frame is one Pebble Protocol message:
// uint16 BE payload length, uint16 BE endpoint, payload.
type Frame struct {
	Endpoint uint16
	Payload  []byte
}

// MarshalBinary encodes f with its 4-byte header.
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(f.Payload))
	}
	b := make([]byte, 4+len(f.Payload))
	binary.BigEndian.PutUint16(b[0:2], uint16(len(f.Payload)))
	binary.BigEndian.PutUint16(b[2:4], f.Endpoint)
	copy(b[4:], f.Payload)
	return b, nil
}

// UnmarshalBinary decodes a complete frame; trailing bytes are an error.
func (f *Frame) UnmarshalBinary(b []byte) error {
	if len(b) < 4 {
		return ErrShortFrame
	}
	n := int(binary.BigEndian.Uint16(b[0:2]))
	if len(b) != 4+n {
		return fmt.Errorf("%w: header says %d bytes, got %d", ErrShortFrame, n, len(b)-4)
	}
	f.Endpoint = binary.BigEndian.Uint16(b[2:4])
	f.Payload = append([]byte(nil), b[4:]...)
	return nil
}

// ReadFrame reads exactly one frame from a byte stream.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := binary.BigEndian.Uint16(hdr[0:2])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("reading %d byte payload: %w", n, err)
	}
	return Frame{Endpoint: binary.BigEndian.Uint16(hdr[2:4]), Payload: payload}, nil
}

// WriteFrame encodes f and writes it in a single call.
func WriteFrame(w io.Writer, f Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
