package pebble

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AppMessage commands.
const (
	CmdPush    byte = 0x01
	CmdRequest byte = 0x02
	CmdAck     byte = 0xFF
	CmdNack    byte = 0x7F
)

// TupleType is the type tag of a dictionary value.
type TupleType byte

const (
	TypeByteArray TupleType = 0
	TypeCString   TupleType = 1
	TypeUint      TupleType = 2
	TypeInt       TupleType = 3
)

var (
	ErrInvalidUUID    = errors.New("invalid uuid")
	ErrBadAppMessage  = errors.New("malformed app message")
	ErrTooManyTuples  = errors.New("too many tuples")
	ErrUnknownCommand = errors.New("unknown app message command")
)

// UUID identifies the watchapp a message is addressed to.
type UUID [16]byte

// ParseUUID parses the canonical 8-4-4-4-12 form.
func ParseUUID(s string) (UUID, error) {
	var u UUID
	h := strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if len(h) != 32 {
		return u, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
	}
	if _, err := hex.Decode(u[:], []byte(h)); err != nil {
		return u, fmt.Errorf("%w: %q", ErrInvalidUUID, s)
	}
	return u, nil
}

func (u UUID) String() string {
	h := hex.EncodeToString(u[:])
	return h[0:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:]
}

// Tuple is one dictionary entry. Integers are sent as 32-bit values.
type Tuple struct {
	Key   uint32
	Type  TupleType
	Value []byte
}

// IntTuple builds a signed 32-bit tuple.
func IntTuple(key uint32, v int32) Tuple {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return Tuple{Key: key, Type: TypeInt, Value: b}
}

// Int returns the tuple value as a signed integer.
func (t Tuple) Int() int64 {
	switch len(t.Value) {
	case 1:
		if t.Type == TypeInt {
			return int64(int8(t.Value[0]))
		}
		return int64(t.Value[0])
	case 2:
		v := binary.LittleEndian.Uint16(t.Value)
		if t.Type == TypeInt {
			return int64(int16(v))
		}
		return int64(v)
	case 4:
		v := binary.LittleEndian.Uint32(t.Value)
		if t.Type == TypeInt {
			return int64(int32(v))
		}
		return int64(v)
	}
	return 0
}

// AppMessage is a push, ack or nack on the AppMessage endpoint.
type AppMessage struct {
	Command       byte
	TransactionID uint8
	UUID          UUID
	Tuples        []Tuple
}

// NewPush builds a push with one int tuple per entry, ordered by key.
func NewPush(txID uint8, app UUID, values map[uint32]int32) AppMessage {
	keys := make([]uint32, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	m := AppMessage{Command: CmdPush, TransactionID: txID, UUID: app}
	for _, k := range keys {
		m.Tuples = append(m.Tuples, IntTuple(k, values[k]))
	}
	return m
}

// Frame wraps m for the AppMessage endpoint.
func (m AppMessage) Frame() (Frame, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return Frame{}, err
	}
	return Frame{Endpoint: EndpointAppMessage, Payload: b}, nil
}

func (m AppMessage) MarshalBinary() ([]byte, error) {
	switch m.Command {
	case CmdAck, CmdNack:
		return []byte{m.Command, m.TransactionID}, nil
	case CmdPush:
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, m.Command)
	}
	if len(m.Tuples) > 0xFF {
		return nil, fmt.Errorf("%w: %d", ErrTooManyTuples, len(m.Tuples))
	}

	b := make([]byte, 0, 19+len(m.Tuples)*11)
	b = append(b, m.Command, m.TransactionID)
	b = append(b, m.UUID[:]...)
	b = append(b, byte(len(m.Tuples)))
	for _, t := range m.Tuples {
		b = binary.LittleEndian.AppendUint32(b, t.Key)
		b = append(b, byte(t.Type))
		b = binary.LittleEndian.AppendUint16(b, uint16(len(t.Value)))
		b = append(b, t.Value...)
	}
	return b, nil
}

func (m *AppMessage) UnmarshalBinary(b []byte) error {
	if len(b) < 2 {
		return fmt.Errorf("%w: %d bytes", ErrBadAppMessage, len(b))
	}
	m.Command, m.TransactionID = b[0], b[1]
	m.Tuples = nil
	switch m.Command {
	case CmdAck, CmdNack:
		return nil
	case CmdPush:
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownCommand, m.Command)
	}

	if len(b) < 19 {
		return fmt.Errorf("%w: push header truncated", ErrBadAppMessage)
	}
	copy(m.UUID[:], b[2:18])
	count := int(b[18])
	rest := b[19:]
	for i := 0; i < count; i++ {
		if len(rest) < 7 {
			return fmt.Errorf("%w: tuple %d truncated", ErrBadAppMessage, i)
		}
		t := Tuple{
			Key:  binary.LittleEndian.Uint32(rest[0:4]),
			Type: TupleType(rest[4]),
		}
		n := int(binary.LittleEndian.Uint16(rest[5:7]))
		rest = rest[7:]
		if len(rest) < n {
			return fmt.Errorf("%w: tuple %d value truncated", ErrBadAppMessage, i)
		}
		t.Value = append([]byte(nil), rest[:n]...)
		rest = rest[n:]
		m.Tuples = append(m.Tuples, t)
	}
	return nil
}
