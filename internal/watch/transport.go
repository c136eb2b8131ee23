package watch

import (
	"context"
	"errors"
	"time"

	"github.com/combee/resistor-time-config/internal/pebble"
)

// Transport types.
const (
	TypeDevConn = "devconn"
	TypeSerial  = "serial"
	TypeQemu    = "qemu"
)

var (
	ErrNotConnected = errors.New("watch not connected")
	ErrQueueFull    = errors.New("send queue full")
	ErrClosed       = errors.New("transport closed")
)

// Transport carries Pebble Protocol frames between the phone side and the
// watch.
type Transport interface {
	ID() string
	Name() string
	Type() string
	Status() Status
	Start(ctx context.Context) error
	Send(f pebble.Frame) error
	Frames() <-chan pebble.Frame
	Close() error
}

// Status represents a transport's connection status
type Status struct {
	Connected    bool      `json:"connected"`
	Reconnecting bool      `json:"reconnecting"`
	LastError    string    `json:"last_error,omitempty"`
	LastSeen     time.Time `json:"last_seen"`
}
