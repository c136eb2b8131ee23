package watch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/hashicorp/go-hclog"
	"go.bug.st/serial.v1"
)

var (
	ErrNack         = errors.New("message rejected by watch")
	ErrAckTimeout   = errors.New("no ack from watch")
	ErrUnknownField = errors.New("no message key for field")
	ErrNoTxID       = errors.New("no free transaction id")
)

// DefaultAckTimeout bounds how long a send waits for an ack or nack.
const DefaultAckTimeout = 10 * time.Second

// Manager manages watch transports and AppMessage delivery
type Manager struct {
	mu         sync.Mutex
	transports map[string]Transport
	order      []string
	preferred  string

	app        pebble.UUID
	keys       map[string]uint32
	ackTimeout time.Duration
	nextTx     uint8
	pending    map[uint8]*outgoing

	log hclog.Logger
}

type outgoing struct {
	p         *Pending
	transport string
}

// DiscoveredPort represents a serial port a watch may be paired on
type DiscoveredPort struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Device string `json:"device"`
}

// TransportInfo is the status of one registered transport
type TransportInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Status Status `json:"status"`
}

// NewManager creates a new watch manager
func NewManager(app pebble.UUID, keys map[string]uint32, ackTimeout time.Duration, log hclog.Logger) *Manager {
	if ackTimeout <= 0 {
		ackTimeout = DefaultAckTimeout
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	k := make(map[string]uint32, len(keys))
	for name, id := range keys {
		k[name] = id
	}
	return &Manager{
		transports: make(map[string]Transport),
		app:        app,
		keys:       k,
		ackTimeout: ackTimeout,
		pending:    make(map[uint8]*outgoing),
		log:        log,
	}
}

// AddTransport starts t and routes its inbound frames
func (m *Manager) AddTransport(ctx context.Context, t Transport) error {
	if err := t.Start(ctx); err != nil {
		return fmt.Errorf("starting transport %s: %w", t.ID(), err)
	}

	m.mu.Lock()
	if _, ok := m.transports[t.ID()]; !ok {
		m.order = append(m.order, t.ID())
	}
	m.transports[t.ID()] = t
	m.mu.Unlock()

	go m.readLoop(t)
	m.log.Info("transport added", "id", t.ID(), "type", t.Type())
	return nil
}

// GetTransport gets a transport by ID
func (m *Manager) GetTransport(id string) (Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transports[id]
	if !ok {
		return nil, errors.New("transport not found: " + id)
	}
	return t, nil
}

// Prefer makes id the first transport tried when sending.
func (m *Manager) Prefer(id string) error {
	if _, err := m.GetTransport(id); err != nil {
		return err
	}
	m.mu.Lock()
	m.preferred = id
	m.mu.Unlock()
	return nil
}

// Transports lists registered transports in the order they were added
func (m *Manager) Transports() []TransportInfo {
	m.mu.Lock()
	ts := make([]Transport, 0, len(m.order))
	for _, id := range m.order {
		ts = append(ts, m.transports[id])
	}
	m.mu.Unlock()

	out := make([]TransportInfo, 0, len(ts))
	for _, t := range ts {
		out = append(out, TransportInfo{ID: t.ID(), Name: t.Name(), Type: t.Type(), Status: t.Status()})
	}
	return out
}

// Connected reports whether any transport is connected
func (m *Manager) Connected() bool {
	_, err := m.active()
	return err == nil
}

// active picks the preferred transport if connected, otherwise the first
// connected one.
func (m *Manager) active() (Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.transports[m.preferred]; ok && t.Status().Connected {
		return t, nil
	}
	for _, id := range m.order {
		if t := m.transports[id]; t.Status().Connected {
			return t, nil
		}
	}
	return nil, ErrNotConnected
}

// SendAppMessage pushes values to the watchapp. The returned Pending
// resolves on ack, nack, ack timeout or ctx cancellation.
func (m *Manager) SendAppMessage(ctx context.Context, values map[string]int32) *Pending {
	dict := make(map[uint32]int32, len(values))
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		key, ok := m.keys[name]
		if !ok {
			return Failed(fmt.Errorf("%w: %s", ErrUnknownField, name))
		}
		dict[key] = values[name]
	}

	t, err := m.active()
	if err != nil {
		return Failed(err)
	}

	p := newPending()
	m.mu.Lock()
	txID, err := m.allocTx()
	if err != nil {
		m.mu.Unlock()
		return Failed(err)
	}
	m.pending[txID] = &outgoing{p: p, transport: t.ID()}
	m.mu.Unlock()

	frame, err := pebble.NewPush(txID, m.app, dict).Frame()
	if err == nil {
		err = t.Send(frame)
	}
	if err != nil {
		m.finish(txID, fmt.Errorf("sending on %s: %w", t.ID(), err))
		return p
	}
	m.log.Debug("app message pushed", "tx", txID, "transport", t.ID(), "tuples", len(dict))

	go func() {
		timer := time.NewTimer(m.ackTimeout)
		defer timer.Stop()
		select {
		case <-p.Done():
		case <-timer.C:
			m.finish(txID, fmt.Errorf("%w after %s", ErrAckTimeout, m.ackTimeout))
		case <-ctx.Done():
			m.finish(txID, ctx.Err())
		}
	}()
	return p
}

// allocTx returns the next free transaction id. Callers hold m.mu.
func (m *Manager) allocTx() (uint8, error) {
	for i := 0; i < 256; i++ {
		id := m.nextTx
		m.nextTx++
		if _, busy := m.pending[id]; !busy {
			return id, nil
		}
	}
	return 0, ErrNoTxID
}

func (m *Manager) finish(txID uint8, err error) {
	m.mu.Lock()
	out, ok := m.pending[txID]
	delete(m.pending, txID)
	m.mu.Unlock()
	if !ok {
		return
	}
	out.p.resolve(Delivery{TransactionID: txID, Transport: out.transport, Err: err})
}

func (m *Manager) readLoop(t Transport) {
	for f := range t.Frames() {
		if f.Endpoint != pebble.EndpointAppMessage {
			continue
		}
		var msg pebble.AppMessage
		if err := msg.UnmarshalBinary(f.Payload); err != nil {
			m.log.Warn("dropping app message", "transport", t.ID(), "error", err)
			continue
		}
		switch msg.Command {
		case pebble.CmdAck:
			m.finish(msg.TransactionID, nil)
		case pebble.CmdNack:
			m.finish(msg.TransactionID, ErrNack)
		case pebble.CmdPush:
			// the watch expects every push to be acknowledged
			ack, _ := pebble.AppMessage{Command: pebble.CmdAck, TransactionID: msg.TransactionID}.Frame()
			if err := t.Send(ack); err != nil {
				m.log.Warn("failed to ack watch push", "transport", t.ID(), "error", err)
			}
		}
	}
}

// Discover lists serial ports a paired watch may be reachable on
func (m *Manager) Discover() ([]DiscoveredPort, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	discovered := make([]DiscoveredPort, 0, len(ports))
	for _, p := range ports {
		discovered = append(discovered, DiscoveredPort{
			ID:     fmt.Sprintf("serial-%s", p),
			Name:   fmt.Sprintf("Serial port %s", p),
			Type:   TypeSerial,
			Device: p,
		})
	}
	return discovered, nil
}

// Close closes every transport and fails outstanding sends
func (m *Manager) Close() error {
	m.mu.Lock()
	ts := make([]Transport, 0, len(m.transports))
	for _, t := range m.transports {
		ts = append(ts, t)
	}
	pending := make([]uint8, 0, len(m.pending))
	for id := range m.pending {
		pending = append(pending, id)
	}
	m.mu.Unlock()

	for _, id := range pending {
		m.finish(id, ErrClosed)
	}
	var firstErr error
	for _, t := range ts {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
