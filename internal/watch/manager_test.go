package watch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testApp = pebble.UUID{0x9f, 0x4e, 0x2b, 0x1c}

var testKeys = map[string]uint32{
	"BG_COLOR":   10000,
	"SILK_COLOR": 10003,
}

// fakeTransport records sent frames and lets tests inject replies.
type fakeTransport struct {
	id        string
	mu        sync.Mutex
	connected bool
	sent      []pebble.Frame
	sentCh    chan pebble.AppMessage
	frames    chan pebble.Frame
	sendErr   error
}

func newFakeTransport(id string, connected bool) *fakeTransport {
	return &fakeTransport{
		id:        id,
		connected: connected,
		sentCh:    make(chan pebble.AppMessage, 8),
		frames:    make(chan pebble.Frame, 8),
	}
}

func (f *fakeTransport) ID() string                      { return f.id }
func (f *fakeTransport) Name() string                    { return f.id }
func (f *fakeTransport) Type() string                    { return "fake" }
func (f *fakeTransport) Start(ctx context.Context) error { return nil }
func (f *fakeTransport) Frames() <-chan pebble.Frame     { return f.frames }
func (f *fakeTransport) Close() error                    { return nil }

func (f *fakeTransport) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Connected: f.connected}
}

func (f *fakeTransport) Send(fr pebble.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, fr)
	var msg pebble.AppMessage
	if err := msg.UnmarshalBinary(fr.Payload); err == nil {
		f.sentCh <- msg
	}
	return nil
}

func (f *fakeTransport) reply(cmd byte, txID uint8) {
	fr, _ := pebble.AppMessage{Command: cmd, TransactionID: txID}.Frame()
	f.frames <- fr
}

func newTestManager(t *testing.T, timeout time.Duration, ts ...*fakeTransport) *Manager {
	m := NewManager(testApp, testKeys, timeout, nil)
	for _, ft := range ts {
		require.NoError(t, m.AddTransport(context.Background(), ft))
	}
	return m
}

func TestSendAppMessageAck(t *testing.T) {
	ft := newFakeTransport("phone", true)
	m := newTestManager(t, time.Second, ft)

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 0x550055, "SILK_COLOR": 0xFFFFFF})

	msg := <-ft.sentCh
	assert.Equal(t, pebble.CmdPush, msg.Command)
	assert.Equal(t, testApp, msg.UUID)
	require.Len(t, msg.Tuples, 2)
	assert.Equal(t, uint32(10000), msg.Tuples[0].Key)
	assert.Equal(t, int64(0x550055), msg.Tuples[0].Int())

	ft.reply(pebble.CmdAck, msg.TransactionID)

	d, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, d.OK())
	assert.Equal(t, "phone", d.Transport)
}

func TestSendAppMessageNack(t *testing.T) {
	ft := newFakeTransport("phone", true)
	m := newTestManager(t, time.Second, ft)

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 0})
	msg := <-ft.sentCh
	ft.reply(pebble.CmdNack, msg.TransactionID)

	assert.ErrorIs(t, p.Result().Err, ErrNack)
}

func TestSendAppMessageTimeout(t *testing.T) {
	ft := newFakeTransport("phone", true)
	m := newTestManager(t, 20*time.Millisecond, ft)

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 0})
	assert.ErrorIs(t, p.Result().Err, ErrAckTimeout)

	// a late ack is ignored
	msg := <-ft.sentCh
	ft.reply(pebble.CmdAck, msg.TransactionID)
	assert.ErrorIs(t, p.Result().Err, ErrAckTimeout)
}

func TestSendAppMessageNotConnected(t *testing.T) {
	m := newTestManager(t, time.Second, newFakeTransport("phone", false))

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 0})
	assert.ErrorIs(t, p.Result().Err, ErrNotConnected)
	assert.False(t, m.Connected())
}

func TestSendAppMessageUnknownField(t *testing.T) {
	m := newTestManager(t, time.Second, newFakeTransport("phone", true))

	p := m.SendAppMessage(context.Background(), map[string]int32{"LOWER_LABEL": 1})
	assert.ErrorIs(t, p.Result().Err, ErrUnknownField)
}

func TestPreferredTransport(t *testing.T) {
	a := newFakeTransport("a", true)
	b := newFakeTransport("b", true)
	m := newTestManager(t, time.Second, a, b)
	require.NoError(t, m.Prefer("b"))

	m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 1})
	select {
	case <-b.sentCh:
	case <-time.After(time.Second):
		t.Fatal("preferred transport not used")
	}
	assert.Empty(t, a.sent)

	assert.Error(t, m.Prefer("missing"))
	assert.Len(t, m.Transports(), 2)
}

func TestWatchPushIsAcked(t *testing.T) {
	ft := newFakeTransport("phone", true)
	newTestManager(t, time.Second, ft)

	push, err := pebble.NewPush(42, testApp, map[uint32]int32{1: 1}).Frame()
	require.NoError(t, err)
	ft.frames <- push

	select {
	case msg := <-ft.sentCh:
		assert.Equal(t, pebble.CmdAck, msg.Command)
		assert.Equal(t, uint8(42), msg.TransactionID)
	case <-time.After(time.Second):
		t.Fatal("push not acked")
	}
}

func TestCloseFailsOutstanding(t *testing.T) {
	ft := newFakeTransport("phone", true)
	m := newTestManager(t, time.Minute, ft)

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 0})
	<-ft.sentCh
	require.NoError(t, m.Close())
	assert.ErrorIs(t, p.Result().Err, ErrClosed)
}
