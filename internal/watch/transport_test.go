package watch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitConnected(t *testing.T, tr Transport) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !tr.Status().Connected {
		if time.Now().After(deadline) {
			t.Fatalf("%s never connected", tr.ID())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// fakePhone acts as the phone app's developer connection: it acks every
// push it relays to the "watch".
func fakePhone(t *testing.T, received chan<- pebble.AppMessage) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if len(data) < 1 || data[0] != devConnToWatch {
				continue
			}
			var f pebble.Frame
			var msg pebble.AppMessage
			if f.UnmarshalBinary(data[1:]) != nil || msg.UnmarshalBinary(f.Payload) != nil {
				continue
			}
			received <- msg

			ack, _ := pebble.AppMessage{Command: pebble.CmdAck, TransactionID: msg.TransactionID}.Frame()
			b, _ := ack.MarshalBinary()
			conn.WriteMessage(websocket.BinaryMessage, append([]byte{devConnFromWatch}, b...))
		}
	}))
}

func TestDevConnDelivers(t *testing.T) {
	received := make(chan pebble.AppMessage, 1)
	srv := fakePhone(t, received)
	defer srv.Close()

	cfg := &config.TransportConfig{ID: "phone", Type: TypeDevConn, URL: "ws" + strings.TrimPrefix(srv.URL, "http")}
	dc := NewDevConn(cfg, nil)

	m := NewManager(testApp, testKeys, 2*time.Second, nil)
	require.NoError(t, m.AddTransport(context.Background(), dc))
	defer m.Close()
	waitConnected(t, dc)

	p := m.SendAppMessage(context.Background(), map[string]int32{"SILK_COLOR": 0xFFFFFF})
	d, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.NoError(t, d.Err)

	msg := <-received
	require.Len(t, msg.Tuples, 1)
	assert.Equal(t, uint32(10003), msg.Tuples[0].Key)
}

func TestDevConnNotConnected(t *testing.T) {
	dc := NewDevConn(&config.TransportConfig{ID: "phone", URL: "ws://127.0.0.1:1"}, nil)
	f, _ := pebble.AppMessage{Command: pebble.CmdAck}.Frame()
	assert.ErrorIs(t, dc.Send(f), ErrNotConnected)
}

func TestQemuPacketFraming(t *testing.T) {
	b := encodeQemuPacket(qemuProtocolSPP, []byte{1, 2, 3})
	assert.Equal(t, []byte{0xFE, 0xED, 0x00, 0x01, 0x00, 0x03, 1, 2, 3, 0xBE, 0xEF}, b)

	proto, data, err := readQemuPacket(strings.NewReader(string(b)))
	require.NoError(t, err)
	assert.Equal(t, qemuProtocolSPP, proto)
	assert.Equal(t, []byte{1, 2, 3}, data)

	b[0] = 0x00
	_, _, err = readQemuPacket(strings.NewReader(string(b)))
	assert.ErrorIs(t, err, ErrBadQemuPacket)
}

func TestQemuDelivers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, data, err := readQemuPacket(conn)
		if err != nil {
			return
		}
		var f pebble.Frame
		var msg pebble.AppMessage
		if f.UnmarshalBinary(data) != nil || msg.UnmarshalBinary(f.Payload) != nil {
			return
		}
		ack, _ := pebble.AppMessage{Command: pebble.CmdAck, TransactionID: msg.TransactionID}.Frame()
		ab, _ := ack.MarshalBinary()
		// split the ack across two packets
		conn.Write(encodeQemuPacket(qemuProtocolSPP, ab[:3]))
		conn.Write(encodeQemuPacket(qemuProtocolSPP, ab[3:]))
		io.Copy(io.Discard, conn)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	q := NewQemu(&config.TransportConfig{ID: "emu", Address: "127.0.0.1", Port: addr.Port}, nil)
	m := NewManager(testApp, testKeys, 2*time.Second, nil)
	require.NoError(t, m.AddTransport(context.Background(), q))
	defer m.Close()

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 1})
	assert.NoError(t, p.Result().Err)
}

func TestSerialDelivers(t *testing.T) {
	phoneSide, watchSide := net.Pipe()
	s := newSerial(&config.TransportConfig{ID: "rfcomm0", Device: "/dev/rfcomm0"}, nil)
	s.open = func() (io.ReadWriteCloser, error) { return phoneSide, nil }

	go func() {
		f, err := pebble.ReadFrame(watchSide)
		if err != nil {
			return
		}
		var msg pebble.AppMessage
		if msg.UnmarshalBinary(f.Payload) != nil {
			return
		}
		ack, _ := pebble.AppMessage{Command: pebble.CmdNack, TransactionID: msg.TransactionID}.Frame()
		pebble.WriteFrame(watchSide, ack)
	}()

	m := NewManager(testApp, testKeys, 2*time.Second, nil)
	require.NoError(t, m.AddTransport(context.Background(), s))
	defer m.Close()

	p := m.SendAppMessage(context.Background(), map[string]int32{"BG_COLOR": 1})
	assert.ErrorIs(t, p.Result().Err, ErrNack)
}
