package watch

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/hashicorp/go-hclog"
)

// Emulator serial packet framing.
const (
	qemuHeader      uint16 = 0xFEED
	qemuFooter      uint16 = 0xBEEF
	qemuProtocolSPP uint16 = 1
)

var ErrBadQemuPacket = errors.New("bad emulator packet")

// Qemu talks to the watch emulator's TCP serial console. Pebble Protocol
// frames are carried inside FEED/BEEF delimited packets.
type Qemu struct {
	config *config.TransportConfig
	log    hclog.Logger

	mu        sync.Mutex
	conn      net.Conn
	lastError error
	lastSeen  time.Time

	frames    chan pebble.Frame
	closeChan chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
}

// NewQemu creates an emulator transport
func NewQemu(cfg *config.TransportConfig, log hclog.Logger) *Qemu {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Qemu{
		config:    cfg,
		log:       log.Named(cfg.ID),
		frames:    make(chan pebble.Frame, 10),
		closeChan: make(chan struct{}),
	}
}

func (q *Qemu) ID() string   { return q.config.ID }
func (q *Qemu) Name() string { return q.config.Name }
func (q *Qemu) Type() string { return TypeQemu }

// Frames returns frames received from the watch
func (q *Qemu) Frames() <-chan pebble.Frame {
	return q.frames
}

// Start connects to the emulator
func (q *Qemu) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", q.config.Address, q.config.Port)

	var d net.Dialer
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		q.setError(err)
		return fmt.Errorf("failed to connect to emulator: %w", err)
	}

	q.mu.Lock()
	q.conn = conn
	q.lastSeen = time.Now()
	q.mu.Unlock()

	// SPP payloads may split frames, so reassemble them through a pipe.
	pr, pw := io.Pipe()
	q.wg.Add(2)
	go func() {
		defer q.wg.Done()
		q.readPackets(conn, pw)
	}()
	go func() {
		defer q.wg.Done()
		q.readFrames(pr)
	}()
	go func() {
		select {
		case <-ctx.Done():
			q.Close()
		case <-q.closeChan:
		}
	}()

	q.log.Info("connected to emulator", "address", addr)
	return nil
}

// Status returns the current connection status
func (q *Qemu) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	st := Status{Connected: q.conn != nil, LastSeen: q.lastSeen}
	if q.lastError != nil {
		st.LastError = q.lastError.Error()
	}
	return st
}

// Send wraps f in an SPP packet and writes it
func (q *Qemu) Send(f pebble.Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn == nil {
		return ErrNotConnected
	}

	q.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if _, err := q.conn.Write(encodeQemuPacket(qemuProtocolSPP, b)); err != nil {
		q.lastError = err
		return fmt.Errorf("failed to send data to emulator: %w", err)
	}
	return nil
}

// Close closes the emulator connection
func (q *Qemu) Close() error {
	var err error
	q.once.Do(func() {
		close(q.closeChan)
		q.mu.Lock()
		if q.conn != nil {
			err = q.conn.Close()
			q.conn = nil
		}
		q.mu.Unlock()
		q.wg.Wait()
		close(q.frames)
	})
	return err
}

func encodeQemuPacket(protocol uint16, data []byte) []byte {
	b := make([]byte, 0, 8+len(data))
	b = binary.BigEndian.AppendUint16(b, qemuHeader)
	b = binary.BigEndian.AppendUint16(b, protocol)
	b = binary.BigEndian.AppendUint16(b, uint16(len(data)))
	b = append(b, data...)
	b = binary.BigEndian.AppendUint16(b, qemuFooter)
	return b
}

func readQemuPacket(r io.Reader) (protocol uint16, data []byte, err error) {
	var hdr [6]byte
	if _, err = io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	if binary.BigEndian.Uint16(hdr[0:2]) != qemuHeader {
		return 0, nil, fmt.Errorf("%w: header 0x%04x", ErrBadQemuPacket, binary.BigEndian.Uint16(hdr[0:2]))
	}
	protocol = binary.BigEndian.Uint16(hdr[2:4])
	data = make([]byte, binary.BigEndian.Uint16(hdr[4:6]))
	if _, err = io.ReadFull(r, data); err != nil {
		return 0, nil, err
	}
	var ftr [2]byte
	if _, err = io.ReadFull(r, ftr[:]); err != nil {
		return 0, nil, err
	}
	if binary.BigEndian.Uint16(ftr[:]) != qemuFooter {
		return 0, nil, fmt.Errorf("%w: footer 0x%04x", ErrBadQemuPacket, binary.BigEndian.Uint16(ftr[:]))
	}
	return protocol, data, nil
}

func (q *Qemu) readPackets(r io.Reader, pw *io.PipeWriter) {
	for {
		protocol, data, err := readQemuPacket(r)
		if err != nil {
			pw.CloseWithError(err)
			q.drop(err)
			return
		}
		q.mu.Lock()
		q.lastSeen = time.Now()
		q.mu.Unlock()

		if protocol != qemuProtocolSPP {
			continue
		}
		if _, err := pw.Write(data); err != nil {
			return
		}
	}
}

func (q *Qemu) readFrames(pr *io.PipeReader) {
	defer pr.Close()
	for {
		f, err := pebble.ReadFrame(pr)
		if err != nil {
			return
		}
		select {
		case q.frames <- f:
		case <-q.closeChan:
			return
		}
	}
}

// drop forgets a connection that failed outside of Close.
func (q *Qemu) drop(err error) {
	select {
	case <-q.closeChan:
		return
	default:
	}
	q.log.Warn("emulator connection lost", "error", err)
	q.mu.Lock()
	q.lastError = err
	if q.conn != nil {
		q.conn.Close()
		q.conn = nil
	}
	q.mu.Unlock()
}

func (q *Qemu) setError(err error) {
	q.mu.Lock()
	q.lastError = err
	q.mu.Unlock()
}
