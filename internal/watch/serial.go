package watch

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/hashicorp/go-hclog"
	"go.bug.st/serial.v1"
)

// DefaultBaudRate for Bluetooth RFCOMM serial ports.
const DefaultBaudRate = 115200

// Serial talks to a watch paired as a Bluetooth serial (RFCOMM) device.
// Frames travel unwrapped.
type Serial struct {
	config *config.TransportConfig
	log    hclog.Logger

	mu        sync.Mutex
	port      io.ReadWriteCloser
	open      func() (io.ReadWriteCloser, error)
	lastError error
	lastSeen  time.Time

	frames    chan pebble.Frame
	closeChan chan struct{}
	once      sync.Once
	wg        sync.WaitGroup
}

// NewSerial creates a serial transport for cfg.Device
func NewSerial(cfg *config.TransportConfig, log hclog.Logger) *Serial {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	s := newSerial(cfg, log)
	s.open = func() (io.ReadWriteCloser, error) {
		return serial.Open(cfg.Device, &serial.Mode{
			BaudRate: cfg.BaudRate,
			Parity:   serial.NoParity,
			DataBits: 8,
			StopBits: serial.OneStopBit,
		})
	}
	return s
}

func newSerial(cfg *config.TransportConfig, log hclog.Logger) *Serial {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Serial{
		config:    cfg,
		log:       log.Named(cfg.ID),
		frames:    make(chan pebble.Frame, 10),
		closeChan: make(chan struct{}),
	}
}

func (s *Serial) ID() string   { return s.config.ID }
func (s *Serial) Name() string { return s.config.Name }
func (s *Serial) Type() string { return TypeSerial }

// Frames returns frames received from the watch
func (s *Serial) Frames() <-chan pebble.Frame {
	return s.frames
}

// Start opens the port and begins the read routine.
func (s *Serial) Start(ctx context.Context) error {
	port, err := s.open()
	if err != nil {
		s.setError(err)
		return fmt.Errorf("opening %s: %w", s.config.Device, err)
	}

	s.mu.Lock()
	s.port = port
	s.lastSeen = time.Now()
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.readRoutine(port)
	}()
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.closeChan:
		}
	}()
	s.log.Info("serial port opened", "device", s.config.Device, "baud", s.config.BaudRate)
	return nil
}

// Status returns the current connection status
func (s *Serial) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Connected: s.port != nil, LastSeen: s.lastSeen}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	return st
}

// Send writes f to the port.
func (s *Serial) Send(f pebble.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return ErrNotConnected
	}
	if err := pebble.WriteFrame(s.port, f); err != nil {
		s.lastError = err
		return err
	}
	return nil
}

// Close stops the read routine and closes the port.
func (s *Serial) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closeChan)
		s.mu.Lock()
		if s.port != nil {
			err = s.port.Close()
			s.port = nil
		}
		s.mu.Unlock()
		s.wg.Wait()
		close(s.frames)
	})
	return err
}

func (s *Serial) readRoutine(port io.Reader) {
	for {
		f, err := pebble.ReadFrame(port)
		if err != nil {
			select {
			case <-s.closeChan:
			default:
				s.log.Warn("serial read failed, dropping port", "error", err)
				s.setError(err)
				s.mu.Lock()
				if s.port != nil {
					s.port.Close()
					s.port = nil
				}
				s.mu.Unlock()
			}
			return
		}

		s.mu.Lock()
		s.lastSeen = time.Now()
		s.mu.Unlock()

		select {
		case s.frames <- f:
		case <-s.closeChan:
			return
		}
	}
}

func (s *Serial) setError(err error) {
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
}
