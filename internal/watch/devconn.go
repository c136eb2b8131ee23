package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/combee/resistor-time-config/internal/config"
	"github.com/combee/resistor-time-config/internal/pebble"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

// Developer connection message prefixes.
const (
	devConnFromWatch byte = 0x00
	devConnToWatch   byte = 0x01
)

// DevConn relays frames through the phone app's developer connection, a
// websocket server the Pebble app exposes on port 9000.
type DevConn struct {
	config *config.TransportConfig
	conn   *websocket.Conn
	mu     sync.Mutex
	log    hclog.Logger

	// State
	connected    bool
	reconnecting bool
	lastError    error
	lastSeen     time.Time

	// Channels
	done   chan struct{}
	send   chan []byte
	frames chan pebble.Frame
	once   sync.Once
}

// NewDevConn creates a developer connection transport
func NewDevConn(cfg *config.TransportConfig, log hclog.Logger) *DevConn {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.MaxReconnect <= 0 {
		cfg.MaxReconnect = 30 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &DevConn{
		config: cfg,
		log:    log.Named(cfg.ID),
		done:   make(chan struct{}),
		send:   make(chan []byte, 10),
		frames: make(chan pebble.Frame, 10),
	}
}

func (c *DevConn) ID() string   { return c.config.ID }
func (c *DevConn) Name() string { return c.config.Name }
func (c *DevConn) Type() string { return TypeDevConn }

// Frames returns frames received from the watch
func (c *DevConn) Frames() <-chan pebble.Frame {
	return c.frames
}

// Start begins the connection and reconnection loop
func (c *DevConn) Start(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()
	go c.connectionLoop()
	return nil
}

// Close gracefully closes the websocket connection
func (c *DevConn) Close() error {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	})
	return nil
}

// Status returns the current connection status
func (c *DevConn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	errStr := ""
	if c.lastError != nil {
		errStr = c.lastError.Error()
	}

	return Status{
		Connected:    c.connected,
		Reconnecting: c.reconnecting,
		LastError:    errStr,
		LastSeen:     c.lastSeen,
	}
}

// Send queues a frame for the watch
func (c *DevConn) Send(f pebble.Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}

	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	select {
	case c.send <- append([]byte{devConnToWatch}, b...):
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// connectionLoop manages connection and reconnection
func (c *DevConn) connectionLoop() {
	defer close(c.frames)
	delay := c.config.ReconnectDelay

	for {
		select {
		case <-c.done:
			return
		default:
		}

		err := c.connect()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.reconnecting = true
			c.lastError = err
			c.mu.Unlock()

			c.log.Warn("developer connection failed", "error", err, "retry_in", delay)

			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}

			// Exponential backoff
			delay = delay * 2
			if delay > c.config.MaxReconnect {
				delay = c.config.MaxReconnect
			}
			continue
		}

		// Connected successfully, reset delay
		delay = c.config.ReconnectDelay

		c.runConnection()
	}
}

func (c *DevConn) connect() error {
	c.log.Info("connecting to phone", "url", c.config.URL)

	conn, _, err := websocket.DefaultDialer.Dial(c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.reconnecting = false
	c.lastError = nil
	c.lastSeen = time.Now()
	c.mu.Unlock()

	c.log.Info("developer connection established")
	return nil
}

// runConnection handles read/write on an established connection
func (c *DevConn) runConnection() {
	var wg sync.WaitGroup
	wg.Add(2)

	stop := make(chan struct{})
	go func() {
		defer wg.Done()
		defer close(stop)
		c.readLoop()
	}()
	go func() {
		defer wg.Done()
		c.writeLoop(stop)

		// unblock the reader
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
	}()

	wg.Wait()

	c.mu.Lock()
	c.connected = false
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

func (c *DevConn) readLoop() {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			return
		}

		kind, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("developer connection read error", "error", err)
			}
			return
		}
		if kind != websocket.BinaryMessage || len(message) < 1 || message[0] != devConnFromWatch {
			continue
		}

		c.mu.Lock()
		c.lastSeen = time.Now()
		c.mu.Unlock()

		var f pebble.Frame
		if err := f.UnmarshalBinary(message[1:]); err != nil {
			c.log.Warn("bad frame from watch", "error", err)
			continue
		}
		select {
		case c.frames <- f:
		case <-c.done:
			return
		}
	}
}

// writeLoop handles outgoing frames and keepalive pings
func (c *DevConn) writeLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		select {
		case <-c.done:
			return
		case <-stop:
			return

		case message := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				c.log.Warn("developer connection write error", "error", err)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Warn("developer connection ping error", "error", err)
				return
			}
		}
	}
}
