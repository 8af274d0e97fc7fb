package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/phrazzld/teamtask-api/internal/config"
)

// ClientConfig tunes a single WebSocket connection.
type ClientConfig struct {
	SendBuffer   int
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// ClientConfigFrom converts the realtime section of the application config.
func ClientConfigFrom(cfg config.RealtimeConfig) ClientConfig {
	return ClientConfig{
		SendBuffer:   cfg.SendBuffer,
		WriteTimeout: cfg.WriteTimeout,
		PingInterval: cfg.PingInterval,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	if c.SendBuffer <= 0 {
		c.SendBuffer = 16
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	return c
}

// maxInboundMessage caps what a client may send; clients only send control
// frames and the occasional keepalive.
const maxInboundMessage = 4096

// Client is a Connection backed by a gorilla/websocket connection. One
// goroutine writes queued messages and pings, another reads until the peer
// goes away.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	cfg    ClientConfig
	logger *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewClient wraps conn. Call Run to start pumping.
func NewClient(conn *websocket.Conn, cfg ClientConfig, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		conn:   conn,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
		cfg:    cfg,
		logger: logger,
	}
}

// Send implements Connection.
func (c *Client) Send(msg []byte) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("dropping message for slow consumer", "buffer", cap(c.send))
		return ErrSlowConsumer
	}
}

// Close implements Connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		deadline := time.Now().Add(c.cfg.WriteTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Done is closed once the connection has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run starts the write pump and blocks in the read pump until the connection
// ends. The connection is closed when Run returns.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() { _ = c.Close() }()

	pongWait := c.cfg.PingInterval * 2
	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
