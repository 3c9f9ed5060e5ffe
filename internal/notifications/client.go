package notifications

import (
	"context"
	"sync"
	"time"

	"foodgram/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxInboundSize = 4096
	sendBuffer     = 256
)

// droppedNotice tells a slow reader to re-fetch instead of trusting the stream.
var droppedNotice = []byte(`{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`)

// Conn is the subset of *websocket.Conn a Client drives.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type detacher interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client is one user's feed connection. The feed is push only: inbound
// frames are read to keep the deadline fresh and otherwise ignored.
type Client struct {
	UserID uint

	hub    detacher
	conn   Conn
	outbox chan []byte
	quit   chan struct{}
	once   sync.Once
	log    observability.SocketLogger
}

func newClient(hub detacher, conn Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		outbox: make(chan []byte, sendBuffer),
		quit:   make(chan struct{}),
		log:    observability.NewSocketLogger(hub.Name()),
	}
}

// Serve pumps frames until the peer goes away or the hub closes the client.
// It blocks and detaches the client from its hub before returning.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// Deliver queues msg without blocking. When the buffer is full msg is
// dropped and a messages_dropped notice is queued if there is room for it.
func (c *Client) Deliver(msg []byte) bool {
	select {
	case <-c.quit:
		return false
	default:
	}

	select {
	case c.outbox <- msg:
		return true
	default:
	}
	observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
	c.log.Event(context.Background(), c.UserID, "dropped", "reason", "buffer_full")
	select {
	case c.outbox <- droppedNotice:
	default:
	}
	return false
}

// close asks the write loop to send a close frame and hang up.
func (c *Client) close() {
	c.once.Do(func() { close(c.quit) })
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Fail(context.Background(), c.UserID, err, "read")
			}
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outbox:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.quit:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}
