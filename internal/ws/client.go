package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gambitplay/backend/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client wraps one live websocket connection for a participant. It implements
// session.Conn: identity plus send/close, with a buffered writer pump.
type Client struct {
	conn    *websocket.Conn
	userID  string
	matchID string
	send    chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(conn *websocket.Conn, userID, matchID string) *Client {
	return &Client{
		conn:    conn,
		userID:  userID,
		matchID: matchID,
		send:    make(chan []byte, sendBuffer),
	}
}

func (c *Client) UserID() string { return c.userID }

// Send queues one text frame for the write pump. It fails when the
// connection is closed or its buffer is full; the caller decides whether
// that matters.
func (c *Client) Send(frame string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection for player %s is closed", c.userID)
	}
	select {
	case c.send <- []byte(frame):
		return nil
	default:
		return fmt.Errorf("send buffer full for player %s", c.userID)
	}
}

// Close sends a close frame with the given code and tears the connection
// down. Safe to call more than once.
func (c *Client) Close(code int, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	return c.conn.Close()
}

// WritePump writes queued frames to the connection and keeps it alive with
// pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.L().Debug("ws_write_error", zap.String("user_id", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logging.L().Debug("ws_ping_error", zap.String("user_id", c.userID), zap.Error(err))
				return
			}
		}
	}
}

// ReadPump reads text frames and hands them to onText until the connection
// closes, then invokes onClose exactly once.
func (c *Client) ReadPump(onText func(string), onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.L().Warn("ws_read_error",
					zap.String("user_id", c.userID),
					zap.String("match_id", c.matchID),
					zap.Error(err),
				)
			}
			return
		}
		onText(string(message))
	}
}
