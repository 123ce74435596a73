package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/daelim/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBuffer = 32
)

// wsClient is one WebSocket connection. writePump is its only writer.
type wsClient struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte

	mu     sync.Mutex
	closed bool

	// commands feeds runCommands in the order they were read
	commands chan Request
	pending  sync.WaitGroup
}

func newClient(conn *websocket.Conn, remote string) *wsClient {
	return &wsClient{
		conn:     conn,
		remote:   remote,
		send:     make(chan []byte, sendBuffer),
		commands: make(chan Request, sendBuffer),
	}
}

// queue hands msg to the writer. A client that cannot keep up is closed.
func (c *wsClient) queue(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		logging.Warn("WebSocket client too slow, closing", zap.String("remote_addr", c.remote))
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *wsClient) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error("Failed to encode bridge message", zap.Error(err))
		return
	}
	c.queue(data)
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *wsClient) wait() {
	c.pending.Wait()
}

// writePump writes queued messages and keeps the connection alive with
// pings. It closes the connection when the send channel closes.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logging.Debug("WebSocket write failed", zap.String("remote_addr", c.remote), zap.Error(err))
				return
			}
			logging.LogBridgeMessage(c.remote, "send", msg)

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// runCommands executes one client's commands one at a time so they reach
// the home queue in send order
func (c *wsClient) runCommands(ctx context.Context, execute func(context.Context, Request) Response) {
	defer c.pending.Done()
	for req := range c.commands {
		c.sendJSON(execute(ctx, req))
	}
}

// readPump decodes commands until the connection fails and hands them to
// runCommands, so pongs keep flowing while the home queue is busy;
// responses go through the writer.
func (c *wsClient) readPump(ctx context.Context, execute func(context.Context, Request) Response) {
	c.pending.Add(1)
	go c.runCommands(ctx, execute)
	defer close(c.commands)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				logging.Debug("WebSocket read ended", zap.String("remote_addr", c.remote), zap.Error(err))
			}
			return
		}
		logging.LogBridgeMessage(c.remote, "recv", data)

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendJSON(Response{Error: -1, Message: "invalid request: " + err.Error()})
			continue
		}

		select {
		case c.commands <- req:
		case <-ctx.Done():
			return
		}
	}
}
