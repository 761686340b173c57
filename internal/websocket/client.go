package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fitsocial/internal/config"
	"fitsocial/internal/events"
)

// EventHandler processes a decoded client event. Handler errors are logged;
// they never tear down the connection.
type EventHandler func(ctx context.Context, client *Client, event events.ClientEvent) error

// CloseHandler runs synchronously when the connection's read pump exits,
// before the socket is closed.
type CloseHandler func(client *Client)

// Client is a middleman between one websocket connection and the rest of
// the system. It satisfies presence.Conn.
type Client struct {
	id     string
	userID uint

	conn *websocket.Conn

	// Buffered channel of outbound payloads.
	send chan []byte
	// Closed when the read pump exits. Deliver selects on it instead of a
	// closed send channel, so an emitter holding a stale snapshot of this
	// connection cannot panic on a send after teardown.
	done      chan struct{}
	closeOnce sync.Once

	onEvent EventHandler
	onClose CloseHandler
}

// ID returns the connection's unique handle.
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated user behind the connection.
func (c *Client) UserID() uint { return c.userID }

// Deliver enqueues a payload without blocking. It returns false when the
// client's send buffer is full, which we treat as a dead or stalled peer.
func (c *Client) Deliver(payload []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// readPump pumps events from the websocket connection to the event handler.
// Its defer runs the close handler synchronously, so presence cleanup is
// never deferred past connection teardown.
func (c *Client) readPump(wsCfg config.WebSocketConfig) {
	defer func() {
		if c.onClose != nil {
			c.onClose(c)
		}
		c.closeOnce.Do(func() { close(c.done) })
		c.conn.Close()
	}()
	c.conn.SetReadLimit(int64(wsCfg.MaxMessageSizeBytes))
	c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(time.Duration(wsCfg.PongWaitSeconds) * time.Second))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error (conn %s, user %d): %v", c.id, c.userID, err)
			}
			break
		}
		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text frame from conn %s (user %d)", c.id, c.userID)
			continue
		}

		var event events.ClientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			// Bad payloads are dropped without tearing down the connection.
			log.Printf("Failed to decode event from conn %s (user %d): %v", c.id, c.userID, err)
			continue
		}

		if c.onEvent != nil {
			if err := c.onEvent(context.Background(), c, event); err != nil {
				log.Printf("Event %s from conn %s (user %d) failed: %v", event.Action, c.id, c.userID, err)
			}
		}
	}
}

// writePump pumps payloads from the send channel to the websocket
// connection, coalescing queued frames and keeping the ping ticker.
func (c *Client) writePump(wsCfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(wsCfg.PingPeriodSeconds) * time.Second)
	newline := []byte("\n")
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write(newline)
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(time.Duration(wsCfg.WriteWaitSeconds) * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeConnection upgrades the HTTP request to a websocket connection and
// returns the new client. The caller registers the client with the presence
// router before calling Start, so no event can race registration.
func ServeConnection(userID uint, w http.ResponseWriter, r *http.Request, wsCfg config.WebSocketConfig, onEvent EventHandler, onClose CloseHandler) (*Client, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		id:      uuid.NewString(),
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, 256),
		done:    make(chan struct{}),
		onEvent: onEvent,
		onClose: onClose,
	}, nil
}

// Start launches the connection's read and write pumps.
func (c *Client) Start(wsCfg config.WebSocketConfig) {
	go c.writePump(wsCfg)
	go c.readPump(wsCfg)
}
