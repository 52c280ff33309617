// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	sendBufferSize = 32
	writeTimeout   = 10 * time.Second
	maxClientFrame = 4096
)

// Client is one websocket connection
type Client struct {
	conn  *websocket.Conn
	scope string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(conn *websocket.Conn, scope string) *Client {
	return &Client{
		conn:  conn,
		scope: scope,
		send:  make(chan []byte, sendBufferSize),
	}
}

// Send queues msg. A full buffer means the client cannot keep up and is
// reported as an error so the hub drops it.
func (c *Client) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump sends queued messages to the websocket connection until the
// send channel is closed or a write fails.
func (c *Client) writePump(ctx context.Context) {
	defer c.conn.Close(websocket.StatusNormalClosure, "")

	for m := range c.send {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, m)
		cancel()
		if err != nil {
			slog.Debug("websocket write failed", "scope", c.scope, "error", err)
			return
		}
	}
}

// readPump answers pings until the connection goes away. Anything other
// than a ping is ignored.
func (c *Client) readPump(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				slog.Debug("client disconnected", "scope", c.scope)
			} else if !errors.Is(err, context.Canceled) {
				slog.Debug("websocket read failed", "scope", c.scope, "error", err)
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.Type != TypePing {
			continue
		}
		if err := c.Send(pongPayload); err != nil {
			return
		}
	}
}

// ServeWS upgrades the request and registers the connection with hub for
// the scope named in the query string. It blocks until the client leaves.
func ServeWS(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// CORS is open on the API; match it here
			InsecureSkipVerify: true,
		})
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		conn.SetReadLimit(maxClientFrame)

		ctx := r.Context()
		client := NewClient(conn, r.URL.Query().Get("scope"))

		done := make(chan struct{})
		go func() {
			defer close(done)
			client.writePump(ctx)
		}()

		if err := hub.RegisterScope(client, client.scope); err != nil {
			<-done
			return
		}

		client.readPump(ctx)
		hub.Unregister(client)
		<-done
	}
}
