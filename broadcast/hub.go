// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/danielhkuo/movie-night/metrics"
)

var (
	ErrInvalidEvent = errors.New("event must be a JSON object")
	ErrSlowConsumer = errors.New("send buffer full")
	ErrClientClosed = errors.New("client closed")
)

// Conn is one live push connection
type Conn interface {
	// Send queues msg for delivery. It must not block.
	Send(msg []byte) error
	// Close releases the connection. The hub calls it once, on removal.
	Close()
}

// Hub fans payloads out to every registered connection. A connection
// registered with a scope only receives unscoped payloads and payloads
// for that scope.
type Hub struct {
	mu      sync.RWMutex
	conns   map[Conn]string
	metrics *metrics.Metrics
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		conns:   make(map[Conn]string),
		metrics: m,
	}
}

// Register adds conn with no scope filter
func (h *Hub) Register(conn Conn) error {
	return h.RegisterScope(conn, "")
}

// RegisterScope sends conn the connected event and then adds it. The
// welcome is queued under the write lock, so no published event can reach
// conn ahead of it. If that send fails conn is closed and not added.
func (h *Hub) RegisterScope(conn Conn, scope string) error {
	h.mu.Lock()
	err := conn.Send(connectedPayload)
	_, exists := h.conns[conn]
	if err == nil {
		h.conns[conn] = scope
	}
	h.mu.Unlock()

	if err != nil {
		slog.Warn("welcome send failed", "scope", scope, "error", err)
		if exists {
			h.Unregister(conn)
		} else {
			conn.Close()
		}
		return err
	}

	if !exists {
		h.metrics.ConnectionOpened()
	}
	return nil
}

// Unregister removes conn. Unknown connections are ignored.
func (h *Hub) Unregister(conn Conn) {
	h.mu.Lock()
	_, ok := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()

	if ok {
		h.metrics.ConnectionClosed()
		conn.Close()
	}
}

// Len reports the number of live connections
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Publish sends payload to every connection
func (h *Hub) Publish(payload []byte) {
	h.PublishScope("", payload)
}

// PublishScope sends payload to the connections subscribed to scope and
// to unscoped connections. An empty scope reaches everyone. Connections
// that fail are removed; delivery to the rest continues.
func (h *Hub) PublishScope(scope string, payload []byte) {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.conns))
	for conn, connScope := range h.conns {
		if scope == "" || connScope == "" || connScope == scope {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.Send(payload); err != nil {
			slog.Warn("dropping connection after failed send", "scope", scope, "error", err)
			h.metrics.SendFailed()
			h.Unregister(conn)
		}
	}
}

// Dispatch routes a raw event by its scope field. It fails only when
// payload is not a JSON object, and forwards the payload verbatim.
func (h *Hub) Dispatch(payload []byte) error {
	env, err := parseEnvelope(payload)
	if err != nil {
		return err
	}
	h.metrics.EventPublished(env.Type)
	h.PublishScope(env.Scope, payload)
	return nil
}

// Close removes every connection
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[Conn]string)
	h.mu.Unlock()

	for conn := range conns {
		h.metrics.ConnectionClosed()
		conn.Close()
	}
}
