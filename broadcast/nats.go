// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the NATS subject events travel on
const DefaultSubject = "movienight.events"

// NATSPublisher publishes JSON-encoded events to a NATS subject
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url, nats.Name("movie-night-api"))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	data, err := Encode(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

// NATSRelay feeds events from a NATS subject into a hub
type NATSRelay struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// NewNATSRelay connects with automatic reconnection and subscribes
// before returning, so nothing published afterwards is missed.
func NewNATSRelay(url, subject string, hub *Hub, opts ...nats.Option) (*NATSRelay, error) {
	defaults := []nats.Option{
		nats.Name("movie-night-hub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	if subject == "" {
		subject = DefaultSubject
	}

	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		if err := hub.Dispatch(msg.Data); err != nil {
			slog.Warn("dropping malformed relayed event", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	// Flush ensures the subscription is registered on the server
	if err := nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		nc.Close()
		return nil, fmt.Errorf("flushing subscription: %w", err)
	}

	return &NATSRelay{conn: nc, sub: sub}, nil
}

func (r *NATSRelay) Close() error {
	_ = r.sub.Unsubscribe()
	r.conn.Close()
	return nil
}
