// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Publisher delivers events towards a hub
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// HubPublisher delivers to a hub in the same process
type HubPublisher struct {
	hub *Hub
}

func NewHubPublisher(hub *Hub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := Encode(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return p.hub.Dispatch(payload)
}

func (p *HubPublisher) Close() error {
	return nil
}

// HTTPPublisher POSTs events to a remote broadcast ingress
type HTTPPublisher struct {
	url    string
	client *http.Client
}

// NewHTTPPublisher targets the ingress at baseURL; a URL without a path
// gets /broadcast appended.
func NewHTTPPublisher(baseURL string) *HTTPPublisher {
	url := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(url, "/broadcast") {
		url += "/broadcast"
	}
	return &HTTPPublisher{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := Encode(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("broadcast ingress returned %d", resp.StatusCode)
	}
	return nil
}

func (p *HTTPPublisher) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// NoopPublisher discards every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                        { return nil }
