// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/danielhkuo/movie-night/metrics"
)

// fakeConn records what it is sent
type fakeConn struct {
	mu     sync.Mutex
	msgs   []string
	fail   bool
	closed int
}

func (c *fakeConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.msgs = append(c.msgs, string(msg))
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
}

func (c *fakeConn) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestRegisterSendsConnected(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	conn := &fakeConn{}
	if err := hub.Register(conn); err != nil {
		t.Fatalf("Register: %v", err)
	}

	msgs := conn.messages()
	if len(msgs) != 1 || msgs[0] != `{"type":"connected"}` {
		t.Errorf("Expected connected event, got %v", msgs)
	}
	if hub.Len() != 1 {
		t.Errorf("Expected 1 connection, got %d", hub.Len())
	}
}

func TestRegisterFailedWelcome(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{fail: true}

	if err := hub.Register(conn); err == nil {
		t.Fatal("Expected error when welcome send fails")
	}
	if hub.Len() != 0 {
		t.Errorf("Expected connection removed, got %d", hub.Len())
	}
	if conn.closeCount() != 1 {
		t.Errorf("Expected connection closed once, got %d", conn.closeCount())
	}
}

// racingConn publishes from another goroutine while its welcome is being
// sent, and records the welcome only after giving that publish a chance
// to land first
type racingConn struct {
	fakeConn
	hub     *Hub
	started bool
}

func (c *racingConn) Send(msg []byte) error {
	if string(msg) == string(connectedPayload) && !c.started {
		c.started = true
		done := make(chan struct{})
		go func() {
			c.hub.Publish([]byte(`{"type":"vote_submitted"}`))
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(50 * time.Millisecond):
		}
	}
	return c.fakeConn.Send(msg)
}

func TestRegisterWelcomeComesFirst(t *testing.T) {
	hub := NewHub(nil)
	conn := &racingConn{hub: hub}

	if err := hub.Register(conn); err != nil {
		t.Fatalf("Register: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(conn.messages()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	msgs := conn.messages()
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %v", msgs)
	}
	if msgs[0] != `{"type":"connected"}` {
		t.Errorf("Expected connected event first, got %v", msgs)
	}
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	conn := &fakeConn{}
	hub.Register(conn)

	hub.Unregister(conn)
	hub.Unregister(conn)
	hub.Unregister(&fakeConn{}) // never registered

	if hub.Len() != 0 {
		t.Errorf("Expected 0 connections, got %d", hub.Len())
	}
	if conn.closeCount() != 1 {
		t.Errorf("Expected Close called once, got %d", conn.closeCount())
	}
}

func TestPublishDropsFailingConnections(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := NewHub(m)

	good1, bad, good2 := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register(good1)
	hub.Register(bad)
	hub.Register(good2)

	bad.mu.Lock()
	bad.fail = true
	bad.mu.Unlock()

	payload := []byte(`{"type":"vote_submitted","roundId":"r1","count":3}`)
	hub.Publish(payload)

	for i, conn := range []*fakeConn{good1, good2} {
		msgs := conn.messages()
		if len(msgs) != 2 || msgs[1] != string(payload) {
			t.Errorf("Connection %d: expected payload delivered, got %v", i, msgs)
		}
	}
	if hub.Len() != 2 {
		t.Errorf("Expected failing connection removed, got %d live", hub.Len())
	}
	if got := promtest.ToFloat64(m.SendFailures); got != 1 {
		t.Errorf("Expected 1 send failure, got %v", got)
	}
	if got := promtest.ToFloat64(m.HubConnections); got != 2 {
		t.Errorf("Expected gauge at 2, got %v", got)
	}
}

func TestPublishScope(t *testing.T) {
	hub := NewHub(nil)
	roomA, roomB, all := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.RegisterScope(roomA, "a")
	hub.RegisterScope(roomB, "b")
	hub.Register(all)

	hub.PublishScope("a", []byte(`{"type":"x"}`))

	if n := len(roomA.messages()); n != 2 {
		t.Errorf("Expected scope a to receive the event, got %d messages", n)
	}
	if n := len(roomB.messages()); n != 1 {
		t.Errorf("Expected scope b to receive only the welcome, got %d messages", n)
	}
	if n := len(all.messages()); n != 2 {
		t.Errorf("Expected unscoped connection to receive the event, got %d messages", n)
	}

	hub.Publish([]byte(`{"type":"y"}`))
	if n := len(roomB.messages()); n != 2 {
		t.Errorf("Expected unscoped publish to reach scope b, got %d messages", n)
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantErr   bool
		delivered bool
	}{
		{"object", `{"type":"candidate_added","candidate":{"id":"c1"}}`, false, true},
		{"object without type", `{"hello":"world"}`, false, true},
		{"scoped to other room", `{"type":"x","scope":"elsewhere"}`, false, false},
		{"non-string scope is ignored", `{"type":"x","scope":42}`, false, true},
		{"array", `[1,2,3]`, true, false},
		{"string", `"hello"`, true, false},
		{"null", `null`, true, false},
		{"garbage", `{not json`, true, false},
		{"empty", ``, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(nil)
			conn := &fakeConn{}
			hub.RegisterScope(conn, "room")

			err := hub.Dispatch([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dispatch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEvent) {
				t.Errorf("Expected ErrInvalidEvent, got %v", err)
			}

			msgs := conn.messages()
			if tt.delivered {
				if len(msgs) != 2 || msgs[1] != tt.payload {
					t.Errorf("Expected payload forwarded verbatim, got %v", msgs)
				}
			} else if len(msgs) != 1 {
				t.Errorf("Expected nothing delivered, got %v", msgs[1:])
			}
		})
	}
}

func TestHubConcurrentUse(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(nil)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			hub.Register(conn)
			hub.Unregister(conn)
		}()
		go func(i int) {
			defer wg.Done()
			hub.Publish([]byte(fmt.Sprintf(`{"type":"tick","n":%d}`, i)))
		}(i)
	}
	wg.Wait()

	if hub.Len() != 0 {
		t.Errorf("Expected all connections gone, got %d", hub.Len())
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub(nil)
	a, b := &fakeConn{}, &fakeConn{}
	hub.Register(a)
	hub.Register(b)

	hub.Close()

	if hub.Len() != 0 {
		t.Errorf("Expected no connections after Close, got %d", hub.Len())
	}
	if a.closeCount() != 1 || b.closeCount() != 1 {
		t.Errorf("Expected every connection closed once, got %d and %d", a.closeCount(), b.closeCount())
	}
}
