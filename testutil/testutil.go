// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/store"
	"github.com/danielhkuo/movie-night/store/sqlite"
	"github.com/danielhkuo/movie-night/voting"
)

// TestAdminSecret is the admin secret in GetTestConfig
const TestAdminSecret = "test-admin-secret"

// SetupTestStore opens a fresh sqlite store in a temp dir. It is closed
// when the test ends.
func SetupTestStore(t *testing.T) store.Store {
	t.Helper()

	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "movie-night.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:               3318,
		HubPort:            3319,
		DatabaseURL:        "movie-night.db",
		DatabaseType:       "sqlite",
		AdminSecret:        TestAdminSecret,
		DefaultScope:       models.DefaultScope,
		Mode:               cliparse.ModeAll,
		BroadcastTransport: cliparse.TransportLocal,
	}
}

// App bundles the voting components over one store
type App struct {
	Store    store.Store
	Hub      *broadcast.Hub
	Registry *voting.Registry
	Sessions *voting.Sessions
	Ledger   *voting.Ledger
}

// NewTestApp wires the voting components to a fresh store and an
// in-process hub
func NewTestApp(t *testing.T) *App {
	t.Helper()

	s := SetupTestStore(t)
	hub := broadcast.NewHub(nil)
	t.Cleanup(hub.Close)

	deps := voting.Deps{Store: s, Publisher: broadcast.NewHubPublisher(hub)}
	return &App{
		Store:    s,
		Hub:      hub,
		Registry: voting.NewRegistry(deps),
		Sessions: voting.NewSessions(deps),
		Ledger:   voting.NewLedger(deps),
	}
}

// AddTestCandidate adds an active candidate to the default scope and
// returns its ID
func AddTestCandidate(t *testing.T, app *App, title string) string {
	t.Helper()

	c, err := app.Registry.Add(context.Background(), models.AddCandidateRequest{Title: title})
	if err != nil {
		t.Fatalf("Failed to add test candidate: %v", err)
	}
	return c.ID
}

// OpenTestRound opens (or returns) the default scope's round
func OpenTestRound(t *testing.T, app *App) string {
	t.Helper()

	r, err := app.Sessions.GetOrOpen(context.Background(), models.DefaultScope)
	if err != nil {
		t.Fatalf("Failed to open test round: %v", err)
	}
	return r.ID
}

// CastTestBallot records a ballot for voterID
func CastTestBallot(t *testing.T, app *App, roundID, voterID string, ranking ...string) {
	t.Helper()

	if _, _, err := app.Ledger.Cast(context.Background(), roundID, voterID, ranking); err != nil {
		t.Fatalf("Failed to cast test ballot: %v", err)
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AdminHeaders returns the header carrying the test admin secret
func AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": TestAdminSecret}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
