// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/testutil"
)

func TestAddCandidate(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewCandidateHandler(app.Registry, testutil.GetTestConfig())

	ref := "tt0078748"
	testCases := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"valid", models.AddCandidateRequest{Title: "Alien", ExternalRef: &ref}, http.StatusCreated},
		{"duplicate external ref", models.AddCandidateRequest{Title: "Alien (1979)", ExternalRef: &ref}, http.StatusConflict},
		{"missing title", models.AddCandidateRequest{Title: ""}, http.StatusBadRequest},
		{"other scope may reuse ref", models.AddCandidateRequest{Title: "Alien", ExternalRef: &ref, Scope: "room-2"}, http.StatusCreated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/candidates", tc.body, nil)
			w := httptest.NewRecorder()

			h.Add(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/candidates", strings.NewReader("{nope"))
		w := httptest.NewRecorder()

		h.Add(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestAddCandidate_Response(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewCandidateHandler(app.Registry, testutil.GetTestConfig())

	req := testutil.MakeRequest("POST", "/candidates", map[string]interface{}{
		"title":    "Brazil",
		"metadata": map[string]int{"year": 1985},
	}, nil)
	w := httptest.NewRecorder()
	h.Add(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var c models.Candidate
	testutil.AssertJSON(t, w, &c)
	if c.ID == "" || !strings.HasPrefix(c.ID, "cand_") {
		t.Errorf("Expected a cand_ id, got '%s'", c.ID)
	}
	if c.Status != models.CandidateActive {
		t.Errorf("Expected status 'candidate', got '%s'", c.Status)
	}
	if c.Scope != models.DefaultScope {
		t.Errorf("Expected default scope, got '%s'", c.Scope)
	}
	if string(c.Metadata) != `{"year":1985}` {
		t.Errorf("Expected metadata to round trip, got %s", c.Metadata)
	}
}

func TestListCandidates(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewCandidateHandler(app.Registry, testutil.GetTestConfig())

	first := testutil.AddTestCandidate(t, app, "Alien")
	second := testutil.AddTestCandidate(t, app, "Brazil")

	t.Run("active candidates most recent first", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/candidates", nil)
		w := httptest.NewRecorder()

		h.List(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		var list []models.Candidate
		testutil.AssertJSON(t, w, &list)
		if len(list) != 2 {
			t.Fatalf("Expected 2 candidates, got %d", len(list))
		}
		if list[0].ID != second || list[1].ID != first {
			t.Errorf("Expected [%s %s], got [%s %s]", second, first, list[0].ID, list[1].ID)
		}
	})

	t.Run("empty status list is an array", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/candidates?status=winner", nil)
		w := httptest.NewRecorder()

		h.List(w, req)

		testutil.AssertStatus(t, w, http.StatusOK)
		if body := strings.TrimSpace(w.Body.String()); body != "[]" {
			t.Errorf("Expected '[]', got '%s'", body)
		}
	})

	t.Run("unknown status", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/candidates?status=watched", nil)
		w := httptest.NewRecorder()

		h.List(w, req)

		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

func TestRetireCandidate(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewCandidateHandler(app.Registry, testutil.GetTestConfig())

	ranked := testutil.AddTestCandidate(t, app, "Alien")
	unranked := testutil.AddTestCandidate(t, app, "Brazil")
	roundID := testutil.OpenTestRound(t, app)
	testutil.CastTestBallot(t, app, roundID, "voter-1", ranked)

	testCases := []struct {
		name           string
		id             string
		expectedStatus int
	}{
		{"unranked candidate", unranked, http.StatusNoContent},
		{"retire twice", unranked, http.StatusNoContent},
		{"ranked in open round", ranked, http.StatusConflict},
		{"unknown candidate", "cand_missing", http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("DELETE", "/candidates/"+tc.id, nil)
			req.SetPathValue("id", tc.id)
			w := httptest.NewRecorder()

			h.Retire(w, req)

			testutil.AssertStatus(t, w, tc.expectedStatus)
		})
	}
}
