// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/testutil"
)

// TestConcurrentBallotSubmissions verifies that simultaneous ballots from
// different voters are all recorded
func TestConcurrentBallotSubmissions(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewBallotHandler(app.Sessions, app.Ledger, testutil.GetTestConfig())

	a := testutil.AddTestCandidate(t, app, "Alien")
	b := testutil.AddTestCandidate(t, app, "Brazil")
	roundID := testutil.OpenTestRound(t, app)

	numVoters := 10
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			ranking := []string{a, b}
			if voterIdx%2 == 1 {
				ranking = []string{b, a}
			}
			req := testutil.MakeRequest("POST", "/ballots", models.CastBallotRequest{
				VoterID: "voter-" + string(rune('A'+voterIdx)),
				Ranking: ranking,
				RoundID: roundID,
			}, nil)
			w := httptest.NewRecorder()

			h.Submit(w, req)

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful submissions, got %d", numVoters, successCount.Load())
	}

	count, err := app.Ledger.Count(t.Context(), roundID)
	if err != nil {
		t.Fatalf("Failed to count ballots: %v", err)
	}
	if count != numVoters {
		t.Errorf("Expected %d ballots, got %d", numVoters, count)
	}
}

// TestConcurrentSameVoter verifies that two tabs submitting for the same
// voter at once produce exactly one ballot and one conflict
func TestConcurrentSameVoter(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewBallotHandler(app.Sessions, app.Ledger, testutil.GetTestConfig())

	a := testutil.AddTestCandidate(t, app, "Alien")
	roundID := testutil.OpenTestRound(t, app)

	numTabs := 5
	var created, conflicts atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numTabs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := testutil.MakeRequest("POST", "/ballots", models.CastBallotRequest{
				VoterID: "same-voter",
				Ranking: []string{a},
				RoundID: roundID,
			}, nil)
			w := httptest.NewRecorder()

			h.Submit(w, req)

			switch w.Code {
			case http.StatusCreated:
				created.Add(1)
			case http.StatusConflict:
				conflicts.Add(1)
			default:
				t.Errorf("Unexpected status %d: %s", w.Code, w.Body.String())
			}
		}()
	}

	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 accepted ballot, got %d", created.Load())
	}
	if int(conflicts.Load()) != numTabs-1 {
		t.Errorf("Expected %d conflicts, got %d", numTabs-1, conflicts.Load())
	}
}

// TestConcurrentFirstBallotsShareRound verifies that voters racing to open
// the round all land in the same one
func TestConcurrentFirstBallotsShareRound(t *testing.T) {
	app := testutil.NewTestApp(t)
	h := NewBallotHandler(app.Sessions, app.Ledger, testutil.GetTestConfig())

	a := testutil.AddTestCandidate(t, app, "Alien")

	numVoters := 6
	var wg sync.WaitGroup
	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			req := testutil.MakeRequest("POST", "/ballots", models.CastBallotRequest{
				VoterID: "voter-" + string(rune('A'+voterIdx)),
				Ranking: []string{a},
			}, nil)
			w := httptest.NewRecorder()

			h.Submit(w, req)

			if w.Code != http.StatusCreated {
				t.Errorf("Expected 201, got %d: %s", w.Code, w.Body.String())
			}
		}(i)
	}
	wg.Wait()

	round, err := app.Sessions.Current(t.Context(), models.DefaultScope)
	if err != nil || round == nil {
		t.Fatalf("Expected an open round, got %v, %v", round, err)
	}
	count, err := app.Ledger.Count(t.Context(), round.ID)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != numVoters {
		t.Errorf("Expected all %d ballots in one round, got %d", numVoters, count)
	}
}
