// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"strings"
	"testing"

	"github.com/danielhkuo/movie-night/models"
)

func TestEncode(t *testing.T) {
	winner := "cand_a"
	round := &models.Round{ID: "round_1", Scope: "default", Status: models.StatusClosed}

	tests := []struct {
		name     string
		event    Event
		expected string
	}{
		{
			name:     "vote submitted carries only the count",
			event:    NewVoteSubmitted("default", "round_1", 3),
			expected: `{"type":"vote_submitted","scope":"default","roundId":"round_1","count":3}`,
		},
		{
			name:     "vote cleared",
			event:    NewVoteCleared("default", "round_1", 2),
			expected: `{"type":"vote_cleared","scope":"default","roundId":"round_1","count":2}`,
		},
		{
			name:     "candidate retired",
			event:    NewCandidateRetired("default", "cand_b"),
			expected: `{"type":"candidate_retired","scope":"default","candidateId":"cand_b"}`,
		},
		{
			name:     "round closed without winner",
			event:    NewRoundClosed(round, models.TallyResult{}),
			expected: `{"type":"round_closed","scope":"default","roundId":"round_1","winner":null,"rounds":[]}`,
		},
		{
			name: "round closed with winner",
			event: NewRoundClosed(round, models.TallyResult{
				Rounds: []models.RoundResult{{Counts: map[string]int{"cand_a": 1}, Eliminated: []string{}, Active: 1}},
				Winner: &winner,
			}),
			expected: `{"type":"round_closed","scope":"default","roundId":"round_1","winner":"cand_a","rounds":[{"counts":{"cand_a":1},"eliminated":[],"active":1,"exhausted":0}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Encode(tt.event)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if string(b) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, b)
			}
		})
	}
}

func TestFixedPayloads(t *testing.T) {
	if string(connectedPayload) != `{"type":"connected"}` {
		t.Errorf("Unexpected connected payload: %s", connectedPayload)
	}
	if string(pongPayload) != `{"type":"pong"}` {
		t.Errorf("Unexpected pong payload: %s", pongPayload)
	}
}

func TestVoteSubmittedHasNoRanking(t *testing.T) {
	b, _ := Encode(NewVoteSubmitted("default", "round_1", 1))
	if strings.Contains(string(b), "ranking") {
		t.Errorf("Expected no ranking in broadcast, got %s", b)
	}
}
