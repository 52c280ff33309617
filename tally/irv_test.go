// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/danielhkuo/movie-night/models"
)

func TestTally(t *testing.T) {
	tests := []struct {
		name           string
		ballots        [][]string
		expectedWinner string // empty means no winner
		expectedRounds int
		checkRounds    func(t *testing.T, rounds []models.RoundResult)
	}{
		{
			name:           "no ballots",
			ballots:        nil,
			expectedRounds: 0,
		},
		{
			name:           "first round majority",
			ballots:        [][]string{{"A", "B"}, {"A"}, {"B", "A"}},
			expectedWinner: "A",
			expectedRounds: 1,
			checkRounds: func(t *testing.T, rounds []models.RoundResult) {
				if rounds[0].Counts["A"] != 2 || rounds[0].Counts["B"] != 1 {
					t.Errorf("Unexpected counts: %v", rounds[0].Counts)
				}
				if len(rounds[0].Eliminated) != 0 {
					t.Errorf("Expected no eliminations in winning round, got %v", rounds[0].Eliminated)
				}
			},
		},
		{
			name:           "exactly half is not a majority",
			ballots:        [][]string{{"A"}, {"A"}, {"B"}, {"C"}},
			expectedWinner: "A",
			expectedRounds: 2,
			checkRounds: func(t *testing.T, rounds []models.RoundResult) {
				if !reflect.DeepEqual(rounds[0].Eliminated, []string{"B", "C"}) {
					t.Errorf("Expected B and C eliminated together, got %v", rounds[0].Eliminated)
				}
				// B and C ballots are exhausted in round 2
				if rounds[1].Exhausted != 2 || rounds[1].Active != 2 {
					t.Errorf("Expected 2 active / 2 exhausted, got %d / %d", rounds[1].Active, rounds[1].Exhausted)
				}
			},
		},
		{
			name: "transfers decide the winner",
			ballots: [][]string{
				{"A", "C"}, {"A", "C"}, {"A", "C"},
				{"B", "C"}, {"B", "C"},
				{"C", "B"}, {"C", "B"},
				{"D", "B"},
			},
			expectedWinner: "B",
			expectedRounds: 3,
			checkRounds: func(t *testing.T, rounds []models.RoundResult) {
				if !reflect.DeepEqual(rounds[0].Eliminated, []string{"D"}) {
					t.Errorf("Round 1: expected D eliminated, got %v", rounds[0].Eliminated)
				}
				if rounds[1].Counts["B"] != 3 {
					t.Errorf("Round 2: expected B=3 after D transfer, got %d", rounds[1].Counts["B"])
				}
				if !reflect.DeepEqual(rounds[1].Eliminated, []string{"C"}) {
					t.Errorf("Round 2: expected C eliminated, got %v", rounds[1].Eliminated)
				}
				if rounds[2].Counts["B"] != 5 || rounds[2].Counts["A"] != 3 {
					t.Errorf("Round 3: unexpected counts %v", rounds[2].Counts)
				}
			},
		},
		{
			name: "four-way first round tie eliminates everyone",
			ballots: [][]string{
				{"A", "D", "B", "C"},
				{"B", "D", "C", "A"},
				{"C", "D", "B", "A"},
				{"D", "A", "B", "C"},
			},
			expectedRounds: 1,
			checkRounds: func(t *testing.T, rounds []models.RoundResult) {
				want := map[string]int{"A": 1, "B": 1, "C": 1, "D": 1}
				if !reflect.DeepEqual(rounds[0].Counts, want) {
					t.Errorf("Expected counts %v, got %v", want, rounds[0].Counts)
				}
				if !reflect.DeepEqual(rounds[0].Eliminated, []string{"A", "B", "C", "D"}) {
					t.Errorf("Expected all eliminated, got %v", rounds[0].Eliminated)
				}
			},
		},
		{
			name: "zero-vote candidate eliminated then three-way tie",
			ballots: [][]string{
				{"A", "D", "B", "C"},
				{"B", "D", "C", "A"},
				{"C", "D", "A", "B"},
			},
			expectedRounds: 2,
			checkRounds: func(t *testing.T, rounds []models.RoundResult) {
				if rounds[0].Counts["D"] != 0 {
					t.Errorf("Expected D to have 0 first preferences, got %d", rounds[0].Counts["D"])
				}
				if !reflect.DeepEqual(rounds[0].Eliminated, []string{"D"}) {
					t.Errorf("Round 1: expected D eliminated, got %v", rounds[0].Eliminated)
				}
				want := map[string]int{"A": 1, "B": 1, "C": 1}
				if !reflect.DeepEqual(rounds[1].Counts, want) {
					t.Errorf("Round 2: expected counts %v, got %v", want, rounds[1].Counts)
				}
				if !reflect.DeepEqual(rounds[1].Eliminated, []string{"A", "B", "C"}) {
					t.Errorf("Round 2: expected A, B, C eliminated, got %v", rounds[1].Eliminated)
				}
			},
		},
		{
			name:           "two-way tie has no winner",
			ballots:        [][]string{{"A", "B"}, {"B", "A"}},
			expectedRounds: 1,
		},
		{
			name:           "single candidate wins",
			ballots:        [][]string{{"A"}, {"A"}},
			expectedWinner: "A",
			expectedRounds: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Tally(tt.ballots)

			if len(result.Rounds) != tt.expectedRounds {
				t.Fatalf("Expected %d rounds, got %d: %+v", tt.expectedRounds, len(result.Rounds), result.Rounds)
			}

			if tt.expectedWinner == "" {
				if result.Winner != nil {
					t.Errorf("Expected no winner, got %s", *result.Winner)
				}
			} else {
				if result.Winner == nil {
					t.Fatalf("Expected winner %s, got none", tt.expectedWinner)
				}
				if *result.Winner != tt.expectedWinner {
					t.Errorf("Expected winner %s, got %s", tt.expectedWinner, *result.Winner)
				}
			}

			if tt.checkRounds != nil {
				tt.checkRounds(t, result.Rounds)
			}
		})
	}
}

func TestTallyIgnoresSubmissionOrder(t *testing.T) {
	ballots := [][]string{
		{"A", "D", "B", "C"},
		{"B", "D", "C", "A"},
		{"C", "D", "A", "B"},
		{"C", "A"},
		{"B"},
		{"D", "C"},
	}
	expected := Tally(ballots)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := make([][]string, len(ballots))
		copy(shuffled, ballots)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Tally(shuffled)
		if !reflect.DeepEqual(got, expected) {
			t.Fatalf("Tally changed with submission order:\nexpected %+v\ngot      %+v", expected, got)
		}
	}
}

// TestTallyProperties checks the invariants over random elections: the
// number of rounds is bounded by the candidate count, and any winner
// holds a strict majority of active ballots in the final round.
func TestTallyProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	pool := []string{"A", "B", "C", "D", "E", "F"}

	for i := 0; i < 500; i++ {
		numBallots := rng.Intn(12)
		ballots := make([][]string, numBallots)
		for j := range ballots {
			perm := rng.Perm(len(pool))
			depth := 1 + rng.Intn(len(pool))
			ranking := make([]string, depth)
			for k := 0; k < depth; k++ {
				ranking[k] = pool[perm[k]]
			}
			ballots[j] = ranking
		}

		result := Tally(ballots)
		numCandidates := len(candidateSet(ballots))

		maxRounds := numCandidates - 1
		if maxRounds < 1 {
			maxRounds = numCandidates
		}
		if len(result.Rounds) > maxRounds {
			t.Fatalf("Election %d: %d candidates took %d rounds", i, numCandidates, len(result.Rounds))
		}

		if result.Winner != nil {
			final := result.Rounds[len(result.Rounds)-1]
			if 2*final.Counts[*result.Winner] <= final.Active {
				t.Fatalf("Election %d: winner %s has %d of %d active ballots", i, *result.Winner, final.Counts[*result.Winner], final.Active)
			}
		}

		for r, round := range result.Rounds {
			sum := 0
			for _, c := range round.Counts {
				sum += c
			}
			if sum != round.Active || round.Active+round.Exhausted != numBallots {
				t.Fatalf("Election %d round %d: counts %v do not add up (active %d, exhausted %d, ballots %d)",
					i, r, round.Counts, round.Active, round.Exhausted, numBallots)
			}
		}
	}
}

func TestFirstPreferences(t *testing.T) {
	result := Tally([][]string{{"A", "B"}, {"B"}, {"B", "A"}})
	counts := result.FirstPreferences()
	if counts["A"] != 1 || counts["B"] != 2 {
		t.Errorf("Unexpected first preferences: %v", counts)
	}

	empty := Tally(nil).FirstPreferences()
	if empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil map, got %v", empty)
	}
}

func TestInputsHash(t *testing.T) {
	a := InputsHash([]string{"bal-1", "bal-2", "bal-3"})
	b := InputsHash([]string{"bal-3", "bal-1", "bal-2"})
	if a != b {
		t.Error("Expected hash to ignore ballot order")
	}

	c := InputsHash([]string{"bal-1", "bal-2"})
	if a == c {
		t.Error("Expected different ballot sets to hash differently")
	}

	if len(a) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a))
	}
}
