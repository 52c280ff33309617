// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/danielhkuo/movie-night/models"
)

// Tally runs an instant-runoff count over rankings (each ordered most
// preferred first) and returns the round-by-round trace and the winner.
//
// Each round a ballot counts for its highest-ranked candidate still in
// the race. Ballots with no such candidate are exhausted and leave both
// the numerator and the denominator. A candidate holding a strict
// majority of active ballots wins. Otherwise every candidate tied for
// the fewest votes is eliminated together; when that is all of them the
// count ends without a winner.
func Tally(rankings [][]string) models.TallyResult {
	remaining := candidateSet(rankings)
	result := models.TallyResult{Rounds: []models.RoundResult{}}

	for len(remaining) > 0 {
		ids := sortedKeys(remaining)

		counts := make(map[string]int, len(ids))
		for _, id := range ids {
			counts[id] = 0
		}

		exhausted := 0
		for _, ranking := range rankings {
			if top, ok := topChoice(ranking, remaining); ok {
				counts[top]++
			} else {
				exhausted++
			}
		}
		active := len(rankings) - exhausted

		round := models.RoundResult{
			Counts:     counts,
			Eliminated: []string{},
			Active:     active,
			Exhausted:  exhausted,
		}

		if active == 0 {
			result.Rounds = append(result.Rounds, round)
			return result
		}

		for _, id := range ids {
			if 2*counts[id] > active {
				winner := id
				result.Rounds = append(result.Rounds, round)
				result.Winner = &winner
				return result
			}
		}

		lowest := lowestCandidates(ids, counts)
		round.Eliminated = lowest
		result.Rounds = append(result.Rounds, round)

		for _, id := range lowest {
			delete(remaining, id)
		}
	}

	return result
}

// InputsHash fingerprints the ballot set a tally was computed from. The
// hash is over sorted ballot IDs so submission order does not matter.
func InputsHash(ballotIDs []string) string {
	ids := make([]string, len(ballotIDs))
	copy(ids, ballotIDs)
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FromBallots extracts the rankings from stored ballots
func FromBallots(ballots []models.Ballot) [][]string {
	rankings := make([][]string, 0, len(ballots))
	for _, b := range ballots {
		rankings = append(rankings, b.Ranking.IDs())
	}
	return rankings
}

func candidateSet(rankings [][]string) map[string]bool {
	set := make(map[string]bool)
	for _, ranking := range rankings {
		for _, id := range ranking {
			set[id] = true
		}
	}
	return set
}

func topChoice(ranking []string, remaining map[string]bool) (string, bool) {
	for _, id := range ranking {
		if remaining[id] {
			return id, true
		}
	}
	return "", false
}

// lowestCandidates returns every id sharing the minimum count, sorted
func lowestCandidates(ids []string, counts map[string]int) []string {
	fewest := -1
	for _, id := range ids {
		if fewest < 0 || counts[id] < fewest {
			fewest = counts[id]
		}
	}

	var lowest []string
	for _, id := range ids {
		if counts[id] == fewest {
			lowest = append(lowest, id)
		}
	}
	return lowest
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
