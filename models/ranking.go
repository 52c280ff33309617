// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"encoding/json"
	"strings"
)

// Ranking is an ordered list of distinct candidate IDs, most preferred
// first. The zero value is empty and is never accepted by the ledger.
type Ranking struct {
	ids []string
}

// NewRanking validates ids against the set of live candidates and
// returns a Ranking. It fails with a validation error when ids is empty,
// repeats a candidate, or names a candidate that is not live.
func NewRanking(ids []string, live map[string]bool) (Ranking, error) {
	if len(ids) == 0 {
		return Ranking{}, ErrEmptyRanking
	}

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			return Ranking{}, Validation(ErrUnknownCandidate.Code, "ranking contains an empty candidate id")
		}
		if seen[id] {
			return Ranking{}, Validation(ErrDuplicateChoice.Code, "candidate "+id+" is ranked more than once")
		}
		if !live[id] {
			return Ranking{}, Validation(ErrUnknownCandidate.Code, "candidate "+id+" is not open for voting")
		}
		seen[id] = true
		out = append(out, id)
	}

	return Ranking{ids: out}, nil
}

// LoadedRanking wraps ids read back from storage, where the ballot_choice
// constraints already guarantee they are distinct and non-empty.
func LoadedRanking(ids []string) Ranking {
	out := make([]string, len(ids))
	copy(out, ids)
	return Ranking{ids: out}
}

// IDs returns a copy of the ranked candidate IDs
func (r Ranking) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

func (r Ranking) Len() int {
	return len(r.ids)
}

func (r Ranking) MarshalJSON() ([]byte, error) {
	if r.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.ids)
}

// UnmarshalJSON accepts an array of IDs without validating it. Callers
// that take rankings from clients go through NewRanking.
func (r *Ranking) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*r = LoadedRanking(ids)
	return nil
}
