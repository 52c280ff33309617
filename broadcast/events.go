// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"encoding/json"

	"github.com/danielhkuo/movie-night/models"
)

// Event types
const (
	TypeConnected        = "connected"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeCandidateAdded   = "candidate_added"
	TypeCandidateRetired = "candidate_retired"
	TypeRoundOpened      = "round_opened"
	TypeVoteSubmitted    = "vote_submitted"
	TypeVoteCleared      = "vote_cleared"
	TypeRoundClosed      = "round_closed"
)

// Event is anything that can be pushed to clients. Encoded events are JSON
// objects with a "type" field and, when scoped, a "scope" field.
type Event interface {
	EventType() string
	EventScope() string
}

// Header carries the fields shared by every event
type Header struct {
	Type  string `json:"type"`
	Scope string `json:"scope,omitempty"`
}

func (h Header) EventType() string  { return h.Type }
func (h Header) EventScope() string { return h.Scope }

type Connected struct {
	Header
}

type Pong struct {
	Header
}

type CandidateAdded struct {
	Header
	Candidate *models.Candidate `json:"candidate"`
}

type CandidateRetired struct {
	Header
	CandidateID string `json:"candidateId"`
}

type RoundOpened struct {
	Header
	Round *models.Round `json:"round"`
}

// VoteSubmitted never carries the ballot's ranking
type VoteSubmitted struct {
	Header
	RoundID string `json:"roundId"`
	Count   int    `json:"count"`
}

type VoteCleared struct {
	Header
	RoundID string `json:"roundId"`
	Count   int    `json:"count"`
}

type RoundClosed struct {
	Header
	RoundID string               `json:"roundId"`
	Winner  *string              `json:"winner"`
	Rounds  []models.RoundResult `json:"rounds"`
}

func NewCandidateAdded(c *models.Candidate) CandidateAdded {
	return CandidateAdded{Header: Header{Type: TypeCandidateAdded, Scope: c.Scope}, Candidate: c}
}

func NewCandidateRetired(scope, candidateID string) CandidateRetired {
	return CandidateRetired{Header: Header{Type: TypeCandidateRetired, Scope: scope}, CandidateID: candidateID}
}

func NewRoundOpened(r *models.Round) RoundOpened {
	return RoundOpened{Header: Header{Type: TypeRoundOpened, Scope: r.Scope}, Round: r}
}

func NewVoteSubmitted(scope, roundID string, count int) VoteSubmitted {
	return VoteSubmitted{Header: Header{Type: TypeVoteSubmitted, Scope: scope}, RoundID: roundID, Count: count}
}

func NewVoteCleared(scope, roundID string, count int) VoteCleared {
	return VoteCleared{Header: Header{Type: TypeVoteCleared, Scope: scope}, RoundID: roundID, Count: count}
}

func NewRoundClosed(r *models.Round, result models.TallyResult) RoundClosed {
	rounds := result.Rounds
	if rounds == nil {
		rounds = []models.RoundResult{}
	}
	return RoundClosed{
		Header:  Header{Type: TypeRoundClosed, Scope: r.Scope},
		RoundID: r.ID,
		Winner:  result.Winner,
		Rounds:  rounds,
	}
}

// Encode marshals an event to its wire form
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

var (
	connectedPayload = mustEncode(Connected{Header{Type: TypeConnected}})
	pongPayload      = mustEncode(Pong{Header{Type: TypePong}})
)

func mustEncode(e Event) []byte {
	b, err := Encode(e)
	if err != nil {
		panic(err)
	}
	return b
}

// envelope is the part of an event the hub routes on
type envelope struct {
	Type  string
	Scope string
}

// parseEnvelope accepts any JSON object. "type" and "scope" are read when
// they are strings and ignored otherwise.
func parseEnvelope(payload []byte) (envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil || fields == nil {
		return envelope{}, ErrInvalidEvent
	}

	var env envelope
	if raw, ok := fields["type"]; ok {
		_ = json.Unmarshal(raw, &env.Type)
	}
	if raw, ok := fields["scope"]; ok {
		_ = json.Unmarshal(raw, &env.Scope)
	}
	return env, nil
}
