package models

import (
	"encoding/json"
	"time"
)

// Candidate status constants
const (
	CandidateActive   = "candidate"
	CandidateWinner   = "winner"
	CandidateRejected = "rejected"
)

// Round status constants
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// DefaultScope is used when a request names no room
const DefaultScope = "default"

// Request types

type AddCandidateRequest struct {
	Title       string          `json:"title"`
	ExternalRef *string         `json:"externalRef,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Scope       string          `json:"scope,omitempty"`
}

type OpenRoundRequest struct {
	Scope string `json:"scope,omitempty"`
}

type CloseRoundRequest struct {
	RoundID string `json:"roundId"`
}

// Ranking is ordered most preferred first
type CastBallotRequest struct {
	VoterID string   `json:"voterId"`
	Ranking []string `json:"ranking"`
	RoundID string   `json:"roundId,omitempty"`
	Scope   string   `json:"scope,omitempty"`
}

// Response types

type CloseRoundResponse struct {
	Round  Round         `json:"round"`
	Winner *string       `json:"winner"`
	Rounds []RoundResult `json:"rounds"`
}

type CastBallotResponse struct {
	Ballot *Ballot `json:"ballot"`
	Count  int     `json:"count"`
}

type BallotCountResponse struct {
	RoundID string `json:"roundId"`
	Count   int    `json:"count"`
}

type ResultsResponse struct {
	RoundID    string         `json:"roundId"`
	Status     string         `json:"status"`
	Counts     map[string]int `json:"counts"`
	Winner     *string        `json:"winner"`
	Rounds     []RoundResult  `json:"rounds"`
	Ballots    int            `json:"ballots"`
	InputsHash string         `json:"inputsHash,omitempty"`
}

type SessionResponse struct {
	VoterID string `json:"voterId"`
}

// Domain types

type Candidate struct {
	ID          string          `json:"id"`
	Scope       string          `json:"scope"`
	Title       string          `json:"title"`
	ExternalRef *string         `json:"externalRef"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Round struct {
	ID        string     `json:"id"`
	Scope     string     `json:"scope"`
	Status    string     `json:"status"`
	WinnerID  *string    `json:"winnerId"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

func (r *Round) IsOpen() bool {
	return r.Status == StatusOpen
}

type Voter struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

type Ballot struct {
	ID        string    `json:"id"`
	RoundID   string    `json:"roundId"`
	VoterID   string    `json:"-"` // Never expose in JSON
	Ranking   Ranking   `json:"ranking"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tally result types

// RoundResult is one elimination round of an instant-runoff count
type RoundResult struct {
	Counts     map[string]int `json:"counts"`
	Eliminated []string       `json:"eliminated"`
	Active     int            `json:"active"`
	Exhausted  int            `json:"exhausted"`
}

type TallyResult struct {
	Rounds []RoundResult `json:"rounds"`
	Winner *string       `json:"winner"`
}

// FirstPreferences returns the first-round counts, or an empty map when
// nothing was counted
func (t TallyResult) FirstPreferences() map[string]int {
	if len(t.Rounds) == 0 {
		return map[string]int{}
	}
	return t.Rounds[0].Counts
}

type ResultSnapshot struct {
	ID         string      `json:"id"`
	RoundID    string      `json:"roundId"`
	ComputedAt time.Time   `json:"computedAt"`
	InputsHash string      `json:"inputsHash"` // Hash of all ballot IDs for verification
	Result     TallyResult `json:"result"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
