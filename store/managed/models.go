// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package managed

import (
	"encoding/json"
	"time"

	"github.com/danielhkuo/movie-night/models"
)

type candidateModel struct {
	ID          string    `gorm:"column:id;primaryKey"`
	Scope       string    `gorm:"column:scope"`
	Title       string    `gorm:"column:title"`
	ExternalRef *string   `gorm:"column:external_ref"`
	Metadata    *string   `gorm:"column:metadata;type:jsonb"`
	Status      string    `gorm:"column:status"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (candidateModel) TableName() string {
	return "candidate"
}

func candidateModelFromEntity(c *models.Candidate) candidateModel {
	row := candidateModel{
		ID:          c.ID,
		Scope:       c.Scope,
		Title:       c.Title,
		ExternalRef: c.ExternalRef,
		Status:      c.Status,
		CreatedAt:   c.CreatedAt.UTC(),
	}
	if len(c.Metadata) > 0 {
		metadata := string(c.Metadata)
		row.Metadata = &metadata
	}
	return row
}

func (m candidateModel) toEntity() models.Candidate {
	c := models.Candidate{
		ID:          m.ID,
		Scope:       m.Scope,
		Title:       m.Title,
		ExternalRef: m.ExternalRef,
		Status:      m.Status,
		CreatedAt:   m.CreatedAt.UTC(),
	}
	if m.Metadata != nil && *m.Metadata != "" {
		c.Metadata = json.RawMessage(*m.Metadata)
	}
	return c
}

type roundModel struct {
	ID        string     `gorm:"column:id;primaryKey"`
	Scope     string     `gorm:"column:scope"`
	Status    string     `gorm:"column:status"`
	WinnerID  *string    `gorm:"column:winner_id"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
}

func (roundModel) TableName() string {
	return "voting_round"
}

func (m roundModel) toEntity() *models.Round {
	r := &models.Round{
		ID:        m.ID,
		Scope:     m.Scope,
		Status:    m.Status,
		WinnerID:  m.WinnerID,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if m.EndedAt != nil {
		ended := m.EndedAt.UTC()
		r.EndedAt = &ended
	}
	return r
}

type voterModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	LastSeenAt time.Time `gorm:"column:last_seen_at"`
}

func (voterModel) TableName() string {
	return "voter"
}

type ballotModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	RoundID   string    `gorm:"column:round_id"`
	VoterID   string    `gorm:"column:voter_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (ballotModel) TableName() string {
	return "ballot"
}

type ballotChoiceModel struct {
	BallotID    string `gorm:"column:ballot_id;primaryKey"`
	Position    int    `gorm:"column:position;primaryKey"`
	CandidateID string `gorm:"column:candidate_id"`
}

func (ballotChoiceModel) TableName() string {
	return "ballot_choice"
}

// ballotChoiceRow is one row of the ballot/ballot_choice join
type ballotChoiceRow struct {
	ID          string    `gorm:"column:id"`
	RoundID     string    `gorm:"column:round_id"`
	VoterID     string    `gorm:"column:voter_id"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	CandidateID string    `gorm:"column:candidate_id"`
}

type snapshotModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	RoundID    string    `gorm:"column:round_id"`
	ComputedAt time.Time `gorm:"column:computed_at"`
	InputsHash string    `gorm:"column:inputs_hash"`
	Payload    string    `gorm:"column:payload;type:jsonb"`
}

func (snapshotModel) TableName() string {
	return "result_snapshot"
}
