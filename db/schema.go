// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed by the SQLite backend.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(sqliteSchema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const sqliteSchema = `
-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    title TEXT NOT NULL,
    external_ref TEXT,
    metadata TEXT,
    status TEXT NOT NULL DEFAULT 'candidate' CHECK (status IN ('candidate', 'winner', 'rejected')),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidate_scope_status ON candidate(scope, status);
CREATE UNIQUE INDEX IF NOT EXISTS idx_candidate_active_ref
    ON candidate(scope, external_ref)
    WHERE status = 'candidate' AND external_ref IS NOT NULL;

-- Voting rounds
CREATE TABLE IF NOT EXISTS voting_round (
    id TEXT PRIMARY KEY,
    scope TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    winner_id TEXT REFERENCES candidate(id),
    created_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_voting_round_one_open
    ON voting_round(scope)
    WHERE status = 'open';

-- Voters
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    last_seen_at TIMESTAMP NOT NULL
);

-- Ballots
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    round_id TEXT NOT NULL REFERENCES voting_round(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL REFERENCES voter(id),
    created_at TIMESTAMP NOT NULL,
    UNIQUE (round_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_ballot_round_id ON ballot(round_id);

-- Ballot choices
CREATE TABLE IF NOT EXISTS ballot_choice (
    ballot_id TEXT NOT NULL REFERENCES ballot(id) ON DELETE CASCADE,
    position INTEGER NOT NULL CHECK (position >= 0),
    candidate_id TEXT NOT NULL REFERENCES candidate(id),
    PRIMARY KEY (ballot_id, position),
    UNIQUE (ballot_id, candidate_id)
);

CREATE INDEX IF NOT EXISTS idx_ballot_choice_candidate_id ON ballot_choice(candidate_id);

-- Result snapshots
CREATE TABLE IF NOT EXISTS result_snapshot (
    id TEXT PRIMARY KEY,
    round_id TEXT NOT NULL UNIQUE REFERENCES voting_round(id) ON DELETE CASCADE,
    computed_at TIMESTAMP NOT NULL,
    inputs_hash TEXT NOT NULL,
    payload TEXT NOT NULL
);
`
