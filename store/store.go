// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package store defines the storage adapter used by the voting components.
package store

import (
	"context"
	"time"

	"github.com/danielhkuo/movie-night/models"
)

// Backend names accepted by backends.Open
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendManaged  = "managed"
)

// CloseFunc computes the result snapshot of a round from its committed
// ballots. It runs inside the transaction that closes the round.
type CloseFunc func(ballots []models.Ballot) (*models.ResultSnapshot, error)

// Store is the storage adapter. Every implementation returns errors from
// the models taxonomy only: uniqueness violations surface as conflicts,
// missing rows as not-found, and everything else as storage errors.
type Store interface {
	// InsertCandidate fails with ErrDuplicateCandidate when an active
	// candidate in the same scope has the same external reference.
	InsertCandidate(ctx context.Context, c *models.Candidate) error
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	// ListCandidates returns candidates most recent first
	ListCandidates(ctx context.Context, scope, status string) ([]models.Candidate, error)
	// RetireCandidate marks a candidate rejected unless a ballot in an
	// open round ranks it.
	RetireCandidate(ctx context.Context, id string) error

	// InsertRound fails with ErrRoundAlreadyOpen when the scope already
	// has an open round.
	InsertRound(ctx context.Context, r *models.Round) error
	GetRound(ctx context.Context, id string) (*models.Round, error)
	GetOpenRound(ctx context.Context, scope string) (*models.Round, error)
	// CloseRound flips an open round to closed, hands its ballots to
	// decide, stamps the winner and records the snapshot, all in one
	// transaction.
	CloseRound(ctx context.Context, id string, endedAt time.Time, decide CloseFunc) (*models.Round, *models.ResultSnapshot, error)

	// InsertBallotIfAbsent relies on the (round, voter) unique constraint
	// and fails with ErrAlreadyVoted when the voter already has a ballot.
	InsertBallotIfAbsent(ctx context.Context, b *models.Ballot) error
	// DeleteBallot removes the voter's ballot from an open round. It
	// reports whether a ballot was removed and is a no-op otherwise.
	DeleteBallot(ctx context.Context, roundID, voterID string) (bool, error)
	GetBallot(ctx context.Context, roundID, voterID string) (*models.Ballot, error)
	CountBallots(ctx context.Context, roundID string) (int, error)
	ListBallots(ctx context.Context, roundID string) ([]models.Ballot, error)

	GetSnapshot(ctx context.Context, roundID string) (*models.ResultSnapshot, error)

	Close() error
}
