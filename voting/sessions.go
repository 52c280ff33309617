// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/movie-night/auth"
	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/tally"
)

// Sessions manages the voting round lifecycle: at most one open round
// per scope, moving once from open to closed.
type Sessions struct {
	Deps
}

func NewSessions(deps Deps) *Sessions {
	return &Sessions{Deps: deps.withDefaults()}
}

// GetOrOpen returns the scope's open round, opening one if there is
// none. Concurrent callers all receive the same round.
func (s *Sessions) GetOrOpen(ctx context.Context, scope string) (*models.Round, error) {
	scope = scopeOrDefault(scope)

	round, err := s.Store.GetOpenRound(ctx, scope)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	id, err := newID(auth.PrefixRound)
	if err != nil {
		return nil, err
	}
	round = &models.Round{
		ID:        id,
		Scope:     scope,
		Status:    models.StatusOpen,
		CreatedAt: s.Now(),
	}

	err = s.Store.InsertRound(ctx, round)
	if errors.Is(err, models.ErrRoundAlreadyOpen) {
		// Another writer opened it first
		return s.Store.GetOpenRound(ctx, scope)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("round opened", "round_id", round.ID, "scope", scope)
	s.emit(ctx, broadcast.NewRoundOpened(round))
	return round, nil
}

// Current returns the scope's open round, or nil when there is none
func (s *Sessions) Current(ctx context.Context, scope string) (*models.Round, error) {
	round, err := s.Store.GetOpenRound(ctx, scopeOrDefault(scope))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return round, nil
}

func (s *Sessions) Get(ctx context.Context, roundID string) (*models.Round, error) {
	return s.Store.GetRound(ctx, roundID)
}

// Close ends an open round, tallies its ballots and stores the result in
// the same transaction. Closing twice is a conflict.
func (s *Sessions) Close(ctx context.Context, roundID string) (*models.Round, models.TallyResult, error) {
	endedAt := s.Now()

	round, snapshot, err := s.Store.CloseRound(ctx, roundID, endedAt, func(ballots []models.Ballot) (*models.ResultSnapshot, error) {
		id, err := newID(auth.PrefixSnapshot)
		if err != nil {
			return nil, err
		}

		ids := make([]string, len(ballots))
		for i, b := range ballots {
			ids[i] = b.ID
		}

		start := time.Now()
		result := tally.Tally(tally.FromBallots(ballots))
		s.Metrics.ObserveTally(start)

		return &models.ResultSnapshot{
			ID:         id,
			ComputedAt: endedAt,
			InputsHash: tally.InputsHash(ids),
			Result:     result,
		}, nil
	})
	if err != nil {
		return nil, models.TallyResult{}, err
	}

	winner := "none"
	if round.WinnerID != nil {
		winner = *round.WinnerID
	}
	slog.Info("round closed", "round_id", round.ID, "scope", round.Scope, "winner", winner, "rounds", len(snapshot.Result.Rounds))

	s.emit(ctx, broadcast.NewRoundClosed(round, snapshot.Result))
	return round, snapshot.Result, nil
}
