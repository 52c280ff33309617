// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/danielhkuo/movie-night/auth"
	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/metrics"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/tally"
)

// Ledger records ballots. Each voter has at most one ballot per round,
// enforced by the store's unique constraint rather than a prior read.
type Ledger struct {
	Deps
}

func NewLedger(deps Deps) *Ledger {
	return &Ledger{Deps: deps.withDefaults()}
}

// Cast validates ranking against the round's live candidates and stores
// it. It returns the ballot and the round's new ballot count.
func (l *Ledger) Cast(ctx context.Context, roundID, voterID string, ranking []string) (*models.Ballot, int, error) {
	ballot, count, err := l.cast(ctx, roundID, voterID, ranking)
	l.Metrics.BallotCast(outcome(err))
	return ballot, count, err
}

func (l *Ledger) cast(ctx context.Context, roundID, voterID string, ranking []string) (*models.Ballot, int, error) {
	voterID = strings.TrimSpace(voterID)
	if voterID == "" {
		return nil, 0, models.Validation("VoterRequired", "voterId is required")
	}

	round, err := l.Store.GetRound(ctx, roundID)
	if err != nil {
		return nil, 0, err
	}
	if !round.IsOpen() {
		return nil, 0, models.ErrRoundClosed
	}

	candidates, err := l.Store.ListCandidates(ctx, round.Scope, models.CandidateActive)
	if err != nil {
		return nil, 0, err
	}
	live := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		live[c.ID] = true
	}

	validated, err := models.NewRanking(ranking, live)
	if err != nil {
		return nil, 0, err
	}

	id, err := newID(auth.PrefixBallot)
	if err != nil {
		return nil, 0, err
	}
	ballot := &models.Ballot{
		ID:        id,
		RoundID:   round.ID,
		VoterID:   voterID,
		Ranking:   validated,
		CreatedAt: l.Now(),
	}
	if err := l.Store.InsertBallotIfAbsent(ctx, ballot); err != nil {
		return nil, 0, err
	}

	count, err := l.Store.CountBallots(ctx, round.ID)
	if err != nil {
		return nil, 0, err
	}

	l.emit(ctx, broadcast.NewVoteSubmitted(round.Scope, round.ID, count))
	return ballot, count, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeAccepted
	case errors.Is(err, models.ErrAlreadyVoted):
		return metrics.OutcomeDuplicate
	case errors.Is(err, models.ErrRoundClosed):
		return metrics.OutcomeRoundClosed
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrNotFound):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeStorageError
	}
}

// Clear removes the voter's ballot from an open round. Clearing a ballot
// that does not exist, or one in a closed or unknown round, does nothing.
func (l *Ledger) Clear(ctx context.Context, roundID, voterID string) error {
	round, err := l.Store.GetRound(ctx, roundID)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	deleted, err := l.Store.DeleteBallot(ctx, round.ID, strings.TrimSpace(voterID))
	if err != nil || !deleted {
		return err
	}

	count, err := l.Store.CountBallots(ctx, round.ID)
	if err != nil {
		return err
	}
	l.emit(ctx, broadcast.NewVoteCleared(round.Scope, round.ID, count))
	return nil
}

func (l *Ledger) Count(ctx context.Context, roundID string) (int, error) {
	if _, err := l.Store.GetRound(ctx, roundID); err != nil {
		return 0, err
	}
	return l.Store.CountBallots(ctx, roundID)
}

func (l *Ledger) List(ctx context.Context, roundID string) ([]models.Ballot, error) {
	return l.Store.ListBallots(ctx, roundID)
}

// Mine returns the voter's own ballot
func (l *Ledger) Mine(ctx context.Context, roundID, voterID string) (*models.Ballot, error) {
	return l.Store.GetBallot(ctx, roundID, strings.TrimSpace(voterID))
}

// Results reports a round's tally. Closed rounds are served from their
// stored snapshot; open rounds are tallied from the ballots so far.
func (l *Ledger) Results(ctx context.Context, roundID string) (*models.ResultsResponse, error) {
	round, err := l.Store.GetRound(ctx, roundID)
	if err != nil {
		return nil, err
	}

	count, err := l.Store.CountBallots(ctx, round.ID)
	if err != nil {
		return nil, err
	}

	var (
		result models.TallyResult
		hash   string
	)
	if round.IsOpen() {
		ballots, err := l.Store.ListBallots(ctx, round.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(ballots))
		for i, b := range ballots {
			ids[i] = b.ID
		}
		start := time.Now()
		result = tally.Tally(tally.FromBallots(ballots))
		l.Metrics.ObserveTally(start)
		hash = tally.InputsHash(ids)
	} else {
		snap, err := l.Store.GetSnapshot(ctx, round.ID)
		if err != nil {
			return nil, err
		}
		result = snap.Result
		hash = snap.InputsHash
	}

	rounds := result.Rounds
	if rounds == nil {
		rounds = []models.RoundResult{}
	}
	return &models.ResultsResponse{
		RoundID:    round.ID,
		Status:     round.Status,
		Counts:     result.FirstPreferences(),
		Winner:     result.Winner,
		Rounds:     rounds,
		Ballots:    count,
		InputsHash: hash,
	}, nil
}
