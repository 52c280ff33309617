// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain types, the request and response types,
and the error taxonomy shared by every layer.

# Domain Types

  - Candidate: a film, with status candidate, winner or rejected
  - Round: a voting round of one scope, open or closed
  - Ballot: one voter's Ranking in one round
  - TallyResult, RoundResult: the instant-runoff trace
  - ResultSnapshot: the stored result of a closed round

A Ranking can only be built by NewRanking, which rejects empty,
repeated and unknown entries.

# Errors

Error carries a Kind and a Code. errors.Is matches the Kind sentinels
(ErrValidation, ErrConflict, ErrNotFound, ErrStorage) for every error of
that kind, and the coded sentinels (ErrAlreadyVoted, ErrRoundClosed, ...)
only for their code:

	if errors.Is(err, models.ErrConflict) { ... }
	if errors.Is(err, models.ErrAlreadyVoted) { ... }
*/
package models
