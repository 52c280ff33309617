// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP request handlers for the movie night API.

# Handler Types

Each handler is a struct over the voting components it needs and the
config:

  - CandidateHandler: add, list and retire candidates
  - RoundHandler: current round, explicit open, close and tally
  - BallotHandler: cast, clear, count and read back a ballot
  - ResultsHandler: live or stored instant-runoff results
  - SessionHandler: voter id cookie issuance

Handlers are created via constructor functions:

	ballotHandler := handlers.NewBallotHandler(sessions, ledger, cfg)

# Rounds

A scope (a room) has at most one open round. The first ballot without a
roundId opens one:

	GET  /round?scope=   → Current (null when nothing is open)
	POST /round          → Open
	POST /round/close    → Close (runs the tally, stamps the winner)

Retiring candidates and closing rounds require the X-Admin-Key header.

# Ballots

	POST   /ballots             → Submit (201, 400 invalid ranking, 409 already voted)
	DELETE /ballots?voter=&round= → Clear (always 204)
	GET    /ballots/count?round=  → Count
	GET    /ballots/mine?round=&voter= → Mine

The voter comes from the request, or from the voter_id cookie issued by
POST /session. Errors from the voting components are mapped to status
codes by middleware.WriteError.
*/
package handlers
