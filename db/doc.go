// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# SQLite

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Postgres

Migrate applies the embedded migrations in migrations/ with
golang-migrate. Running it against an up-to-date database is a no-op.

# Tables

  - candidate: films per scope
  - voting_round: rounds per scope
  - voter: voter ids seen by the ledger
  - ballot: one ballot per voter per round
  - ballot_choice: ranked entries of a ballot
  - result_snapshot: stored tally of a closed round

# Constraints

The voting invariants are enforced here rather than in application code:

  - voting_round: one open round per scope (partial unique index)
  - candidate: one active candidate per scope and external reference
  - ballot: UNIQUE (round_id, voter_id)
  - ballot_choice: UNIQUE (ballot_id, candidate_id), and candidate_id
    must reference a candidate
  - result_snapshot: UNIQUE (round_id)
*/
package db
