// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sqlstore implements store.Store on database/sql. Drivers plug in
// through a Dialect that rewrites placeholders and recognises their
// constraint-violation errors.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/store"
)

// Dialect describes the differences between database/sql backends.
// Queries are written with $n placeholders.
type Dialect struct {
	Name string

	// Rebind rewrites $n placeholders; nil leaves queries unchanged
	Rebind func(query string) string

	// ShareLock is appended to the round and candidate lookups made
	// before inserting a ballot, so a concurrent close or retire waits for
	// the insert to commit.
	ShareLock string

	// UpdateLock is appended to the candidate lookup made before retiring
	// it, so a ballot insert holding ShareLock finishes first.
	UpdateLock string

	IsUniqueViolation     func(error) bool
	IsForeignKeyViolation func(error) bool
}

var dollarParam = regexp.MustCompile(`\$(\d+)`)

// QuestionRebind rewrites $n to ?n, the numbered form SQLite understands
func QuestionRebind(query string) string {
	return dollarParam.ReplaceAllString(query, "?$1")
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store over a *sql.DB
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB exposes the underlying pool for schema setup and tests
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) q(query string) string {
	if s.dialect.Rebind == nil {
		return query
	}
	return s.dialect.Rebind(query)
}

func (s *Store) isUnique(err error) bool {
	return s.dialect.IsUniqueViolation != nil && s.dialect.IsUniqueViolation(err)
}

func (s *Store) isForeignKey(err error) bool {
	return s.dialect.IsForeignKeyViolation != nil && s.dialect.IsForeignKeyViolation(err)
}

func (s *Store) storageError(op string, err error, args ...any) error {
	slog.Error("storage operation failed",
		append([]any{"backend", s.dialect.Name, "op", op, "error", err}, args...)...)
	return models.Storage(op, err)
}

// Candidates

func (s *Store) InsertCandidate(ctx context.Context, c *models.Candidate) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO candidate (id, scope, title, external_ref, metadata, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`), c.ID, c.Scope, c.Title, nullStringPtr(c.ExternalRef), nullString(string(c.Metadata)), c.Status, c.CreatedAt)
	if err != nil {
		if s.isUnique(err) {
			return models.ErrDuplicateCandidate
		}
		return s.storageError("insert candidate", err, "candidate_id", c.ID)
	}
	return nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	return s.getCandidate(ctx, s.db, id)
}

func (s *Store) getCandidate(ctx context.Context, q querier, id string) (*models.Candidate, error) {
	c, err := scanCandidate(q.QueryRowContext(ctx, s.q(`
		SELECT `+candidateColumns+` FROM candidate WHERE id = $1
	`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("Candidate", id)
	}
	if err != nil {
		return nil, s.storageError("get candidate", err, "candidate_id", id)
	}
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context, scope, status string) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+candidateColumns+`
		FROM candidate
		WHERE scope = $1 AND status = $2
		ORDER BY created_at DESC, id DESC
	`), scope, status)
	if err != nil {
		return nil, s.storageError("list candidates", err, "scope", scope)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, s.storageError("scan candidate", err)
		}
		candidates = append(candidates, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("list candidates", err, "scope", scope)
	}
	return candidates, nil
}

func (s *Store) RetireCandidate(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.storageError("begin transaction", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, s.q(`SELECT status FROM candidate WHERE id = $1`+s.dialect.UpdateLock), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound("Candidate", id)
	}
	if err != nil {
		return s.storageError("lock candidate", err, "candidate_id", id)
	}
	switch status {
	case models.CandidateRejected:
		return nil
	case models.CandidateWinner:
		return models.ErrCandidateIsWinner
	}

	// Read after the lock, so ballots committed while waiting are seen
	var referenced bool
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT EXISTS (
			SELECT 1
			FROM ballot_choice bc
			JOIN ballot b ON b.id = bc.ballot_id
			JOIN voting_round r ON r.id = b.round_id
			WHERE bc.candidate_id = $1 AND r.status = 'open'
		)
	`), id).Scan(&referenced)
	if err != nil {
		return s.storageError("check candidate references", err, "candidate_id", id)
	}
	if referenced {
		return models.ErrCandidateReferenced
	}

	if _, err := tx.ExecContext(ctx, s.q(`UPDATE candidate SET status = 'rejected' WHERE id = $1`), id); err != nil {
		return s.storageError("retire candidate", err, "candidate_id", id)
	}
	if err := tx.Commit(); err != nil {
		return s.storageError("commit transaction", err, "candidate_id", id)
	}
	return nil
}

// Rounds

func (s *Store) InsertRound(ctx context.Context, r *models.Round) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO voting_round (id, scope, status, created_at)
		VALUES ($1, $2, $3, $4)
	`), r.ID, r.Scope, r.Status, r.CreatedAt)
	if err != nil {
		if s.isUnique(err) {
			return models.ErrRoundAlreadyOpen
		}
		return s.storageError("insert round", err, "round_id", r.ID)
	}
	return nil
}

func (s *Store) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return s.getRound(ctx, s.db, id)
}

func (s *Store) getRound(ctx context.Context, q querier, id string) (*models.Round, error) {
	r, err := scanRound(q.QueryRowContext(ctx, s.q(`
		SELECT `+roundColumns+` FROM voting_round WHERE id = $1
	`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("Round", id)
	}
	if err != nil {
		return nil, s.storageError("get round", err, "round_id", id)
	}
	return r, nil
}

func (s *Store) GetOpenRound(ctx context.Context, scope string) (*models.Round, error) {
	r, err := scanRound(s.db.QueryRowContext(ctx, s.q(`
		SELECT `+roundColumns+` FROM voting_round WHERE scope = $1 AND status = 'open'
	`), scope))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("Round", scope)
	}
	if err != nil {
		return nil, s.storageError("get open round", err, "scope", scope)
	}
	return r, nil
}

func (s *Store) CloseRound(ctx context.Context, id string, endedAt time.Time, decide store.CloseFunc) (*models.Round, *models.ResultSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, s.storageError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE voting_round SET status = 'closed', ended_at = $2
		WHERE id = $1 AND status = 'open'
	`), id, endedAt)
	if err != nil {
		return nil, nil, s.storageError("close round", err, "round_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, nil, s.storageError("close round", err, "round_id", id)
	}
	if n == 0 {
		if _, err := s.getRound(ctx, tx, id); err != nil {
			return nil, nil, err
		}
		return nil, nil, models.ErrRoundClosed
	}

	ballots, err := s.listBallots(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := decide(ballots)
	if err != nil {
		return nil, nil, err
	}
	snapshot.RoundID = id

	if winner := snapshot.Result.Winner; winner != nil {
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE voting_round SET winner_id = $2 WHERE id = $1`), id, *winner); err != nil {
			return nil, nil, s.storageError("stamp winner", err, "round_id", id)
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE candidate SET status = 'winner' WHERE id = $1 AND status = 'candidate'`), *winner); err != nil {
			return nil, nil, s.storageError("promote winner", err, "candidate_id", *winner)
		}
	}

	payload, err := json.Marshal(snapshot.Result)
	if err != nil {
		return nil, nil, s.storageError("encode snapshot", err, "round_id", id)
	}
	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO result_snapshot (id, round_id, computed_at, inputs_hash, payload)
		VALUES ($1, $2, $3, $4, $5)
	`), snapshot.ID, id, snapshot.ComputedAt, snapshot.InputsHash, string(payload))
	if err != nil {
		return nil, nil, s.storageError("insert snapshot", err, "round_id", id)
	}

	round, err := s.getRound(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, s.storageError("commit transaction", err, "round_id", id)
	}
	return round, snapshot, nil
}

// Ballots

func (s *Store) InsertBallotIfAbsent(ctx context.Context, b *models.Ballot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.storageError("begin transaction", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, s.q(`SELECT status FROM voting_round WHERE id = $1`+s.dialect.ShareLock), b.RoundID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NotFound("Round", b.RoundID)
	}
	if err != nil {
		return s.storageError("lock round", err, "round_id", b.RoundID)
	}
	if status != models.StatusOpen {
		return models.ErrRoundClosed
	}

	for _, candidateID := range b.Ranking.IDs() {
		if err := s.lockCandidate(ctx, tx, candidateID); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO voter (id, created_at, last_seen_at)
		VALUES ($1, $2, $2)
		ON CONFLICT (id) DO UPDATE SET last_seen_at = excluded.last_seen_at
	`), b.VoterID, b.CreatedAt)
	if err != nil {
		return s.storageError("upsert voter", err, "voter_id", b.VoterID)
	}

	_, err = tx.ExecContext(ctx, s.q(`
		INSERT INTO ballot (id, round_id, voter_id, created_at)
		VALUES ($1, $2, $3, $4)
	`), b.ID, b.RoundID, b.VoterID, b.CreatedAt)
	if err != nil {
		if s.isUnique(err) {
			return models.ErrAlreadyVoted
		}
		return s.storageError("insert ballot", err, "round_id", b.RoundID)
	}

	for position, candidateID := range b.Ranking.IDs() {
		_, err = tx.ExecContext(ctx, s.q(`
			INSERT INTO ballot_choice (ballot_id, position, candidate_id)
			VALUES ($1, $2, $3)
		`), b.ID, position, candidateID)
		if err != nil {
			switch {
			case s.isForeignKey(err):
				return models.ErrUnknownCandidate
			case s.isUnique(err):
				return models.ErrDuplicateChoice
			}
			return s.storageError("insert ballot choice", err, "ballot_id", b.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		if s.isUnique(err) {
			return models.ErrAlreadyVoted
		}
		return s.storageError("commit transaction", err, "ballot_id", b.ID)
	}
	return nil
}

// lockCandidate holds a ranked candidate until the ballot commits and
// refuses one retired since the ranking was validated.
func (s *Store) lockCandidate(ctx context.Context, tx *sql.Tx, id string) error {
	var status string
	err := tx.QueryRowContext(ctx, s.q(`SELECT status FROM candidate WHERE id = $1`+s.dialect.ShareLock), id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrUnknownCandidate
	}
	if err != nil {
		return s.storageError("lock candidate", err, "candidate_id", id)
	}
	if status != models.CandidateActive {
		return models.ErrUnknownCandidate
	}
	return nil
}

func (s *Store) DeleteBallot(ctx context.Context, roundID, voterID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, s.storageError("begin transaction", err)
	}
	defer tx.Rollback()

	openBallot := `
		SELECT b.id FROM ballot b
		JOIN voting_round r ON r.id = b.round_id
		WHERE b.round_id = $1 AND b.voter_id = $2 AND r.status = 'open'
	`

	_, err = tx.ExecContext(ctx, s.q(`DELETE FROM ballot_choice WHERE ballot_id IN (`+openBallot+`)`), roundID, voterID)
	if err != nil {
		return false, s.storageError("delete ballot choices", err, "round_id", roundID)
	}

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM ballot WHERE id IN (`+openBallot+`)`), roundID, voterID)
	if err != nil {
		return false, s.storageError("delete ballot", err, "round_id", roundID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, s.storageError("delete ballot", err, "round_id", roundID)
	}

	if err := tx.Commit(); err != nil {
		return false, s.storageError("commit transaction", err, "round_id", roundID)
	}
	return n > 0, nil
}

func (s *Store) GetBallot(ctx context.Context, roundID, voterID string) (*models.Ballot, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT b.id, b.round_id, b.voter_id, b.created_at, bc.candidate_id
		FROM ballot b
		JOIN ballot_choice bc ON bc.ballot_id = b.id
		WHERE b.round_id = $1 AND b.voter_id = $2
		ORDER BY bc.position
	`), roundID, voterID)
	if err != nil {
		return nil, s.storageError("get ballot", err, "round_id", roundID)
	}
	ballots, err := s.collectBallots(rows)
	if err != nil {
		return nil, err
	}
	if len(ballots) == 0 {
		return nil, models.NotFound("Ballot", voterID)
	}
	return &ballots[0], nil
}

func (s *Store) CountBallots(ctx context.Context, roundID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT COUNT(*) FROM ballot WHERE round_id = $1`), roundID).Scan(&count)
	if err != nil {
		return 0, s.storageError("count ballots", err, "round_id", roundID)
	}
	return count, nil
}

func (s *Store) ListBallots(ctx context.Context, roundID string) ([]models.Ballot, error) {
	return s.listBallots(ctx, s.db, roundID)
}

func (s *Store) listBallots(ctx context.Context, q querier, roundID string) ([]models.Ballot, error) {
	rows, err := q.QueryContext(ctx, s.q(`
		SELECT b.id, b.round_id, b.voter_id, b.created_at, bc.candidate_id
		FROM ballot b
		JOIN ballot_choice bc ON bc.ballot_id = b.id
		WHERE b.round_id = $1
		ORDER BY b.created_at, b.id, bc.position
	`), roundID)
	if err != nil {
		return nil, s.storageError("list ballots", err, "round_id", roundID)
	}
	return s.collectBallots(rows)
}

// collectBallots folds one row per ballot choice into ballots, relying on
// the rows being grouped by ballot and ordered by position.
func (s *Store) collectBallots(rows *sql.Rows) ([]models.Ballot, error) {
	defer rows.Close()

	ballots := []models.Ballot{}
	var choices []string
	flush := func() {
		if len(ballots) > 0 {
			ballots[len(ballots)-1].Ranking = models.LoadedRanking(choices)
		}
		choices = nil
	}

	for rows.Next() {
		var (
			b           models.Ballot
			candidateID string
		)
		if err := rows.Scan(&b.ID, &b.RoundID, &b.VoterID, &timeValue{dst: &b.CreatedAt}, &candidateID); err != nil {
			return nil, s.storageError("scan ballot", err)
		}
		if len(ballots) == 0 || ballots[len(ballots)-1].ID != b.ID {
			flush()
			ballots = append(ballots, b)
		}
		choices = append(choices, candidateID)
	}
	if err := rows.Err(); err != nil {
		return nil, s.storageError("read ballots", err)
	}
	flush()
	return ballots, nil
}

// Snapshots

func (s *Store) GetSnapshot(ctx context.Context, roundID string) (*models.ResultSnapshot, error) {
	var (
		snap    models.ResultSnapshot
		payload string
	)
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT id, round_id, computed_at, inputs_hash, payload
		FROM result_snapshot
		WHERE round_id = $1
	`), roundID).Scan(&snap.ID, &snap.RoundID, &timeValue{dst: &snap.ComputedAt}, &snap.InputsHash, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("Snapshot", roundID)
	}
	if err != nil {
		return nil, s.storageError("get snapshot", err, "round_id", roundID)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Result); err != nil {
		return nil, s.storageError("decode snapshot", fmt.Errorf("round %s: %w", roundID, err))
	}
	return &snap, nil
}
