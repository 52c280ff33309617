// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package managed implements store.Store with gorm on the pgx driver, for
// hosted PostgreSQL deployments that sit behind a connection pooler.
package managed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/danielhkuo/movie-night/db"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/store"
)

// Store implements store.Store backed by gorm
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

// Open connects to the database at dsn and applies pending migrations.
// Simple protocol is used so transaction-mode poolers work.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.Migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return New(gdb, slog.Default()), nil
}

// New wraps an existing gorm handle without touching the schema
func New(gdb *gorm.DB, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: gdb, logger: log}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) logError(op string, err error, args ...any) error {
	s.logger.Error("storage operation failed", append([]any{"backend", store.BackendManaged, "op", op, "error", err}, args...)...)
	return models.Storage(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// Candidates

func (s *Store) InsertCandidate(ctx context.Context, c *models.Candidate) error {
	row := candidateModelFromEntity(c)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateCandidate
		}
		return s.logError("insert candidate", err, "candidate_id", c.ID)
	}
	return nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var row candidateModel
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Candidate", id)
	}
	if err != nil {
		return nil, s.logError("get candidate", err, "candidate_id", id)
	}
	c := row.toEntity()
	return &c, nil
}

func (s *Store) ListCandidates(ctx context.Context, scope, status string) ([]models.Candidate, error) {
	var rows []candidateModel
	err := s.db.WithContext(ctx).
		Where("scope = ? AND status = ?", scope, status).
		Order("created_at DESC, id DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, s.logError("list candidates", err, "scope", scope)
	}
	items := make([]models.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (s *Store) RetireCandidate(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row candidateModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&row).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NotFound("Candidate", id)
		}
		if err != nil {
			return s.logError("lock candidate", err, "candidate_id", id)
		}
		switch row.Status {
		case models.CandidateRejected:
			return nil
		case models.CandidateWinner:
			return models.ErrCandidateIsWinner
		}

		// Read after the lock, so ballots committed while waiting are seen
		var referenced bool
		err = tx.Raw(`SELECT EXISTS (
			SELECT 1
			FROM ballot_choice bc
			JOIN ballot b ON b.id = bc.ballot_id
			JOIN voting_round r ON r.id = b.round_id
			WHERE bc.candidate_id = ? AND r.status = ?
		)`, id, models.StatusOpen).Scan(&referenced).Error
		if err != nil {
			return s.logError("check candidate references", err, "candidate_id", id)
		}
		if referenced {
			return models.ErrCandidateReferenced
		}

		err = tx.Model(&candidateModel{}).
			Where("id = ?", id).
			Update("status", models.CandidateRejected).
			Error
		if err != nil {
			return s.logError("retire candidate", err, "candidate_id", id)
		}
		return nil
	})
}

// Rounds

func (s *Store) InsertRound(ctx context.Context, r *models.Round) error {
	row := roundModel{
		ID:        r.ID,
		Scope:     r.Scope,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return models.ErrRoundAlreadyOpen
		}
		return s.logError("insert round", err, "round_id", r.ID)
	}
	return nil
}

func (s *Store) GetRound(ctx context.Context, id string) (*models.Round, error) {
	return s.getRound(s.db.WithContext(ctx), id)
}

func (s *Store) getRound(tx *gorm.DB, id string) (*models.Round, error) {
	var row roundModel
	err := tx.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Round", id)
	}
	if err != nil {
		return nil, s.logError("get round", err, "round_id", id)
	}
	return row.toEntity(), nil
}

func (s *Store) GetOpenRound(ctx context.Context, scope string) (*models.Round, error) {
	var row roundModel
	err := s.db.WithContext(ctx).
		Where("scope = ? AND status = ?", scope, models.StatusOpen).
		Take(&row).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Round", scope)
	}
	if err != nil {
		return nil, s.logError("get open round", err, "scope", scope)
	}
	return row.toEntity(), nil
}

func (s *Store) CloseRound(ctx context.Context, id string, endedAt time.Time, decide store.CloseFunc) (*models.Round, *models.ResultSnapshot, error) {
	var (
		round    *models.Round
		snapshot *models.ResultSnapshot
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&roundModel{}).
			Where("id = ? AND status = ?", id, models.StatusOpen).
			Updates(map[string]any{"status": models.StatusClosed, "ended_at": endedAt.UTC()})
		if res.Error != nil {
			return s.logError("close round", res.Error, "round_id", id)
		}
		if res.RowsAffected == 0 {
			if _, err := s.getRound(tx, id); err != nil {
				return err
			}
			return models.ErrRoundClosed
		}

		ballots, err := s.listBallots(tx, "b.round_id = ?", id)
		if err != nil {
			return err
		}

		snapshot, err = decide(ballots)
		if err != nil {
			return err
		}
		snapshot.RoundID = id

		if winner := snapshot.Result.Winner; winner != nil {
			if err := tx.Model(&roundModel{}).Where("id = ?", id).Update("winner_id", *winner).Error; err != nil {
				return s.logError("stamp winner", err, "round_id", id)
			}
			if err := tx.Model(&candidateModel{}).Where("id = ? AND status = ?", *winner, models.CandidateActive).Update("status", models.CandidateWinner).Error; err != nil {
				return s.logError("promote winner", err, "candidate_id", *winner)
			}
		}

		payload, err := json.Marshal(snapshot.Result)
		if err != nil {
			return s.logError("encode snapshot", err, "round_id", id)
		}
		row := snapshotModel{
			ID:         snapshot.ID,
			RoundID:    id,
			ComputedAt: snapshot.ComputedAt.UTC(),
			InputsHash: snapshot.InputsHash,
			Payload:    string(payload),
		}
		if err := tx.Create(&row).Error; err != nil {
			return s.logError("insert snapshot", err, "round_id", id)
		}

		round, err = s.getRound(tx, id)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return round, snapshot, nil
}

// Ballots

func (s *Store) InsertBallotIfAbsent(ctx context.Context, b *models.Ballot) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var round roundModel
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ?", b.RoundID).
			Take(&round).
			Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NotFound("Round", b.RoundID)
		}
		if err != nil {
			return s.logError("lock round", err, "round_id", b.RoundID)
		}
		if round.Status != models.StatusOpen {
			return models.ErrRoundClosed
		}

		// Hold the ranked candidates until commit; one retired since the
		// ranking was validated is refused
		ids := b.Ranking.IDs()
		var live []candidateModel
		err = tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id IN ? AND status = ?", ids, models.CandidateActive).
			Find(&live).
			Error
		if err != nil {
			return s.logError("lock candidates", err, "round_id", b.RoundID)
		}
		if len(live) != len(ids) {
			return models.ErrUnknownCandidate
		}

		voter := voterModel{ID: b.VoterID, CreatedAt: b.CreatedAt.UTC(), LastSeenAt: b.CreatedAt.UTC()}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen_at"}),
		}).Create(&voter).Error
		if err != nil {
			return s.logError("upsert voter", err, "voter_id", b.VoterID)
		}

		ballot := ballotModel{ID: b.ID, RoundID: b.RoundID, VoterID: b.VoterID, CreatedAt: b.CreatedAt.UTC()}
		if err := tx.Create(&ballot).Error; err != nil {
			if isUniqueViolation(err) {
				return models.ErrAlreadyVoted
			}
			return s.logError("insert ballot", err, "round_id", b.RoundID)
		}

		choices := make([]ballotChoiceModel, 0, len(ids))
		for position, candidateID := range ids {
			choices = append(choices, ballotChoiceModel{BallotID: b.ID, Position: position, CandidateID: candidateID})
		}
		if err := tx.Create(&choices).Error; err != nil {
			switch {
			case isForeignKeyViolation(err):
				return models.ErrUnknownCandidate
			case isUniqueViolation(err):
				return models.ErrDuplicateChoice
			}
			return s.logError("insert ballot choices", err, "ballot_id", b.ID)
		}
		return nil
	})
}

func (s *Store) DeleteBallot(ctx context.Context, roundID, voterID string) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		err := tx.Table("ballot b").
			Joins("JOIN voting_round r ON r.id = b.round_id").
			Where("b.round_id = ? AND b.voter_id = ? AND r.status = ?", roundID, voterID, models.StatusOpen).
			Pluck("b.id", &ids).
			Error
		if err != nil {
			return s.logError("find ballot", err, "round_id", roundID)
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Where("ballot_id IN ?", ids).Delete(&ballotChoiceModel{}).Error; err != nil {
			return s.logError("delete ballot choices", err, "round_id", roundID)
		}
		res := tx.Where("id IN ?", ids).Delete(&ballotModel{})
		if res.Error != nil {
			return s.logError("delete ballot", res.Error, "round_id", roundID)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Store) GetBallot(ctx context.Context, roundID, voterID string) (*models.Ballot, error) {
	ballots, err := s.listBallots(s.db.WithContext(ctx), "b.round_id = ? AND b.voter_id = ?", roundID, voterID)
	if err != nil {
		return nil, err
	}
	if len(ballots) == 0 {
		return nil, models.NotFound("Ballot", voterID)
	}
	return &ballots[0], nil
}

func (s *Store) CountBallots(ctx context.Context, roundID string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ballotModel{}).Where("round_id = ?", roundID).Count(&count).Error
	if err != nil {
		return 0, s.logError("count ballots", err, "round_id", roundID)
	}
	return int(count), nil
}

func (s *Store) ListBallots(ctx context.Context, roundID string) ([]models.Ballot, error) {
	return s.listBallots(s.db.WithContext(ctx), "b.round_id = ?", roundID)
}

func (s *Store) listBallots(tx *gorm.DB, where string, args ...any) ([]models.Ballot, error) {
	var rows []ballotChoiceRow
	err := tx.Table("ballot b").
		Select("b.id, b.round_id, b.voter_id, b.created_at, bc.candidate_id").
		Joins("JOIN ballot_choice bc ON bc.ballot_id = b.id").
		Where(where, args...).
		Order("b.created_at, b.id, bc.position").
		Scan(&rows).
		Error
	if err != nil {
		return nil, s.logError("list ballots", err)
	}

	ballots := []models.Ballot{}
	var choices []string
	for i, row := range rows {
		if i == 0 || rows[i-1].ID != row.ID {
			if len(ballots) > 0 {
				ballots[len(ballots)-1].Ranking = models.LoadedRanking(choices)
			}
			choices = nil
			ballots = append(ballots, models.Ballot{
				ID:        row.ID,
				RoundID:   row.RoundID,
				VoterID:   row.VoterID,
				CreatedAt: row.CreatedAt.UTC(),
			})
		}
		choices = append(choices, row.CandidateID)
	}
	if len(ballots) > 0 {
		ballots[len(ballots)-1].Ranking = models.LoadedRanking(choices)
	}
	return ballots, nil
}

// Snapshots

func (s *Store) GetSnapshot(ctx context.Context, roundID string) (*models.ResultSnapshot, error) {
	var row snapshotModel
	err := s.db.WithContext(ctx).Where("round_id = ?", roundID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound("Snapshot", roundID)
	}
	if err != nil {
		return nil, s.logError("get snapshot", err, "round_id", roundID)
	}

	snap := &models.ResultSnapshot{
		ID:         row.ID,
		RoundID:    row.RoundID,
		ComputedAt: row.ComputedAt.UTC(),
		InputsHash: row.InputsHash,
	}
	if err := json.Unmarshal([]byte(row.Payload), &snap.Result); err != nil {
		return nil, s.logError("decode snapshot", err, "round_id", roundID)
	}
	return snap, nil
}
