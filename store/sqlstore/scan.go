// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielhkuo/movie-night/models"
)

// timeLayouts covers what lib/pq and modernc sqlite hand back for
// timestamp columns when they do not produce a time.Time themselves.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// timeValue scans a timestamp column into dst. A NULL leaves dst
// untouched and clears valid.
type timeValue struct {
	dst   *time.Time
	valid bool
}

func (v *timeValue) Scan(src any) error {
	v.valid = false
	switch s := src.(type) {
	case nil:
		return nil
	case time.Time:
		*v.dst = s.UTC()
	case string:
		t, err := parseTime(s)
		if err != nil {
			return err
		}
		*v.dst = t
	case []byte:
		t, err := parseTime(string(s))
		if err != nil {
			return err
		}
		*v.dst = t
	case int64:
		*v.dst = time.Unix(0, s).UTC()
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
	v.valid = true
	return nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

type rowScanner interface {
	Scan(dest ...any) error
}

const candidateColumns = `id, scope, title, external_ref, metadata, status, created_at`

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	var (
		c        models.Candidate
		ref      sql.NullString
		metadata sql.NullString
	)
	created := &timeValue{dst: &c.CreatedAt}
	if err := row.Scan(&c.ID, &c.Scope, &c.Title, &ref, &metadata, &c.Status, created); err != nil {
		return nil, err
	}
	c.ExternalRef = stringPtr(ref)
	if metadata.Valid && metadata.String != "" {
		c.Metadata = json.RawMessage(metadata.String)
	}
	return &c, nil
}

const roundColumns = `id, scope, status, winner_id, created_at, ended_at`

func scanRound(row rowScanner) (*models.Round, error) {
	var (
		r       models.Round
		winner  sql.NullString
		endedAt time.Time
	)
	created := &timeValue{dst: &r.CreatedAt}
	ended := &timeValue{dst: &endedAt}
	if err := row.Scan(&r.ID, &r.Scope, &r.Status, &winner, created, ended); err != nil {
		return nil, err
	}
	r.WinnerID = stringPtr(winner)
	if ended.valid {
		r.EndedAt = &endedAt
	}
	return &r, nil
}
