// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sqlite opens the modernc.org/sqlite backed store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/movie-night/db"
	"github.com/danielhkuo/movie-night/store"
	"github.com/danielhkuo/movie-night/store/sqlstore"
)

// Dialect describes SQLite to sqlstore. SQLite has no row locks; the
// single connection serialises writers instead.
var Dialect = sqlstore.Dialect{
	Name:                  store.BackendSQLite,
	Rebind:                sqlstore.QuestionRebind,
	IsUniqueViolation:     isUniqueViolation,
	IsForeignKeyViolation: isForeignKeyViolation,
}

// Open opens (creating if needed) the database file at path and creates
// the schema. Foreign keys are enforced on every connection.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer at a time
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return sqlstore.New(conn, Dialect), nil
}

func dsn(path string) string {
	path = strings.TrimPrefix(path, "sqlite://")
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func constraintError(err error) (*sqlite.Error, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return nil, false
	}
	return sqliteErr, sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func isUniqueViolation(err error) bool {
	e, ok := constraintError(err)
	if !ok {
		return false
	}
	switch e.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return strings.Contains(e.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	e, ok := constraintError(err)
	if !ok {
		return false
	}
	return e.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		strings.Contains(e.Error(), "FOREIGN KEY constraint failed")
}
