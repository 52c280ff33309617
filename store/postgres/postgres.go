// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package postgres opens the lib/pq backed store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/danielhkuo/movie-night/db"
	"github.com/danielhkuo/movie-night/store"
	"github.com/danielhkuo/movie-night/store/sqlstore"
)

// Dialect describes PostgreSQL to sqlstore
var Dialect = sqlstore.Dialect{
	Name:                  store.BackendPostgres,
	ShareLock:             " FOR SHARE",
	UpdateLock:            " FOR UPDATE",
	IsUniqueViolation:     isUniqueViolation,
	IsForeignKeyViolation: isForeignKeyViolation,
}

// Open connects to the database at databaseURL, configures the pool and
// runs any pending migrations.
func Open(ctx context.Context, databaseURL string) (*sqlstore.Store, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlstore.New(conn, Dialect), nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}
