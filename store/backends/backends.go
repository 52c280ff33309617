// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package backends selects a store.Store implementation by name.
package backends

import (
	"context"
	"fmt"

	"github.com/danielhkuo/movie-night/store"
	"github.com/danielhkuo/movie-night/store/managed"
	"github.com/danielhkuo/movie-night/store/postgres"
	"github.com/danielhkuo/movie-night/store/sqlite"
)

// Open connects to the named backend. Each backend prepares its own
// schema before returning.
func Open(ctx context.Context, backend, databaseURL string) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch backend {
	case store.BackendSQLite:
		s, err = wrap(sqlite.Open(ctx, databaseURL))
	case store.BackendPostgres:
		s, err = wrap(postgres.Open(ctx, databaseURL))
	case store.BackendManaged:
		s, err = wrap(managed.Open(ctx, databaseURL))
	default:
		return nil, fmt.Errorf("unknown database type %q (want sqlite, postgres or managed)", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return s, nil
}

// wrap keeps a failed open from producing a non-nil interface around a
// nil pointer.
func wrap[S store.Store](s S, err error) (store.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
