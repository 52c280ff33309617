// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/movie-night/auth"
	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/metrics"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/store"
)

// Deps is shared by the three components
type Deps struct {
	Store     store.Store
	Publisher broadcast.Publisher
	Metrics   *metrics.Metrics
	// Now defaults to time.Now in UTC
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = broadcast.NoopPublisher{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// emit publishes after a successful write. Delivery is best effort: a
// failure is logged and never undoes or fails the write.
func (d Deps) emit(ctx context.Context, e broadcast.Event) {
	if err := d.Publisher.Publish(ctx, e); err != nil {
		slog.Warn("event publish failed", "type", e.EventType(), "scope", e.EventScope(), "error", err)
	}
}

func newID(prefix string) (string, error) {
	id, err := auth.GenerateID(prefix)
	if err != nil {
		return "", models.Storage("generate id", err)
	}
	return id, nil
}

func scopeOrDefault(scope string) string {
	if scope == "" {
		return models.DefaultScope
	}
	return scope
}
