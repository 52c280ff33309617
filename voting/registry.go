// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/danielhkuo/movie-night/auth"
	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/models"
)

const maxTitleLength = 300

// Registry manages the candidates of each scope
type Registry struct {
	Deps
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{Deps: deps.withDefaults()}
}

// Add stores a new active candidate. A second active candidate with the
// same external reference in the scope is a conflict.
func (r *Registry) Add(ctx context.Context, req models.AddCandidateRequest) (*models.Candidate, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, models.Validation("TitleRequired", "title is required")
	}
	if len(title) > maxTitleLength {
		return nil, models.Validation("TitleTooLong", "title is too long")
	}

	var ref *string
	if req.ExternalRef != nil {
		if s := strings.TrimSpace(*req.ExternalRef); s != "" {
			ref = &s
		}
	}

	var metadata json.RawMessage
	if raw := bytes.TrimSpace(req.Metadata); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		if !json.Valid(raw) {
			return nil, models.Validation("InvalidMetadata", "metadata must be valid JSON")
		}
		metadata = raw
	}

	id, err := newID(auth.PrefixCandidate)
	if err != nil {
		return nil, err
	}

	c := &models.Candidate{
		ID:          id,
		Scope:       scopeOrDefault(strings.TrimSpace(req.Scope)),
		Title:       title,
		ExternalRef: ref,
		Metadata:    metadata,
		Status:      models.CandidateActive,
		CreatedAt:   r.Now(),
	}
	if err := r.Store.InsertCandidate(ctx, c); err != nil {
		return nil, err
	}

	r.emit(ctx, broadcast.NewCandidateAdded(c))
	return c, nil
}

// List returns the scope's candidates with the given status, most recent
// first. An empty status means active candidates.
func (r *Registry) List(ctx context.Context, scope, status string) ([]models.Candidate, error) {
	switch status {
	case "":
		status = models.CandidateActive
	case models.CandidateActive, models.CandidateWinner, models.CandidateRejected:
	default:
		return nil, models.Validation("InvalidStatus", "status must be candidate, winner or rejected")
	}
	return r.Store.ListCandidates(ctx, scopeOrDefault(scope), status)
}

// Retire marks a candidate rejected. It refuses while a ballot in an open
// round ranks the candidate, and retiring twice is a no-op.
func (r *Registry) Retire(ctx context.Context, id string) error {
	c, err := r.Store.GetCandidate(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == models.CandidateRejected {
		return nil
	}

	if err := r.Store.RetireCandidate(ctx, id); err != nil {
		return err
	}

	r.emit(ctx, broadcast.NewCandidateRetired(c.Scope, c.ID))
	return nil
}
