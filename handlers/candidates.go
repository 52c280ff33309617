// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/middleware"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/voting"
)

type CandidateHandler struct {
	registry *voting.Registry
	cfg      cliparse.Config
}

func NewCandidateHandler(registry *voting.Registry, cfg cliparse.Config) *CandidateHandler {
	return &CandidateHandler{registry: registry, cfg: cfg}
}

// List handles GET /candidates?status=&scope=
func (h *CandidateHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	candidates, err := h.registry.List(r.Context(), h.scope(r), q.Get("status"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if candidates == nil {
		candidates = []models.Candidate{}
	}
	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// Add handles POST /candidates
func (h *CandidateHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req models.AddCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Scope == "" {
		req.Scope = h.cfg.DefaultScope
	}

	c, err := h.registry.Add(r.Context(), req)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	slog.Info("candidate added", "candidate_id", c.ID, "scope", c.Scope)
	middleware.JSONResponse(w, http.StatusCreated, c)
}

// Retire handles DELETE /candidates/{id}
func (h *CandidateHandler) Retire(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id is required")
		return
	}

	if err := h.registry.Retire(r.Context(), id); err != nil {
		middleware.WriteError(w, err)
		return
	}

	slog.Info("candidate retired", "candidate_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CandidateHandler) scope(r *http.Request) string {
	return scopeParam(r, h.cfg)
}
