// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/middleware"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/voting"
)

type RoundHandler struct {
	sessions *voting.Sessions
	cfg      cliparse.Config
}

func NewRoundHandler(sessions *voting.Sessions, cfg cliparse.Config) *RoundHandler {
	return &RoundHandler{sessions: sessions, cfg: cfg}
}

// Current handles GET /round?scope=. It answers null when no round is open.
func (h *RoundHandler) Current(w http.ResponseWriter, r *http.Request) {
	round, err := h.sessions.Current(r.Context(), scopeParam(r, h.cfg))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, round)
}

// Open handles POST /round
func (h *RoundHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req models.OpenRoundRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	scope := req.Scope
	if scope == "" {
		scope = scopeParam(r, h.cfg)
	}

	round, err := h.sessions.GetOrOpen(r.Context(), scope)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, round)
}

// Close handles POST /round/close. The round comes from the body, then
// ?round=, then the scope's open round.
func (h *RoundHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req models.CloseRoundRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	roundID := req.RoundID
	if roundID == "" {
		roundID = r.URL.Query().Get("round")
	}
	if roundID == "" {
		scope := scopeParam(r, h.cfg)
		current, err := h.sessions.Current(r.Context(), scope)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		if current == nil {
			middleware.WriteError(w, models.NotFound("Round", "open in "+scope))
			return
		}
		roundID = current.ID
	}

	round, result, err := h.sessions.Close(r.Context(), roundID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CloseRoundResponse{
		Round:  *round,
		Winner: result.Winner,
		Rounds: result.Rounds,
	})
}
