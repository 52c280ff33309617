// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/middleware"
	"github.com/danielhkuo/movie-night/models"
	"github.com/danielhkuo/movie-night/voting"
)

type ResultsHandler struct {
	sessions *voting.Sessions
	ledger   *voting.Ledger
	cfg      cliparse.Config
}

func NewResultsHandler(sessions *voting.Sessions, ledger *voting.Ledger, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{sessions: sessions, ledger: ledger, cfg: cfg}
}

// GetResults handles GET /results?round=. Without a round it reports the
// scope's open round.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	roundID := r.URL.Query().Get("round")
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

	results, err := h.ledger.Results(r.Context(), roundID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, results)
}
