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

type BallotHandler struct {
	sessions *voting.Sessions
	ledger   *voting.Ledger
	cfg      cliparse.Config
}

func NewBallotHandler(sessions *voting.Sessions, ledger *voting.Ledger, cfg cliparse.Config) *BallotHandler {
	return &BallotHandler{sessions: sessions, ledger: ledger, cfg: cfg}
}

// Submit handles POST /ballots
func (h *BallotHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.CastBallotRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	voterID := voterFrom(r, req.VoterID)
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voterId is required")
		return
	}

	roundID := req.RoundID
	if roundID == "" {
		scope := req.Scope
		if scope == "" {
			scope = scopeParam(r, h.cfg)
		}
		round, err := h.sessions.GetOrOpen(r.Context(), scope)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		roundID = round.ID
	}

	ballot, count, err := h.ledger.Cast(r.Context(), roundID, voterID, req.Ranking)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CastBallotResponse{
		Ballot: ballot,
		Count:  count,
	})
}

// Clear handles DELETE /ballots?voter=&round=. It succeeds whether or not
// a ballot or round existed; only a storage failure is reported.
func (h *BallotHandler) Clear(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	voterID := voterFrom(r, q.Get("voter"))
	if voterID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	roundID, err := h.roundParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if roundID != "" {
		if err := h.ledger.Clear(r.Context(), roundID, voterID); err != nil {
			middleware.WriteError(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Count handles GET /ballots/count?round=
func (h *BallotHandler) Count(w http.ResponseWriter, r *http.Request) {
	roundID, err := h.roundParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	resp := models.BallotCountResponse{RoundID: roundID}
	if roundID != "" {
		if resp.Count, err = h.ledger.Count(r.Context(), roundID); err != nil {
			middleware.WriteError(w, err)
			return
		}
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Mine handles GET /ballots/mine?round=&voter=
func (h *BallotHandler) Mine(w http.ResponseWriter, r *http.Request) {
	voterID := voterFrom(r, r.URL.Query().Get("voter"))
	if voterID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter is required")
		return
	}

	roundID, err := h.roundParam(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if roundID == "" {
		middleware.WriteError(w, models.NotFound("Ballot", voterID))
		return
	}

	ballot, err := h.ledger.Mine(r.Context(), roundID, voterID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, ballot)
}

// roundParam returns ?round=, or the scope's open round, or "" when
// neither exists.
func (h *BallotHandler) roundParam(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("round"); id != "" {
		return id, nil
	}
	current, err := h.sessions.Current(r.Context(), scopeParam(r, h.cfg))
	if err != nil || current == nil {
		return "", err
	}
	return current.ID, nil
}
