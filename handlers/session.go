// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/movie-night/auth"
	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/middleware"
	"github.com/danielhkuo/movie-night/models"
)

// VoterCookie holds the voter id issued by POST /session
const VoterCookie = "voter_id"

const voterCookieMaxAge = 365 * 24 * 60 * 60

type SessionHandler struct {
	cfg cliparse.Config
}

func NewSessionHandler(cfg cliparse.Config) *SessionHandler {
	return &SessionHandler{cfg: cfg}
}

// Issue handles POST /session. A request that already carries a valid
// voter cookie keeps its id.
func (h *SessionHandler) Issue(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(VoterCookie); err == nil {
		if id, err := auth.ParseVoterID(c.Value); err == nil {
			middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{VoterID: id})
			return
		}
	}

	id := auth.NewVoterID()
	http.SetCookie(w, &http.Cookie{
		Name:     VoterCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   voterCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	slog.Info("voter session issued", "remote", middleware.GetClientIP(r))
	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{VoterID: id})
}

// voterFrom prefers an explicit voter id and falls back to the cookie
func voterFrom(r *http.Request, explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if c, err := r.Cookie(VoterCookie); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}

func scopeParam(r *http.Request, cfg cliparse.Config) string {
	if s := strings.TrimSpace(r.URL.Query().Get("scope")); s != "" {
		return s
	}
	return cfg.DefaultScope
}
