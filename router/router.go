// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/movie-night/broadcast"
	"github.com/danielhkuo/movie-night/cliparse"
	"github.com/danielhkuo/movie-night/handlers"
	"github.com/danielhkuo/movie-night/middleware"
	"github.com/danielhkuo/movie-night/voting"
)

// Deps are the components behind the routes. Hub is nil when the hub runs
// in another process.
type Deps struct {
	Registry *voting.Registry
	Sessions *voting.Sessions
	Ledger   *voting.Ledger
	Hub      *broadcast.Hub
	Gatherer prometheus.Gatherer
}

func NewRouter(deps Deps, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	candidateHandler := handlers.NewCandidateHandler(deps.Registry, cfg)
	roundHandler := handlers.NewRoundHandler(deps.Sessions, cfg)
	ballotHandler := handlers.NewBallotHandler(deps.Sessions, deps.Ledger, cfg)
	resultsHandler := handlers.NewResultsHandler(deps.Sessions, deps.Ledger, cfg)
	sessionHandler := handlers.NewSessionHandler(cfg)

	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminSecret, h))
	}

	registerOps(mux, deps.Gatherer)

	// Candidates
	mux.HandleFunc("GET /candidates", middleware.WithLogging(candidateHandler.List))
	mux.HandleFunc("POST /candidates", middleware.WithLogging(candidateHandler.Add))
	mux.HandleFunc("DELETE /candidates/{id}", admin(candidateHandler.Retire))

	// Rounds
	mux.HandleFunc("GET /round", middleware.WithLogging(roundHandler.Current))
	mux.HandleFunc("POST /round", admin(roundHandler.Open))
	mux.HandleFunc("POST /round/close", admin(roundHandler.Close))

	// Ballots
	mux.HandleFunc("POST /ballots", middleware.WithLogging(ballotHandler.Submit))
	mux.HandleFunc("DELETE /ballots", middleware.WithLogging(ballotHandler.Clear))
	mux.HandleFunc("GET /ballots/count", middleware.WithLogging(ballotHandler.Count))
	mux.HandleFunc("GET /ballots/mine", middleware.WithLogging(ballotHandler.Mine))

	// Results
	mux.HandleFunc("GET /results", middleware.WithLogging(resultsHandler.GetResults))

	// Voter session
	mux.HandleFunc("POST /session", middleware.WithLogging(sessionHandler.Issue))

	// Push channel, when the hub is in process
	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", broadcast.ServeWS(deps.Hub))
		mux.Handle("POST /broadcast", broadcast.IngressHandler(deps.Hub))
	}

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("movie-night API v1"))
	})

	return mux
}

// NewHubRouter serves a standalone hub: the push channel and the
// broadcast ingress, which answers 404 for every other path.
func NewHubRouter(hub *broadcast.Hub, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()

	registerOps(mux, gatherer)
	mux.HandleFunc("GET /ws", broadcast.ServeWS(hub))
	mux.Handle("/", broadcast.IngressHandler(hub))

	return mux
}

func registerOps(mux *http.ServeMux, gatherer prometheus.Gatherer) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
