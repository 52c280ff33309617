// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package broadcast

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/movie-night/middleware"
)

const maxIngressBody = 1 << 20

// IngressHandler serves POST /broadcast, which fans a JSON object out to
// every live connection verbatim. Every other path is a 404.
func IngressHandler(hub *Hub) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/broadcast", middleware.WithLogging(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			middleware.JSONResponse(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngressBody))
		if err != nil {
			middleware.JSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
			return
		}

		if err := hub.Dispatch(body); err != nil {
			middleware.JSONResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
			return
		}

		middleware.JSONResponse(w, http.StatusOK, map[string]bool{"success": true})
	}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("ingress path not found", "path", r.URL.Path)
		middleware.JSONResponse(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	return mux
}
