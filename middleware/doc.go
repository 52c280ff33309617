// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /candidates", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms).

# Admin Gate

	mux.HandleFunc("POST /round/close", middleware.RequireAdmin(secret, handler))

Requests without a matching X-Admin-Key header get 401.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")

WriteError maps errors from the voting components onto status codes:
validation 400, conflict 409, not found 404, anything else 500. A 500
is logged and answered with a generic message.

	if err != nil {
		middleware.WriteError(w, err)
		return
	}
*/
package middleware
