// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the movie night API and hub.

# Route Registration

NewRouter creates a configured http.ServeMux with the API endpoints:

	mux := router.NewRouter(router.Deps{
		Registry: registry,
		Sessions: sessions,
		Ledger:   ledger,
		Hub:      hub, // nil when the hub runs separately
	}, cfg)

NewHubRouter serves a hub on its own:

	mux := router.NewHubRouter(hub, registry)

# Endpoints

Operations:

	GET /health
	GET /metrics

Candidates:

	GET    /candidates?status=&scope=
	POST   /candidates
	DELETE /candidates/{id}   (admin)

Rounds:

	GET  /round?scope=
	POST /round               (admin)
	POST /round/close         (admin)

Ballots and results:

	POST   /ballots
	DELETE /ballots?voter=&round=
	GET    /ballots/count?round=
	GET    /ballots/mine?round=&voter=
	GET    /results?round=
	POST   /session

Push channel (API with an in-process hub, or a standalone hub):

	GET  /ws?scope=
	POST /broadcast

Admin routes require the X-Admin-Key header.
*/
package router
