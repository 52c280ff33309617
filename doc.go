// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the movie night server.

Movie night lets a group propose films, rank them, and pick a winner by
instant-runoff voting. Every mutation is pushed to connected browsers
over a websocket.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=movie-night.db ADMIN_SECRET=... go run .

Or with flags:

	go run . -p 3318 -d "postgres://..." -t postgres -admin-secret ...

A .env file in the working directory is loaded first; it never
overrides variables that are already set.

# Modes

  - all (default): API, websocket hub and broadcast ingress on PORT
  - api: API only; events go to a hub over BROADCAST_TRANSPORT
  - hub: websocket hub and POST /broadcast on HUB_PORT

Transports between the API and the hub are local (same process), http
(POST /broadcast), nats, kafka or none.

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite path or Postgres connection string
  - ADMIN_SECRET (-admin-secret): value of the X-Admin-Key header

Optional settings:

  - PORT (-p): API port (default: 3318)
  - HUB_PORT (-hub-port): standalone hub port (default: 3319)
  - DATABASE_TYPE (-t): sqlite, postgres or managed (default: sqlite)
  - DEFAULT_SCOPE (-scope): room used when a request names none
  - MODE (-mode), BROADCAST_TRANSPORT (-broadcast), BROADCAST_URL,
    NATS_URL, KAFKA_BROKERS, KAFKA_TOPIC
  - LOG_FORMAT (-log-format): text or json

# Architecture

  - handlers, router, middleware: HTTP surface
  - voting: candidate registry, round sessions and vote ledger
  - tally: instant-runoff count
  - broadcast: websocket hub, ingress and publishers
  - store: storage adapter with sqlite, postgres and managed backends
  - db: sqlite schema and Postgres migrations
  - models: domain types and the error taxonomy
  - metrics: Prometheus instruments
  - auth: IDs and the admin gate
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
