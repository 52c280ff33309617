// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadEnv reads .env files, then ParseFlags returns a Config:

	if err := cliparse.LoadEnv(".env"); err != nil {
		log.Fatal(err)
	}
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Precedence

CLI flags win over environment variables, which win over defaults.
Variables loaded from .env never override the real environment.

	PORT                → -p              (3318)
	HUB_PORT            → -hub-port       (3319)
	DATABASE_URL        → -d
	DATABASE_TYPE       → -t              (sqlite)
	ADMIN_SECRET        → -admin-secret
	DEFAULT_SCOPE       → -scope          (default)
	MODE                → -mode           (all)
	BROADCAST_TRANSPORT → -broadcast      (local, or http in api mode)
	BROADCAST_URL       → -broadcast-url
	NATS_URL            → -nats-url
	KAFKA_BROKERS       → -kafka-brokers  (comma separated)
	KAFKA_TOPIC         → -kafka-topic    (movie-night-events)
	LOG_FORMAT          → -log-format     (text)

# Validation

ParseFlags returns an error when:

  - the mode or transport is unknown
  - the nats or kafka transport has no server configured
  - api mode has no hub to reach
  - DATABASE_URL or ADMIN_SECRET is missing outside hub mode
*/
package cliparse
