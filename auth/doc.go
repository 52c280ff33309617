// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides ID generation and the admin gate.

# Entity IDs

Entity IDs are a short prefix followed by 16 random alphanumeric
characters from nanoid:

	id, err := auth.GenerateID(auth.PrefixCandidate) // "cand_V1StGXR8Z5jdHi6B"

# Voter IDs

Voter IDs are UUIDs issued once per browser and stored in the voter_id
cookie:

	voterID := auth.NewVoterID()
	voterID, err := auth.ParseVoterID(cookie.Value)

# Admin Secret

Closing a round and retiring a candidate require the X-Admin-Key header
to match the configured secret:

	if err := auth.ValidateAdminSecret(r.Header.Get("X-Admin-Key"), cfg.AdminSecret); err != nil {
		// 401
	}

There are no user accounts. Anyone holding the secret is an admin.
*/
package auth
