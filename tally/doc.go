// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package tally counts ranked ballots by instant runoff. Tally is pure:
// the same ballots give the same rounds, winner and hash.
package tally
