// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package voting holds the candidate registry, the round session manager
// and the vote ledger. Each component persists first and publishes an
// event second; a failed publish is logged and never fails the write.
package voting
