// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidVoterID  = errors.New("invalid voter id")
)

// ID prefixes for each entity
const (
	PrefixCandidate = "cand_"
	PrefixRound     = "round_"
	PrefixBallot    = "bal_"
	PrefixSnapshot  = "snap_"
)

// Alphabet is the character set for the random part of an ID
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// IDLength is the number of random characters after the prefix
const IDLength = 16

// GenerateID creates a random, URL-safe ID with the given prefix
func GenerateID(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, IDLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return prefix + id, nil
}

// NewVoterID issues a voter session id
func NewVoterID() string {
	return uuid.NewString()
}

// ParseVoterID normalises a voter id taken from a cookie. Only ids in
// the form NewVoterID issues are accepted.
func ParseVoterID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidVoterID
	}
	return id.String(), nil
}

// ValidateAdminSecret checks the provided key against the configured
// secret. Both sides are hashed first so the comparison does not leak
// the secret's length.
func ValidateAdminSecret(provided, secret string) error {
	if provided == "" || secret == "" {
		return ErrInvalidAdminKey
	}
	p := sha256.Sum256([]byte(provided))
	s := sha256.Sum256([]byte(secret))
	if !hmac.Equal(p[:], s[:]) {
		return ErrInvalidAdminKey
	}
	return nil
}
