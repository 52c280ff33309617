// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for transport mapping
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindStorage    Kind = "storage"
)

// Error is the error type returned by the storage adapter and the voting
// components. Storage errors carry the backend error in Err; it is logged
// but never written to a client.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind, and on Code when the target carries one, so
// errors.Is(err, ErrConflict) holds for every conflict while
// errors.Is(err, ErrAlreadyVoted) holds only for that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrStorage    = &Error{Kind: KindStorage}

	ErrEmptyRanking     = &Error{Kind: KindValidation, Code: "EmptyRanking", Message: "ranking must contain at least one candidate"}
	ErrDuplicateChoice  = &Error{Kind: KindValidation, Code: "DuplicateChoice", Message: "ranking contains a candidate more than once"}
	ErrUnknownCandidate = &Error{Kind: KindValidation, Code: "UnknownCandidate", Message: "ranking contains a candidate that is not open for voting"}

	ErrAlreadyVoted        = &Error{Kind: KindConflict, Code: "AlreadyVoted", Message: "voter already has a ballot in this round"}
	ErrDuplicateCandidate  = &Error{Kind: KindConflict, Code: "DuplicateCandidate", Message: "an active candidate with this external reference already exists"}
	ErrCandidateReferenced = &Error{Kind: KindConflict, Code: "CandidateReferenced", Message: "candidate is ranked on a ballot in an open round"}
	ErrCandidateIsWinner   = &Error{Kind: KindConflict, Code: "CandidateIsWinner", Message: "a winning candidate cannot be retired"}
	ErrRoundClosed         = &Error{Kind: KindConflict, Code: "RoundClosed", Message: "voting round is closed"}
	ErrRoundAlreadyOpen    = &Error{Kind: KindConflict, Code: "RoundAlreadyOpen", Message: "scope already has an open round"}
)

// Validation builds a validation error with the given code
func Validation(code, message string) error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound builds a not-found error for the named entity
func NotFound(entity, id string) error {
	return &Error{Kind: KindNotFound, Code: entity + "NotFound", Message: entity + " " + id + " not found"}
}

// Storage wraps a backend failure that has no more specific mapping
func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Code: "StorageError", Message: op, Err: err}
}

// KindOf returns the Kind of err, or KindStorage for errors outside the
// taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
