// Copyright 2025 Multisig Orchestrator

// Package database provides the persistent proposal store: pooled Postgres
// access, embedded migrations, and typed repositories for proposals,
// signatures, and submission attempts.
package database

import "errors"

// Sentinel errors for repository operations. Callers match with errors.Is to
// map storage outcomes onto HTTP responses.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a compare-and-set update affected no rows:
	// a concurrent transition won, or the row is not in the expected status.
	ErrConflict = errors.New("concurrent state change")

	// ErrAlreadySigned is returned when a signer submits a second signature
	// for the same proposal.
	ErrAlreadySigned = errors.New("signer has already signed this proposal")

	// ErrInvalidTransition is returned when a status transition is not an
	// edge of the proposal state machine.
	ErrInvalidTransition = errors.New("invalid status transition")
)
