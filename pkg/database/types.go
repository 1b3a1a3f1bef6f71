// Copyright 2025 Multisig Orchestrator

package database

import (
	"time"

	"github.com/google/uuid"
)

// ProposalStatus is the lifecycle state of a proposal. Values match the
// proposal_status enum in Postgres.
type ProposalStatus string

const (
	StatusCreated    ProposalStatus = "created"
	StatusSigning    ProposalStatus = "signing"
	StatusReady      ProposalStatus = "ready"
	StatusSubmitting ProposalStatus = "submitting"
	StatusCommitted  ProposalStatus = "committed"
	StatusFailed     ProposalStatus = "failed"
	StatusExpired    ProposalStatus = "expired"
	StatusInvalid    ProposalStatus = "invalid"
)

// CanTransitionTo reports whether moving from s to the given status is an
// edge of the proposal state machine. These are the only valid edges; every
// store mutation is additionally guarded by a compare-and-set on the current
// status.
func (s ProposalStatus) CanTransitionTo(to ProposalStatus) bool {
	switch s {
	case StatusCreated:
		return to == StatusSigning || to == StatusExpired || to == StatusInvalid
	case StatusSigning:
		return to == StatusReady || to == StatusExpired || to == StatusInvalid
	case StatusReady:
		return to == StatusSubmitting || to == StatusExpired || to == StatusInvalid
	case StatusSubmitting:
		return to == StatusCommitted || to == StatusFailed
	default:
		return false
	}
}

// IsActive reports whether the proposal can still collect signatures or be
// submitted. Active proposals are the validity monitor's working set.
func (s ProposalStatus) IsActive() bool {
	return s == StatusCreated || s == StatusSigning || s == StatusReady
}

// Proposal is one coordination attempt over a sub-intent. All fields except
// status, tx_id, submitted_at, and invalid_reason are immutable after
// creation.
type Proposal struct {
	ID                   uuid.UUID      `json:"id"`
	ManifestText         string         `json:"manifest_text"`
	MultisigAccount      string         `json:"multisig_account"`
	EpochMin             int64          `json:"epoch_min"`
	EpochMax             int64          `json:"epoch_max"`
	Status               ProposalStatus `json:"status"`
	SubintentHash        string         `json:"subintent_hash"`
	IntentDiscriminator  int64          `json:"intent_discriminator"`
	MinProposerTimestamp int64          `json:"min_proposer_timestamp"`
	MaxProposerTimestamp int64          `json:"max_proposer_timestamp"`
	CreatedAt            time.Time      `json:"created_at"`
	SubmittedAt          *time.Time     `json:"submitted_at"`
	TxID                 *string        `json:"tx_id"`
	InvalidReason        *string        `json:"invalid_reason"`
}

// NewProposal is the input for creating a proposal.
type NewProposal struct {
	ManifestText            string
	MultisigAccount         string
	EpochMin                int64
	EpochMax                int64
	SubintentHash           string
	IntentDiscriminator     int64
	MinProposerTimestamp    int64
	MaxProposerTimestamp    int64
	PartialTransactionBytes []byte
}

// Signature is one admitted signer signature for a proposal.
type Signature struct {
	ID                          uuid.UUID `json:"id"`
	ProposalID                  uuid.UUID `json:"proposal_id"`
	SignerPublicKey             string    `json:"signer_public_key"`
	SignerKeyHash               string    `json:"signer_key_hash"`
	SignatureBytes              []byte    `json:"-"`
	SignedPartialTransactionHex string    `json:"-"`
	CreatedAt                   time.Time `json:"created_at"`
	IsValid                     bool      `json:"is_valid"`
}

// NewSignature is the input for admitting a signature.
type NewSignature struct {
	ProposalID                  uuid.UUID
	SignerPublicKey             string
	SignerKeyHash               string
	SignatureBytes              []byte
	SignedPartialTransactionHex string
}

// RawSignature is the (public key, signature) pair needed to reconstruct a
// signed partial transaction.
type RawSignature struct {
	SignerPublicKey string
	SignatureBytes  []byte
}

// SignatureKeyHash is the validity-monitor view of one stored signature.
type SignatureKeyHash struct {
	KeyHash string
	IsValid bool
}

// SubmissionAttempt is one append-only audit row per submission request.
type SubmissionAttempt struct {
	ID              uuid.UUID `json:"id"`
	ProposalID      uuid.UUID `json:"proposal_id"`
	FeePayerAccount string    `json:"fee_payer_account"`
	TxHash          *string   `json:"tx_hash"`
	Status          string    `json:"status"`
	ErrorMessage    *string   `json:"error_message"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewSubmissionAttempt is the input for recording a submission attempt.
type NewSubmissionAttempt struct {
	ProposalID      uuid.UUID
	FeePayerAccount string
	TxHash          *string
	Status          string
	ErrorMessage    *string
}
