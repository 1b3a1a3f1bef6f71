// Copyright 2025 Multisig Orchestrator

// Package collector validates and admits signatures for proposals and drives
// the resulting status transitions.
package collector

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/xstelea/multisig/pkg/codec"
	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/gateway"
)

// ErrRejected marks a signature that failed admission for a reason the
// client caused: wrong sub-intent, unknown signer, bad signature, duplicate,
// or a proposal outside the signing window. Handlers map it to 400. The
// wrapped messages are stable; clients key off their substrings.
var ErrRejected = errors.New("signature rejected")

// ProposalStore is the slice of proposal storage the collector needs.
type ProposalStore interface {
	Get(ctx context.Context, id uuid.UUID) (*database.Proposal, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to database.ProposalStatus) error
}

// SignatureStore is the slice of signature storage the collector needs.
type SignatureStore interface {
	Insert(ctx context.Context, input database.NewSignature) (*database.Signature, error)
	ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]database.Signature, error)
	CountValid(ctx context.Context, proposalID uuid.UUID) (int, error)
}

// Collector admits signatures against live access rules.
type Collector struct {
	proposals  ProposalStore
	signatures SignatureStore
	logger     *log.Logger
}

// New creates a signature collector.
func New(proposals ProposalStore, signatures SignatureStore) *Collector {
	return &Collector{
		proposals:  proposals,
		signatures: signatures,
		logger:     log.New(log.Writer(), "[Collector] ", log.LstdFlags),
	}
}

// SignatureSummary is one admitted signature in a status response.
type SignatureSummary struct {
	SignerPublicKey string    `json:"signer_public_key"`
	SignerKeyHash   string    `json:"signer_key_hash"`
	CreatedAt       time.Time `json:"created_at"`
}

// SignerStatus is the per-signer view: has this rule member signed, and does
// their signature still count.
type SignerStatus struct {
	KeyHash   string `json:"key_hash"`
	KeyType   string `json:"key_type"`
	HasSigned bool   `json:"has_signed"`
	IsValid   bool   `json:"is_valid"`
}

// SignatureStatus summarizes collection progress for a proposal.
type SignatureStatus struct {
	ProposalID uuid.UUID          `json:"proposal_id"`
	Signatures []SignatureSummary `json:"signatures"`
	Threshold  uint8              `json:"threshold"`
	Collected  int                `json:"collected"`
	Remaining  int                `json:"remaining"`
	Signers    []SignerStatus     `json:"signers"`
}

// AddSignature validates a wallet-returned signed partial transaction and
// admits its signature.
//
// Validation order:
//  1. The wallet signed over the expected sub-intent (hash match).
//  2. The signature scheme is Ed25519 and the signature verifies against the
//     sub-intent hash.
//  3. The signer's key hash is in the live access rule.
//  4. The proposal is in created or signing status.
//  5. The signer has not already signed (unique constraint).
//
// Transitions: created -> signing on the first signature, signing -> ready
// once the valid count reaches the live threshold.
func (c *Collector) AddSignature(ctx context.Context, proposalID uuid.UUID, signedPartialHex string, rule *gateway.AccessRule, expectedSubintentHash string, networkID uint8) (*SignatureStatus, error) {
	raw, err := hex.DecodeString(signedPartialHex)
	if err != nil {
		return nil, fmt.Errorf("invalid signed partial transaction hex: %v: %w", err, ErrRejected)
	}

	signedPartial, err := codec.DecodeSignedPartialTransaction(raw)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrRejected)
	}

	walletHash := signedPartial.SubintentHash()
	walletHashBech32, err := codec.SubintentHashBech32(walletHash, networkID)
	if err != nil {
		return nil, err
	}
	if walletHashBech32 != expectedSubintentHash {
		return nil, fmt.Errorf(
			"wallet produced a different subintent hash (expected %s, got %s); the wallet may not support custom subintent headers — please update it: %w",
			expectedSubintentHash, walletHashBech32, ErrRejected)
	}

	sig, err := signedPartial.ExtractFirstSignature()
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrRejected)
	}
	if sig.Kind == codec.SignatureKindSecp256k1 {
		return nil, fmt.Errorf("Secp256k1 signatures are not yet supported (public key recovery needed): %w", ErrRejected)
	}
	if !ed25519.Verify(ed25519.PublicKey(sig.PublicKey), walletHash[:], sig.Signature) {
		return nil, fmt.Errorf("signature does not verify against the subintent hash: %w", ErrRejected)
	}

	keyHash, err := codec.PublicKeyHashHex(sig.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrRejected)
	}
	if rule.FindSigner(keyHash) == nil {
		return nil, fmt.Errorf("signer with key hash %s is not in the current access rule: %w", keyHash, ErrRejected)
	}

	proposal, err := c.proposals.Get(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.Status != database.StatusCreated && proposal.Status != database.StatusSigning {
		return nil, fmt.Errorf("proposal is in %s status; signatures can only be added in created or signing: %w",
			proposal.Status, ErrRejected)
	}

	if _, err := c.signatures.Insert(ctx, database.NewSignature{
		ProposalID:                  proposalID,
		SignerPublicKey:             hex.EncodeToString(sig.PublicKey),
		SignerKeyHash:               keyHash,
		SignatureBytes:              sig.Signature,
		SignedPartialTransactionHex: signedPartialHex,
	}); err != nil {
		if errors.Is(err, database.ErrAlreadySigned) {
			return nil, fmt.Errorf("%v: %w", err, ErrRejected)
		}
		return nil, err
	}
	c.logger.Printf("Admitted signature %s... for proposal %s", keyHash[:8], proposalID)

	// First signature promotes created -> signing. A lost CAS means a
	// concurrent admission already promoted it.
	if proposal.Status == database.StatusCreated {
		if err := c.proposals.TransitionStatus(ctx, proposalID, database.StatusCreated, database.StatusSigning); err != nil && !errors.Is(err, database.ErrConflict) {
			return nil, err
		}
	}

	count, err := c.signatures.CountValid(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if count >= int(rule.Threshold) {
		if err := c.proposals.TransitionStatus(ctx, proposalID, database.StatusSigning, database.StatusReady); err != nil && !errors.Is(err, database.ErrConflict) {
			return nil, err
		}
		c.logger.Printf("Proposal %s reached threshold (%d/%d)", proposalID, count, rule.Threshold)
	}

	return c.Status(ctx, proposalID, rule)
}

// Status returns the current signature collection status for a proposal
// against the live access rule.
func (c *Collector) Status(ctx context.Context, proposalID uuid.UUID, rule *gateway.AccessRule) (*SignatureStatus, error) {
	signatures, err := c.signatures.ListByProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}

	validity := make(map[string]bool, len(signatures))
	for _, s := range signatures {
		validity[s.SignerKeyHash] = s.IsValid
	}

	signers := make([]SignerStatus, 0, len(rule.Signers))
	for _, s := range rule.Signers {
		valid, signed := validity[s.KeyHash]
		if !signed {
			valid = true // not signed yet, validity not applicable
		}
		signers = append(signers, SignerStatus{
			KeyHash:   s.KeyHash,
			KeyType:   s.KeyType,
			HasSigned: signed,
			IsValid:   valid,
		})
	}

	summaries := make([]SignatureSummary, 0, len(signatures))
	for _, s := range signatures {
		summaries = append(summaries, SignatureSummary{
			SignerPublicKey: s.SignerPublicKey,
			SignerKeyHash:   s.SignerKeyHash,
			CreatedAt:       s.CreatedAt,
		})
	}

	collected := len(signatures)
	remaining := int(rule.Threshold) - collected
	if remaining < 0 {
		remaining = 0
	}

	return &SignatureStatus{
		ProposalID: proposalID,
		Signatures: summaries,
		Threshold:  rule.Threshold,
		Collected:  collected,
		Remaining:  remaining,
		Signers:    signers,
	}, nil
}
