// Copyright 2025 Multisig Orchestrator

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SignatureRepository provides access to signature storage. The unique
// constraint on (proposal_id, signer_key_hash) is the only duplicate guard;
// concurrent inserts of the same signature are absorbed by it.
type SignatureRepository struct {
	db *sql.DB
}

// NewSignatureRepository creates a signature repository.
func NewSignatureRepository(db *sql.DB) *SignatureRepository {
	return &SignatureRepository{db: db}
}

// uniqueViolation is the Postgres error code for unique-constraint breaches.
const uniqueViolation = "23505"

// Insert admits a signature row. A duplicate (proposal, signer) pair returns
// ErrAlreadySigned.
func (r *SignatureRepository) Insert(ctx context.Context, input NewSignature) (*Signature, error) {
	query := `
		INSERT INTO signatures (proposal_id, signer_public_key, signer_key_hash, signature_bytes, signed_partial_transaction_hex)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, is_valid`

	sig := Signature{
		ProposalID:                  input.ProposalID,
		SignerPublicKey:             input.SignerPublicKey,
		SignerKeyHash:               input.SignerKeyHash,
		SignatureBytes:              input.SignatureBytes,
		SignedPartialTransactionHex: input.SignedPartialTransactionHex,
	}
	err := r.db.QueryRowContext(ctx, query,
		input.ProposalID, input.SignerPublicKey, input.SignerKeyHash,
		input.SignatureBytes, input.SignedPartialTransactionHex,
	).Scan(&sig.ID, &sig.CreatedAt, &sig.IsValid)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, fmt.Errorf("signer %s: %w", input.SignerKeyHash, ErrAlreadySigned)
		}
		return nil, fmt.Errorf("failed to insert signature: %w", err)
	}
	return &sig, nil
}

// ListByProposal returns all signatures for a proposal, oldest first.
func (r *SignatureRepository) ListByProposal(ctx context.Context, proposalID uuid.UUID) ([]Signature, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, proposal_id, signer_public_key, signer_key_hash, signature_bytes,
			   signed_partial_transaction_hex, created_at, is_valid
		FROM signatures
		WHERE proposal_id = $1
		ORDER BY created_at ASC`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	defer rows.Close()

	var signatures []Signature
	for rows.Next() {
		var s Signature
		if err := rows.Scan(
			&s.ID, &s.ProposalID, &s.SignerPublicKey, &s.SignerKeyHash, &s.SignatureBytes,
			&s.SignedPartialTransactionHex, &s.CreatedAt, &s.IsValid,
		); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		signatures = append(signatures, s)
	}
	return signatures, rows.Err()
}

// RawSignatures returns the valid (public key, signature) pairs for a
// proposal in admission order, for signed-partial reconstruction.
func (r *SignatureRepository) RawSignatures(ctx context.Context, proposalID uuid.UUID) ([]RawSignature, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT signer_public_key, signature_bytes
		FROM signatures
		WHERE proposal_id = $1 AND is_valid = TRUE
		ORDER BY created_at ASC`, proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get raw signatures: %w", err)
	}
	defer rows.Close()

	var sigs []RawSignature
	for rows.Next() {
		var s RawSignature
		if err := rows.Scan(&s.SignerPublicKey, &s.SignatureBytes); err != nil {
			return nil, fmt.Errorf("failed to scan raw signature: %w", err)
		}
		sigs = append(sigs, s)
	}
	return sigs, rows.Err()
}

// KeyHashes returns (key_hash, is_valid) for every signature on a proposal.
func (r *SignatureRepository) KeyHashes(ctx context.Context, proposalID uuid.UUID) ([]SignatureKeyHash, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT signer_key_hash, is_valid FROM signatures WHERE proposal_id = $1", proposalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature key hashes: %w", err)
	}
	defer rows.Close()

	var hashes []SignatureKeyHash
	for rows.Next() {
		var h SignatureKeyHash
		if err := rows.Scan(&h.KeyHash, &h.IsValid); err != nil {
			return nil, fmt.Errorf("failed to scan signature key hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// CountValid counts signatures still counting toward the threshold.
func (r *SignatureRepository) CountValid(ctx context.Context, proposalID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM signatures WHERE proposal_id = $1 AND is_valid = TRUE", proposalID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count valid signatures: %w", err)
	}
	return count, nil
}

// Invalidate flags a signer's signature after the signer was removed from
// the live access rule. The flag is one-directional: nothing re-validates.
func (r *SignatureRepository) Invalidate(ctx context.Context, proposalID uuid.UUID, signerKeyHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE signatures SET is_valid = FALSE WHERE proposal_id = $1 AND signer_key_hash = $2",
		proposalID, signerKeyHash)
	if err != nil {
		return fmt.Errorf("failed to invalidate signature: %w", err)
	}
	return nil
}
