// Copyright 2025 Multisig Orchestrator

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ProposalRepository provides access to proposal storage. All mutations are
// compare-and-set over (id, status): the row-level WHERE clause is the
// serialization primitive, there are no proposal-level locks.
type ProposalRepository struct {
	db *sql.DB
}

// NewProposalRepository creates a proposal repository.
func NewProposalRepository(db *sql.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

const proposalColumns = `id, manifest_text, multisig_account, epoch_min, epoch_max,
	   status, subintent_hash, intent_discriminator, min_proposer_timestamp, max_proposer_timestamp,
	   created_at, submitted_at, tx_id, invalid_reason`

func scanProposal(row interface{ Scan(...interface{}) error }) (*Proposal, error) {
	var p Proposal
	err := row.Scan(
		&p.ID, &p.ManifestText, &p.MultisigAccount, &p.EpochMin, &p.EpochMax,
		&p.Status, &p.SubintentHash, &p.IntentDiscriminator, &p.MinProposerTimestamp, &p.MaxProposerTimestamp,
		&p.CreatedAt, &p.SubmittedAt, &p.TxID, &p.InvalidReason,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create atomically inserts a proposal with status 'created'.
func (r *ProposalRepository) Create(ctx context.Context, input NewProposal) (*Proposal, error) {
	query := `
		INSERT INTO proposals (
			manifest_text, multisig_account, epoch_min, epoch_max,
			subintent_hash, intent_discriminator, min_proposer_timestamp, max_proposer_timestamp,
			partial_transaction_bytes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + proposalColumns

	p, err := scanProposal(r.db.QueryRowContext(ctx, query,
		input.ManifestText, input.MultisigAccount, input.EpochMin, input.EpochMax,
		input.SubintentHash, input.IntentDiscriminator, input.MinProposerTimestamp, input.MaxProposerTimestamp,
		input.PartialTransactionBytes,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	return p, nil
}

// Get retrieves a proposal by id.
func (r *ProposalRepository) Get(ctx context.Context, id uuid.UUID) (*Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`

	p, err := scanProposal(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

// List returns all proposals, newest first.
func (r *ProposalRepository) List(ctx context.Context) ([]Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals ORDER BY created_at DESC`
	return r.queryProposals(ctx, query)
}

// ListActive returns proposals in active states (created, signing, ready),
// oldest first. This is the validity monitor's working set.
func (r *ProposalRepository) ListActive(ctx context.Context) ([]Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals
		WHERE status IN ('created', 'signing', 'ready')
		ORDER BY created_at ASC`
	return r.queryProposals(ctx, query)
}

func (r *ProposalRepository) queryProposals(ctx context.Context, query string, args ...interface{}) ([]Proposal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	var proposals []Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, *p)
	}
	return proposals, rows.Err()
}

// PartialTransactionBytes returns the stored canonical unsigned partial
// transaction for a proposal.
func (r *ProposalRepository) PartialTransactionBytes(ctx context.Context, id uuid.UUID) ([]byte, error) {
	var bytes []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT partial_transaction_bytes FROM proposals WHERE id = $1", id).Scan(&bytes)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partial transaction bytes: %w", err)
	}
	return bytes, nil
}

// TransitionStatus performs a compare-and-set status transition. It rejects
// edges outside the state machine with ErrInvalidTransition; a CAS that
// affects no rows (concurrent transition, or wrong current status) returns
// ErrConflict.
func (r *ProposalRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to ProposalStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}

	result, err := r.db.ExecContext(ctx,
		"UPDATE proposals SET status = $1 WHERE id = $2 AND status = $3", to, id, from)
	if err != nil {
		return fmt.Errorf("failed to transition proposal status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("proposal %s not found or not in %s status: %w", id, from, ErrConflict)
	}
	return nil
}

// UpdateTxID stores the transaction intent hash and stamps submitted_at.
func (r *ProposalRepository) UpdateTxID(ctx context.Context, id uuid.UUID, txID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE proposals SET tx_id = $1, submitted_at = NOW() WHERE id = $2", txID, id)
	if err != nil {
		return fmt.Errorf("failed to update tx_id: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("proposal %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkExpired transitions an active proposal to expired. Guarded by the
// active-status set: terminal proposals are never touched.
func (r *ProposalRepository) MarkExpired(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE proposals
		SET status = 'expired', invalid_reason = 'Proposal epoch window has passed'
		WHERE id = $1 AND status IN ('created', 'signing', 'ready')`, id)
	if err != nil {
		return fmt.Errorf("failed to mark proposal expired: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("proposal %s not found or not in an active status: %w", id, ErrConflict)
	}
	return nil
}

// MarkInvalid transitions an active proposal to invalid with a reason.
func (r *ProposalRepository) MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE proposals
		SET status = 'invalid', invalid_reason = $1
		WHERE id = $2 AND status IN ('created', 'signing', 'ready')`, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark proposal invalid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("proposal %s not found or not in an active status: %w", id, ErrConflict)
	}
	return nil
}

// RecordSubmissionAttempt appends an audit row. Append-only by design.
func (r *ProposalRepository) RecordSubmissionAttempt(ctx context.Context, input NewSubmissionAttempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_attempts (proposal_id, fee_payer_account, tx_hash, status, error_message)
		VALUES ($1, $2, $3, $4, $5)`,
		input.ProposalID, input.FeePayerAccount, input.TxHash, input.Status, input.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to record submission attempt: %w", err)
	}
	return nil
}
