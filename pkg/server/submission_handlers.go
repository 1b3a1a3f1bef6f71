// Copyright 2025 Multisig Orchestrator

package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/xstelea/multisig/pkg/composer"
	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/gateway"
	"github.com/xstelea/multisig/pkg/metrics"
)

// SubmitProposalResponse is the body of POST /proposals/{id}/submit.
type SubmitProposalResponse struct {
	Status string  `json:"status"`
	TxID   *string `json:"tx_id,omitempty"`
	Error  *string `json:"error,omitempty"`
}

// handleSubmitProposal runs the Ready -> Submitting -> Committed/Failed
// pipeline: compose the notarized transaction, CAS into Submitting, submit,
// persist the tx id, then poll to a terminal outcome.
func (s *Server) handleSubmitProposal(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctx := r.Context()

	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		s.logger.Printf("Failed to get proposal: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get proposal: "+err.Error())
		return
	}
	if proposal.Status != database.StatusReady {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("proposal is in %s status; must be ready to submit", proposal.Status))
		return
	}

	currentEpoch, err := s.ledger.CurrentEpoch(ctx)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues("current_epoch").Inc()
		s.writeError(w, http.StatusInternalServerError, "failed to get current epoch: "+err.Error())
		return
	}

	partialBytes, err := s.proposals.PartialTransactionBytes(ctx, id)
	if err != nil {
		s.logger.Printf("Failed to get partial transaction bytes: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get partial transaction bytes: "+err.Error())
		return
	}

	rawSigs, err := s.signatures.RawSignatures(ctx, id)
	if err != nil {
		s.logger.Printf("Failed to get signatures: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get signatures: "+err.Error())
		return
	}
	storedSigs := make([]composer.StoredSignature, 0, len(rawSigs))
	for _, sig := range rawSigs {
		storedSigs = append(storedSigs, composer.StoredSignature{
			PublicKeyHex:   sig.SignerPublicKey,
			SignatureBytes: sig.SignatureBytes,
		})
	}

	child, err := composer.ReconstructSignedPartial(partialBytes, storedSigs)
	if err != nil {
		s.logger.Printf("Failed to reconstruct signed partial: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to reconstruct signed partial: "+err.Error())
		return
	}

	composed, err := s.composer.Compose(currentEpoch, child)
	if err != nil {
		s.logger.Printf("Failed to compose transaction: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to compose transaction: "+err.Error())
		return
	}

	// The CAS into Submitting excludes concurrent submitters and the
	// validity monitor from this point on.
	if err := s.proposals.TransitionStatus(ctx, id, database.StatusReady, database.StatusSubmitting); err != nil {
		if errors.Is(err, database.ErrConflict) {
			s.writeError(w, http.StatusBadRequest, "proposal is no longer ready (concurrent transition)")
			return
		}
		s.logger.Printf("Failed to transition to submitting: %v", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordAttempt(r, id, &composed.IntentHash, "submitting", nil)

	duplicate, err := s.ledger.Submit(ctx, composed.NotarizedTransactionHex)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues("submit").Inc()
		metrics.Submissions.WithLabelValues("failed").Inc()
		errMsg := err.Error()
		s.logger.Printf("Submit failed for proposal %s: %v", id, err)
		if terr := s.proposals.TransitionStatus(ctx, id, database.StatusSubmitting, database.StatusFailed); terr != nil {
			s.logger.Printf("Failed to transition to failed: %v", terr)
		}
		s.recordAttempt(r, id, &composed.IntentHash, "failed", &errMsg)
		s.writeError(w, http.StatusInternalServerError, "failed to submit transaction: "+errMsg)
		return
	}
	if duplicate {
		s.logger.Printf("Transaction %s was a duplicate submission", composed.IntentHash)
	}
	s.logger.Printf("Transaction submitted: %s", composed.IntentHash)

	if err := s.proposals.UpdateTxID(ctx, id, composed.IntentHash); err != nil {
		s.logger.Printf("Failed to persist tx_id: %v", err)
	}

	_, pollErr := s.ledger.PollCommit(ctx, composed.IntentHash, gateway.DefaultPollAttempts, gateway.DefaultPollInterval)
	if pollErr != nil {
		metrics.Submissions.WithLabelValues("failed").Inc()
		errMsg := pollErr.Error()
		if terr := s.proposals.TransitionStatus(ctx, id, database.StatusSubmitting, database.StatusFailed); terr != nil {
			s.logger.Printf("Failed to transition to failed: %v", terr)
		}
		s.recordAttempt(r, id, &composed.IntentHash, "failed", &errMsg)
		s.writeJSON(w, http.StatusOK, SubmitProposalResponse{
			Status: "failed",
			TxID:   &composed.IntentHash,
			Error:  &errMsg,
		})
		return
	}

	metrics.Submissions.WithLabelValues("committed").Inc()
	if err := s.proposals.TransitionStatus(ctx, id, database.StatusSubmitting, database.StatusCommitted); err != nil {
		s.logger.Printf("Failed to transition to committed: %v", err)
	}
	s.recordAttempt(r, id, &composed.IntentHash, "committed", nil)
	s.logCommittedEntities(r, composed.IntentHash)

	s.writeJSON(w, http.StatusOK, SubmitProposalResponse{
		Status: "committed",
		TxID:   &composed.IntentHash,
	})
}

func (s *Server) recordAttempt(r *http.Request, id uuid.UUID, txHash *string, status string, errMsg *string) {
	err := s.proposals.RecordSubmissionAttempt(r.Context(), database.NewSubmissionAttempt{
		ProposalID:      id,
		FeePayerAccount: s.composer.FeePayerAccount(),
		TxHash:          txHash,
		Status:          status,
		ErrorMessage:    errMsg,
	})
	if err != nil {
		s.logger.Printf("Failed to record submission attempt: %v", err)
	}
}

// logCommittedEntities reads the committed receipt for the audit log. Best
// effort: commitment already happened.
func (s *Server) logCommittedEntities(r *http.Request, intentHash string) {
	details, err := s.ledger.CommittedDetails(r.Context(), intentHash)
	if err != nil {
		s.logger.Printf("Failed to read committed details for %s: %v", intentHash, err)
		return
	}
	receipt := details.Transaction.Receipt
	if receipt == nil || receipt.StateUpdates == nil {
		return
	}
	for _, entity := range receipt.StateUpdates.NewGlobalEntities {
		s.logger.Printf("Transaction %s created %s %s", intentHash, entity.EntityType, entity.EntityAddress)
	}
}
