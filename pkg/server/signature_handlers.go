// Copyright 2025 Multisig Orchestrator

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/xstelea/multisig/pkg/collector"
	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/metrics"
)

// SignProposalRequest is the body of POST /proposals/{id}/sign.
type SignProposalRequest struct {
	SignedPartialTransactionHex string `json:"signed_partial_transaction_hex"`
}

func (s *Server) handleSignProposal(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req SignProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.SignedPartialTransactionHex == "" {
		s.writeError(w, http.StatusBadRequest, "signed_partial_transaction_hex must not be empty")
		return
	}

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

	rule, err := s.ledger.ReadAccessRule(ctx, proposal.MultisigAccount)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues("read_access_rule").Inc()
		s.logger.Printf("Failed to read access rule: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read access rule: "+err.Error())
		return
	}

	status, err := s.collector.AddSignature(ctx, id, req.SignedPartialTransactionHex, rule, proposal.SubintentHash, s.networkID)
	if err != nil {
		switch {
		case errors.Is(err, collector.ErrRejected):
			metrics.SignatureRejections.WithLabelValues("admission").Inc()
			s.logger.Printf("Sign proposal %s rejected: %v", id, err)
			s.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, database.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "proposal not found")
		default:
			s.logger.Printf("Sign proposal %s failed: %v", id, err)
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	metrics.SignaturesAdmitted.Inc()
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleSignatureStatus(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
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

	rule, err := s.ledger.ReadAccessRule(ctx, proposal.MultisigAccount)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues("read_access_rule").Inc()
		s.logger.Printf("Failed to read access rule: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to read access rule: "+err.Error())
		return
	}

	status, err := s.collector.Status(ctx, id, rule)
	if err != nil {
		s.logger.Printf("Failed to get signature status: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get signature status: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}
