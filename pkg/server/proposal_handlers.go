// Copyright 2025 Multisig Orchestrator

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/xstelea/multisig/pkg/codec"
	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/gateway"
	"github.com/xstelea/multisig/pkg/metrics"
)

// CreateProposalRequest is the body of POST /proposals.
type CreateProposalRequest struct {
	ManifestText string `json:"manifest_text"`
	ExpiryEpoch  uint64 `json:"expiry_epoch"`
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.ManifestText) == "" {
		s.writeError(w, http.StatusBadRequest, "manifest_text must not be empty")
		return
	}

	ctx := r.Context()

	currentEpoch, err := s.ledger.CurrentEpoch(ctx)
	if err != nil {
		s.logger.Printf("Failed to get current epoch: %v", err)
		metrics.GatewayErrors.WithLabelValues("current_epoch").Inc()
		s.writeError(w, http.StatusInternalServerError, "failed to get current epoch: "+err.Error())
		return
	}

	epochMin := currentEpoch
	epochMax := req.ExpiryEpoch
	if epochMax <= epochMin {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("expiry epoch (%d) must be greater than current epoch (%d)", epochMax, epochMin))
		return
	}

	// Compile first so manifest errors surface before any access-rule reads.
	manifest, err := codec.CompileSubintentManifest(req.ManifestText, s.networkID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	multisigAccount, err := s.discoverMultisigAccount(r, manifest)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := codec.BuildUnsignedSubintent(req.ManifestText, s.networkID, epochMin, epochMax)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to build subintent: "+err.Error())
		return
	}

	proposal, err := s.proposals.Create(ctx, database.NewProposal{
		ManifestText:            req.ManifestText,
		MultisigAccount:         multisigAccount,
		EpochMin:                int64(epochMin),
		EpochMax:                int64(epochMax),
		SubintentHash:           result.SubintentHash,
		IntentDiscriminator:     int64(result.IntentDiscriminator),
		MinProposerTimestamp:    result.MinProposerTimestamp,
		MaxProposerTimestamp:    result.MaxProposerTimestamp,
		PartialTransactionBytes: result.PartialTransactionBytes,
	})
	if err != nil {
		s.logger.Printf("Failed to create proposal: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create proposal: "+err.Error())
		return
	}

	metrics.ProposalsCreated.Inc()
	s.logger.Printf("Created proposal %s for %s (epochs [%d, %d))", proposal.ID, multisigAccount, epochMin, epochMax)
	s.writeJSON(w, http.StatusOK, proposal)
}

// discoverMultisigAccount applies the caller policy over the manifest
// analyzer's output: among accounts invoked with auth-requiring methods,
// exactly one must have a multisig access rule.
func (s *Server) discoverMultisigAccount(r *http.Request, manifest *codec.Manifest) (string, error) {
	accounts, err := codec.ExtractAccountsRequiringAuth(manifest)
	if err != nil {
		return "", err
	}

	var multisigAccount string
	var multisigRule *gateway.AccessRule
	for _, account := range accounts {
		rule, err := s.ledger.ReadAccessRule(r.Context(), account)
		if err != nil {
			metrics.GatewayErrors.WithLabelValues("read_access_rule").Inc()
			return "", fmt.Errorf("failed to read access rule for %s: %w", account, err)
		}
		if !rule.IsMultisig() {
			continue
		}
		if multisigAccount != "" {
			return "", errors.New("multiple multisig accounts in manifest; only one is supported")
		}
		multisigAccount = account
		multisigRule = rule
	}
	if multisigAccount == "" {
		return "", errors.New("no multisig account found in manifest")
	}

	if len(multisigRule.Signers) == 0 {
		return "", fmt.Errorf("account %s has an empty signer list", multisigAccount)
	}
	if multisigRule.Threshold == 0 {
		return "", fmt.Errorf("account %s has a zero signing threshold", multisigAccount)
	}
	if int(multisigRule.Threshold) > len(multisigRule.Signers) {
		return "", fmt.Errorf("account %s threshold %d exceeds its %d signers",
			multisigAccount, multisigRule.Threshold, len(multisigRule.Signers))
	}

	return multisigAccount, nil
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := s.proposals.List(r.Context())
	if err != nil {
		s.logger.Printf("Failed to list proposals: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list proposals: "+err.Error())
		return
	}
	if proposals == nil {
		proposals = []database.Proposal{}
	}
	s.writeJSON(w, http.StatusOK, proposals)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	proposal, err := s.proposals.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "proposal not found")
			return
		}
		s.logger.Printf("Failed to get proposal: %v", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get proposal: "+err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, proposal)
}
