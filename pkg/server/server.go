// Copyright 2025 Multisig Orchestrator

// Package server wires the HTTP API: proposal lifecycle endpoints, the
// submission pipeline, health, and CORS.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xstelea/multisig/pkg/codec"
	"github.com/xstelea/multisig/pkg/collector"
	"github.com/xstelea/multisig/pkg/composer"
	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/gateway"
)

// ProposalStore is the slice of proposal storage the handlers need.
type ProposalStore interface {
	Create(ctx context.Context, input database.NewProposal) (*database.Proposal, error)
	Get(ctx context.Context, id uuid.UUID) (*database.Proposal, error)
	List(ctx context.Context) ([]database.Proposal, error)
	PartialTransactionBytes(ctx context.Context, id uuid.UUID) ([]byte, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to database.ProposalStatus) error
	UpdateTxID(ctx context.Context, id uuid.UUID, txID string) error
	RecordSubmissionAttempt(ctx context.Context, input database.NewSubmissionAttempt) error
}

// SignatureStore is the slice of signature storage the handlers need.
type SignatureStore interface {
	RawSignatures(ctx context.Context, proposalID uuid.UUID) ([]database.RawSignature, error)
}

// Ledger is the slice of the gateway the handlers need.
type Ledger interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
	ReadAccessRule(ctx context.Context, accountAddress string) (*gateway.AccessRule, error)
	Submit(ctx context.Context, notarizedTransactionHex string) (bool, error)
	PollCommit(ctx context.Context, intentHash string, maxAttempts int, interval time.Duration) (string, error)
	CommittedDetails(ctx context.Context, intentHash string) (*gateway.CommittedDetails, error)
}

// Pinger reports storage liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SignatureCollector admits signatures and reports collection status.
type SignatureCollector interface {
	AddSignature(ctx context.Context, proposalID uuid.UUID, signedPartialHex string, rule *gateway.AccessRule, expectedSubintentHash string, networkID uint8) (*collector.SignatureStatus, error)
	Status(ctx context.Context, proposalID uuid.UUID, rule *gateway.AccessRule) (*collector.SignatureStatus, error)
}

// TransactionComposer builds notarized transactions from signed children.
type TransactionComposer interface {
	Compose(currentEpoch uint64, child *codec.SignedPartialTransaction) (*composer.ComposedTransaction, error)
	FeePayerAccount() string
}

// Server holds the wiring for all HTTP handlers.
type Server struct {
	proposals  ProposalStore
	signatures SignatureStore
	ledger     Ledger
	collector  SignatureCollector
	composer   TransactionComposer
	db         Pinger

	networkID      uint8
	frontendOrigin string
	logger         *log.Logger
}

// New creates the server.
func New(proposals ProposalStore, signatures SignatureStore, ledger Ledger, sigCollector SignatureCollector, txComposer TransactionComposer, db Pinger, networkID uint8, frontendOrigin string) *Server {
	return &Server{
		proposals:      proposals,
		signatures:     signatures,
		ledger:         ledger,
		collector:      sigCollector,
		composer:       txComposer,
		db:             db,
		networkID:      networkID,
		frontendOrigin: frontendOrigin,
		logger:         log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
}

// Handler builds the route table wrapped in CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/proposals", s.handleProposals)
	mux.HandleFunc("/proposals/", s.handleProposalSubroutes)

	return s.corsMiddleware(mux)
}

// HealthResponse is the body of GET /health. Degraded storage is reported
// in the body while the endpoint itself stays 200.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{Status: "ok", Database: "connected"}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Printf("Health check: database ping failed: %v", err)
		health.Status = "degraded"
		health.Database = "disconnected"
	}

	s.writeJSON(w, http.StatusOK, health)
}

// handleProposals serves POST /proposals and GET /proposals.
func (s *Server) handleProposals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateProposal(w, r)
	case http.MethodGet:
		s.handleListProposals(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "only GET and POST are allowed")
	}
}

// handleProposalSubroutes dispatches /proposals/{id}[/sign|/signatures|/submit].
func (s *Server) handleProposalSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/proposals/")
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")

	id, err := uuid.Parse(parts[0])
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleGetProposal(w, r, id)
	case len(parts) == 2 && parts[1] == "sign" && r.Method == http.MethodPost:
		s.handleSignProposal(w, r, id)
	case len(parts) == 2 && parts[1] == "signatures" && r.Method == http.MethodGet:
		s.handleSignatureStatus(w, r, id)
	case len(parts) == 2 && parts[1] == "submit" && r.Method == http.MethodPost:
		s.handleSubmitProposal(w, r, id)
	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

// corsMiddleware allows the configured frontend origin for GET/POST/OPTIONS.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.frontendOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.frontendOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
