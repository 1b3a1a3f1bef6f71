// Copyright 2025 Multisig Orchestrator

// Package monitor implements the validity monitor: a periodic task that
// expires proposals whose epoch window has passed and invalidates signatures
// of signers removed from the live access rule.
package monitor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xstelea/multisig/pkg/database"
	"github.com/xstelea/multisig/pkg/gateway"
	"github.com/xstelea/multisig/pkg/metrics"
)

// ProposalStore is the slice of proposal storage the monitor needs.
type ProposalStore interface {
	ListActive(ctx context.Context) ([]database.Proposal, error)
	MarkExpired(ctx context.Context, id uuid.UUID) error
	MarkInvalid(ctx context.Context, id uuid.UUID, reason string) error
}

// SignatureStore is the slice of signature storage the monitor needs.
type SignatureStore interface {
	KeyHashes(ctx context.Context, proposalID uuid.UUID) ([]database.SignatureKeyHash, error)
	Invalidate(ctx context.Context, proposalID uuid.UUID, signerKeyHash string) error
	CountValid(ctx context.Context, proposalID uuid.UUID) (int, error)
}

// LedgerReader is the slice of the gateway the monitor needs.
type LedgerReader interface {
	CurrentEpoch(ctx context.Context) (uint64, error)
	ReadAccessRule(ctx context.Context, accountAddress string) (*gateway.AccessRule, error)
}

// Monitor periodically scans active proposals. It only ever degrades state
// (active -> expired/invalid, is_valid -> false); nothing is rehabilitated
// even if a removed signer is later re-added.
type Monitor struct {
	proposals  ProposalStore
	signatures SignatureStore
	ledger     LedgerReader
	interval   time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// New creates a validity monitor.
func New(proposals ProposalStore, signatures SignatureStore, ledger LedgerReader, interval time.Duration) *Monitor {
	return &Monitor{
		proposals:  proposals,
		signatures: signatures,
		ledger:     ledger,
		interval:   interval,
		logger:     log.New(log.Writer(), "[Monitor] ", log.LstdFlags),
	}
}

// Start launches the periodic scan loop.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fmt.Errorf("validity monitor already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.running = true

	m.logger.Printf("Starting validity monitor (interval: %v)", m.interval)
	go m.loop(ctx)
	return nil
}

// Stop halts the scan loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.logger.Println("Stopping validity monitor")
	m.cancel()
	m.running = false
}

func (m *Monitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Check(ctx); err != nil {
				m.logger.Printf("Validity check failed: %v", err)
			}
		}
	}
}

// Check runs a single validity pass over all active proposals.
func (m *Monitor) Check(ctx context.Context) error {
	metrics.MonitorTicks.Inc()

	proposals, err := m.proposals.ListActive(ctx)
	if err != nil {
		return err
	}
	if len(proposals) == 0 {
		return nil
	}

	currentEpoch, err := m.ledger.CurrentEpoch(ctx)
	if err != nil {
		metrics.GatewayErrors.WithLabelValues("current_epoch").Inc()
		return err
	}

	// Phase A: epoch expiry. Expired proposals drop out of phase B.
	var remaining []database.Proposal
	for _, p := range proposals {
		if currentEpoch >= uint64(p.EpochMax) {
			m.logger.Printf("Proposal %s expired (epoch %d >= epoch_max %d)", p.ID, currentEpoch, p.EpochMax)
			if err := m.proposals.MarkExpired(ctx, p.ID); err != nil {
				m.logger.Printf("Failed to mark proposal %s expired: %v", p.ID, err)
				continue
			}
			metrics.ProposalsExpired.Inc()
			continue
		}
		remaining = append(remaining, p)
	}

	// Phase B: access-rule drift, for proposals that carry signatures. The
	// live rule is fetched once per distinct multisig account per pass.
	rules := make(map[string]*gateway.AccessRule)
	for _, p := range remaining {
		if p.Status != database.StatusSigning && p.Status != database.StatusReady {
			continue
		}

		rule, ok := rules[p.MultisigAccount]
		if !ok {
			rule, err = m.ledger.ReadAccessRule(ctx, p.MultisigAccount)
			if err != nil {
				metrics.GatewayErrors.WithLabelValues("read_access_rule").Inc()
				m.logger.Printf("Failed to read access rule for %s: %v", p.MultisigAccount, err)
				continue
			}
			rules[p.MultisigAccount] = rule
		}

		if err := m.checkRuleDrift(ctx, p, rule); err != nil {
			m.logger.Printf("Rule drift check failed for proposal %s: %v", p.ID, err)
		}
	}

	return nil
}

func (m *Monitor) checkRuleDrift(ctx context.Context, p database.Proposal, rule *gateway.AccessRule) error {
	stored, err := m.signatures.KeyHashes(ctx, p.ID)
	if err != nil {
		return err
	}

	live := rule.SignerKeyHashes()
	var removed []string
	for _, sig := range stored {
		if !sig.IsValid {
			continue
		}
		if _, ok := live[sig.KeyHash]; ok {
			continue
		}
		// Signer was removed from the access rule.
		if err := m.signatures.Invalidate(ctx, p.ID, sig.KeyHash); err != nil {
			m.logger.Printf("Failed to invalidate signature %s on proposal %s: %v", sig.KeyHash, p.ID, err)
			continue
		}
		removed = append(removed, sig.KeyHash)
	}

	if len(removed) == 0 {
		return nil
	}

	validCount, err := m.signatures.CountValid(ctx, p.ID)
	if err != nil {
		return err
	}
	if validCount >= int(rule.Threshold) {
		return nil
	}

	abbreviated := make([]string, len(removed))
	for i, h := range removed {
		abbreviated[i] = abbreviateKeyHash(h)
	}
	reason := fmt.Sprintf("Access rule changed — signer(s) removed: %s", strings.Join(abbreviated, ", "))
	m.logger.Printf("Proposal %s invalidated: %s", p.ID, reason)

	if err := m.proposals.MarkInvalid(ctx, p.ID, reason); err != nil {
		return err
	}
	metrics.ProposalsInvalidated.Inc()
	return nil
}

func abbreviateKeyHash(h string) string {
	if len(h) <= 14 {
		return h
	}
	return h[:8] + "..." + h[len(h)-6:]
}
