// Copyright 2025 Multisig Orchestrator

// Package metrics exposes the orchestrator's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProposalsCreated counts proposals accepted by POST /proposals.
	ProposalsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multisig_proposals_created_total",
		Help: "Number of proposals created.",
	})

	// SignaturesAdmitted counts signatures that passed admission.
	SignaturesAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multisig_signatures_admitted_total",
		Help: "Number of signatures admitted to proposals.",
	})

	// SignatureRejections counts rejected signing attempts by reason class.
	SignatureRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multisig_signature_rejections_total",
		Help: "Number of rejected signing attempts.",
	}, []string{"reason"})

	// Submissions counts submission pipeline outcomes.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multisig_submissions_total",
		Help: "Number of submission attempts by terminal outcome.",
	}, []string{"outcome"})

	// MonitorTicks counts validity monitor passes.
	MonitorTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multisig_monitor_ticks_total",
		Help: "Number of validity monitor passes.",
	})

	// ProposalsExpired counts proposals expired by the monitor.
	ProposalsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multisig_proposals_expired_total",
		Help: "Number of proposals expired by the validity monitor.",
	})

	// ProposalsInvalidated counts proposals invalidated after access-rule
	// drift.
	ProposalsInvalidated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "multisig_proposals_invalidated_total",
		Help: "Number of proposals invalidated by the validity monitor.",
	})

	// GatewayErrors counts failed gateway calls by operation.
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multisig_gateway_errors_total",
		Help: "Number of failed gateway calls.",
	}, []string{"operation"})
)
