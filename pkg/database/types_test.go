// Copyright 2025 Multisig Orchestrator

package database

import "testing"

func TestValidStateTransitions(t *testing.T) {
	valid := []struct{ from, to ProposalStatus }{
		{StatusCreated, StatusSigning},
		{StatusSigning, StatusReady},
		{StatusReady, StatusSubmitting},
		{StatusSubmitting, StatusCommitted},
		{StatusSubmitting, StatusFailed},
		{StatusCreated, StatusExpired},
		{StatusSigning, StatusExpired},
		{StatusReady, StatusExpired},
		{StatusCreated, StatusInvalid},
		{StatusSigning, StatusInvalid},
		{StatusReady, StatusInvalid},
	}
	for _, tc := range valid {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}
}

func TestRejectedStateTransitions(t *testing.T) {
	invalid := []struct{ from, to ProposalStatus }{
		{StatusCreated, StatusReady},
		{StatusCreated, StatusCommitted},
		{StatusCreated, StatusSubmitting},
		{StatusSigning, StatusSubmitting},
		{StatusSigning, StatusCommitted},
		{StatusReady, StatusCommitted},
		{StatusSubmitting, StatusSigning},
		{StatusSubmitting, StatusExpired},
		{StatusSubmitting, StatusInvalid},
		{StatusCommitted, StatusCreated},
		{StatusCommitted, StatusFailed},
		{StatusFailed, StatusSigning},
		{StatusExpired, StatusCreated},
		{StatusInvalid, StatusSigning},
	}
	for _, tc := range invalid {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	terminals := []ProposalStatus{StatusCommitted, StatusFailed, StatusExpired, StatusInvalid}
	all := []ProposalStatus{
		StatusCreated, StatusSigning, StatusReady, StatusSubmitting,
		StatusCommitted, StatusFailed, StatusExpired, StatusInvalid,
	}
	for _, from := range terminals {
		for _, to := range all {
			if from.CanTransitionTo(to) {
				t.Errorf("terminal %s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestIsActive(t *testing.T) {
	active := []ProposalStatus{StatusCreated, StatusSigning, StatusReady}
	for _, s := range active {
		if !s.IsActive() {
			t.Errorf("%s should be active", s)
		}
	}
	inactive := []ProposalStatus{StatusSubmitting, StatusCommitted, StatusFailed, StatusExpired, StatusInvalid}
	for _, s := range inactive {
		if s.IsActive() {
			t.Errorf("%s should not be active", s)
		}
	}
}
