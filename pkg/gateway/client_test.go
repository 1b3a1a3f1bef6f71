// Copyright 2025 Multisig Orchestrator

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentEpoch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/status/gateway-status", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ledger_state": map[string]interface{}{"epoch": 12345, "state_version": 99},
		})
	}))
	defer srv.Close()

	epoch, err := NewClient(srv.URL).CurrentEpoch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), epoch)
}

func TestReadAccessRule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/state/entity/details", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []interface{}{"account_tdx_2_1test"}, req["addresses"])

		w.Write([]byte(`{
		  "items": [{
		    "details": {
		      "role_assignments": {
		        "owner": {
		          "updater": "Owner",
		          "rule": ` + multisigOwnerRuleJSON + `
		        }
		      }
		    }
		  }]
		}`))
	}))
	defer srv.Close()

	rule, err := NewClient(srv.URL).ReadAccessRule(context.Background(), "account_tdx_2_1test")
	require.NoError(t, err)
	assert.Equal(t, uint8(3), rule.Threshold)
	assert.Len(t, rule.Signers, 4)
	assert.True(t, rule.IsUpdatable)
}

func TestReadAccessRuleMissingDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ReadAccessRule(context.Background(), "account_tdx_2_1test")
	assert.Error(t, err)
}

func TestSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/submit", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "deadbeef", req["notarized_transaction_hex"])
		w.Write([]byte(`{"duplicate": true}`))
	}))
	defer srv.Close()

	duplicate, err := NewClient(srv.URL).Submit(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.True(t, duplicate)
}

func TestNon2xxSurfacesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CurrentEpoch(context.Background())
	require.Error(t, err)

	var gwErr *Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
	assert.Contains(t, gwErr.Body, "upstream exploded")
}

func TestPollCommitSuccessAfterPending(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.Write([]byte(`{"status": "Pending"}`))
			return
		}
		w.Write([]byte(`{"status": "CommittedSuccess"}`))
	}))
	defer srv.Close()

	status, err := NewClient(srv.URL).PollCommit(context.Background(), "txid_tdx_2_1abc", 10, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "CommittedSuccess", status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPollCommitFailureSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "CommittedFailure", "error_message": "assertion failed"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PollCommit(context.Background(), "txid_tdx_2_1abc", 10, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion failed")
}

func TestPollCommitRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "Rejected", "error_message": "intent expired"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PollCommit(context.Background(), "txid_tdx_2_1abc", 10, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected")
}

func TestPollCommitTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "Pending"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PollCommit(context.Background(), "txid_tdx_2_1abc", 3, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestPollCommitUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "Weird"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PollCommit(context.Background(), "txid_tdx_2_1abc", 3, time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected transaction status")
}

func TestPollCommitHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "Pending"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL).PollCommit(ctx, "txid_tdx_2_1abc", 10, time.Second)
	assert.Error(t, err)
}

func TestCommittedDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/committed-details", r.URL.Path)
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		optIns, ok := req["opt_ins"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, true, optIns["receipt_state_changes"])

		w.Write([]byte(`{
		  "transaction": {
		    "receipt": {
		      "status": "CommittedSuccess",
		      "state_updates": {
		        "new_global_entities": [
		          {"entity_type": "GlobalAccount", "entity_address": "account_tdx_2_1xyz"}
		        ]
		      }
		    }
		  }
		}`))
	}))
	defer srv.Close()

	details, err := NewClient(srv.URL).CommittedDetails(context.Background(), "txid_tdx_2_1abc")
	require.NoError(t, err)
	require.NotNil(t, details.Transaction.Receipt)
	require.NotNil(t, details.Transaction.Receipt.StateUpdates)
	entities := details.Transaction.Receipt.StateUpdates.NewGlobalEntities
	require.Len(t, entities, 1)
	assert.Equal(t, "GlobalAccount", entities[0].EntityType)
}
