// Copyright 2025 Multisig Orchestrator

// Package gateway implements the HTTP/JSON client for the ledger gateway:
// epoch reads, role-assignment reads, transaction submission and status
// polling, and committed-details lookups.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// Polling defaults for transaction commitment.
const (
	DefaultPollAttempts = 60
	DefaultPollInterval = 2 * time.Second
)

// Error is a non-2xx gateway response, carrying the status code and body
// text for diagnosis.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Body)
}

// Client is a shareable gateway API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *log.Logger
}

// NewClient creates a gateway client with a 30-second request timeout.
func NewClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		logger:     log.New(log.Writer(), "[Gateway] ", log.LstdFlags),
	}
}

// post issues a JSON POST and decodes the JSON response. A nil reqBody sends
// an empty JSON object. Non-2xx responses surface as *Error.
func (c *Client) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	if reqBody == nil {
		reqBody = struct{}{}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(body, respBody); err != nil {
		return fmt.Errorf("failed to parse gateway response from %s: %w", path, err)
	}
	return nil
}

// --- gateway wire types ---

type gatewayStatusResponse struct {
	LedgerState struct {
		Epoch        uint64 `json:"epoch"`
		StateVersion uint64 `json:"state_version"`
	} `json:"ledger_state"`
}

type entityDetailsRequest struct {
	Addresses []string `json:"addresses"`
}

type entityDetailsResponse struct {
	Items []struct {
		Details *struct {
			RoleAssignments *struct {
				Owner *struct {
					Rule    json.RawMessage `json:"rule"`
					Updater *string         `json:"updater"`
				} `json:"owner"`
			} `json:"role_assignments"`
		} `json:"details"`
	} `json:"items"`
}

type submitRequest struct {
	NotarizedTransactionHex string `json:"notarized_transaction_hex"`
}

type submitResponse struct {
	Duplicate bool `json:"duplicate"`
}

type statusRequest struct {
	IntentHash string `json:"intent_hash"`
}

// TransactionStatus is the gateway's view of a submitted transaction.
type TransactionStatus struct {
	Status       string  `json:"status"`
	ErrorMessage *string `json:"error_message,omitempty"`
}

type committedDetailsRequest struct {
	IntentHash string `json:"intent_hash"`
	OptIns     struct {
		ReceiptStateChanges bool `json:"receipt_state_changes"`
	} `json:"opt_ins"`
}

// NewGlobalEntity is an entity created by a committed transaction.
type NewGlobalEntity struct {
	EntityType    string `json:"entity_type"`
	EntityAddress string `json:"entity_address"`
}

// CommittedDetails is the receipt-level view of a committed transaction.
type CommittedDetails struct {
	Transaction struct {
		Receipt *struct {
			Status       string `json:"status"`
			StateUpdates *struct {
				NewGlobalEntities []NewGlobalEntity `json:"new_global_entities"`
			} `json:"state_updates"`
		} `json:"receipt"`
	} `json:"transaction"`
}

// --- operations ---

// CurrentEpoch reads the ledger's current epoch.
func (c *Client) CurrentEpoch(ctx context.Context) (uint64, error) {
	var resp gatewayStatusResponse
	if err := c.post(ctx, "/status/gateway-status", nil, &resp); err != nil {
		return 0, err
	}
	return resp.LedgerState.Epoch, nil
}

// ReadAccessRule reads and parses the owner access rule of an account.
func (c *Client) ReadAccessRule(ctx context.Context, accountAddress string) (*AccessRule, error) {
	var resp entityDetailsResponse
	req := entityDetailsRequest{Addresses: []string{accountAddress}}
	if err := c.post(ctx, "/state/entity/details", req, &resp); err != nil {
		return nil, err
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("no items in entity details response for %s", accountAddress)
	}
	item := resp.Items[0]
	if item.Details == nil {
		return nil, fmt.Errorf("no details in entity response for %s", accountAddress)
	}
	if item.Details.RoleAssignments == nil {
		return nil, fmt.Errorf("no role_assignments in entity details for %s", accountAddress)
	}
	owner := item.Details.RoleAssignments.Owner
	if owner == nil {
		return nil, fmt.Errorf("no owner role in role_assignments for %s", accountAddress)
	}

	rule, err := ParseOwnerRule(owner.Rule)
	if err != nil {
		return nil, err
	}
	rule.IsUpdatable = owner.Updater != nil && *owner.Updater == "Owner"
	return rule, nil
}

// Submit sends a notarized transaction. Returns whether the gateway had
// already seen it.
func (c *Client) Submit(ctx context.Context, notarizedTransactionHex string) (bool, error) {
	var resp submitResponse
	req := submitRequest{NotarizedTransactionHex: notarizedTransactionHex}
	if err := c.post(ctx, "/transaction/submit", req, &resp); err != nil {
		return false, err
	}
	return resp.Duplicate, nil
}

// Status reads the status of a transaction by its bech32m intent hash.
func (c *Client) Status(ctx context.Context, intentHash string) (*TransactionStatus, error) {
	var resp TransactionStatus
	if err := c.post(ctx, "/transaction/status", statusRequest{IntentHash: intentHash}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CommittedDetails reads the receipt and state updates of a committed
// transaction.
func (c *Client) CommittedDetails(ctx context.Context, intentHash string) (*CommittedDetails, error) {
	var resp CommittedDetails
	req := committedDetailsRequest{IntentHash: intentHash}
	req.OptIns.ReceiptStateChanges = true
	if err := c.post(ctx, "/transaction/committed-details", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PollCommit polls transaction status until a terminal outcome or attempt
// exhaustion. "CommittedSuccess" returns nil error; "CommittedFailure" and
// "Rejected" return the gateway's error message; "Pending"/"Unknown" retry
// after the interval.
func (c *Client) PollCommit(ctx context.Context, intentHash string, maxAttempts int, interval time.Duration) (string, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		status, err := c.Status(ctx, intentHash)
		if err != nil {
			return "", err
		}

		switch status.Status {
		case "CommittedSuccess":
			return status.Status, nil
		case "CommittedFailure":
			return status.Status, fmt.Errorf("transaction failed: %s", derefString(status.ErrorMessage))
		case "Rejected":
			return status.Status, fmt.Errorf("transaction rejected: %s", derefString(status.ErrorMessage))
		case "Pending", "Unknown":
			if attempt < maxAttempts-1 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(interval):
				}
			}
		default:
			return status.Status, fmt.Errorf("unexpected transaction status: %s", status.Status)
		}
	}
	return "", fmt.Errorf("timeout waiting for commit of %s after %d attempts", intentHash, maxAttempts)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
