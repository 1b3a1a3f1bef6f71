// Copyright 2025 Multisig Orchestrator

package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Key types as reported per signer badge.
const (
	KeyTypeEd25519   = "EddsaEd25519"
	KeyTypeSecp256k1 = "EcdsaSecp256k1"
	KeyTypeUnknown   = "Unknown"
)

// SignerInfo is one signer extracted from the access rule.
type SignerInfo struct {
	// KeyHash is the hex public-key hash from the NonFungible local id.
	KeyHash string `json:"key_hash"`
	// KeyType is "EddsaEd25519", "EcdsaSecp256k1", or "Unknown" when the
	// badge resource matches neither scheme.
	KeyType string `json:"key_type"`
	// BadgeResource is the virtual-badge resource address.
	BadgeResource string `json:"badge_resource"`
	// BadgeLocalID is the full local id simple representation, e.g.
	// "[a0c2219f...]".
	BadgeLocalID string `json:"badge_local_id"`
}

// AccessRule is the parsed owner policy of an account: a threshold and the
// signer badges that count toward it.
type AccessRule struct {
	Signers     []SignerInfo `json:"signers"`
	Threshold   uint8        `json:"threshold"`
	IsUpdatable bool         `json:"is_updatable"`
}

// FindSigner returns the signer with the given key hash, or nil.
func (r *AccessRule) FindSigner(keyHash string) *SignerInfo {
	for i := range r.Signers {
		if r.Signers[i].KeyHash == keyHash {
			return &r.Signers[i]
		}
	}
	return nil
}

// IsMultisig reports whether the rule needs coordination: more than one
// signer, or a threshold above one.
func (r *AccessRule) IsMultisig() bool {
	return r.Threshold > 1 || len(r.Signers) > 1
}

// SignerKeyHashes returns the set of key hashes currently in the rule.
func (r *AccessRule) SignerKeyHashes() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Signers))
	for _, s := range r.Signers {
		out[s.KeyHash] = struct{}{}
	}
	return out
}

// --- owner rule JSON shapes ---

type ownerRuleJSON struct {
	Type       string `json:"type"`
	AccessRule struct {
		Type      string          `json:"type"`
		ProofRule json.RawMessage `json:"proof_rule"`
	} `json:"access_rule"`
}

type proofRuleJSON struct {
	Type        string            `json:"type"`
	Count       *uint8            `json:"count"`
	List        []json.RawMessage `json:"list"`
	Requirement json.RawMessage   `json:"requirement"`
}

type requirementJSON struct {
	Type        string `json:"type"`
	NonFungible struct {
		LocalID struct {
			SimpleRep string `json:"simple_rep"`
		} `json:"local_id"`
		ResourceAddress string `json:"resource_address"`
	} `json:"non_fungible"`
}

// ParseOwnerRule decodes the gateway's owner rule JSON into a typed
// AccessRule. Unknown rule shapes are hard errors.
func ParseOwnerRule(rule json.RawMessage) (*AccessRule, error) {
	var outer ownerRuleJSON
	if err := json.Unmarshal(rule, &outer); err != nil {
		return nil, fmt.Errorf("failed to parse owner rule: %w", err)
	}

	switch outer.Type {
	case "Protected":
		return parseProofRule(outer.AccessRule.ProofRule)
	case "AllowAll":
		return &AccessRule{Signers: nil, Threshold: 0}, nil
	case "DenyAll":
		return nil, fmt.Errorf("account has a DenyAll access rule and cannot be operated")
	case "":
		return nil, fmt.Errorf("missing 'type' in owner rule")
	default:
		return nil, fmt.Errorf("unsupported owner rule type: %s", outer.Type)
	}
}

func parseProofRule(raw json.RawMessage) (*AccessRule, error) {
	var rule proofRuleJSON
	if err := json.Unmarshal(raw, &rule); err != nil {
		return nil, fmt.Errorf("failed to parse proof rule: %w", err)
	}

	switch rule.Type {
	case "CountOf":
		if rule.Count == nil {
			return nil, fmt.Errorf("missing 'count' in CountOf rule")
		}
		signers, err := parseRequirements(rule.List)
		if err != nil {
			return nil, err
		}
		return &AccessRule{Signers: signers, Threshold: *rule.Count}, nil

	case "Require":
		if len(rule.Requirement) == 0 {
			return nil, fmt.Errorf("missing 'requirement' in Require rule")
		}
		signer, err := parseRequirement(rule.Requirement)
		if err != nil {
			return nil, err
		}
		return &AccessRule{Signers: []SignerInfo{signer}, Threshold: 1}, nil

	case "AllOf":
		signers, err := parseRequirements(rule.List)
		if err != nil {
			return nil, err
		}
		return &AccessRule{Signers: signers, Threshold: uint8(len(signers))}, nil

	case "AnyOf":
		signers, err := parseRequirements(rule.List)
		if err != nil {
			return nil, err
		}
		return &AccessRule{Signers: signers, Threshold: 1}, nil

	case "":
		return nil, fmt.Errorf("missing 'type' in proof rule")
	default:
		return nil, fmt.Errorf("unsupported proof rule type: %s", rule.Type)
	}
}

func parseRequirements(list []json.RawMessage) ([]SignerInfo, error) {
	if list == nil {
		return nil, fmt.Errorf("missing 'list' in proof rule")
	}
	signers := make([]SignerInfo, 0, len(list))
	for _, raw := range list {
		signer, err := parseRequirement(raw)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

func parseRequirement(raw json.RawMessage) (SignerInfo, error) {
	var req requirementJSON
	if err := json.Unmarshal(raw, &req); err != nil {
		return SignerInfo{}, fmt.Errorf("failed to parse requirement: %w", err)
	}
	if req.Type != "NonFungible" {
		return SignerInfo{}, fmt.Errorf("expected NonFungible requirement, got: %s", req.Type)
	}

	simpleRep := req.NonFungible.LocalID.SimpleRep
	if simpleRep == "" {
		return SignerInfo{}, fmt.Errorf("missing simple_rep in NonFungible local_id")
	}
	resource := req.NonFungible.ResourceAddress
	if resource == "" {
		return SignerInfo{}, fmt.Errorf("missing resource_address in NonFungible requirement")
	}

	// The local id carries the key hash in bracket syntax: "[a0c2...]".
	keyHash := strings.TrimSuffix(strings.TrimPrefix(simpleRep, "["), "]")

	// The badge resource address identifies the key scheme.
	keyType := KeyTypeUnknown
	switch {
	case strings.Contains(resource, "ed25sg"):
		keyType = KeyTypeEd25519
	case strings.Contains(resource, "secpsg"):
		keyType = KeyTypeSecp256k1
	}

	return SignerInfo{
		KeyHash:       keyHash,
		KeyType:       keyType,
		BadgeResource: resource,
		BadgeLocalID:  simpleRep,
	}, nil
}
