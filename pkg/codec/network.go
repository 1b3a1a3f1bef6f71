// Copyright 2025 Multisig Orchestrator

package codec

import "fmt"

// Network identifiers as they appear in intent headers.
const (
	NetworkMainnet   uint8 = 0x01
	NetworkStokenet  uint8 = 0x02
	NetworkSimulator uint8 = 0xf2
)

// hrpSuffix returns the network-specific human-readable-part suffix used by
// all bech32m encodings on that network (addresses and transaction hashes).
// Mainnet addresses look like "account_rdx1...", stokenet "account_tdx_2_1...".
func hrpSuffix(networkID uint8) (string, error) {
	switch networkID {
	case NetworkMainnet:
		return "rdx", nil
	case NetworkStokenet:
		return "tdx_2_", nil
	case NetworkSimulator:
		return "sim", nil
	default:
		return "", fmt.Errorf("unsupported network ID: %d", networkID)
	}
}

// AccountHRP returns the full bech32 HRP for account addresses on a network.
func AccountHRP(networkID uint8) (string, error) {
	suffix, err := hrpSuffix(networkID)
	if err != nil {
		return "", err
	}
	return "account_" + suffix, nil
}
