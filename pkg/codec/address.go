// Copyright 2025 Multisig Orchestrator

package codec

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Address is a decoded global address: the bech32 HRP and the raw node id
// bytes. The HRP's leading segment identifies the entity family ("account",
// "resource", "component", ...) and its trailing segment the network.
type Address struct {
	HRP  string
	Data []byte
}

// ParseAddress decodes a bech32m global address and verifies it belongs to
// the given network.
func ParseAddress(s string, networkID uint8) (Address, error) {
	hrp, data5, version, err := bech32.DecodeGeneric(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if version != bech32.VersionM {
		return Address{}, fmt.Errorf("invalid address %q: not bech32m", s)
	}
	data, err := bech32.ConvertBits(data5, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	suffix, err := hrpSuffix(networkID)
	if err != nil {
		return Address{}, err
	}
	if !strings.HasSuffix(hrp, suffix) {
		return Address{}, fmt.Errorf("address %q does not belong to network %d (HRP %q)", s, networkID, hrp)
	}
	return Address{HRP: hrp, Data: data}, nil
}

// IsGlobalAccount reports whether the address is a global account entity.
func (a Address) IsGlobalAccount() bool {
	return strings.HasPrefix(a.HRP, "account_")
}

// EncodeAddress bech32m-encodes raw node id bytes under an entity family
// prefix, e.g. EncodeAddress("account", NetworkStokenet, data) ->
// "account_tdx_2_1...".
func EncodeAddress(family string, networkID uint8, data []byte) (string, error) {
	suffix, err := hrpSuffix(networkID)
	if err != nil {
		return "", err
	}
	data5, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	encoded, err := bech32.EncodeM(family+"_"+suffix, data5)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return encoded, nil
}
