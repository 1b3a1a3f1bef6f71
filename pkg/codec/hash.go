// Copyright 2025 Multisig Orchestrator

package codec

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

// HashLength is the length of all payload hashes.
const HashLength = 32

// Hash is a 32-byte blake2b payload hash.
type Hash [HashLength]byte

// Payload kind discriminators, mixed into every payload hash so that a
// sub-intent hash can never collide with a transaction-intent hash over the
// same body bytes.
const (
	payloadKindTransactionIntent    uint8 = 0x01
	payloadKindNotarizedTransaction uint8 = 0x03
	payloadKindSubintent            uint8 = 0x0a
)

// payloadHashPrefix precedes the kind byte in every hash input.
var payloadHashPrefix = []byte{0x54, 0x58} // "TX"

func hashPayload(kind uint8, body []byte) Hash {
	h, _ := blake2b.New256(nil)
	h.Write(payloadHashPrefix)
	h.Write([]byte{kind})
	h.Write(body)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// SubintentHashBech32 encodes a sub-intent hash with the network's
// "subtxid_" HRP, e.g. "subtxid_tdx_2_1...".
func SubintentHashBech32(h Hash, networkID uint8) (string, error) {
	return encodeTransactionHash("subtxid", networkID, h)
}

// TransactionIntentHashBech32 encodes a transaction intent hash with the
// network's "txid_" HRP, e.g. "txid_rdx1...".
func TransactionIntentHashBech32(h Hash, networkID uint8) (string, error) {
	return encodeTransactionHash("txid", networkID, h)
}

func encodeTransactionHash(kind string, networkID uint8, h Hash) (string, error) {
	suffix, err := hrpSuffix(networkID)
	if err != nil {
		return "", err
	}
	data5, err := bech32.ConvertBits(h[:], 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert hash bits: %w", err)
	}
	encoded, err := bech32.EncodeM(kind+"_"+suffix, data5)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s hash: %w", kind, err)
	}
	return encoded, nil
}
