// Copyright 2025 Multisig Orchestrator

package codec

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Key and signature sizes on the wire.
const (
	Ed25519PublicKeyLength   = ed25519.PublicKeySize
	Ed25519SignatureLength   = ed25519.SignatureSize
	Secp256k1SignatureLength = 65

	// KeyHashLength is the size of the ledger's public-key hash: the last 29
	// bytes of blake2b-256 over the raw public key. It doubles as the local
	// id of the signer's virtual signature badge.
	KeyHashLength = 29
)

// entityTypeVirtualEd25519Account is the node-id discriminator byte of
// accounts derived from an Ed25519 public key.
const entityTypeVirtualEd25519Account uint8 = 0xd1

// PublicKeyHash computes the ledger key hash of a raw Ed25519 public key.
func PublicKeyHash(publicKey []byte) ([]byte, error) {
	if len(publicKey) != Ed25519PublicKeyLength {
		return nil, fmt.Errorf("invalid Ed25519 public key length: %d (expected %d)", len(publicKey), Ed25519PublicKeyLength)
	}
	sum := blake2b.Sum256(publicKey)
	return sum[HashLength-KeyHashLength:], nil
}

// PublicKeyHashHex returns the lowercase hex form of PublicKeyHash, as it
// appears in virtual-badge local ids.
func PublicKeyHashHex(publicKey []byte) (string, error) {
	h, err := PublicKeyHash(publicKey)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h), nil
}

// VirtualAccountAddress derives the bech32m address of the virtual account
// controlled by an Ed25519 public key.
func VirtualAccountAddress(publicKey []byte, networkID uint8) (string, error) {
	keyHash, err := PublicKeyHash(publicKey)
	if err != nil {
		return "", err
	}
	nodeID := make([]byte, 0, 1+KeyHashLength)
	nodeID = append(nodeID, entityTypeVirtualEd25519Account)
	nodeID = append(nodeID, keyHash...)
	return EncodeAddress("account", networkID, nodeID)
}

// PrivateKeyFromHex parses a 32-byte Ed25519 private key seed from hex.
func PrivateKeyFromHex(privateKeyHex string) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid private key length: %d (expected %d)", len(seed), ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
