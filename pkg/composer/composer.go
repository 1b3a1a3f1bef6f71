// Copyright 2025 Multisig Orchestrator

// Package composer reconstructs signed partial transactions from stored
// bytes and collected signatures, and wraps them into notarized transactions
// paying fees from the service account.
package composer

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/xstelea/multisig/pkg/codec"
)

// LockFeeAmount is the XRD amount locked for fees on every composed
// transaction.
// TODO: make this price-aware once the gateway exposes fee estimates.
const LockFeeAmount = "10"

// epochWindow is the validity width of the outer transaction, in epochs.
const epochWindow = 100

// childName keys the single signed child in the composed transaction.
const childName = "withdrawal"

// StoredSignature is a collected (public key, signature) pair as persisted
// by the signature store.
type StoredSignature struct {
	PublicKeyHex   string
	SignatureBytes []byte
}

// ComposedTransaction is a submittable notarized transaction.
type ComposedTransaction struct {
	// NotarizedTransactionHex is the hex-encoded wire transaction.
	NotarizedTransactionHex string
	// IntentHash is the bech32m transaction intent hash ("txid_...").
	IntentHash string
}

// ReconstructSignedPartial deserializes the canonical unsigned partial bytes
// stored at proposal creation and attaches the collected signatures as root
// sub-intent signatures. The intent body is untouched, so the sub-intent
// hash is exactly the one the signers signed.
func ReconstructSignedPartial(partialTransactionBytes []byte, signatures []StoredSignature) (*codec.SignedPartialTransaction, error) {
	sigs := make([]codec.SignatureWithPublicKey, 0, len(signatures))
	for _, s := range signatures {
		publicKey, err := hex.DecodeString(s.PublicKeyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid public key hex: %w", err)
		}
		if len(publicKey) != codec.Ed25519PublicKeyLength {
			return nil, fmt.Errorf("invalid Ed25519 public key length: %d (expected %d)", len(publicKey), codec.Ed25519PublicKeyLength)
		}
		if len(s.SignatureBytes) != codec.Ed25519SignatureLength {
			return nil, fmt.Errorf("invalid Ed25519 signature length: %d (expected %d)", len(s.SignatureBytes), codec.Ed25519SignatureLength)
		}
		sigs = append(sigs, codec.SignatureWithPublicKey{
			Kind:      codec.SignatureKindEd25519,
			PublicKey: publicKey,
			Signature: s.SignatureBytes,
		})
	}
	return codec.AppendSignatures(partialTransactionBytes, sigs)
}

// Composer builds notarized transactions notarized by the service's fee
// payer key. The key is loaded once at startup and read immutably.
type Composer struct {
	networkID       uint8
	feePayerKey     ed25519.PrivateKey
	feePayerAccount string
}

// New creates a composer from the fee payer's 32-byte private key hex. The
// fee payer account address is derived from the key.
func New(networkID uint8, feePayerPrivateKeyHex string) (*Composer, error) {
	key, err := codec.PrivateKeyFromHex(feePayerPrivateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid fee payer private key: %w", err)
	}
	account, err := codec.VirtualAccountAddress(key.Public().(ed25519.PublicKey), networkID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive fee payer account: %w", err)
	}
	return &Composer{
		networkID:       networkID,
		feePayerKey:     key,
		feePayerAccount: account,
	}, nil
}

// FeePayerAccount returns the derived fee payer account address.
func (c *Composer) FeePayerAccount() string {
	return c.feePayerAccount
}

// Compose wraps the signed child into a complete notarized transaction:
// the outer manifest locks the fee from the service account and yields into
// the child; the fee payer notarizes with notary_is_signatory set, so the
// notary signature also authorizes the lock_fee call.
func (c *Composer) Compose(currentEpoch uint64, child *codec.SignedPartialTransaction) (*ComposedTransaction, error) {
	discriminator, err := codec.RandomDiscriminator()
	if err != nil {
		return nil, err
	}
	return c.composeWithDiscriminator(currentEpoch, child, discriminator)
}

func (c *Composer) composeWithDiscriminator(currentEpoch uint64, child *codec.SignedPartialTransaction, discriminator uint64) (*ComposedTransaction, error) {
	manifest := codec.Manifest{
		NetworkID: c.networkID,
		Instructions: []codec.Instruction{
			codec.CallMethod(c.feePayerAccount, "lock_fee", codec.DecimalValue(LockFeeAmount)),
			codec.YieldToChild(childName),
		},
	}

	notarized, hash, err := codec.ComposeNotarized(
		[]codec.ChildSubintent{{Name: childName, Signed: *child}},
		codec.TransactionHeader{
			NotaryPublicKey:   c.feePayerKey.Public().(ed25519.PublicKey),
			NotaryIsSignatory: true,
			TipBasisPoints:    0,
		},
		codec.IntentHeader{
			NetworkID:           c.networkID,
			StartEpochInclusive: currentEpoch,
			EndEpochExclusive:   currentEpoch + epochWindow,
			IntentDiscriminator: discriminator,
		},
		manifest,
		c.feePayerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compose notarized transaction: %w", err)
	}

	intentHash, err := codec.TransactionIntentHashBech32(hash, c.networkID)
	if err != nil {
		return nil, err
	}

	return &ComposedTransaction{
		NotarizedTransactionHex: hex.EncodeToString(notarized.Encode()),
		IntentHash:              intentHash,
	}, nil
}
