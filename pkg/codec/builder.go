// Copyright 2025 Multisig Orchestrator

package codec

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// MaxIntentDiscriminator bounds discriminators to 53 bits. Wallets relay the
// discriminator as a JSON number and lose precision above 2^53.
const MaxIntentDiscriminator = uint64(1) << 53

// proposerWindowSeconds is the width of the proposer timestamp window
// embedded in every sub-intent header.
const proposerWindowSeconds = 86_400

// SubintentResult is the output of building a canonical unsigned sub-intent.
type SubintentResult struct {
	// SubintentHash is the bech32m-encoded hash ("subtxid_...").
	SubintentHash string
	// SubintentHashBytes is the raw 32-byte hash.
	SubintentHashBytes  Hash
	IntentDiscriminator uint64
	// Proposer timestamp window, seconds since the Unix epoch.
	MinProposerTimestamp int64
	MaxProposerTimestamp int64
	// PartialTransactionBytes is the canonical serialization of the unsigned
	// partial transaction, stored verbatim and later re-signed.
	PartialTransactionBytes []byte
}

// BuildUnsignedSubintent compiles manifest text and wraps it in a canonical
// unsigned partial transaction with a fresh random discriminator and a
// 24-hour proposer timestamp window anchored at now.
func BuildUnsignedSubintent(manifestText string, networkID uint8, epochMin, epochMax uint64) (*SubintentResult, error) {
	discriminator, err := RandomDiscriminator()
	if err != nil {
		return nil, err
	}
	now := time.Now().Unix()
	return BuildUnsignedSubintentAt(manifestText, networkID, epochMin, epochMax, discriminator, now, now+proposerWindowSeconds)
}

// BuildUnsignedSubintentAt is the deterministic core of the builder: every
// header byte is driven by its arguments, never by wall-clock reads, so two
// processes given the same inputs produce bit-identical bytes and hash.
func BuildUnsignedSubintentAt(manifestText string, networkID uint8, epochMin, epochMax, discriminator uint64, minTimestamp, maxTimestamp int64) (*SubintentResult, error) {
	if epochMax <= epochMin {
		return nil, fmt.Errorf("epoch_max (%d) must be greater than epoch_min (%d)", epochMax, epochMin)
	}
	if discriminator >= MaxIntentDiscriminator {
		return nil, fmt.Errorf("intent discriminator %d exceeds the 53-bit wallet limit", discriminator)
	}

	manifest, err := CompileSubintentManifest(manifestText, networkID)
	if err != nil {
		return nil, err
	}

	minTS := minTimestamp
	maxTS := maxTimestamp
	sp := &SignedPartialTransaction{
		Partial: PartialTransaction{
			Root: Subintent{
				Header: IntentHeader{
					NetworkID:                     networkID,
					StartEpochInclusive:           epochMin,
					EndEpochExclusive:             epochMax,
					IntentDiscriminator:           discriminator,
					MinProposerTimestampInclusive: &minTS,
					MaxProposerTimestampExclusive: &maxTS,
				},
				Manifest: *manifest,
			},
		},
	}

	hash := sp.SubintentHash()
	encoded, err := SubintentHashBech32(hash, networkID)
	if err != nil {
		return nil, err
	}

	return &SubintentResult{
		SubintentHash:           encoded,
		SubintentHashBytes:      hash,
		IntentDiscriminator:     discriminator,
		MinProposerTimestamp:    minTS,
		MaxProposerTimestamp:    maxTS,
		PartialTransactionBytes: sp.Encode(),
	}, nil
}

// RandomDiscriminator draws a discriminator uniformly from [0, 2^53).
func RandomDiscriminator() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to draw discriminator: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]) & (MaxIntentDiscriminator - 1), nil
}
