// Copyright 2025 Multisig Orchestrator

package codec

import (
	"fmt"
)

// IntentHeader carries the validity constraints and replay nonce of an
// intent. Every field is serialized: two independently-built intents with the
// same manifest and header are byte-identical, which is what lets signers
// re-derive the exact sub-intent hash offline.
type IntentHeader struct {
	NetworkID           uint8
	StartEpochInclusive uint64
	EndEpochExclusive   uint64
	IntentDiscriminator uint64

	// Proposer timestamp window, seconds since the Unix epoch. Optional on
	// the wire; the orchestrator always sets both.
	MinProposerTimestampInclusive *int64
	MaxProposerTimestampExclusive *int64
}

func (h *IntentHeader) encode(w *writer) {
	w.u8(h.NetworkID)
	w.u64(h.StartEpochInclusive)
	w.u64(h.EndEpochExclusive)
	w.u64(h.IntentDiscriminator)
	w.optI64(h.MinProposerTimestampInclusive)
	w.optI64(h.MaxProposerTimestampExclusive)
}

func decodeIntentHeader(r *reader) IntentHeader {
	var h IntentHeader
	h.NetworkID = r.u8()
	h.StartEpochInclusive = r.u64()
	h.EndEpochExclusive = r.u64()
	h.IntentDiscriminator = r.u64()
	h.MinProposerTimestampInclusive = r.optI64()
	h.MaxProposerTimestampExclusive = r.optI64()
	return h
}

// Subintent is a self-contained transaction fragment: header plus manifest.
// Its hash is the value signers sign over.
type Subintent struct {
	Header   IntentHeader
	Manifest Manifest
}

func (s *Subintent) encode(w *writer) {
	s.Header.encode(w)
	s.Manifest.encode(w)
}

func decodeSubintent(r *reader) Subintent {
	var s Subintent
	s.Header = decodeIntentHeader(r)
	s.Manifest = decodeManifest(r)
	return s
}

// Hash computes the sub-intent hash over the canonical encoding.
func (s *Subintent) Hash() Hash {
	var w writer
	s.encode(&w)
	return hashPayload(payloadKindSubintent, w.result())
}

// PartialTransaction is a root sub-intent together with any non-root
// sub-intents it depends on. This service only ever builds flat partials
// (no non-root children), but the wire format carries them for parity with
// wallet-produced payloads.
type PartialTransaction struct {
	Root              Subintent
	NonRootSubintents []Subintent
}

func (p *PartialTransaction) encode(w *writer) {
	p.Root.encode(w)
	w.u32(uint32(len(p.NonRootSubintents)))
	for i := range p.NonRootSubintents {
		p.NonRootSubintents[i].encode(w)
	}
}

func decodePartialTransaction(r *reader) PartialTransaction {
	var p PartialTransaction
	p.Root = decodeSubintent(r)
	n := r.u32()
	for i := uint32(0); i < n && r.err() == nil; i++ {
		p.NonRootSubintents = append(p.NonRootSubintents, decodeSubintent(r))
	}
	return p
}

// SignatureKind discriminates the signature scheme on the wire.
type SignatureKind uint8

const (
	SignatureKindEd25519   SignatureKind = 0x00
	SignatureKindSecp256k1 SignatureKind = 0x01
)

func (k SignatureKind) String() string {
	switch k {
	case SignatureKindEd25519:
		return "Ed25519"
	case SignatureKindSecp256k1:
		return "Secp256k1"
	default:
		return fmt.Sprintf("SignatureKind(0x%02x)", uint8(k))
	}
}

// SignatureWithPublicKey is one intent signature. Ed25519 signatures carry
// the public key alongside the signature; Secp256k1 signatures are
// recoverable and carry only the 65-byte signature.
type SignatureWithPublicKey struct {
	Kind      SignatureKind
	PublicKey []byte
	Signature []byte
}

func (s *SignatureWithPublicKey) encode(w *writer) {
	w.u8(uint8(s.Kind))
	switch s.Kind {
	case SignatureKindEd25519:
		w.bytes(s.PublicKey)
		w.bytes(s.Signature)
	case SignatureKindSecp256k1:
		w.bytes(s.Signature)
	}
}

func decodeSignatureWithPublicKey(r *reader) SignatureWithPublicKey {
	var s SignatureWithPublicKey
	s.Kind = SignatureKind(r.u8())
	switch s.Kind {
	case SignatureKindEd25519:
		s.PublicKey = r.bytes()
		s.Signature = r.bytes()
	case SignatureKindSecp256k1:
		s.Signature = r.bytes()
	default:
		r.fail("unknown signature kind 0x%02x", uint8(s.Kind))
	}
	return s
}

// validate checks wire lengths for the scheme.
func (s *SignatureWithPublicKey) validate() error {
	switch s.Kind {
	case SignatureKindEd25519:
		if len(s.PublicKey) != Ed25519PublicKeyLength {
			return fmt.Errorf("invalid Ed25519 public key length: %d (expected %d)", len(s.PublicKey), Ed25519PublicKeyLength)
		}
		if len(s.Signature) != Ed25519SignatureLength {
			return fmt.Errorf("invalid Ed25519 signature length: %d (expected %d)", len(s.Signature), Ed25519SignatureLength)
		}
	case SignatureKindSecp256k1:
		if len(s.Signature) != Secp256k1SignatureLength {
			return fmt.Errorf("invalid Secp256k1 signature length: %d (expected %d)", len(s.Signature), Secp256k1SignatureLength)
		}
	default:
		return fmt.Errorf("unknown signature kind 0x%02x", uint8(s.Kind))
	}
	return nil
}

// SignedPartialTransaction is a partial transaction with the signatures
// collected over its root sub-intent. The unsigned form is the same payload
// with an empty signature list; both serialize through Encode.
type SignedPartialTransaction struct {
	Partial           PartialTransaction
	RootSignatures    []SignatureWithPublicKey
	NonRootSignatures [][]SignatureWithPublicKey
}

// Encode produces the canonical byte serialization.
func (sp *SignedPartialTransaction) Encode() []byte {
	var w writer
	sp.Partial.encode(&w)
	w.u32(uint32(len(sp.RootSignatures)))
	for i := range sp.RootSignatures {
		sp.RootSignatures[i].encode(&w)
	}
	w.u32(uint32(len(sp.NonRootSignatures)))
	for _, sigs := range sp.NonRootSignatures {
		w.u32(uint32(len(sigs)))
		for i := range sigs {
			sigs[i].encode(&w)
		}
	}
	return w.result()
}

// DecodeSignedPartialTransaction parses wire bytes produced by Encode (or by
// a wallet implementing the same format).
func DecodeSignedPartialTransaction(data []byte) (*SignedPartialTransaction, error) {
	r := newReader(data)
	var sp SignedPartialTransaction
	sp.Partial = decodePartialTransaction(r)
	n := r.u32()
	for i := uint32(0); i < n && r.err() == nil; i++ {
		sp.RootSignatures = append(sp.RootSignatures, decodeSignatureWithPublicKey(r))
	}
	groups := r.u32()
	for g := uint32(0); g < groups && r.err() == nil; g++ {
		count := r.u32()
		var sigs []SignatureWithPublicKey
		for i := uint32(0); i < count && r.err() == nil; i++ {
			sigs = append(sigs, decodeSignatureWithPublicKey(r))
		}
		sp.NonRootSignatures = append(sp.NonRootSignatures, sigs)
	}
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("failed to decode signed partial transaction: %w", err)
	}
	return &sp, nil
}

// SubintentHash re-derives the root sub-intent hash from the decoded payload.
// Signatures do not contribute: the hash covers only header and manifest.
func (sp *SignedPartialTransaction) SubintentHash() Hash {
	return sp.Partial.Root.Hash()
}

// ExtractFirstSignature returns the first root sub-intent signature. Wallets
// return exactly one; an empty signature set is an error.
func (sp *SignedPartialTransaction) ExtractFirstSignature() (SignatureWithPublicKey, error) {
	if len(sp.RootSignatures) == 0 {
		return SignatureWithPublicKey{}, fmt.Errorf("signed partial transaction has no signatures")
	}
	sig := sp.RootSignatures[0]
	if err := sig.validate(); err != nil {
		return SignatureWithPublicKey{}, err
	}
	return sig, nil
}

// AppendSignatures attaches root sub-intent signatures to stored unsigned
// partial-transaction bytes without re-serializing the intent body, so the
// sub-intent hash is unchanged.
func AppendSignatures(partialTransactionBytes []byte, signatures []SignatureWithPublicKey) (*SignedPartialTransaction, error) {
	sp, err := DecodeSignedPartialTransaction(partialTransactionBytes)
	if err != nil {
		return nil, err
	}
	for i := range signatures {
		if err := signatures[i].validate(); err != nil {
			return nil, err
		}
	}
	sp.RootSignatures = append([]SignatureWithPublicKey(nil), signatures...)
	return sp, nil
}
