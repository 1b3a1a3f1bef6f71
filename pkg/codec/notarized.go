// Copyright 2025 Multisig Orchestrator

package codec

import (
	"crypto/ed25519"
	"fmt"
)

// TransactionHeader carries the notary terms of a complete transaction.
type TransactionHeader struct {
	NotaryPublicKey []byte
	// NotaryIsSignatory makes the notary signature double as an intent
	// signature, authorizing methods guarded by the notary's virtual badge.
	NotaryIsSignatory bool
	TipBasisPoints    uint32
}

func (h *TransactionHeader) encode(w *writer) {
	w.bytes(h.NotaryPublicKey)
	w.boolean(h.NotaryIsSignatory)
	w.u32(h.TipBasisPoints)
}

func decodeTransactionHeader(r *reader) TransactionHeader {
	var h TransactionHeader
	h.NotaryPublicKey = r.bytes()
	h.NotaryIsSignatory = r.boolean()
	h.TipBasisPoints = r.u32()
	return h
}

// ChildSubintent is a named signed partial included in a transaction intent.
// The outer manifest yields into children by name.
type ChildSubintent struct {
	Name   string
	Signed SignedPartialTransaction
}

// TransactionIntent is the root intent of a complete transaction: notary
// terms, validity header, the outer manifest, and the signed children it
// yields into.
type TransactionIntent struct {
	TransactionHeader TransactionHeader
	IntentHeader      IntentHeader
	Manifest          Manifest
	Children          []ChildSubintent
}

func (ti *TransactionIntent) encode(w *writer) {
	ti.TransactionHeader.encode(w)
	ti.IntentHeader.encode(w)
	ti.Manifest.encode(w)
	w.u32(uint32(len(ti.Children)))
	for i := range ti.Children {
		w.str(ti.Children[i].Name)
		w.bytes(ti.Children[i].Signed.Encode())
	}
}

func decodeTransactionIntent(r *reader) (TransactionIntent, error) {
	var ti TransactionIntent
	ti.TransactionHeader = decodeTransactionHeader(r)
	ti.IntentHeader = decodeIntentHeader(r)
	ti.Manifest = decodeManifest(r)
	n := r.u32()
	for i := uint32(0); i < n && r.err() == nil; i++ {
		name := r.str()
		raw := r.bytes()
		if r.err() != nil {
			break
		}
		signed, err := DecodeSignedPartialTransaction(raw)
		if err != nil {
			return ti, fmt.Errorf("child %q: %w", name, err)
		}
		ti.Children = append(ti.Children, ChildSubintent{Name: name, Signed: *signed})
	}
	return ti, nil
}

// Hash computes the transaction intent hash. This is the value reported as
// tx_id ("txid_...") and the value the notary signs.
func (ti *TransactionIntent) Hash() Hash {
	var w writer
	ti.encode(&w)
	return hashPayload(payloadKindTransactionIntent, w.result())
}

// NotarizedTransaction is the complete submittable transaction.
type NotarizedTransaction struct {
	Intent           TransactionIntent
	IntentSignatures []SignatureWithPublicKey
	NotarySignature  []byte
}

// Encode produces the submittable wire bytes.
func (nt *NotarizedTransaction) Encode() []byte {
	var w writer
	nt.Intent.encode(&w)
	w.u32(uint32(len(nt.IntentSignatures)))
	for i := range nt.IntentSignatures {
		nt.IntentSignatures[i].encode(&w)
	}
	w.bytes(nt.NotarySignature)
	return w.result()
}

// DecodeNotarizedTransaction parses wire bytes produced by Encode.
func DecodeNotarizedTransaction(data []byte) (*NotarizedTransaction, error) {
	r := newReader(data)
	var nt NotarizedTransaction
	intent, err := decodeTransactionIntent(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode notarized transaction: %w", err)
	}
	nt.Intent = intent
	n := r.u32()
	for i := uint32(0); i < n && r.err() == nil; i++ {
		nt.IntentSignatures = append(nt.IntentSignatures, decodeSignatureWithPublicKey(r))
	}
	nt.NotarySignature = r.bytes()
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("failed to decode notarized transaction: %w", err)
	}
	return &nt, nil
}

// ComposeNotarized wraps signed children and an outer manifest into a
// notarized transaction signed with the notary's private key. Returns the
// transaction and its intent hash.
func ComposeNotarized(children []ChildSubintent, transactionHeader TransactionHeader, intentHeader IntentHeader, manifest Manifest, notaryPrivateKey ed25519.PrivateKey) (*NotarizedTransaction, Hash, error) {
	if len(children) == 0 {
		return nil, Hash{}, fmt.Errorf("notarized transaction needs at least one child sub-intent")
	}
	if len(transactionHeader.NotaryPublicKey) != Ed25519PublicKeyLength {
		return nil, Hash{}, fmt.Errorf("invalid notary public key length: %d (expected %d)", len(transactionHeader.NotaryPublicKey), Ed25519PublicKeyLength)
	}

	intent := TransactionIntent{
		TransactionHeader: transactionHeader,
		IntentHeader:      intentHeader,
		Manifest:          manifest,
		Children:          children,
	}
	hash := intent.Hash()

	nt := &NotarizedTransaction{
		Intent:          intent,
		NotarySignature: ed25519.Sign(notaryPrivateKey, hash[:]),
	}
	return nt, hash, nil
}
