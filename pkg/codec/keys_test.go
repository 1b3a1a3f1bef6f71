// Copyright 2025 Multisig Orchestrator

package codec

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"
)

func TestPublicKeyHashLength(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	hash, err := PublicKeyHashHex(pub)
	if err != nil {
		t.Fatal(err)
	}
	// 29 bytes = 58 hex chars, matching the ledger's virtual-badge local id.
	if len(hash) != 58 {
		t.Errorf("key hash length = %d hex chars, want 58", len(hash))
	}
}

func TestPublicKeyHashDeterministic(t *testing.T) {
	pub := make([]byte, Ed25519PublicKeyLength)
	for i := range pub {
		pub[i] = 42
	}
	a, err := PublicKeyHashHex(pub)
	if err != nil {
		t.Fatal(err)
	}
	b, err := PublicKeyHashHex(pub)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("hash not deterministic: %s vs %s", a, b)
	}
}

func TestPublicKeyHashRejectsWrongLength(t *testing.T) {
	if _, err := PublicKeyHash(make([]byte, 16)); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
}

func TestVirtualAccountAddress(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	stokenet, err := VirtualAccountAddress(pub, NetworkStokenet)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stokenet, "account_tdx_2_1") {
		t.Errorf("stokenet address = %s, want account_tdx_2_1 prefix", stokenet)
	}

	mainnet, err := VirtualAccountAddress(pub, NetworkMainnet)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(mainnet, "account_rdx1") {
		t.Errorf("mainnet address = %s, want account_rdx1 prefix", mainnet)
	}
}

func TestVirtualAccountAddressRoundTrip(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	address, err := VirtualAccountAddress(pub, NetworkStokenet)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseAddress(address, NetworkStokenet)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.IsGlobalAccount() {
		t.Error("derived account address not recognized as a global account")
	}
	if len(parsed.Data) != 1+KeyHashLength {
		t.Errorf("node id length = %d, want %d", len(parsed.Data), 1+KeyHashLength)
	}

	// Wrong network must be rejected.
	if _, err := ParseAddress(address, NetworkMainnet); err == nil {
		t.Error("stokenet address accepted for mainnet")
	}
}

func TestPrivateKeyFromHex(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	restored, err := PrivateKeyFromHex(hex.EncodeToString(priv.Seed()))
	if err != nil {
		t.Fatal(err)
	}
	if !priv.Equal(restored) {
		t.Error("restored key differs from original")
	}

	if _, err := PrivateKeyFromHex("deadbeef"); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := PrivateKeyFromHex("zz"); err == nil {
		t.Error("expected error for non-hex key")
	}
}
