// Copyright 2025 Multisig Orchestrator

package composer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/xstelea/multisig/pkg/codec"
)

const testManifest = `CALL_METHOD
    Address("account_tdx_2_1cx3u3xgr9anc9fk54dxzsz6k2n6lnadludkx4mx5re5erl8jt9lpnp")
    "withdraw"
    Address("resource_tdx_2_1tknxxxxxxxxxradxrdxxxxxxxxx009923554798xxxxxxxxxtfd2jc")
    Decimal("100")
;`

func buildPartial(t *testing.T) *codec.SubintentResult {
	t.Helper()
	result, err := codec.BuildUnsignedSubintentAt(testManifest, codec.NetworkStokenet, 1000, 1100, 42, 1_700_000_000, 1_700_086_400)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return result
}

func storedSignatures(t *testing.T, result *codec.SubintentResult, count int) []StoredSignature {
	t.Helper()
	sigs := make([]StoredSignature, 0, count)
	for i := 0; i < count; i++ {
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		sigs = append(sigs, StoredSignature{
			PublicKeyHex:   hex.EncodeToString(pub),
			SignatureBytes: ed25519.Sign(priv, result.SubintentHashBytes[:]),
		})
	}
	return sigs
}

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatal(err)
	}
	c, err := New(codec.NetworkStokenet, hex.EncodeToString(seed))
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}
	return c
}

func TestReconstructSignedPartial(t *testing.T) {
	result := buildPartial(t)
	sigs := storedSignatures(t, result, 3)

	signed, err := ReconstructSignedPartial(result.PartialTransactionBytes, sigs)
	if err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	if len(signed.RootSignatures) != 3 {
		t.Errorf("signatures = %d, want 3", len(signed.RootSignatures))
	}
	// The intent body is untouched: identical hash.
	if signed.SubintentHash() != result.SubintentHashBytes {
		t.Error("reconstruction shifted the subintent hash")
	}
}

func TestReconstructRejectsBadKeyLength(t *testing.T) {
	result := buildPartial(t)
	_, err := ReconstructSignedPartial(result.PartialTransactionBytes, []StoredSignature{{
		PublicKeyHex:   "aabbccdd",
		SignatureBytes: make([]byte, codec.Ed25519SignatureLength),
	}})
	if err == nil {
		t.Fatal("expected error for short public key")
	}
}

func TestReconstructRejectsBadSignatureLength(t *testing.T) {
	result := buildPartial(t)
	_, err := ReconstructSignedPartial(result.PartialTransactionBytes, []StoredSignature{{
		PublicKeyHex:   hex.EncodeToString(make([]byte, codec.Ed25519PublicKeyLength)),
		SignatureBytes: make([]byte, 10),
	}})
	if err == nil {
		t.Fatal("expected error for short signature")
	}
}

func TestComposerDerivesFeePayerAccount(t *testing.T) {
	c := newTestComposer(t)
	if !strings.HasPrefix(c.FeePayerAccount(), "account_tdx_2_1") {
		t.Errorf("fee payer account = %s", c.FeePayerAccount())
	}
}

func TestComposerRejectsBadKey(t *testing.T) {
	if _, err := New(codec.NetworkStokenet, "deadbeef"); err == nil {
		t.Fatal("expected error for short key")
	}
}

func TestCompose(t *testing.T) {
	c := newTestComposer(t)
	result := buildPartial(t)
	child, err := ReconstructSignedPartial(result.PartialTransactionBytes, storedSignatures(t, result, 3))
	if err != nil {
		t.Fatal(err)
	}

	composed, err := c.composeWithDiscriminator(1000, child, 999)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if !strings.HasPrefix(composed.IntentHash, "txid_tdx_2_1") {
		t.Errorf("intent hash = %s, want txid_tdx_2_1 prefix", composed.IntentHash)
	}

	raw, err := hex.DecodeString(composed.NotarizedTransactionHex)
	if err != nil {
		t.Fatalf("notarized hex does not decode: %v", err)
	}
	nt, err := codec.DecodeNotarizedTransaction(raw)
	if err != nil {
		t.Fatalf("notarized bytes do not decode: %v", err)
	}

	// The returned intent hash matches the decoded transaction.
	rederived, err := codec.TransactionIntentHashBech32(nt.Intent.Hash(), codec.NetworkStokenet)
	if err != nil {
		t.Fatal(err)
	}
	if rederived != composed.IntentHash {
		t.Errorf("re-derived hash %s != returned %s", rederived, composed.IntentHash)
	}

	// Exactly one child, keyed "withdrawal", with the signatures intact.
	if len(nt.Intent.Children) != 1 || nt.Intent.Children[0].Name != "withdrawal" {
		t.Fatalf("children = %+v", nt.Intent.Children)
	}
	if len(nt.Intent.Children[0].Signed.RootSignatures) != 3 {
		t.Error("child signatures lost in composition")
	}

	// Outer manifest: lock_fee then yield_to_child, notary is signatory.
	instrs := nt.Intent.Manifest.Instructions
	if len(instrs) != 2 || instrs[0].Name != "CALL_METHOD" || instrs[1].Name != "YIELD_TO_CHILD" {
		t.Fatalf("outer manifest = %+v", instrs)
	}
	if instrs[0].Args[1].Str != "lock_fee" || instrs[0].Args[2].Str != LockFeeAmount {
		t.Errorf("lock_fee call = %+v", instrs[0].Args)
	}
	if !nt.Intent.TransactionHeader.NotaryIsSignatory {
		t.Error("notary_is_signatory must be set")
	}
	if nt.Intent.TransactionHeader.TipBasisPoints != 0 {
		t.Error("tip must be zero")
	}

	// Epoch window [current, current+100).
	if nt.Intent.IntentHeader.StartEpochInclusive != 1000 || nt.Intent.IntentHeader.EndEpochExclusive != 1100 {
		t.Errorf("epoch window = [%d, %d)", nt.Intent.IntentHeader.StartEpochInclusive, nt.Intent.IntentHeader.EndEpochExclusive)
	}

	// Notary signature verifies under the fee payer's key.
	hash := nt.Intent.Hash()
	if !ed25519.Verify(ed25519.PublicKey(nt.Intent.TransactionHeader.NotaryPublicKey), hash[:], nt.NotarySignature) {
		t.Error("notary signature does not verify")
	}
}

func TestComposeFreshDiscriminators(t *testing.T) {
	c := newTestComposer(t)
	result := buildPartial(t)
	child, err := ReconstructSignedPartial(result.PartialTransactionBytes, storedSignatures(t, result, 1))
	if err != nil {
		t.Fatal(err)
	}

	a, err := c.Compose(1000, child)
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Compose(1000, child)
	if err != nil {
		t.Fatal(err)
	}
	if a.IntentHash == b.IntentHash {
		t.Error("two compositions share an intent hash; discriminator not fresh")
	}
}
