// Copyright 2025 Multisig Orchestrator

package codec

import (
	"strings"
	"testing"
)

const withdrawAccount = "account_tdx_2_1cx3u3xgr9anc9fk54dxzsz6k2n6lnadludkx4mx5re5erl8jt9lpnp"
const depositAccount = "account_tdx_2_12xsvygvltz4uhsht6tdrfxktzpmnl77r0d40j8agmujgdj02el3l9v"
const xrdResource = "resource_tdx_2_1tknxxxxxxxxxradxrdxxxxxxxxx009923554798xxxxxxxxxtfd2jc"

func sampleManifest() string {
	return `CALL_METHOD
    Address("` + withdrawAccount + `")
    "withdraw"
    Address("` + xrdResource + `")
    Decimal("100")
;
TAKE_ALL_FROM_WORKTOP
    Address("` + xrdResource + `")
    Bucket("xrd_bucket")
;
CALL_METHOD
    Address("` + depositAccount + `")
    "deposit"
    Bucket("xrd_bucket")
;`
}

func TestCompileSubintentManifest(t *testing.T) {
	m, err := CompileSubintentManifest(sampleManifest(), NetworkStokenet)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(m.Instructions) != 4 {
		t.Fatalf("instruction count = %d, want 4 (incl. appended YIELD_TO_PARENT)", len(m.Instructions))
	}
	last := m.Instructions[len(m.Instructions)-1]
	if last.Name != "YIELD_TO_PARENT" {
		t.Errorf("last instruction = %s, want YIELD_TO_PARENT", last.Name)
	}
}

func TestCompileKeepsExistingYield(t *testing.T) {
	text := sampleManifest() + "\nYIELD_TO_PARENT;\n"
	m, err := CompileSubintentManifest(text, NetworkStokenet)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	yields := 0
	for _, instr := range m.Instructions {
		if instr.Name == "YIELD_TO_PARENT" {
			yields++
		}
	}
	if yields != 1 {
		t.Errorf("yield count = %d, want 1", yields)
	}
}

func TestCompileRejectsGarbage(t *testing.T) {
	if _, err := CompileSubintentManifest("THIS IS NOT VALID RTM", NetworkStokenet); err == nil {
		t.Fatal("expected error for invalid manifest")
	}
}

func TestCompileRejectsEmptyManifest(t *testing.T) {
	if _, err := CompileManifest("   \n", NetworkStokenet); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}

func TestCompileRejectsUnknownInstruction(t *testing.T) {
	_, err := CompileManifest("FROBNICATE_WORKTOP;", NetworkStokenet)
	if err == nil || !strings.Contains(err.Error(), "unknown instruction") {
		t.Fatalf("err = %v, want unknown instruction", err)
	}
}

func TestCompileRejectsWrongNetworkAddress(t *testing.T) {
	// Stokenet address compiled for mainnet must fail HRP validation.
	_, err := CompileSubintentManifest(sampleManifest(), NetworkMainnet)
	if err == nil {
		t.Fatal("expected error for address on wrong network")
	}
}

func TestCompileRejectsBadAddress(t *testing.T) {
	text := `CALL_METHOD
    Address("account_tdx_2_1notbech32mzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzibo")
    "withdraw"
;`
	if _, err := CompileSubintentManifest(text, NetworkStokenet); err == nil {
		t.Fatal("expected error for malformed address")
	}
}

func TestCompileUnterminatedInstruction(t *testing.T) {
	if _, err := CompileManifest("YIELD_TO_PARENT", NetworkStokenet); err == nil {
		t.Fatal("expected error for missing ';'")
	}
}

func TestCompileLineComments(t *testing.T) {
	text := "# leading comment\nYIELD_TO_PARENT; # trailing\n"
	m, err := CompileManifest(text, NetworkStokenet)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(m.Instructions) != 1 {
		t.Errorf("instruction count = %d, want 1", len(m.Instructions))
	}
}

func TestProgrammaticOuterManifest(t *testing.T) {
	m := Manifest{
		NetworkID: NetworkStokenet,
		Instructions: []Instruction{
			CallMethod(depositAccount, "lock_fee", DecimalValue("10")),
			YieldToChild("withdrawal"),
		},
	}
	if err := m.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if m.Instructions[1].Args[0].Kind != ValueNamedIntent {
		t.Error("YIELD_TO_CHILD first arg should be a named intent")
	}
}

func TestManifestEncodeDecodeRoundTrip(t *testing.T) {
	m, err := CompileSubintentManifest(sampleManifest(), NetworkStokenet)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	var w writer
	m.encode(&w)
	r := newReader(w.result())
	decoded := decodeManifest(r)
	if err := r.finish(); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.NetworkID != m.NetworkID {
		t.Errorf("network = %d, want %d", decoded.NetworkID, m.NetworkID)
	}
	if len(decoded.Instructions) != len(m.Instructions) {
		t.Fatalf("instruction count = %d, want %d", len(decoded.Instructions), len(m.Instructions))
	}
	for i := range m.Instructions {
		if decoded.Instructions[i].Name != m.Instructions[i].Name {
			t.Errorf("instruction %d = %s, want %s", i, decoded.Instructions[i].Name, m.Instructions[i].Name)
		}
	}
}

func TestParseTupleValue(t *testing.T) {
	text := `CALL_METHOD
    Address("` + depositAccount + `")
    "custom"
    Tuple(Decimal("1"), "note")
;
YIELD_TO_PARENT;`
	m, err := CompileManifest(text, NetworkStokenet)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	tuple := m.Instructions[0].Args[2]
	if tuple.Kind != ValueTuple || len(tuple.Fields) != 2 {
		t.Fatalf("tuple = %+v", tuple)
	}
}
