// Copyright 2025 Multisig Orchestrator

package codec

import "testing"

func extract(t *testing.T, manifestText string) []string {
	t.Helper()
	m, err := CompileSubintentManifest(manifestText, NetworkStokenet)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	accounts, err := ExtractAccountsRequiringAuth(m)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return accounts
}

func TestExtractsWithdrawAccount(t *testing.T) {
	accounts := extract(t, sampleManifest())

	// Only the withdrawing account requires auth; deposit does not.
	if len(accounts) != 1 {
		t.Fatalf("accounts = %v, want exactly the withdrawing account", accounts)
	}
	if accounts[0] != withdrawAccount {
		t.Errorf("account = %s, want %s", accounts[0], withdrawAccount)
	}
}

func TestIgnoresDepositOnlyAccounts(t *testing.T) {
	accounts := extract(t, sampleManifest())
	for _, a := range accounts {
		if a == depositAccount {
			t.Error("deposit-only account flagged as requiring auth")
		}
	}
}

func TestExtractsMultipleAuthAccounts(t *testing.T) {
	text := `CALL_METHOD
    Address("` + withdrawAccount + `")
    "withdraw"
    Address("` + xrdResource + `")
    Decimal("50")
;
CALL_METHOD
    Address("` + depositAccount + `")
    "withdraw"
    Address("` + xrdResource + `")
    Decimal("50")
;`
	accounts := extract(t, text)
	if len(accounts) != 2 {
		t.Errorf("accounts = %v, want 2", accounts)
	}
}

func TestDeduplicatesSameAccount(t *testing.T) {
	text := `CALL_METHOD
    Address("` + withdrawAccount + `")
    "withdraw"
    Address("` + xrdResource + `")
    Decimal("50")
;
CALL_METHOD
    Address("` + withdrawAccount + `")
    "create_proof_of_amount"
    Address("` + xrdResource + `")
    Decimal("1")
;`
	accounts := extract(t, text)
	if len(accounts) != 1 {
		t.Errorf("accounts = %v, want 1", accounts)
	}
}

func TestHandlesLockFeeMethod(t *testing.T) {
	text := `CALL_METHOD
    Address("` + withdrawAccount + `")
    "lock_fee"
    Decimal("10")
;`
	accounts := extract(t, text)
	if len(accounts) != 1 {
		t.Errorf("accounts = %v, want 1", accounts)
	}
}

func TestIgnoresNonAccountAddresses(t *testing.T) {
	// A resource address invoked with an auth-requiring method name is not
	// an account and must not be collected.
	text := `CALL_METHOD
    Address("` + xrdResource + `")
    "withdraw"
;`
	accounts := extract(t, text)
	if len(accounts) != 0 {
		t.Errorf("accounts = %v, want none", accounts)
	}
}
