// Copyright 2025 Multisig Orchestrator

package codec

import "sort"

// Account methods that require the account owner's authorization. Deposits,
// read-only calls, and component calls do not appear here.
var authRequiringMethods = map[string]struct{}{
	"withdraw":                      {},
	"withdraw_non_fungibles":        {},
	"lock_fee":                      {},
	"lock_contingent_fee":           {},
	"lock_fee_and_withdraw":         {},
	"create_proof_of_amount":        {},
	"create_proof_of_non_fungibles": {},
	"securify":                      {},
}

// ExtractAccountsRequiringAuth walks a compiled manifest and returns the
// deduplicated, sorted addresses of every global account invoked with a
// method requiring owner authorization.
func ExtractAccountsRequiringAuth(m *Manifest) ([]string, error) {
	seen := make(map[string]struct{})
	for _, instr := range m.Instructions {
		if instr.Name != "CALL_METHOD" || len(instr.Args) < 2 {
			continue
		}
		if instr.Args[0].Kind != ValueAddress || instr.Args[1].Kind != ValueString {
			continue
		}
		addr, err := ParseAddress(instr.Args[0].Str, m.NetworkID)
		if err != nil {
			return nil, err
		}
		if !addr.IsGlobalAccount() {
			continue
		}
		if _, ok := authRequiringMethods[instr.Args[1].Str]; !ok {
			continue
		}
		seen[instr.Args[0].Str] = struct{}{}
	}

	accounts := make([]string, 0, len(seen))
	for a := range seen {
		accounts = append(accounts, a)
	}
	sort.Strings(accounts)
	return accounts, nil
}
