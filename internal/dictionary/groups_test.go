package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinoosan/compta/internal/ledger"
)

func TestTypeFor(t *testing.T) {
	tests := []struct {
		number string
		want   ledger.AccountType
		ok     bool
	}{
		{"101000", ledger.AccountTypeEquity, true},
		{"411000", ledger.AccountTypeAsset, true},
		{"401000", ledger.AccountTypeLiability, true},
		{"512000", ledger.AccountTypeAsset, true},
		{"607000", ledger.AccountTypeExpense, true},
		{"707000", ledger.AccountTypeRevenue, true},
		{"9", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := TypeFor(tt.number)
		assert.Equal(t, tt.ok, ok, "TypeFor(%q) ok", tt.number)
		assert.Equal(t, tt.want, got, "TypeFor(%q)", tt.number)
	}
}

func TestDefaultChartParentsFirst(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range DefaultChart() {
		for n := range seen {
			child := ledger.Account{Number: a.Number}
			parent := ledger.Account{Number: n}
			if child.IsAncestorOf(parent) {
				t.Fatalf("%s listed after its descendant %s", a.Number, n)
			}
		}
		seen[a.Number] = true
	}
}
