package dictionary

import (
	"strings"

	"github.com/tinoosan/compta/internal/ledger"
)

// ClassDef describes one class of the chart of accounts.
type ClassDef struct {
	Class int                `json:"class"`
	Label string             `json:"label"`
	Type  ledger.AccountType `json:"type"`
}

var classes = []ClassDef{
	{Class: 1, Label: "Capitaux", Type: ledger.AccountTypeEquity},
	{Class: 2, Label: "Immobilisations", Type: ledger.AccountTypeAsset},
	{Class: 3, Label: "Stocks et en-cours", Type: ledger.AccountTypeAsset},
	{Class: 4, Label: "Tiers", Type: ledger.AccountTypeLiability},
	{Class: 5, Label: "Financier", Type: ledger.AccountTypeAsset},
	{Class: 6, Label: "Charges", Type: ledger.AccountTypeExpense},
	{Class: 7, Label: "Produits", Type: ledger.AccountTypeRevenue},
}

// Classes returns the class definitions in class order.
func Classes() []ClassDef {
	out := make([]ClassDef, len(classes))
	copy(out, classes)
	return out
}

// TypeFor infers the account type from an account number. The client
// sub-ledger (41) is an asset even though class 4 defaults to liability.
func TypeFor(number string) (ledger.AccountType, bool) {
	if strings.HasPrefix(number, "41") {
		return ledger.AccountTypeAsset, true
	}
	for _, c := range classes {
		if number != "" && int(number[0]-'0') == c.Class {
			return c.Type, true
		}
	}
	return "", false
}

// JournalDef is a journal created by the seed command.
type JournalDef struct {
	Code  string
	Label string
	Type  ledger.JournalType
}

var journals = []JournalDef{
	{Code: "VTE", Label: "Ventes", Type: ledger.JournalSales},
	{Code: "ACH", Label: "Achats", Type: ledger.JournalPurchases},
	{Code: "BQ", Label: "Banque", Type: ledger.JournalTreasury},
	{Code: "CAI", Label: "Caisse", Type: ledger.JournalTreasury},
	{Code: "OD", Label: "Opérations diverses", Type: ledger.JournalMisc},
}

// DefaultJournals returns the seed journals.
func DefaultJournals() []JournalDef {
	out := make([]JournalDef, len(journals))
	copy(out, journals)
	return out
}

// AccountDef is a chart entry created by the seed command.
type AccountDef struct {
	Number     string
	Name       string
	AllowEntry bool
}

var chart = []AccountDef{
	{Number: "101000", Name: "Capital", AllowEntry: true},
	{Number: "401", Name: "Fournisseurs", AllowEntry: false},
	{Number: "401000", Name: "Fournisseurs divers", AllowEntry: true},
	{Number: "411", Name: "Clients", AllowEntry: false},
	{Number: "411000", Name: "Clients divers", AllowEntry: true},
	{Number: "445660", Name: "TVA déductible", AllowEntry: true},
	{Number: "445710", Name: "TVA collectée", AllowEntry: true},
	{Number: "512000", Name: "Banque", AllowEntry: true},
	{Number: "530000", Name: "Caisse", AllowEntry: true},
	{Number: "607000", Name: "Achats de marchandises", AllowEntry: true},
	{Number: "707000", Name: "Ventes de marchandises", AllowEntry: true},
}

// DefaultChart returns the seed chart of accounts, parents before children.
func DefaultChart() []AccountDef {
	out := make([]AccountDef, len(chart))
	copy(out, chart)
	return out
}
