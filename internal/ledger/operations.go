package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Basis selects which amount of a transaction a posting is computed from.
type Basis string

const (
	// BasisTTC is the tax-inclusive amount.
	BasisTTC Basis = "ttc"
	// BasisHT is the tax-exclusive amount.
	BasisHT Basis = "ht"
	// BasisTVA is the tax amount alone.
	BasisTVA Basis = "tva"
)

// Valid reports whether b is a known basis.
func (b Basis) Valid() bool { return b == BasisTTC || b == BasisHT || b == BasisTVA }

// Components returns the HT and TVA weights of the basis: TTC = HT + TVA.
func (b Basis) Components() (ht, tva int64) {
	switch b {
	case BasisTTC:
		return 1, 1
	case BasisHT:
		return 1, 0
	case BasisTVA:
		return 0, 1
	}
	return 0, 0
}

// PaymentMode describes how an operation is settled.
type PaymentMode string

const (
	PaymentCash     PaymentMode = "cash"
	PaymentCredit   PaymentMode = "credit"
	PaymentCheque   PaymentMode = "cheque"
	PaymentTransfer PaymentMode = "transfer"
	PaymentCard     PaymentMode = "card"
)

// Valid reports whether m is a known payment mode.
func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCredit, PaymentCheque, PaymentTransfer, PaymentCard:
		return true
	}
	return false
}

// OperationTemplate maps a business operation to the lines it posts.
type OperationTemplate struct {
	ID          uuid.UUID
	Label       string
	PaymentMode PaymentMode
	// PrincipalAccountID is ignored when PrincipalStatic is false; the principal
	// account is then resolved from the transaction's third party.
	PrincipalAccountID uuid.UUID
	PrincipalStatic    bool
	PrincipalSide      Side
	PrincipalBasis     Basis
	JournalID          uuid.UUID
	// ClientCeiling caps the running debit balance of the third-party account, in minor units.
	ClientCeiling *int64
	Active        bool
	Rules         []CounterpartyRule
}

// ReferencesAccount reports whether the template posts to accountID statically.
func (t OperationTemplate) ReferencesAccount(accountID uuid.UUID) bool {
	if t.PrincipalStatic && t.PrincipalAccountID == accountID {
		return true
	}
	for _, r := range t.Rules {
		if !r.ThirdParty && r.AccountID == accountID {
			return true
		}
	}
	return false
}

// CounterpartyRule is one generated line of an operation template.
type CounterpartyRule struct {
	// AccountID is uuid.Nil when ThirdParty is set.
	AccountID     uuid.UUID
	ThirdParty    bool
	Basis         Basis
	JournalFamily JournalType
	Side          Side
	// Ratio scales the basis amount; the zero value means 1.
	Ratio decimal.Decimal
}

// EffectiveRatio returns the ratio with the zero value read as 1.
func (r CounterpartyRule) EffectiveRatio() decimal.Decimal {
	if r.Ratio.IsZero() {
		return decimal.NewFromInt(1)
	}
	return r.Ratio
}

// Transaction is the front-office record an operation template posts against.
// Amount is tax-inclusive; Tax is the tax portion of it.
type Transaction struct {
	Date       time.Time
	Label      string
	Reference  string
	Amount     int64
	Tax        int64
	ThirdParty string
}

// Base returns the transaction amount for basis b.
func (t Transaction) Base(b Basis) int64 {
	switch b {
	case BasisHT:
		return t.Amount - t.Tax
	case BasisTVA:
		return t.Tax
	}
	return t.Amount
}

// YearStatus is the lifecycle state of a fiscal year.
type YearStatus string

const (
	YearOpen   YearStatus = "open"
	YearActive YearStatus = "active"
	YearClosed YearStatus = "closed"
)

// FiscalYear aggregates periods and orders over a date range.
type FiscalYear struct {
	ID       uuid.UUID
	Name     string
	Start    time.Time
	End      time.Time
	Status   YearStatus
	ClosedAt *time.Time
}

// Contains reports whether day d lies in the year.
func (y FiscalYear) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(y.Start) && !d.After(y.End)
}

// Order is an external front-office order used for year summaries.
type Order struct {
	ID       string
	Date     time.Time
	NetToPay int64
	Items    []OrderItem
}

// OrderItem is one product line of an order.
type OrderItem struct {
	ProductID string
	Quantity  int64
}
