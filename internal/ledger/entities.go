package ledger

import (
    "time"

    "github.com/google/uuid"
)

// Side represents the accounting position of a detail line.
type Side string

const (
	// SideDebit records a value on the debit side of an account.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of an account.
	SideCredit Side = "credit"
)

// Valid reports whether s is one of the two sides.
func (s Side) Valid() bool { return s == SideDebit || s == SideCredit }

// Opposite returns the other side.
func (s Side) Opposite() Side {
    if s == SideDebit { return SideCredit }
    return SideDebit
}

// AccountType enumerates the broad classification of an account in the chart.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by the book.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owner's residual interest in the entity.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "revenue"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
    switch t {
    case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
        return true
    }
    return false
}

// NormalSide is the side on which the account type increases.
func (t AccountType) NormalSide() Side {
    switch t {
    case AccountTypeAsset, AccountTypeExpense:
        return SideDebit
    }
    return SideCredit
}

// Account is a node in the chart of accounts.
type Account struct {
    ID     uuid.UUID
    // Number is the hierarchical account code, e.g. "411000". Shorter codes that
    // prefix it are its ancestors.
    Number string
    Name   string
    Type   AccountType
    // AllowEntry marks leaf accounts that may receive postings.
    AllowEntry bool
    // Static marks fixed system accounts; dynamic third-party sub-accounts are not static.
    Static bool
    Active bool
}

// IsAncestorOf reports whether a groups other by number prefix.
func (a Account) IsAncestorOf(other Account) bool {
    return len(other.Number) > len(a.Number) && other.Number[:len(a.Number)] == a.Number
}

// JournalType classifies a journal book.
type JournalType string

const (
    JournalSales     JournalType = "sales"
    JournalPurchases JournalType = "purchases"
    JournalTreasury  JournalType = "treasury"
    JournalMisc      JournalType = "misc"
)

// Valid reports whether t is a known journal type.
func (t JournalType) Valid() bool {
    switch t {
    case JournalSales, JournalPurchases, JournalTreasury, JournalMisc:
        return true
    }
    return false
}

// Journal is a named book entries are grouped into.
type Journal struct {
    ID     uuid.UUID
    Code   string
    Label  string
    Type   JournalType
    Active bool
    // EntryCount is derived on read; it is never written.
    EntryCount int
}

// FiscalPeriod is a bounded, closable date range. Start and End are inclusive days.
type FiscalPeriod struct {
    ID       uuid.UUID
    Code     string
    Start    time.Time
    End      time.Time
    Closed   bool
    ClosedAt *time.Time
}

// Contains reports whether day d lies within the period.
func (p FiscalPeriod) Contains(d time.Time) bool {
    d = Day(d)
    return !d.Before(p.Start) && !d.After(p.End)
}

// Overlaps reports whether [start,end] intersects the period.
func (p FiscalPeriod) Overlaps(start, end time.Time) bool {
    return !Day(start).After(p.End) && !Day(end).Before(p.Start)
}

// Within reports whether the period lies entirely inside [start,end].
func (p FiscalPeriod) Within(start, end time.Time) bool {
    return !p.Start.Before(Day(start)) && !p.End.After(Day(end))
}

// Entry is a double-entry journal entry (écriture). Amounts are minor currency units.
type Entry struct {
    ID          uuid.UUID
    Number      int64
    Label       string
    Date        time.Time
    JournalID   uuid.UUID
    PeriodID    uuid.UUID
    TotalDebit  int64
    TotalCredit int64
    Validated   bool
    ValidatedAt *time.Time
    ValidatedBy string
    Reference   string
    Notes       string
    // TemplateID links entries generated from an operation template.
    TemplateID *uuid.UUID
    CreatedBy  string
    UpdatedBy  string
    CreatedAt  time.Time
    UpdatedAt  time.Time
    Lines      []DetailLine
}

// Balanced reports whether the stored totals tie out.
func (e Entry) Balanced() bool { return e.TotalDebit == e.TotalCredit }

// Clone returns a copy that shares no line storage with e.
func (e Entry) Clone() Entry {
    out := e
    out.Lines = append([]DetailLine(nil), e.Lines...)
    return out
}

// DetailLine is one debit or credit posting owned by an Entry.
type DetailLine struct {
    ID        uuid.UUID
    EntryID   uuid.UUID
    AccountID uuid.UUID
    Label     string
    Debit     int64
    Credit    int64
    Notes     string
}

// EntryFilter narrows entry listings. Zero fields do not filter.
type EntryFilter struct {
    PeriodID  uuid.UUID
    JournalID uuid.UUID
    Validated *bool
    From      *time.Time
    To        *time.Time
}

// Match reports whether e satisfies the filter.
func (f EntryFilter) Match(e Entry) bool {
    if f.PeriodID != uuid.Nil && e.PeriodID != f.PeriodID { return false }
    if f.JournalID != uuid.Nil && e.JournalID != f.JournalID { return false }
    if f.Validated != nil && e.Validated != *f.Validated { return false }
    if f.From != nil && e.Date.Before(Day(*f.From)) { return false }
    if f.To != nil && e.Date.After(Day(*f.To)) { return false }
    return true
}

// Change carries the state of an entity before and after an update.
type Change[T any] struct {
    Before T
    After  T
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
