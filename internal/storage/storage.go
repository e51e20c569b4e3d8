// Package storage declares the persistence contract the ledger services run on.
// Implementations live in storage/memory and storage/postgres.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/compta/internal/ledger"
)

// Reader holds the unlocked read side. Lookups of a missing id return an error
// wrapping errs.ErrNotFound.
type Reader interface {
	AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	AccountByNumber(ctx context.Context, number string) (ledger.Account, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)

	// JournalByID and ListJournals populate Journal.EntryCount.
	JournalByID(ctx context.Context, id uuid.UUID) (ledger.Journal, error)
	JournalByCode(ctx context.Context, code string) (ledger.Journal, error)
	ListJournals(ctx context.Context) ([]ledger.Journal, error)

	PeriodByID(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error)
	// ListPeriods returns periods ordered by start date.
	ListPeriods(ctx context.Context) ([]ledger.FiscalPeriod, error)

	EntryByID(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
	// ListEntries returns matching entries ordered by number, lines included.
	ListEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error)

	TemplateByID(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error)
	ListTemplates(ctx context.Context) ([]ledger.OperationTemplate, error)

	YearByID(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error)
	// ListYears returns years ordered by start date.
	ListYears(ctx context.Context) ([]ledger.FiscalYear, error)
}

// Tx is a serializable unit of work. Rows read through the ForUpdate methods
// stay locked until the transaction ends.
type Tx interface {
	Reader

	AccountForUpdate(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	EntryForUpdate(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
	PeriodForUpdate(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error)
	YearForUpdate(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error)
	// LockPeriods serializes transactions that check period ranges.
	LockPeriods(ctx context.Context) error
	// LockYears serializes transactions that check year status or ranges.
	LockYears(ctx context.Context) error
	// LockChart serializes transactions that check the account hierarchy.
	LockChart(ctx context.Context) error

	CountLinesForAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	CountTemplatesForAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	CountEntriesForJournal(ctx context.Context, journalID uuid.UUID) (int, error)
	// CountEntriesBetween counts entries dated within [from,to].
	CountEntriesBetween(ctx context.Context, from, to time.Time) (int, error)
	// AccountBalance returns sum(debit) - sum(credit) posted to the account.
	AccountBalance(ctx context.Context, accountID uuid.UUID) (int64, error)
	// NextEntryNumber increments the book's entry counter. The increment is part
	// of the transaction and is undone on rollback.
	NextEntryNumber(ctx context.Context) (int64, error)

	InsertAccount(ctx context.Context, a ledger.Account) error
	UpdateAccount(ctx context.Context, a ledger.Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error

	InsertJournal(ctx context.Context, j ledger.Journal) error
	UpdateJournal(ctx context.Context, j ledger.Journal) error
	DeleteJournal(ctx context.Context, id uuid.UUID) error

	InsertPeriod(ctx context.Context, p ledger.FiscalPeriod) error
	UpdatePeriod(ctx context.Context, p ledger.FiscalPeriod) error
	DeletePeriod(ctx context.Context, id uuid.UUID) error

	// Entry writes persist the header and every line as one unit.
	InsertEntry(ctx context.Context, e ledger.Entry) error
	UpdateEntry(ctx context.Context, e ledger.Entry) error
	DeleteEntry(ctx context.Context, id uuid.UUID) error

	InsertTemplate(ctx context.Context, t ledger.OperationTemplate) error
	UpdateTemplate(ctx context.Context, t ledger.OperationTemplate) error
	DeleteTemplate(ctx context.Context, id uuid.UUID) error

	InsertYear(ctx context.Context, y ledger.FiscalYear) error
	UpdateYear(ctx context.Context, y ledger.FiscalYear) error
}

// Store runs transactions. If fn returns an error nothing it wrote is kept.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// IdempotencyStore maps client idempotency keys to created entries.
type IdempotencyStore interface {
	// EntryByIdempotencyKey resolves a key; ok is false when the key is unknown
	// or its entry no longer exists.
	EntryByIdempotencyKey(ctx context.Context, key string) (ledger.Entry, bool, error)
	// SaveIdempotencyKey keeps the first mapping stored for key.
	SaveIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) error
}
