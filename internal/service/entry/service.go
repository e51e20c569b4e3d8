// Package entry is the ledger entry engine. It creates, edits, validates and
// deletes journal entries, each a balanced set of detail lines.
//
// Every mutation runs in one store transaction. The checks run in a fixed
// order: period, journal, lines, balance, line count. A draft may be edited or
// deleted; once validated it is frozen, and nothing dated in a closed period can
// change.
package entry

import (
    "context"
    "fmt"
    "log/slog"
    "math"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/service/period"
    "github.com/tinoosan/compta/internal/storage"
)

// LineInput is one requested detail line. Exactly one of Debit and Credit must
// be positive.
type LineInput struct {
    AccountID uuid.UUID
    Label     string
    Debit     int64
    Credit    int64
    Notes     string
}

// Input describes an entry to create.
type Input struct {
    Label     string
    Date      time.Time
    JournalID uuid.UUID
    Reference string
    Notes     string
    Lines     []LineInput
    // Actor is stamped into CreatedBy/UpdatedBy.
    Actor string
    // TemplateID is set when an operation template generated the entry.
    TemplateID *uuid.UUID
}

// Patch edits a draft entry; nil fields keep their current value. Lines, when
// set, replace every existing line.
type Patch struct {
    Label     *string
    Date      *time.Time
    JournalID *uuid.UUID
    Reference *string
    Notes     *string
    Lines     *[]LineInput
    Actor     string
}

type Service interface {
    CreateEntry(ctx context.Context, in Input) (ledger.Entry, error)
    // CreateInTx runs the create pipeline inside a caller's transaction.
    CreateInTx(ctx context.Context, tx storage.Tx, in Input) (ledger.Entry, error)
    UpdateEntry(ctx context.Context, id uuid.UUID, p Patch) (ledger.Change[ledger.Entry], error)
    ValidateEntry(ctx context.Context, id uuid.UUID, actor string) (ledger.Change[ledger.Entry], error)
    DeleteEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
    Get(ctx context.Context, id uuid.UUID) (ledger.Entry, error)
    List(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error)
    TrialBalance(ctx context.Context, f ledger.EntryFilter) (TrialBalance, error)
}

// Option configures the service.
type Option func(*service)

// WithNow overrides the clock used for creation and validation stamps.
func WithNow(now func() time.Time) Option {
    return func(s *service) { s.now = now }
}

type service struct {
    store storage.Store
    log   *slog.Logger
    now   func() time.Time
}

func New(store storage.Store, logger *slog.Logger, opts ...Option) Service {
    if logger == nil { logger = slog.Default() }
    s := &service{store: store, log: logger, now: time.Now}
    for _, o := range opts { o(s) }
    return s
}

// build resolves and checks an input. The returned entry has no ID or number yet.
func build(ctx context.Context, tx storage.Tx, in Input) (ledger.Entry, error) {
    if in.Date.IsZero() { return ledger.Entry{}, errs.Invalid("date is required") }
    label := strings.TrimSpace(in.Label)
    if label == "" { return ledger.Entry{}, errs.Invalid("label is required") }
    date := ledger.Day(in.Date)

    p, err := period.Lookup(ctx, tx, date)
    if err != nil { return ledger.Entry{}, err }
    // lock the period so a concurrent close waits for this entry
    p, err = tx.PeriodForUpdate(ctx, p.ID)
    if err != nil { return ledger.Entry{}, err }
    if p.Closed { return ledger.Entry{}, fmt.Errorf("period %s: %w", p.Code, errs.ErrPeriodClosed) }

    j, err := tx.JournalByID(ctx, in.JournalID)
    if err != nil {
        if errs.KindOf(err) == errs.ErrNotFound { return ledger.Entry{}, errs.ErrUnknownJournal }
        return ledger.Entry{}, err
    }
    if !j.Active { return ledger.Entry{}, fmt.Errorf("journal %s: %w", j.Code, errs.ErrInactiveJournal) }

    lines := make([]ledger.DetailLine, 0, len(in.Lines))
    var debit, credit int64
    for i, ln := range in.Lines {
        acc, err := tx.AccountByID(ctx, ln.AccountID)
        if err != nil {
            if errs.KindOf(err) == errs.ErrNotFound { return ledger.Entry{}, fmt.Errorf("line[%d]: %w", i, errs.ErrUnknownAccount) }
            return ledger.Entry{}, err
        }
        if !acc.AllowEntry || !acc.Active {
            return ledger.Entry{}, fmt.Errorf("line[%d]: account %s: %w", i, acc.Number, errs.ErrNonPostableAccount)
        }
        if ln.Debit < 0 || ln.Credit < 0 || (ln.Debit == 0) == (ln.Credit == 0) {
            return ledger.Entry{}, fmt.Errorf("line[%d]: %w", i, errs.ErrMalformedLine)
        }
        if ln.Debit > math.MaxInt64-debit || ln.Credit > math.MaxInt64-credit {
            return ledger.Entry{}, fmt.Errorf("line[%d]: amount overflow: %w", i, errs.ErrMalformedLine)
        }
        debit += ln.Debit
        credit += ln.Credit
        lines = append(lines, ledger.DetailLine{
            AccountID: ln.AccountID,
            Label:     strings.TrimSpace(ln.Label),
            Debit:     ln.Debit,
            Credit:    ln.Credit,
            Notes:     ln.Notes,
        })
    }
    if debit != credit {
        return ledger.Entry{}, fmt.Errorf("debit %d != credit %d: %w", debit, credit, errs.ErrUnbalancedEntry)
    }
    if len(lines) < 2 { return ledger.Entry{}, errs.ErrInsufficientLines }

    return ledger.Entry{
        Label:       label,
        Date:        date,
        JournalID:   j.ID,
        PeriodID:    p.ID,
        TotalDebit:  debit,
        TotalCredit: credit,
        Reference:   strings.TrimSpace(in.Reference),
        Notes:       in.Notes,
        TemplateID:  in.TemplateID,
        Lines:       lines,
    }, nil
}

func assignLineIDs(e *ledger.Entry) {
    for i := range e.Lines {
        e.Lines[i].ID = uuid.New()
        e.Lines[i].EntryID = e.ID
    }
}

func (s *service) CreateInTx(ctx context.Context, tx storage.Tx, in Input) (ledger.Entry, error) {
    e, err := build(ctx, tx, in)
    if err != nil { return ledger.Entry{}, err }
    n, err := tx.NextEntryNumber(ctx)
    if err != nil { return ledger.Entry{}, err }
    now := s.now().UTC()
    e.ID = uuid.New()
    e.Number = n
    e.CreatedBy, e.UpdatedBy = in.Actor, in.Actor
    e.CreatedAt, e.UpdatedAt = now, now
    assignLineIDs(&e)
    if err := tx.InsertEntry(ctx, e); err != nil { return ledger.Entry{}, err }
    return e, nil
}

func (s *service) CreateEntry(ctx context.Context, in Input) (ledger.Entry, error) {
    var created ledger.Entry
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        e, err := s.CreateInTx(ctx, tx, in)
        created = e
        return err
    })
    if err != nil { return ledger.Entry{}, err }
    s.log.Info("entry created", "entry_id", created.ID.String(), "number", created.Number, "actor", in.Actor)
    return created, nil
}

// editable loads a draft for mutation: it must not be validated and must not
// sit in a closed period.
func editable(ctx context.Context, tx storage.Tx, id uuid.UUID) (ledger.Entry, error) {
    e, err := tx.EntryForUpdate(ctx, id)
    if err != nil { return ledger.Entry{}, err }
    if e.Validated { return ledger.Entry{}, fmt.Errorf("entry %d: %w", e.Number, errs.ErrImmutableEntry) }
    if err := periodOpen(ctx, tx, e); err != nil { return ledger.Entry{}, err }
    return e, nil
}

func periodOpen(ctx context.Context, tx storage.Tx, e ledger.Entry) error {
    p, err := tx.PeriodForUpdate(ctx, e.PeriodID)
    if err != nil { return err }
    if p.Closed { return fmt.Errorf("period %s: %w", p.Code, errs.ErrPeriodClosed) }
    return nil
}

func (s *service) UpdateEntry(ctx context.Context, id uuid.UUID, p Patch) (ledger.Change[ledger.Entry], error) {
    var ch ledger.Change[ledger.Entry]
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        before, err := editable(ctx, tx, id)
        if err != nil { return err }
        in := Input{
            Label:      before.Label,
            Date:       before.Date,
            JournalID:  before.JournalID,
            Reference:  before.Reference,
            Notes:      before.Notes,
            TemplateID: before.TemplateID,
            Lines:      make([]LineInput, 0, len(before.Lines)),
        }
        for _, ln := range before.Lines {
            in.Lines = append(in.Lines, LineInput{AccountID: ln.AccountID, Label: ln.Label, Debit: ln.Debit, Credit: ln.Credit, Notes: ln.Notes})
        }
        if p.Label != nil { in.Label = *p.Label }
        if p.Date != nil { in.Date = *p.Date }
        if p.JournalID != nil { in.JournalID = *p.JournalID }
        if p.Reference != nil { in.Reference = *p.Reference }
        if p.Notes != nil { in.Notes = *p.Notes }
        if p.Lines != nil { in.Lines = *p.Lines }

        after, err := build(ctx, tx, in)
        if err != nil { return err }
        after.ID = before.ID
        after.Number = before.Number
        after.CreatedBy, after.CreatedAt = before.CreatedBy, before.CreatedAt
        after.UpdatedBy, after.UpdatedAt = p.Actor, s.now().UTC()
        assignLineIDs(&after)
        if err := tx.UpdateEntry(ctx, after); err != nil { return err }
        ch = ledger.Change[ledger.Entry]{Before: before, After: after}
        return nil
    })
    return ch, err
}

// ValidateEntry re-checks the persisted lines and freezes the entry.
func (s *service) ValidateEntry(ctx context.Context, id uuid.UUID, actor string) (ledger.Change[ledger.Entry], error) {
    var ch ledger.Change[ledger.Entry]
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        before, err := tx.EntryForUpdate(ctx, id)
        if err != nil { return err }
        if before.Validated { return fmt.Errorf("entry %d: %w", before.Number, errs.ErrAlreadyValidated) }
        var debit, credit int64
        for _, ln := range before.Lines {
            debit += ln.Debit
            credit += ln.Credit
        }
        if !before.Balanced() || debit != before.TotalDebit || credit != before.TotalCredit {
            return fmt.Errorf("entry %d: %w", before.Number, errs.ErrUnbalancedEntry)
        }
        if len(before.Lines) < 2 { return errs.ErrInsufficientLines }
        if err := periodOpen(ctx, tx, before); err != nil { return err }

        after := before.Clone()
        at := s.now().UTC()
        after.Validated = true
        after.ValidatedAt = &at
        after.ValidatedBy = actor
        after.UpdatedBy, after.UpdatedAt = actor, at
        if err := tx.UpdateEntry(ctx, after); err != nil { return err }
        ch = ledger.Change[ledger.Entry]{Before: before, After: after}
        return nil
    })
    if err != nil { return ch, err }
    s.log.Info("entry validated", "entry_id", id.String(), "number", ch.After.Number, "actor", actor)
    return ch, nil
}

func (s *service) DeleteEntry(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
    var removed ledger.Entry
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        e, err := editable(ctx, tx, id)
        if err != nil { return err }
        if err := tx.DeleteEntry(ctx, id); err != nil { return err }
        removed = e
        return nil
    })
    if err != nil { return ledger.Entry{}, err }
    s.log.Info("entry deleted", "entry_id", id.String(), "number", removed.Number)
    return removed, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
    return s.store.EntryByID(ctx, id)
}

func (s *service) List(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
    return s.store.ListEntries(ctx, f)
}
