// Package period manages fiscal periods: non-overlapping inclusive date ranges
// that move one way from open to closed.
package period

import (
    "context"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/code"
    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/storage"
)

type Service interface {
    Create(ctx context.Context, p ledger.FiscalPeriod) (ledger.FiscalPeriod, error)
    Close(ctx context.Context, id uuid.UUID) (ledger.Change[ledger.FiscalPeriod], error)
    Delete(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error)
    // PeriodFor returns the period covering date, or errs.ErrNoPeriod.
    PeriodFor(ctx context.Context, date time.Time) (ledger.FiscalPeriod, error)
    Get(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error)
    List(ctx context.Context) ([]ledger.FiscalPeriod, error)
}

// Option configures the service.
type Option func(*service)

// WithNow overrides the clock used for close dates.
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

// Lookup finds the period covering date. Periods never overlap, so at most one matches.
func Lookup(ctx context.Context, r storage.Reader, date time.Time) (ledger.FiscalPeriod, error) {
    ps, err := r.ListPeriods(ctx)
    if err != nil { return ledger.FiscalPeriod{}, err }
    for _, p := range ps {
        if p.Contains(date) { return p, nil }
    }
    return ledger.FiscalPeriod{}, fmt.Errorf("%s: %w", date.Format(time.DateOnly), errs.ErrNoPeriod)
}

// CloseWithin closes every open period lying entirely inside [start,end] and
// returns the periods it closed.
func CloseWithin(ctx context.Context, tx storage.Tx, start, end, at time.Time) ([]ledger.FiscalPeriod, error) {
    if err := tx.LockPeriods(ctx); err != nil { return nil, err }
    ps, err := tx.ListPeriods(ctx)
    if err != nil { return nil, err }
    var closed []ledger.FiscalPeriod
    for _, p := range ps {
        if p.Closed || !p.Within(start, end) { continue }
        locked, err := tx.PeriodForUpdate(ctx, p.ID)
        if err != nil { return nil, err }
        if locked.Closed { continue }
        p = locked
        p.Closed = true
        p.ClosedAt = &at
        if err := tx.UpdatePeriod(ctx, p); err != nil { return nil, err }
        closed = append(closed, p)
    }
    return closed, nil
}

func (s *service) Create(ctx context.Context, p ledger.FiscalPeriod) (ledger.FiscalPeriod, error) {
    if p.Start.IsZero() || p.End.IsZero() { return ledger.FiscalPeriod{}, errs.Invalid("start and end are required") }
    p.Start, p.End = ledger.Day(p.Start), ledger.Day(p.End)
    if p.End.Before(p.Start) { return ledger.FiscalPeriod{}, errs.Invalid("end is before start") }
    p.Code = strings.TrimSpace(p.Code)
    if p.Code == "" { p.Code = code.PeriodCode(p.Start) }
    p.ID = uuid.New()
    p.Closed = false
    p.ClosedAt = nil
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        if err := tx.LockPeriods(ctx); err != nil { return err }
        existing, err := tx.ListPeriods(ctx)
        if err != nil { return err }
        for _, other := range existing {
            if other.Overlaps(p.Start, p.End) {
                return fmt.Errorf("period %s overlaps %s: %w", p.Code, other.Code, errs.ErrOverlap)
            }
            if other.Code == p.Code {
                return fmt.Errorf("period %s: %w", p.Code, errs.ErrDuplicateCode)
            }
        }
        return tx.InsertPeriod(ctx, p)
    })
    if err != nil { return ledger.FiscalPeriod{}, err }
    return p, nil
}

func (s *service) Close(ctx context.Context, id uuid.UUID) (ledger.Change[ledger.FiscalPeriod], error) {
    var ch ledger.Change[ledger.FiscalPeriod]
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        before, err := tx.PeriodForUpdate(ctx, id)
        if err != nil { return err }
        if before.Closed { return fmt.Errorf("period %s: %w", before.Code, errs.ErrAlreadyClosed) }
        after := before
        at := s.now().UTC()
        after.Closed = true
        after.ClosedAt = &at
        if err := tx.UpdatePeriod(ctx, after); err != nil { return err }
        ch = ledger.Change[ledger.FiscalPeriod]{Before: before, After: after}
        return nil
    })
    if err != nil { return ch, err }
    s.log.Info("period closed", "period_id", id.String(), "code", ch.After.Code)
    return ch, nil
}

// Delete removes an open period that holds no entries.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    var removed ledger.FiscalPeriod
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        p, err := tx.PeriodForUpdate(ctx, id)
        if err != nil { return err }
        if p.Closed { return fmt.Errorf("period %s: %w", p.Code, errs.ErrPeriodClosed) }
        n, err := tx.CountEntriesBetween(ctx, p.Start, p.End)
        if err != nil { return err }
        if n > 0 { return fmt.Errorf("period %s has %d entries: %w", p.Code, n, errs.ErrInUse) }
        if err := tx.DeletePeriod(ctx, id); err != nil { return err }
        removed = p
        return nil
    })
    return removed, err
}

func (s *service) PeriodFor(ctx context.Context, date time.Time) (ledger.FiscalPeriod, error) {
    return Lookup(ctx, s.store, date)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    return s.store.PeriodByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]ledger.FiscalPeriod, error) {
    return s.store.ListPeriods(ctx)
}
