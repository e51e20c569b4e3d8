// Package fiscalyear runs the fiscal year lifecycle (open, active, closed) and
// computes year-level figures.
package fiscalyear

import (
    "context"
    "fmt"
    "log/slog"
    "strings"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/service/period"
    "github.com/tinoosan/compta/internal/storage"
)

type Service interface {
    Create(ctx context.Context, y ledger.FiscalYear) (ledger.FiscalYear, error)
    Activate(ctx context.Context, id uuid.UUID) (ledger.Change[ledger.FiscalYear], error)
    // Close closes an active year and every open period lying inside it.
    Close(ctx context.Context, id uuid.UUID) (Closure, error)
    Summary(ctx context.Context, id uuid.UUID, orders []ledger.Order, topN int) (Summary, error)
    Balances(ctx context.Context, id uuid.UUID) (Balances, error)
    Periods(ctx context.Context, id uuid.UUID) ([]ledger.FiscalPeriod, error)
    Get(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error)
    List(ctx context.Context) ([]ledger.FiscalYear, error)
}

// Closure is the outcome of closing a year.
type Closure struct {
    Year          ledger.Change[ledger.FiscalYear]
    ClosedPeriods []ledger.FiscalPeriod
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

func (s *service) Create(ctx context.Context, y ledger.FiscalYear) (ledger.FiscalYear, error) {
    y.Name = strings.TrimSpace(y.Name)
    if y.Name == "" { return ledger.FiscalYear{}, errs.Invalid("name is required") }
    if y.Start.IsZero() || y.End.IsZero() { return ledger.FiscalYear{}, errs.Invalid("start and end are required") }
    y.Start, y.End = ledger.Day(y.Start), ledger.Day(y.End)
    if y.End.Before(y.Start) { return ledger.FiscalYear{}, errs.Invalid("end is before start") }
    y.ID = uuid.New()
    y.Status = ledger.YearOpen
    y.ClosedAt = nil
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        if err := tx.LockYears(ctx); err != nil { return err }
        years, err := tx.ListYears(ctx)
        if err != nil { return err }
        for _, other := range years {
            if !y.Start.After(other.End) && !y.End.Before(other.Start) {
                return fmt.Errorf("year %s overlaps %s: %w", y.Name, other.Name, errs.ErrOverlap)
            }
        }
        return tx.InsertYear(ctx, y)
    })
    if err != nil { return ledger.FiscalYear{}, err }
    return y, nil
}

func (s *service) Activate(ctx context.Context, id uuid.UUID) (ledger.Change[ledger.FiscalYear], error) {
    var ch ledger.Change[ledger.FiscalYear]
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        // serializes concurrent activations of different years
        if err := tx.LockYears(ctx); err != nil { return err }
        before, err := tx.YearForUpdate(ctx, id)
        if err != nil { return err }
        if before.Status != ledger.YearOpen {
            return fmt.Errorf("year %s is %s: %w", before.Name, before.Status, errs.ErrInvalidTransition)
        }
        years, err := tx.ListYears(ctx)
        if err != nil { return err }
        for _, other := range years {
            if other.ID != id && other.Status == ledger.YearActive {
                return fmt.Errorf("year %s is active: %w", other.Name, errs.ErrMultipleActiveYears)
            }
        }
        after := before
        after.Status = ledger.YearActive
        if err := tx.UpdateYear(ctx, after); err != nil { return err }
        ch = ledger.Change[ledger.FiscalYear]{Before: before, After: after}
        return nil
    })
    if err != nil { return ch, err }
    s.log.Info("fiscal year activated", "year_id", id.String(), "name", ch.After.Name)
    return ch, nil
}

func (s *service) Close(ctx context.Context, id uuid.UUID) (Closure, error) {
    var out Closure
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        before, err := tx.YearForUpdate(ctx, id)
        if err != nil { return err }
        if before.Status != ledger.YearActive {
            return fmt.Errorf("year %s is %s: %w", before.Name, before.Status, errs.ErrInvalidTransition)
        }
        at := s.now().UTC()
        closed, err := period.CloseWithin(ctx, tx, before.Start, before.End, at)
        if err != nil { return err }
        after := before
        after.Status = ledger.YearClosed
        after.ClosedAt = &at
        if err := tx.UpdateYear(ctx, after); err != nil { return err }
        out = Closure{Year: ledger.Change[ledger.FiscalYear]{Before: before, After: after}, ClosedPeriods: closed}
        return nil
    })
    if err != nil { return Closure{}, err }
    s.log.Info("fiscal year closed", "year_id", id.String(), "name", out.Year.After.Name, "periods_closed", len(out.ClosedPeriods))
    return out, nil
}

// Periods returns the periods lying entirely inside the year.
func (s *service) Periods(ctx context.Context, id uuid.UUID) ([]ledger.FiscalPeriod, error) {
    y, err := s.store.YearByID(ctx, id)
    if err != nil { return nil, err }
    ps, err := s.store.ListPeriods(ctx)
    if err != nil { return nil, err }
    out := make([]ledger.FiscalPeriod, 0, len(ps))
    for _, p := range ps {
        if p.Within(y.Start, y.End) { out = append(out, p) }
    }
    return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error) {
    return s.store.YearByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]ledger.FiscalYear, error) {
    return s.store.ListYears(ctx)
}
