// Package account implements the chart of accounts: unique numbers, leaf-only
// posting, and deletion guarded by entry and template references.
package account

import (
    "context"
    "fmt"
    "strings"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/code"
    "github.com/tinoosan/compta/internal/dictionary"
    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/storage"
)

// Patch lists the editable fields of an account; nil fields are left unchanged.
type Patch struct {
    Number     *string
    Name       *string
    Type       *ledger.AccountType
    AllowEntry *bool
    Static     *bool
    Active     *bool
}

type Service interface {
    Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
    Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.Change[ledger.Account], error)
    Delete(ctx context.Context, id uuid.UUID) (ledger.Account, error)
    Get(ctx context.Context, id uuid.UUID) (ledger.Account, error)
    List(ctx context.Context) ([]ledger.Account, error)
}

type service struct {
    store storage.Store
}

func New(store storage.Store) Service { return &service{store: store} }

// normalize cleans the number and fills the type from the account class when omitted.
func normalize(a ledger.Account) (ledger.Account, error) {
    a.Number = code.Normalize(strings.TrimSpace(a.Number))
    a.Name = strings.TrimSpace(a.Name)
    if a.Number == "" { return a, errs.Invalid("number is required") }
    if !code.IsAccountNumber(a.Number) { return a, errs.Invalid("invalid account number") }
    if a.Name == "" { return a, errs.Invalid("name is required") }
    if a.Type == "" {
        t, ok := dictionary.TypeFor(a.Number)
        if !ok { return a, errs.Invalid("type is required") }
        a.Type = t
    }
    if !a.Type.Valid() { return a, errs.Invalid("invalid account type") }
    return a, nil
}

// checkChart enforces unique numbers and leaf-only posting against the rest of the chart.
func checkChart(ctx context.Context, tx storage.Tx, a ledger.Account) error {
    if err := tx.LockChart(ctx); err != nil { return err }
    all, err := tx.ListAccounts(ctx)
    if err != nil { return err }
    for _, other := range all {
        if other.ID == a.ID { continue }
        if other.Number == a.Number {
            return fmt.Errorf("account %s: %w", a.Number, errs.ErrDuplicateCode)
        }
        if a.AllowEntry && a.IsAncestorOf(other) {
            return errs.Invalid(fmt.Sprintf("account %s has sub-accounts and cannot accept entries", a.Number))
        }
        if other.AllowEntry && other.IsAncestorOf(a) {
            return errs.Invalid(fmt.Sprintf("parent account %s accepts entries", other.Number))
        }
    }
    return nil
}

func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
    a, err := normalize(a)
    if err != nil { return ledger.Account{}, err }
    a.ID = uuid.New()
    err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        if err := checkChart(ctx, tx, a); err != nil { return err }
        return tx.InsertAccount(ctx, a)
    })
    if err != nil { return ledger.Account{}, err }
    return a, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.Change[ledger.Account], error) {
    var ch ledger.Change[ledger.Account]
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        if err := tx.LockChart(ctx); err != nil { return err }
        before, err := tx.AccountForUpdate(ctx, id)
        if err != nil { return err }
        after := before
        if p.Number != nil { after.Number = *p.Number }
        if p.Name != nil { after.Name = *p.Name }
        if p.Type != nil { after.Type = *p.Type }
        if p.AllowEntry != nil { after.AllowEntry = *p.AllowEntry }
        if p.Static != nil { after.Static = *p.Static }
        if p.Active != nil { after.Active = *p.Active }
        after, err = normalize(after)
        if err != nil { return err }
        if err := checkChart(ctx, tx, after); err != nil { return err }
        if err := tx.UpdateAccount(ctx, after); err != nil { return err }
        ch = ledger.Change[ledger.Account]{Before: before, After: after}
        return nil
    })
    return ch, err
}

// Delete removes an account that no detail line or operation template references.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
    var removed ledger.Account
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        a, err := tx.AccountByID(ctx, id)
        if err != nil { return err }
        n, err := tx.CountLinesForAccount(ctx, id)
        if err != nil { return err }
        if n > 0 { return fmt.Errorf("account %s has %d detail lines: %w", a.Number, n, errs.ErrInUse) }
        n, err = tx.CountTemplatesForAccount(ctx, id)
        if err != nil { return err }
        if n > 0 { return fmt.Errorf("account %s is used by %d operation templates: %w", a.Number, n, errs.ErrInUse) }
        if err := tx.DeleteAccount(ctx, id); err != nil { return err }
        removed = a
        return nil
    })
    return removed, err
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
    return s.store.AccountByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]ledger.Account, error) {
    return s.store.ListAccounts(ctx)
}
