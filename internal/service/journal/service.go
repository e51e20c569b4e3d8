// Package journal manages the journal books entries are grouped into.
package journal

import (
    "context"
    "fmt"
    "strings"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/code"
    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/storage"
)

// Patch lists the editable fields of a journal; nil fields are left unchanged.
type Patch struct {
    Code   *string
    Label  *string
    Type   *ledger.JournalType
    Active *bool
}

type Service interface {
    Create(ctx context.Context, j ledger.Journal) (ledger.Journal, error)
    Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.Change[ledger.Journal], error)
    Delete(ctx context.Context, id uuid.UUID) (ledger.Journal, error)
    Get(ctx context.Context, id uuid.UUID) (ledger.Journal, error)
    List(ctx context.Context) ([]ledger.Journal, error)
}

type service struct {
    store storage.Store
}

func New(store storage.Store) Service { return &service{store: store} }

func validate(j ledger.Journal) (ledger.Journal, error) {
    j.Code = code.Normalize(strings.TrimSpace(j.Code))
    j.Label = strings.TrimSpace(j.Label)
    if j.Code == "" { return j, errs.Invalid("code is required") }
    if !code.IsJournalCode(j.Code) { return j, errs.Invalid("invalid journal code") }
    if j.Label == "" { return j, errs.Invalid("label is required") }
    if !j.Type.Valid() { return j, errs.Invalid("invalid journal type") }
    return j, nil
}

func uniqueCode(ctx context.Context, tx storage.Tx, j ledger.Journal) error {
    other, err := tx.JournalByCode(ctx, j.Code)
    if err == nil && other.ID != j.ID {
        return fmt.Errorf("journal %s: %w", j.Code, errs.ErrDuplicateCode)
    }
    if err != nil && errs.KindOf(err) != errs.ErrNotFound { return err }
    return nil
}

func (s *service) Create(ctx context.Context, j ledger.Journal) (ledger.Journal, error) {
    j, err := validate(j)
    if err != nil { return ledger.Journal{}, err }
    j.ID = uuid.New()
    j.EntryCount = 0
    err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        if err := uniqueCode(ctx, tx, j); err != nil { return err }
        return tx.InsertJournal(ctx, j)
    })
    if err != nil { return ledger.Journal{}, err }
    return j, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.Change[ledger.Journal], error) {
    var ch ledger.Change[ledger.Journal]
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        before, err := tx.JournalByID(ctx, id)
        if err != nil { return err }
        after := before
        if p.Code != nil { after.Code = *p.Code }
        if p.Label != nil { after.Label = *p.Label }
        if p.Type != nil { after.Type = *p.Type }
        if p.Active != nil { after.Active = *p.Active }
        after, err = validate(after)
        if err != nil { return err }
        if err := uniqueCode(ctx, tx, after); err != nil { return err }
        if err := tx.UpdateJournal(ctx, after); err != nil { return err }
        ch = ledger.Change[ledger.Journal]{Before: before, After: after}
        return nil
    })
    return ch, err
}

// Delete removes a journal that holds no entries.
func (s *service) Delete(ctx context.Context, id uuid.UUID) (ledger.Journal, error) {
    var removed ledger.Journal
    err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
        j, err := tx.JournalByID(ctx, id)
        if err != nil { return err }
        n, err := tx.CountEntriesForJournal(ctx, id)
        if err != nil { return err }
        if n > 0 { return fmt.Errorf("journal %s has %d entries: %w", j.Code, n, errs.ErrInUse) }
        if err := tx.DeleteJournal(ctx, id); err != nil { return err }
        removed = j
        return nil
    })
    return removed, err
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Journal, error) {
    return s.store.JournalByID(ctx, id)
}

func (s *service) List(ctx context.Context) ([]ledger.Journal, error) {
    return s.store.ListJournals(ctx)
}
