// Package memory provides an in-memory Store used for development and tests.
//
// Published state is never mutated: a transaction works on a copy of the maps
// and the copy replaces the live state only when the transaction succeeds, so a
// failed transaction leaves nothing behind.
package memory

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/storage"
)

type state struct {
    accounts   map[uuid.UUID]ledger.Account
    journals   map[uuid.UUID]ledger.Journal
    periods    map[uuid.UUID]ledger.FiscalPeriod
    entries    map[uuid.UUID]ledger.Entry
    templates  map[uuid.UUID]ledger.OperationTemplate
    years      map[uuid.UUID]ledger.FiscalYear
    lastNumber int64
}

func newState() *state {
    return &state{
        accounts:  make(map[uuid.UUID]ledger.Account),
        journals:  make(map[uuid.UUID]ledger.Journal),
        periods:   make(map[uuid.UUID]ledger.FiscalPeriod),
        entries:   make(map[uuid.UUID]ledger.Entry),
        templates: make(map[uuid.UUID]ledger.OperationTemplate),
        years:     make(map[uuid.UUID]ledger.FiscalYear),
    }
}

// clone copies the maps. Values holding slices are replaced wholesale on write,
// never mutated in place, so a shallow copy is enough.
func (s *state) clone() *state {
    out := &state{
        accounts:   make(map[uuid.UUID]ledger.Account, len(s.accounts)),
        journals:   make(map[uuid.UUID]ledger.Journal, len(s.journals)),
        periods:    make(map[uuid.UUID]ledger.FiscalPeriod, len(s.periods)),
        entries:    make(map[uuid.UUID]ledger.Entry, len(s.entries)),
        templates:  make(map[uuid.UUID]ledger.OperationTemplate, len(s.templates)),
        years:      make(map[uuid.UUID]ledger.FiscalYear, len(s.years)),
        lastNumber: s.lastNumber,
    }
    for k, v := range s.accounts { out.accounts[k] = v }
    for k, v := range s.journals { out.journals[k] = v }
    for k, v := range s.periods { out.periods[k] = v }
    for k, v := range s.entries { out.entries[k] = v }
    for k, v := range s.templates { out.templates[k] = v }
    for k, v := range s.years { out.years[k] = v }
    return out
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
    // txMu serializes transactions; mu guards the cur pointer.
    txMu sync.Mutex
    mu   sync.RWMutex
    cur  *state

    idemMu sync.RWMutex
    idem   map[string]uuid.UUID
}

// New constructs an empty in-memory store.
func New() *Store {
    return &Store{cur: newState(), idem: make(map[string]uuid.UUID)}
}

func (s *Store) snapshot() view {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return view{st: s.cur}
}

// WithTx implements storage.Store.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
    if err := ctx.Err(); err != nil { return err }
    s.txMu.Lock()
    defer s.txMu.Unlock()
    work := s.snapshot().st.clone()
    if err := fn(ctx, &tx{view: view{st: work}}); err != nil {
        return err
    }
    s.mu.Lock()
    s.cur = work
    s.mu.Unlock()
    return nil
}

// Ready implements the readiness probe; the memory store is always ready.
func (s *Store) Ready(context.Context) error { return nil }

// Reader methods on the latest published state.

func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
    return s.snapshot().AccountByID(ctx, id)
}

func (s *Store) AccountByNumber(ctx context.Context, number string) (ledger.Account, error) {
    return s.snapshot().AccountByNumber(ctx, number)
}

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
    return s.snapshot().ListAccounts(ctx)
}

func (s *Store) JournalByID(ctx context.Context, id uuid.UUID) (ledger.Journal, error) {
    return s.snapshot().JournalByID(ctx, id)
}

func (s *Store) JournalByCode(ctx context.Context, code string) (ledger.Journal, error) {
    return s.snapshot().JournalByCode(ctx, code)
}

func (s *Store) ListJournals(ctx context.Context) ([]ledger.Journal, error) {
    return s.snapshot().ListJournals(ctx)
}

func (s *Store) PeriodByID(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    return s.snapshot().PeriodByID(ctx, id)
}

func (s *Store) ListPeriods(ctx context.Context) ([]ledger.FiscalPeriod, error) {
    return s.snapshot().ListPeriods(ctx)
}

func (s *Store) EntryByID(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
    return s.snapshot().EntryByID(ctx, id)
}

func (s *Store) ListEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
    return s.snapshot().ListEntries(ctx, f)
}

func (s *Store) TemplateByID(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error) {
    return s.snapshot().TemplateByID(ctx, id)
}

func (s *Store) ListTemplates(ctx context.Context) ([]ledger.OperationTemplate, error) {
    return s.snapshot().ListTemplates(ctx)
}

func (s *Store) YearByID(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error) {
    return s.snapshot().YearByID(ctx, id)
}

func (s *Store) ListYears(ctx context.Context) ([]ledger.FiscalYear, error) {
    return s.snapshot().ListYears(ctx)
}

// EntryByIdempotencyKey implements storage.IdempotencyStore.
func (s *Store) EntryByIdempotencyKey(ctx context.Context, key string) (ledger.Entry, bool, error) {
    s.idemMu.RLock()
    id, ok := s.idem[key]
    s.idemMu.RUnlock()
    if !ok { return ledger.Entry{}, false, nil }
    e, err := s.EntryByID(ctx, id)
    if err != nil { return ledger.Entry{}, false, nil }
    return e, true, nil
}

// SaveIdempotencyKey implements storage.IdempotencyStore.
func (s *Store) SaveIdempotencyKey(_ context.Context, key string, entryID uuid.UUID) error {
    s.idemMu.Lock(); defer s.idemMu.Unlock()
    // Only set if absent to preserve idempotency
    if _, exists := s.idem[key]; !exists {
        s.idem[key] = entryID
    }
    return nil
}

// view reads one immutable state.
type view struct{ st *state }

func (v view) AccountByID(_ context.Context, id uuid.UUID) (ledger.Account, error) {
    a, ok := v.st.accounts[id]
    if !ok { return ledger.Account{}, errs.Missing("account") }
    return a, nil
}

func (v view) AccountByNumber(_ context.Context, number string) (ledger.Account, error) {
    for _, a := range v.st.accounts {
        if a.Number == number { return a, nil }
    }
    return ledger.Account{}, errs.Missing("account")
}

func (v view) ListAccounts(context.Context) ([]ledger.Account, error) {
    out := make([]ledger.Account, 0, len(v.st.accounts))
    for _, a := range v.st.accounts { out = append(out, a) }
    sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
    return out, nil
}

func (v view) journalWithCount(j ledger.Journal) ledger.Journal {
    j.EntryCount = 0
    for _, e := range v.st.entries {
        if e.JournalID == j.ID { j.EntryCount++ }
    }
    return j
}

func (v view) JournalByID(_ context.Context, id uuid.UUID) (ledger.Journal, error) {
    j, ok := v.st.journals[id]
    if !ok { return ledger.Journal{}, errs.Missing("journal") }
    return v.journalWithCount(j), nil
}

func (v view) JournalByCode(_ context.Context, code string) (ledger.Journal, error) {
    for _, j := range v.st.journals {
        if j.Code == code { return v.journalWithCount(j), nil }
    }
    return ledger.Journal{}, errs.Missing("journal")
}

func (v view) ListJournals(context.Context) ([]ledger.Journal, error) {
    out := make([]ledger.Journal, 0, len(v.st.journals))
    for _, j := range v.st.journals { out = append(out, v.journalWithCount(j)) }
    sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
    return out, nil
}

func (v view) PeriodByID(_ context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    p, ok := v.st.periods[id]
    if !ok { return ledger.FiscalPeriod{}, errs.Missing("period") }
    return p, nil
}

func (v view) ListPeriods(context.Context) ([]ledger.FiscalPeriod, error) {
    out := make([]ledger.FiscalPeriod, 0, len(v.st.periods))
    for _, p := range v.st.periods { out = append(out, p) }
    sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
    return out, nil
}

func (v view) EntryByID(_ context.Context, id uuid.UUID) (ledger.Entry, error) {
    e, ok := v.st.entries[id]
    if !ok { return ledger.Entry{}, errs.Missing("entry") }
    return e.Clone(), nil
}

func (v view) ListEntries(_ context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
    out := make([]ledger.Entry, 0)
    for _, e := range v.st.entries {
        if f.Match(e) { out = append(out, e.Clone()) }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
    return out, nil
}

func (v view) TemplateByID(_ context.Context, id uuid.UUID) (ledger.OperationTemplate, error) {
    t, ok := v.st.templates[id]
    if !ok { return ledger.OperationTemplate{}, errs.Missing("operation template") }
    return cloneTemplate(t), nil
}

func (v view) ListTemplates(context.Context) ([]ledger.OperationTemplate, error) {
    out := make([]ledger.OperationTemplate, 0, len(v.st.templates))
    for _, t := range v.st.templates { out = append(out, cloneTemplate(t)) }
    sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
    return out, nil
}

func (v view) YearByID(_ context.Context, id uuid.UUID) (ledger.FiscalYear, error) {
    y, ok := v.st.years[id]
    if !ok { return ledger.FiscalYear{}, errs.Missing("fiscal year") }
    return y, nil
}

func (v view) ListYears(context.Context) ([]ledger.FiscalYear, error) {
    out := make([]ledger.FiscalYear, 0, len(v.st.years))
    for _, y := range v.st.years { out = append(out, y) }
    sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
    return out, nil
}

func cloneTemplate(t ledger.OperationTemplate) ledger.OperationTemplate {
    t.Rules = append([]ledger.CounterpartyRule(nil), t.Rules...)
    if t.ClientCeiling != nil {
        c := *t.ClientCeiling
        t.ClientCeiling = &c
    }
    return t
}

// tx writes to a private copy of the state. The Store holds txMu for its whole
// lifetime, so the ForUpdate and Lock methods have nothing left to lock.
type tx struct {
    view
}

func (t *tx) AccountForUpdate(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
    return t.AccountByID(ctx, id)
}

func (t *tx) EntryForUpdate(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
    return t.EntryByID(ctx, id)
}

func (t *tx) PeriodForUpdate(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    return t.PeriodByID(ctx, id)
}

func (t *tx) YearForUpdate(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error) {
    return t.YearByID(ctx, id)
}

func (t *tx) LockPeriods(context.Context) error { return nil }
func (t *tx) LockYears(context.Context) error   { return nil }
func (t *tx) LockChart(context.Context) error   { return nil }

func (t *tx) CountLinesForAccount(_ context.Context, accountID uuid.UUID) (int, error) {
    n := 0
    for _, e := range t.st.entries {
        for _, ln := range e.Lines {
            if ln.AccountID == accountID { n++ }
        }
    }
    return n, nil
}

func (t *tx) CountTemplatesForAccount(_ context.Context, accountID uuid.UUID) (int, error) {
    n := 0
    for _, tpl := range t.st.templates {
        if tpl.ReferencesAccount(accountID) { n++ }
    }
    return n, nil
}

func (t *tx) CountEntriesForJournal(_ context.Context, journalID uuid.UUID) (int, error) {
    n := 0
    for _, e := range t.st.entries {
        if e.JournalID == journalID { n++ }
    }
    return n, nil
}

func (t *tx) CountEntriesBetween(_ context.Context, from, to time.Time) (int, error) {
    from, to = ledger.Day(from), ledger.Day(to)
    n := 0
    for _, e := range t.st.entries {
        if !e.Date.Before(from) && !e.Date.After(to) { n++ }
    }
    return n, nil
}

func (t *tx) AccountBalance(_ context.Context, accountID uuid.UUID) (int64, error) {
    var bal int64
    for _, e := range t.st.entries {
        for _, ln := range e.Lines {
            if ln.AccountID == accountID { bal += ln.Debit - ln.Credit }
        }
    }
    return bal, nil
}

func (t *tx) NextEntryNumber(context.Context) (int64, error) {
    t.st.lastNumber++
    return t.st.lastNumber, nil
}

func (t *tx) InsertAccount(_ context.Context, a ledger.Account) error {
    if _, ok := t.st.accounts[a.ID]; ok { return errs.ErrDuplicateCode }
    t.st.accounts[a.ID] = a
    return nil
}

func (t *tx) UpdateAccount(_ context.Context, a ledger.Account) error {
    if _, ok := t.st.accounts[a.ID]; !ok { return errs.Missing("account") }
    t.st.accounts[a.ID] = a
    return nil
}

func (t *tx) DeleteAccount(_ context.Context, id uuid.UUID) error {
    if _, ok := t.st.accounts[id]; !ok { return errs.Missing("account") }
    delete(t.st.accounts, id)
    return nil
}

func (t *tx) InsertJournal(_ context.Context, j ledger.Journal) error {
    if _, ok := t.st.journals[j.ID]; ok { return errs.ErrDuplicateCode }
    j.EntryCount = 0
    t.st.journals[j.ID] = j
    return nil
}

func (t *tx) UpdateJournal(_ context.Context, j ledger.Journal) error {
    if _, ok := t.st.journals[j.ID]; !ok { return errs.Missing("journal") }
    j.EntryCount = 0
    t.st.journals[j.ID] = j
    return nil
}

func (t *tx) DeleteJournal(_ context.Context, id uuid.UUID) error {
    if _, ok := t.st.journals[id]; !ok { return errs.Missing("journal") }
    delete(t.st.journals, id)
    return nil
}

func (t *tx) InsertPeriod(_ context.Context, p ledger.FiscalPeriod) error {
    t.st.periods[p.ID] = p
    return nil
}

func (t *tx) UpdatePeriod(_ context.Context, p ledger.FiscalPeriod) error {
    if _, ok := t.st.periods[p.ID]; !ok { return errs.Missing("period") }
    t.st.periods[p.ID] = p
    return nil
}

func (t *tx) DeletePeriod(_ context.Context, id uuid.UUID) error {
    if _, ok := t.st.periods[id]; !ok { return errs.Missing("period") }
    delete(t.st.periods, id)
    return nil
}

func (t *tx) InsertEntry(_ context.Context, e ledger.Entry) error {
    if _, ok := t.st.entries[e.ID]; ok { return errs.Invalid("entry already exists") }
    t.st.entries[e.ID] = e.Clone()
    return nil
}

func (t *tx) UpdateEntry(_ context.Context, e ledger.Entry) error {
    if _, ok := t.st.entries[e.ID]; !ok { return errs.Missing("entry") }
    t.st.entries[e.ID] = e.Clone()
    return nil
}

func (t *tx) DeleteEntry(_ context.Context, id uuid.UUID) error {
    if _, ok := t.st.entries[id]; !ok { return errs.Missing("entry") }
    delete(t.st.entries, id)
    return nil
}

func (t *tx) InsertTemplate(_ context.Context, tpl ledger.OperationTemplate) error {
    t.st.templates[tpl.ID] = cloneTemplate(tpl)
    return nil
}

func (t *tx) UpdateTemplate(_ context.Context, tpl ledger.OperationTemplate) error {
    if _, ok := t.st.templates[tpl.ID]; !ok { return errs.Missing("operation template") }
    t.st.templates[tpl.ID] = cloneTemplate(tpl)
    return nil
}

func (t *tx) DeleteTemplate(_ context.Context, id uuid.UUID) error {
    if _, ok := t.st.templates[id]; !ok { return errs.Missing("operation template") }
    delete(t.st.templates, id)
    return nil
}

func (t *tx) InsertYear(_ context.Context, y ledger.FiscalYear) error {
    t.st.years[y.ID] = y
    return nil
}

func (t *tx) UpdateYear(_ context.Context, y ledger.FiscalYear) error {
    if _, ok := t.st.years[y.ID]; !ok { return errs.Missing("fiscal year") }
    t.st.years[y.ID] = y
    return nil
}
