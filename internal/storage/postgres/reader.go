package postgres

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/shopspring/decimal"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
)

// reader implements storage.Reader over a pool or a transaction.
type reader struct{ q querier }

type scanner interface{ Scan(dest ...any) error }

func notFound(err error, what string) error {
    if errors.Is(err, pgx.ErrNoRows) { return errs.Missing(what) }
    return err
}

// --- Accounts ---

const accountCols = `id, number, name, type, allow_entry, static, active`

func scanAccount(row scanner) (ledger.Account, error) {
    var a ledger.Account
    err := row.Scan(&a.ID, &a.Number, &a.Name, &a.Type, &a.AllowEntry, &a.Static, &a.Active)
    return a, err
}

func (r reader) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
    a, err := scanAccount(r.q.QueryRow(ctx, `select `+accountCols+` from accounts where id=$1`, id))
    return a, notFound(err, "account")
}

func (r reader) AccountByNumber(ctx context.Context, number string) (ledger.Account, error) {
    a, err := scanAccount(r.q.QueryRow(ctx, `select `+accountCols+` from accounts where number=$1`, number))
    return a, notFound(err, "account")
}

func (r reader) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
    rows, err := r.q.Query(ctx, `select `+accountCols+` from accounts order by number`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Account, 0)
    for rows.Next() {
        a, err := scanAccount(rows)
        if err != nil { return nil, err }
        out = append(out, a)
    }
    return out, rows.Err()
}

// --- Journals ---

const journalCols = `j.id, j.code, j.label, j.type, j.active,
    (select count(*) from entries e where e.journal_id = j.id)`

func scanJournal(row scanner) (ledger.Journal, error) {
    var j ledger.Journal
    err := row.Scan(&j.ID, &j.Code, &j.Label, &j.Type, &j.Active, &j.EntryCount)
    return j, err
}

func (r reader) JournalByID(ctx context.Context, id uuid.UUID) (ledger.Journal, error) {
    j, err := scanJournal(r.q.QueryRow(ctx, `select `+journalCols+` from journals j where j.id=$1`, id))
    return j, notFound(err, "journal")
}

func (r reader) JournalByCode(ctx context.Context, code string) (ledger.Journal, error) {
    j, err := scanJournal(r.q.QueryRow(ctx, `select `+journalCols+` from journals j where j.code=$1`, code))
    return j, notFound(err, "journal")
}

func (r reader) ListJournals(ctx context.Context) ([]ledger.Journal, error) {
    rows, err := r.q.Query(ctx, `select `+journalCols+` from journals j order by j.code`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.Journal, 0)
    for rows.Next() {
        j, err := scanJournal(rows)
        if err != nil { return nil, err }
        out = append(out, j)
    }
    return out, rows.Err()
}

// --- Periods ---

const periodCols = `id, code, start_date, end_date, closed, closed_at`

func scanPeriod(row scanner) (ledger.FiscalPeriod, error) {
    var p ledger.FiscalPeriod
    err := row.Scan(&p.ID, &p.Code, &p.Start, &p.End, &p.Closed, &p.ClosedAt)
    p.Start, p.End = ledger.Day(p.Start), ledger.Day(p.End)
    return p, err
}

func (r reader) PeriodByID(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    p, err := scanPeriod(r.q.QueryRow(ctx, `select `+periodCols+` from fiscal_periods where id=$1`, id))
    return p, notFound(err, "period")
}

func (r reader) ListPeriods(ctx context.Context) ([]ledger.FiscalPeriod, error) {
    rows, err := r.q.Query(ctx, `select `+periodCols+` from fiscal_periods order by start_date`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.FiscalPeriod, 0)
    for rows.Next() {
        p, err := scanPeriod(rows)
        if err != nil { return nil, err }
        out = append(out, p)
    }
    return out, rows.Err()
}

// --- Entries ---

const entryCols = `id, number, label, entry_date, journal_id, period_id, total_debit, total_credit,
    validated, validated_at, validated_by, reference, notes, template_id,
    created_by, updated_by, created_at, updated_at`

func scanEntry(row scanner) (ledger.Entry, error) {
    var e ledger.Entry
    err := row.Scan(&e.ID, &e.Number, &e.Label, &e.Date, &e.JournalID, &e.PeriodID, &e.TotalDebit, &e.TotalCredit,
        &e.Validated, &e.ValidatedAt, &e.ValidatedBy, &e.Reference, &e.Notes, &e.TemplateID,
        &e.CreatedBy, &e.UpdatedBy, &e.CreatedAt, &e.UpdatedAt)
    e.Date = ledger.Day(e.Date)
    return e, err
}

// loadLines fills the lines of the given entries in position order.
func (r reader) loadLines(ctx context.Context, entries []ledger.Entry) error {
    if len(entries) == 0 { return nil }
    ids := make([]uuid.UUID, len(entries))
    idx := make(map[uuid.UUID]int, len(entries))
    for i, e := range entries {
        ids[i] = e.ID
        idx[e.ID] = i
        entries[i].Lines = make([]ledger.DetailLine, 0, 2)
    }
    rows, err := r.q.Query(ctx, `
        select id, entry_id, account_id, label, debit, credit, notes
        from entry_lines
        where entry_id = any($1)
        order by entry_id, position
    `, ids)
    if err != nil { return err }
    defer rows.Close()
    for rows.Next() {
        var ln ledger.DetailLine
        if err := rows.Scan(&ln.ID, &ln.EntryID, &ln.AccountID, &ln.Label, &ln.Debit, &ln.Credit, &ln.Notes); err != nil { return err }
        i, ok := idx[ln.EntryID]
        if !ok { continue }
        entries[i].Lines = append(entries[i].Lines, ln)
    }
    return rows.Err()
}

func (r reader) entry(ctx context.Context, query string, id uuid.UUID) (ledger.Entry, error) {
    e, err := scanEntry(r.q.QueryRow(ctx, query, id))
    if err != nil { return ledger.Entry{}, notFound(err, "entry") }
    one := []ledger.Entry{e}
    if err := r.loadLines(ctx, one); err != nil { return ledger.Entry{}, err }
    return one[0], nil
}

func (r reader) EntryByID(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
    return r.entry(ctx, `select `+entryCols+` from entries where id=$1`, id)
}

func (r reader) ListEntries(ctx context.Context, f ledger.EntryFilter) ([]ledger.Entry, error) {
    where := make([]string, 0, 5)
    args := make([]any, 0, 5)
    add := func(cond string, v any) {
        args = append(args, v)
        where = append(where, fmt.Sprintf(cond, len(args)))
    }
    if f.PeriodID != uuid.Nil { add("period_id = $%d", f.PeriodID) }
    if f.JournalID != uuid.Nil { add("journal_id = $%d", f.JournalID) }
    if f.Validated != nil { add("validated = $%d", *f.Validated) }
    if f.From != nil { add("entry_date >= $%d", ledger.Day(*f.From)) }
    if f.To != nil { add("entry_date <= $%d", ledger.Day(*f.To)) }
    q := `select ` + entryCols + ` from entries`
    if len(where) > 0 { q += ` where ` + strings.Join(where, " and ") }
    q += ` order by number`

    rows, err := r.q.Query(ctx, q, args...)
    if err != nil { return nil, err }
    out := make([]ledger.Entry, 0)
    for rows.Next() {
        e, err := scanEntry(rows)
        if err != nil { rows.Close(); return nil, err }
        out = append(out, e)
    }
    rows.Close()
    if err := rows.Err(); err != nil { return nil, err }
    if err := r.loadLines(ctx, out); err != nil { return nil, err }
    return out, nil
}

// --- Templates ---

const templateCols = `id, label, payment_mode, principal_account_id, principal_static, principal_side,
    principal_basis, journal_id, client_ceiling, active`

func scanTemplate(row scanner) (ledger.OperationTemplate, error) {
    var t ledger.OperationTemplate
    var principal *uuid.UUID
    err := row.Scan(&t.ID, &t.Label, &t.PaymentMode, &principal, &t.PrincipalStatic, &t.PrincipalSide,
        &t.PrincipalBasis, &t.JournalID, &t.ClientCeiling, &t.Active)
    if principal != nil { t.PrincipalAccountID = *principal }
    return t, err
}

func (r reader) loadRules(ctx context.Context, ts []ledger.OperationTemplate) error {
    if len(ts) == 0 { return nil }
    ids := make([]uuid.UUID, len(ts))
    idx := make(map[uuid.UUID]int, len(ts))
    for i, t := range ts {
        ids[i] = t.ID
        idx[t.ID] = i
    }
    rows, err := r.q.Query(ctx, `
        select template_id, account_id, third_party, basis, journal_family, side, ratio::text
        from counterparty_rules
        where template_id = any($1)
        order by template_id, position
    `, ids)
    if err != nil { return err }
    defer rows.Close()
    for rows.Next() {
        var (
            tplID   uuid.UUID
            account *uuid.UUID
            ratio   string
            rule    ledger.CounterpartyRule
        )
        if err := rows.Scan(&tplID, &account, &rule.ThirdParty, &rule.Basis, &rule.JournalFamily, &rule.Side, &ratio); err != nil { return err }
        if account != nil { rule.AccountID = *account }
        d, err := decimal.NewFromString(ratio)
        if err != nil { return err }
        rule.Ratio = d
        i, ok := idx[tplID]
        if !ok { continue }
        ts[i].Rules = append(ts[i].Rules, rule)
    }
    return rows.Err()
}

func (r reader) TemplateByID(ctx context.Context, id uuid.UUID) (ledger.OperationTemplate, error) {
    t, err := scanTemplate(r.q.QueryRow(ctx, `select `+templateCols+` from operation_templates where id=$1`, id))
    if err != nil { return ledger.OperationTemplate{}, notFound(err, "operation template") }
    one := []ledger.OperationTemplate{t}
    if err := r.loadRules(ctx, one); err != nil { return ledger.OperationTemplate{}, err }
    return one[0], nil
}

func (r reader) ListTemplates(ctx context.Context) ([]ledger.OperationTemplate, error) {
    rows, err := r.q.Query(ctx, `select `+templateCols+` from operation_templates order by label`)
    if err != nil { return nil, err }
    out := make([]ledger.OperationTemplate, 0)
    for rows.Next() {
        t, err := scanTemplate(rows)
        if err != nil { rows.Close(); return nil, err }
        out = append(out, t)
    }
    rows.Close()
    if err := rows.Err(); err != nil { return nil, err }
    if err := r.loadRules(ctx, out); err != nil { return nil, err }
    return out, nil
}

// --- Years ---

const yearCols = `id, name, start_date, end_date, status, closed_at`

func scanYear(row scanner) (ledger.FiscalYear, error) {
    var y ledger.FiscalYear
    err := row.Scan(&y.ID, &y.Name, &y.Start, &y.End, &y.Status, &y.ClosedAt)
    y.Start, y.End = ledger.Day(y.Start), ledger.Day(y.End)
    return y, err
}

func (r reader) YearByID(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error) {
    y, err := scanYear(r.q.QueryRow(ctx, `select `+yearCols+` from fiscal_years where id=$1`, id))
    return y, notFound(err, "fiscal year")
}

func (r reader) ListYears(ctx context.Context) ([]ledger.FiscalYear, error) {
    rows, err := r.q.Query(ctx, `select `+yearCols+` from fiscal_years order by start_date`)
    if err != nil { return nil, err }
    defer rows.Close()
    out := make([]ledger.FiscalYear, 0)
    for rows.Next() {
        y, err := scanYear(rows)
        if err != nil { return nil, err }
        out = append(out, y)
    }
    return out, rows.Err()
}
