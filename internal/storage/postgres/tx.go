package postgres

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
)

// txStore implements storage.Tx on one pgx transaction.
type txStore struct {
    reader
}

func (t *txStore) exec(ctx context.Context, what string, sql string, args ...any) error {
    ct, err := t.q.Exec(ctx, sql, args...)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.Missing(what) }
    return nil
}

// --- Locks ---

func (t *txStore) AccountForUpdate(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
    a, err := scanAccount(t.q.QueryRow(ctx, `select `+accountCols+` from accounts where id=$1 for update`, id))
    return a, notFound(err, "account")
}

func (t *txStore) EntryForUpdate(ctx context.Context, id uuid.UUID) (ledger.Entry, error) {
    return t.entry(ctx, `select `+entryCols+` from entries where id=$1 for update`, id)
}

func (t *txStore) PeriodForUpdate(ctx context.Context, id uuid.UUID) (ledger.FiscalPeriod, error) {
    p, err := scanPeriod(t.q.QueryRow(ctx, `select `+periodCols+` from fiscal_periods where id=$1 for update`, id))
    return p, notFound(err, "period")
}

func (t *txStore) YearForUpdate(ctx context.Context, id uuid.UUID) (ledger.FiscalYear, error) {
    y, err := scanYear(t.q.QueryRow(ctx, `select `+yearCols+` from fiscal_years where id=$1 for update`, id))
    return y, notFound(err, "fiscal year")
}

func (t *txStore) LockPeriods(ctx context.Context) error {
    _, err := t.q.Exec(ctx, `select pg_advisory_xact_lock($1)`, lockPeriods)
    return err
}

func (t *txStore) LockYears(ctx context.Context) error {
    _, err := t.q.Exec(ctx, `select pg_advisory_xact_lock($1)`, lockYears)
    return err
}

func (t *txStore) LockChart(ctx context.Context) error {
    _, err := t.q.Exec(ctx, `select pg_advisory_xact_lock($1)`, lockChart)
    return err
}

// --- Counters ---

func (t *txStore) count(ctx context.Context, sql string, args ...any) (int, error) {
    var n int
    err := t.q.QueryRow(ctx, sql, args...).Scan(&n)
    return n, err
}

func (t *txStore) CountLinesForAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
    return t.count(ctx, `select count(*) from entry_lines where account_id=$1`, accountID)
}

func (t *txStore) CountTemplatesForAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
    return t.count(ctx, `
        select count(distinct tpl.id) from operation_templates tpl
        left join counterparty_rules r on r.template_id = tpl.id
        where (tpl.principal_static and tpl.principal_account_id = $1)
           or (not r.third_party and r.account_id = $1)
    `, accountID)
}

func (t *txStore) CountEntriesForJournal(ctx context.Context, journalID uuid.UUID) (int, error) {
    return t.count(ctx, `select count(*) from entries where journal_id=$1`, journalID)
}

func (t *txStore) CountEntriesBetween(ctx context.Context, from, to time.Time) (int, error) {
    return t.count(ctx, `select count(*) from entries where entry_date between $1 and $2`, ledger.Day(from), ledger.Day(to))
}

func (t *txStore) AccountBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
    var bal int64
    err := t.q.QueryRow(ctx, `select coalesce(sum(debit - credit), 0)::bigint from entry_lines where account_id=$1`, accountID).Scan(&bal)
    return bal, err
}

func (t *txStore) NextEntryNumber(ctx context.Context) (int64, error) {
    var n int64
    err := t.q.QueryRow(ctx, `update entry_counter set last_number = last_number + 1 where id = 1 returning last_number`).Scan(&n)
    return n, err
}

// --- Accounts ---

func (t *txStore) InsertAccount(ctx context.Context, a ledger.Account) error {
    _, err := t.q.Exec(ctx, `
        insert into accounts (id, number, name, type, allow_entry, static, active)
        values ($1,$2,$3,$4,$5,$6,$7)
    `, a.ID, a.Number, a.Name, a.Type, a.AllowEntry, a.Static, a.Active)
    return mapErr(err)
}

func (t *txStore) UpdateAccount(ctx context.Context, a ledger.Account) error {
    return t.exec(ctx, "account", `
        update accounts set number=$1, name=$2, type=$3, allow_entry=$4, static=$5, active=$6
        where id=$7
    `, a.Number, a.Name, a.Type, a.AllowEntry, a.Static, a.Active, a.ID)
}

func (t *txStore) DeleteAccount(ctx context.Context, id uuid.UUID) error {
    return t.exec(ctx, "account", `delete from accounts where id=$1`, id)
}

// --- Journals ---

func (t *txStore) InsertJournal(ctx context.Context, j ledger.Journal) error {
    _, err := t.q.Exec(ctx, `
        insert into journals (id, code, label, type, active) values ($1,$2,$3,$4,$5)
    `, j.ID, j.Code, j.Label, j.Type, j.Active)
    return mapErr(err)
}

func (t *txStore) UpdateJournal(ctx context.Context, j ledger.Journal) error {
    return t.exec(ctx, "journal", `
        update journals set code=$1, label=$2, type=$3, active=$4 where id=$5
    `, j.Code, j.Label, j.Type, j.Active, j.ID)
}

func (t *txStore) DeleteJournal(ctx context.Context, id uuid.UUID) error {
    return t.exec(ctx, "journal", `delete from journals where id=$1`, id)
}

// --- Periods ---

func (t *txStore) InsertPeriod(ctx context.Context, p ledger.FiscalPeriod) error {
    _, err := t.q.Exec(ctx, `
        insert into fiscal_periods (id, code, start_date, end_date, closed, closed_at)
        values ($1,$2,$3,$4,$5,$6)
    `, p.ID, p.Code, p.Start, p.End, p.Closed, p.ClosedAt)
    return mapErr(err)
}

func (t *txStore) UpdatePeriod(ctx context.Context, p ledger.FiscalPeriod) error {
    return t.exec(ctx, "period", `
        update fiscal_periods set code=$1, start_date=$2, end_date=$3, closed=$4, closed_at=$5 where id=$6
    `, p.Code, p.Start, p.End, p.Closed, p.ClosedAt, p.ID)
}

func (t *txStore) DeletePeriod(ctx context.Context, id uuid.UUID) error {
    return t.exec(ctx, "period", `delete from fiscal_periods where id=$1`, id)
}

// --- Entries ---

func (t *txStore) insertLines(ctx context.Context, e ledger.Entry) error {
    for i, ln := range e.Lines {
        if _, err := t.q.Exec(ctx, `
            insert into entry_lines (id, entry_id, position, account_id, label, debit, credit, notes)
            values ($1,$2,$3,$4,$5,$6,$7,$8)
        `, ln.ID, e.ID, i, ln.AccountID, ln.Label, ln.Debit, ln.Credit, ln.Notes); err != nil {
            return mapErr(err)
        }
    }
    return nil
}

func (t *txStore) InsertEntry(ctx context.Context, e ledger.Entry) error {
    if _, err := t.q.Exec(ctx, `
        insert into entries (id, number, label, entry_date, journal_id, period_id, total_debit, total_credit,
            validated, validated_at, validated_by, reference, notes, template_id,
            created_by, updated_by, created_at, updated_at)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
    `, e.ID, e.Number, e.Label, e.Date, e.JournalID, e.PeriodID, e.TotalDebit, e.TotalCredit,
        e.Validated, e.ValidatedAt, e.ValidatedBy, e.Reference, e.Notes, e.TemplateID,
        e.CreatedBy, e.UpdatedBy, e.CreatedAt, e.UpdatedAt); err != nil {
        return mapErr(err)
    }
    return t.insertLines(ctx, e)
}

// UpdateEntry rewrites the header and replaces every line.
func (t *txStore) UpdateEntry(ctx context.Context, e ledger.Entry) error {
    if err := t.exec(ctx, "entry", `
        update entries set label=$1, entry_date=$2, journal_id=$3, period_id=$4, total_debit=$5, total_credit=$6,
            validated=$7, validated_at=$8, validated_by=$9, reference=$10, notes=$11, template_id=$12,
            updated_by=$13, updated_at=$14
        where id=$15
    `, e.Label, e.Date, e.JournalID, e.PeriodID, e.TotalDebit, e.TotalCredit,
        e.Validated, e.ValidatedAt, e.ValidatedBy, e.Reference, e.Notes, e.TemplateID,
        e.UpdatedBy, e.UpdatedAt, e.ID); err != nil {
        return err
    }
    if _, err := t.q.Exec(ctx, `delete from entry_lines where entry_id=$1`, e.ID); err != nil { return err }
    return t.insertLines(ctx, e)
}

func (t *txStore) DeleteEntry(ctx context.Context, id uuid.UUID) error {
    return t.exec(ctx, "entry", `delete from entries where id=$1`, id)
}

// --- Templates ---

func (t *txStore) insertRules(ctx context.Context, tpl ledger.OperationTemplate) error {
    for i, r := range tpl.Rules {
        if _, err := t.q.Exec(ctx, `
            insert into counterparty_rules (template_id, position, account_id, third_party, basis, journal_family, side, ratio)
            values ($1,$2,$3,$4,$5,$6,$7,$8::numeric)
        `, tpl.ID, i, nullable(r.AccountID), r.ThirdParty, r.Basis, r.JournalFamily, r.Side, r.Ratio.String()); err != nil {
            return mapErr(err)
        }
    }
    return nil
}

func (t *txStore) InsertTemplate(ctx context.Context, tpl ledger.OperationTemplate) error {
    if _, err := t.q.Exec(ctx, `
        insert into operation_templates (id, label, payment_mode, principal_account_id, principal_static,
            principal_side, principal_basis, journal_id, client_ceiling, active)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, tpl.ID, tpl.Label, tpl.PaymentMode, nullable(tpl.PrincipalAccountID), tpl.PrincipalStatic,
        tpl.PrincipalSide, tpl.PrincipalBasis, tpl.JournalID, tpl.ClientCeiling, tpl.Active); err != nil {
        return mapErr(err)
    }
    return t.insertRules(ctx, tpl)
}

func (t *txStore) UpdateTemplate(ctx context.Context, tpl ledger.OperationTemplate) error {
    if err := t.exec(ctx, "operation template", `
        update operation_templates set label=$1, payment_mode=$2, principal_account_id=$3, principal_static=$4,
            principal_side=$5, principal_basis=$6, journal_id=$7, client_ceiling=$8, active=$9
        where id=$10
    `, tpl.Label, tpl.PaymentMode, nullable(tpl.PrincipalAccountID), tpl.PrincipalStatic,
        tpl.PrincipalSide, tpl.PrincipalBasis, tpl.JournalID, tpl.ClientCeiling, tpl.Active, tpl.ID); err != nil {
        return err
    }
    if _, err := t.q.Exec(ctx, `delete from counterparty_rules where template_id=$1`, tpl.ID); err != nil { return err }
    return t.insertRules(ctx, tpl)
}

func (t *txStore) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
    return t.exec(ctx, "operation template", `delete from operation_templates where id=$1`, id)
}

// --- Years ---

func (t *txStore) InsertYear(ctx context.Context, y ledger.FiscalYear) error {
    _, err := t.q.Exec(ctx, `
        insert into fiscal_years (id, name, start_date, end_date, status, closed_at)
        values ($1,$2,$3,$4,$5,$6)
    `, y.ID, y.Name, y.Start, y.End, y.Status, y.ClosedAt)
    return mapErr(err)
}

func (t *txStore) UpdateYear(ctx context.Context, y ledger.FiscalYear) error {
    return t.exec(ctx, "fiscal year", `
        update fiscal_years set name=$1, start_date=$2, end_date=$3, status=$4, closed_at=$5 where id=$6
    `, y.Name, y.Start, y.End, y.Status, y.ClosedAt, y.ID)
}
