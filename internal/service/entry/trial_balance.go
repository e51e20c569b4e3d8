package entry

import (
    "context"
    "sort"

    "github.com/google/uuid"

    "github.com/tinoosan/compta/internal/ledger"
)

// BalanceRow is the movement of one account over the selected entries.
type BalanceRow struct {
    AccountID uuid.UUID
    Number    string
    Name      string
    Debit     int64
    Credit    int64
}

// Net is debit minus credit.
func (r BalanceRow) Net() int64 { return r.Debit - r.Credit }

// TrialBalance lists account movements ordered by account number.
type TrialBalance struct {
    Rows        []BalanceRow
    TotalDebit  int64
    TotalCredit int64
}

// Balanced reports whether total debits equal total credits.
func (tb TrialBalance) Balanced() bool { return tb.TotalDebit == tb.TotalCredit }

func (s *service) TrialBalance(ctx context.Context, f ledger.EntryFilter) (TrialBalance, error) {
    entries, err := s.store.ListEntries(ctx, f)
    if err != nil { return TrialBalance{}, err }
    accounts, err := s.store.ListAccounts(ctx)
    if err != nil { return TrialBalance{}, err }
    byID := make(map[uuid.UUID]int, len(accounts))
    for i, a := range accounts { byID[a.ID] = i }

    rows := map[uuid.UUID]*BalanceRow{}
    var tb TrialBalance
    for _, e := range entries {
        for _, ln := range e.Lines {
            r, ok := rows[ln.AccountID]
            if !ok {
                r = &BalanceRow{AccountID: ln.AccountID}
                // a missing account only affects display
                if i, found := byID[ln.AccountID]; found {
                    r.Number, r.Name = accounts[i].Number, accounts[i].Name
                }
                rows[ln.AccountID] = r
            }
            r.Debit += ln.Debit
            r.Credit += ln.Credit
            tb.TotalDebit += ln.Debit
            tb.TotalCredit += ln.Credit
        }
    }
    tb.Rows = make([]BalanceRow, 0, len(rows))
    for _, r := range rows { tb.Rows = append(tb.Rows, *r) }
    sort.Slice(tb.Rows, func(i, j int) bool {
        if tb.Rows[i].Number != tb.Rows[j].Number { return tb.Rows[i].Number < tb.Rows[j].Number }
        return tb.Rows[i].AccountID.String() < tb.Rows[j].AccountID.String()
    })
    return tb, nil
}
