package entry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/service/account"
	"github.com/tinoosan/compta/internal/service/journal"
	"github.com/tinoosan/compta/internal/service/period"
	"github.com/tinoosan/compta/internal/storage/memory"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

type fixture struct {
	store   *memory.Store
	svc     Service
	periods period.Service
	journal ledger.Journal
	period  ledger.FiscalPeriod
	a1, a2  ledger.Account
	group   ledger.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	f := &fixture{store: store, svc: New(store, log), periods: period.New(store, log)}

	var err error
	f.journal, err = journal.New(store).Create(ctx, ledger.Journal{Code: "VTE", Label: "Ventes", Type: ledger.JournalSales, Active: true})
	require.NoError(t, err)
	f.period, err = f.periods.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)
	accounts := account.New(store)
	f.group, err = accounts.Create(ctx, ledger.Account{Number: "411", Name: "Clients", Active: true})
	require.NoError(t, err)
	f.a1, err = accounts.Create(ctx, ledger.Account{Number: "411000", Name: "Clients divers", AllowEntry: true, Active: true})
	require.NoError(t, err)
	f.a2, err = accounts.Create(ctx, ledger.Account{Number: "707000", Name: "Ventes", AllowEntry: true, Active: true})
	require.NoError(t, err)
	return f
}

func (f *fixture) input(date time.Time, amount int64) Input {
	return Input{
		Label:     "Facture 42",
		Date:      date,
		JournalID: f.journal.ID,
		Actor:     "alice",
		Lines: []LineInput{
			{AccountID: f.a1.ID, Debit: amount},
			{AccountID: f.a2.ID, Credit: amount},
		},
	}
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	e, err := f.svc.CreateEntry(ctx, f.input(day(2024, 1, 15), 100000))
	require.NoError(t, err)
	assert.False(t, e.Validated)
	assert.Equal(t, int64(1), e.Number)
	assert.Equal(t, f.period.ID, e.PeriodID)
	assert.Equal(t, int64(100000), e.TotalDebit)
	assert.Equal(t, "alice", e.CreatedBy)
	require.Len(t, e.Lines, 2)
	assert.Equal(t, e.ID, e.Lines[0].EntryID)

	ch, err := f.svc.ValidateEntry(ctx, e.ID, "bob")
	require.NoError(t, err)
	assert.False(t, ch.Before.Validated)
	assert.True(t, ch.After.Validated)
	assert.Equal(t, "bob", ch.After.ValidatedBy)
	require.NotNil(t, ch.After.ValidatedAt)

	_, err = f.svc.DeleteEntry(ctx, e.ID)
	assert.ErrorIs(t, err, errs.ErrImmutableEntry)

	_, err = f.periods.Close(ctx, f.period.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateEntry(ctx, f.input(day(2024, 1, 20), 500))
	assert.ErrorIs(t, err, errs.ErrPeriodClosed)
	assert.ErrorIs(t, err, errs.ErrState)
}

func TestImmutabilityAfterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.svc.CreateEntry(ctx, f.input(day(2024, 1, 10), 250))
	require.NoError(t, err)
	_, err = f.svc.ValidateEntry(ctx, e.ID, "bob")
	require.NoError(t, err)
	frozen, err := f.svc.Get(ctx, e.ID)
	require.NoError(t, err)

	label := "changed"
	_, err = f.svc.UpdateEntry(ctx, e.ID, Patch{Label: &label})
	assert.ErrorIs(t, err, errs.ErrImmutableEntry)
	_, err = f.svc.DeleteEntry(ctx, e.ID)
	assert.ErrorIs(t, err, errs.ErrImmutableEntry)
	_, err = f.svc.ValidateEntry(ctx, e.ID, "bob")
	assert.ErrorIs(t, err, errs.ErrAlreadyValidated)

	after, err := f.svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, frozen, after)
}

func TestPeriodContainment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.CreateEntry(ctx, f.input(day(2023, 12, 31), 10))
	assert.ErrorIs(t, err, errs.ErrNoPeriod)
	_, err = f.svc.CreateEntry(ctx, f.input(day(2024, 2, 1), 10))
	assert.ErrorIs(t, err, errs.ErrNoPeriod)
	_, err = f.svc.CreateEntry(ctx, f.input(day(2024, 1, 31), 10))
	require.NoError(t, err)

	feb, err := f.periods.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 2, 1), End: day(2024, 2, 29)})
	require.NoError(t, err)
	_, err = f.periods.Close(ctx, feb.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateEntry(ctx, f.input(day(2024, 2, 10), 10))
	assert.ErrorIs(t, err, errs.ErrPeriodClosed)
}

func TestCreate_Pipeline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	other, err := journal.New(f.store).Create(ctx, ledger.Journal{Code: "OD", Label: "Divers", Type: ledger.JournalMisc, Active: false})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(in *Input)
		want   error
	}{
		{"unknown journal", func(in *Input) { in.JournalID = uuid.New() }, errs.ErrUnknownJournal},
		{"inactive journal", func(in *Input) { in.JournalID = other.ID }, errs.ErrInactiveJournal},
		{"unknown account", func(in *Input) { in.Lines[0].AccountID = uuid.New() }, errs.ErrUnknownAccount},
		{"grouping account", func(in *Input) { in.Lines[0].AccountID = f.group.ID }, errs.ErrNonPostableAccount},
		{"both sides", func(in *Input) { in.Lines[0].Credit = 5 }, errs.ErrMalformedLine},
		{"no side", func(in *Input) { in.Lines[0].Debit = 0 }, errs.ErrMalformedLine},
		{"negative", func(in *Input) { in.Lines[0].Debit = -100 }, errs.ErrMalformedLine},
		{"unbalanced", func(in *Input) { in.Lines[0].Debit = 99 }, errs.ErrUnbalancedEntry},
		{"no lines", func(in *Input) { in.Lines = nil }, errs.ErrInsufficientLines},
		{"no label", func(in *Input) { in.Label = " " }, errs.ErrValidation},
		{"no date", func(in *Input) { in.Date = time.Time{} }, errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(day(2024, 1, 5), 100)
			tt.mutate(&in)
			_, err := f.svc.CreateEntry(ctx, in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	list, err := f.svc.List(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_InactiveAccountIsNotPostable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	off := false
	_, err := account.New(f.store).Update(ctx, f.a2.ID, account.Patch{Active: &off})
	require.NoError(t, err)
	_, err = f.svc.CreateEntry(ctx, f.input(day(2024, 1, 5), 100))
	assert.ErrorIs(t, err, errs.ErrNonPostableAccount)
}

// Random line sets: creation succeeds exactly when every line is one-sided and
// positive, the sides balance, and there are at least two lines.
func TestBalanceProperty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rng := rand.New(rand.NewSource(20240115))
	accounts := []uuid.UUID{f.a1.ID, f.a2.ID}

	for i := 0; i < 500; i++ {
		n := rng.Intn(5)
		lines := make([]LineInput, n)
		var debit, credit int64
		malformed := false
		for k := range lines {
			ln := LineInput{AccountID: accounts[rng.Intn(2)]}
			switch rng.Intn(10) {
			case 0:
				ln.Debit, ln.Credit = int64(rng.Intn(3)+1), int64(rng.Intn(3)+1)
			case 1:
				ln.Debit = -int64(rng.Intn(3) + 1)
			case 2:
				// both zero
			case 3, 4, 5:
				ln.Debit = int64(rng.Intn(4) + 1)
			default:
				ln.Credit = int64(rng.Intn(4) + 1)
			}
			if ln.Debit < 0 || ln.Credit < 0 || (ln.Debit == 0) == (ln.Credit == 0) { malformed = true }
			debit += ln.Debit
			credit += ln.Credit
			lines[k] = ln
		}
		in := Input{Label: "prop", Date: day(2024, 1, 2), JournalID: f.journal.ID, Lines: lines}
		e, err := f.svc.CreateEntry(ctx, in)

		switch {
		case malformed:
			require.ErrorIs(t, err, errs.ErrMalformedLine, "case %d", i)
		case debit != credit:
			require.ErrorIs(t, err, errs.ErrUnbalancedEntry, "case %d", i)
		case n < 2:
			require.ErrorIs(t, err, errs.ErrInsufficientLines, "case %d", i)
		default:
			require.NoError(t, err, "case %d", i)
			var d, c int64
			for _, ln := range e.Lines {
				d += ln.Debit
				c += ln.Credit
			}
			require.Equal(t, d, c)
			require.Equal(t, e.TotalDebit, e.TotalCredit)
			_, err = f.svc.ValidateEntry(ctx, e.ID, "prop")
			require.NoError(t, err)
		}
	}
}

func TestConcurrentNumbering(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	const ok, bad = 50, 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int64
		failed  int
	)
	for i := 0; i < ok+bad; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := f.input(day(2024, 1, 1+i%28), 100)
			if i%6 == 5 {
				in.Lines[1].Credit = 1
			}
			e, err := f.svc.CreateEntry(ctx, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, errs.ErrUnbalancedEntry) { failed++ }
				return
			}
			numbers = append(numbers, e.Number)
		}(i)
	}
	wg.Wait()

	require.Equal(t, bad, failed)
	require.Len(t, numbers, ok)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		assert.Equal(t, int64(i+1), n)
	}
}

func TestUpdateEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e, err := f.svc.CreateEntry(ctx, f.input(day(2024, 1, 10), 300))
	require.NoError(t, err)

	lines := []LineInput{
		{AccountID: f.a1.ID, Debit: 200},
		{AccountID: f.a1.ID, Debit: 100},
		{AccountID: f.a2.ID, Credit: 300},
	}
	label := "Facture 42 corrigée"
	ch, err := f.svc.UpdateEntry(ctx, e.ID, Patch{Label: &label, Lines: &lines, Actor: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "Facture 42", ch.Before.Label)
	assert.Equal(t, label, ch.After.Label)
	assert.Equal(t, e.Number, ch.After.Number)
	assert.Len(t, ch.After.Lines, 3)
	assert.Equal(t, "alice", ch.After.CreatedBy)
	assert.Equal(t, "carol", ch.After.UpdatedBy)

	bad := []LineInput{{AccountID: f.a1.ID, Debit: 200}, {AccountID: f.a2.ID, Credit: 300}}
	_, err = f.svc.UpdateEntry(ctx, e.ID, Patch{Lines: &bad})
	assert.ErrorIs(t, err, errs.ErrUnbalancedEntry)

	outside := day(2024, 3, 1)
	_, err = f.svc.UpdateEntry(ctx, e.ID, Patch{Date: &outside})
	assert.ErrorIs(t, err, errs.ErrNoPeriod)

	got, err := f.svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.After.Lines, got.Lines)
}

func TestDeleteDraftAndClosedPeriod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	d1, err := f.svc.CreateEntry(ctx, f.input(day(2024, 1, 10), 10))
	require.NoError(t, err)
	d2, err := f.svc.CreateEntry(ctx, f.input(day(2024, 1, 11), 10))
	require.NoError(t, err)

	removed, err := f.svc.DeleteEntry(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, d1.ID, removed.ID)
	_, err = f.svc.Get(ctx, d1.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.periods.Close(ctx, f.period.ID)
	require.NoError(t, err)
	_, err = f.svc.DeleteEntry(ctx, d2.ID)
	assert.ErrorIs(t, err, errs.ErrPeriodClosed)
	_, err = f.svc.ValidateEntry(ctx, d2.ID, "bob")
	assert.ErrorIs(t, err, errs.ErrPeriodClosed)
}

func TestListFiltersAndTrialBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e1, err := f.svc.CreateEntry(ctx, f.input(day(2024, 1, 5), 100))
	require.NoError(t, err)
	_, err = f.svc.CreateEntry(ctx, f.input(day(2024, 1, 20), 40))
	require.NoError(t, err)
	_, err = f.svc.ValidateEntry(ctx, e1.ID, "bob")
	require.NoError(t, err)

	yes := true
	validated, err := f.svc.List(ctx, ledger.EntryFilter{Validated: &yes})
	require.NoError(t, err)
	require.Len(t, validated, 1)
	assert.Equal(t, e1.ID, validated[0].ID)

	from := day(2024, 1, 10)
	late, err := f.svc.List(ctx, ledger.EntryFilter{From: &from, JournalID: f.journal.ID})
	require.NoError(t, err)
	require.Len(t, late, 1)
	assert.Equal(t, int64(2), late[0].Number)

	tb, err := f.svc.TrialBalance(ctx, ledger.EntryFilter{})
	require.NoError(t, err)
	assert.True(t, tb.Balanced())
	assert.Equal(t, int64(140), tb.TotalDebit)
	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "411000", tb.Rows[0].Number)
	assert.Equal(t, int64(140), tb.Rows[0].Net())
	assert.Equal(t, "707000", tb.Rows[1].Number)
	assert.Equal(t, int64(-140), tb.Rows[1].Net())

	tb, err = f.svc.TrialBalance(ctx, ledger.EntryFilter{Validated: &yes})
	require.NoError(t, err)
	assert.Equal(t, int64(100), tb.TotalCredit)
}
