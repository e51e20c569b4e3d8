package fiscalyear

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/service/account"
	"github.com/tinoosan/compta/internal/service/entry"
	"github.com/tinoosan/compta/internal/service/journal"
	"github.com/tinoosan/compta/internal/service/period"
	"github.com/tinoosan/compta/internal/storage/memory"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestYearTransitions(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), quiet())

	y1, err := svc.Create(ctx, ledger.FiscalYear{Name: "2024", Start: day(2024, 1, 1), End: day(2024, 12, 31)})
	require.NoError(t, err)
	assert.Equal(t, ledger.YearOpen, y1.Status)
	y2, err := svc.Create(ctx, ledger.FiscalYear{Name: "2025", Start: day(2025, 1, 1), End: day(2025, 12, 31)})
	require.NoError(t, err)

	ch, err := svc.Activate(ctx, y1.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.YearOpen, ch.Before.Status)
	assert.Equal(t, ledger.YearActive, ch.After.Status)

	_, err = svc.Activate(ctx, y2.ID)
	assert.ErrorIs(t, err, errs.ErrMultipleActiveYears)
	assert.ErrorIs(t, err, errs.ErrPolicy)

	_, err = svc.Close(ctx, y2.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	closure, err := svc.Close(ctx, y1.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.YearClosed, closure.Year.After.Status)
	require.NotNil(t, closure.Year.After.ClosedAt)

	_, err = svc.Activate(ctx, y1.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	_, err = svc.Close(ctx, y1.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = svc.Activate(ctx, y2.ID)
	require.NoError(t, err)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), quiet())
	_, err := svc.Create(ctx, ledger.FiscalYear{Name: "2024", Start: day(2024, 1, 1), End: day(2024, 12, 31)})
	require.NoError(t, err)

	_, err = svc.Create(ctx, ledger.FiscalYear{Name: "2024b", Start: day(2024, 7, 1), End: day(2025, 6, 30)})
	assert.ErrorIs(t, err, errs.ErrOverlap)
	_, err = svc.Create(ctx, ledger.FiscalYear{Name: " ", Start: day(2026, 1, 1), End: day(2026, 12, 31)})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = svc.Create(ctx, ledger.FiscalYear{Name: "2026", Start: day(2026, 12, 31), End: day(2026, 1, 1)})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestClose_CascadesToContainedPeriods(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	periods := period.New(store, quiet())
	svc := New(store, quiet())

	for m := time.January; m <= time.December; m++ {
		_, err := periods.Create(ctx, ledger.FiscalPeriod{Start: day(2024, m, 1), End: day(2024, m+1, 1).AddDate(0, 0, -1)})
		require.NoError(t, err)
	}
	// outside the year, so it stays open
	_, err := periods.Create(ctx, ledger.FiscalPeriod{Code: "2025-01", Start: day(2024, 12, 31).AddDate(0, 0, 1), End: day(2025, 1, 31)})
	require.NoError(t, err)
	dec, err := periods.PeriodFor(ctx, day(2024, 12, 5))
	require.NoError(t, err)
	_, err = periods.Close(ctx, dec.ID)
	require.NoError(t, err)

	y, err := svc.Create(ctx, ledger.FiscalYear{Name: "2024", Start: day(2024, 1, 1), End: day(2024, 12, 31)})
	require.NoError(t, err)
	contained, err := svc.Periods(ctx, y.ID)
	require.NoError(t, err)
	assert.Len(t, contained, 12)

	_, err = svc.Activate(ctx, y.ID)
	require.NoError(t, err)
	closure, err := svc.Close(ctx, y.ID)
	require.NoError(t, err)
	assert.Len(t, closure.ClosedPeriods, 11)

	all, err := periods.List(ctx)
	require.NoError(t, err)
	for _, p := range all {
		assert.Equal(t, p.Code != "2025-01", p.Closed, p.Code)
	}
}

func TestSummarize(t *testing.T) {
	y := ledger.FiscalYear{Start: day(2024, 1, 1), End: day(2024, 12, 31)}
	orders := []ledger.Order{
		{ID: "o1", Date: day(2024, 3, 1), NetToPay: 1000, Items: []ledger.OrderItem{{ProductID: "p2", Quantity: 3}, {ProductID: "p1", Quantity: 1}}},
		{ID: "o2", Date: day(2024, 12, 31), NetToPay: 500, Items: []ledger.OrderItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p3", Quantity: 1}}},
		{ID: "o3", Date: day(2025, 1, 1), NetToPay: 9999, Items: []ledger.OrderItem{{ProductID: "p3", Quantity: 50}}},
	}
	s := Summarize(y, orders, 2)
	assert.Equal(t, int64(1500), s.Revenue)
	assert.Equal(t, 2, s.OrderCount)
	assert.Equal(t, []ProductQuantity{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 3}}, s.TopProducts)

	assert.Equal(t, s, Summarize(y, orders, 2))
	assert.Len(t, Summarize(y, orders, 0).TopProducts, 3)
}

func TestBalances(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	log := quiet()
	svc := New(store, log)
	entries := entry.New(store, log)
	j, err := journal.New(store).Create(ctx, ledger.Journal{Code: "OD", Label: "Divers", Type: ledger.JournalMisc, Active: true})
	require.NoError(t, err)
	_, err = period.New(store, log).Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)
	accounts := account.New(store)
	bank, err := accounts.Create(ctx, ledger.Account{Number: "512000", Name: "Banque", AllowEntry: true, Active: true})
	require.NoError(t, err)
	sales, err := accounts.Create(ctx, ledger.Account{Number: "707000", Name: "Ventes", AllowEntry: true, Active: true})
	require.NoError(t, err)
	purchases, err := accounts.Create(ctx, ledger.Account{Number: "607000", Name: "Achats", AllowEntry: true, Active: true})
	require.NoError(t, err)

	post := func(debit, credit ledger.Account, amount int64, validate bool) {
		e, err := entries.CreateEntry(ctx, entry.Input{Label: "x", Date: day(2024, 1, 10), JournalID: j.ID, Lines: []entry.LineInput{
			{AccountID: debit.ID, Debit: amount},
			{AccountID: credit.ID, Credit: amount},
		}})
		require.NoError(t, err)
		if validate {
			_, err = entries.ValidateEntry(ctx, e.ID, "bob")
			require.NoError(t, err)
		}
	}
	post(bank, sales, 1000, true)
	post(purchases, bank, 300, true)
	post(bank, sales, 7777, false)

	y, err := svc.Create(ctx, ledger.FiscalYear{Name: "2024", Start: day(2024, 1, 1), End: day(2024, 12, 31)})
	require.NoError(t, err)
	b, err := svc.Balances(ctx, y.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), b.Revenue)
	assert.Equal(t, int64(300), b.Expenses)
	assert.Equal(t, int64(700), b.Result())
}
