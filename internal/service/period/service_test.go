package period

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/storage"
	"github.com/tinoosan/compta/internal/storage/memory"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCreate_DerivesCodeAndRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), quiet())

	jan, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)
	assert.Equal(t, "2024-01", jan.Code)
	assert.False(t, jan.Closed)

	_, err = svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 31), End: day(2024, 2, 29)})
	assert.ErrorIs(t, err, errs.ErrOverlap)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 3, 31), End: day(2024, 3, 1)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	feb, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 2, 1), End: day(2024, 2, 29)})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, jan.ID, list[0].ID)
	assert.Equal(t, feb.ID, list[1].ID)
}

func TestPeriodFor(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New(), quiet())
	jan, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)

	got, err := svc.PeriodFor(ctx, time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, jan.ID, got.ID)

	_, err = svc.PeriodFor(ctx, day(2024, 2, 1))
	assert.ErrorIs(t, err, errs.ErrNoPeriod)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestClose_IsOneWay(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 2, 3, 10, 0, 0, 0, time.UTC)
	svc := New(memory.New(), quiet(), WithNow(func() time.Time { return at }))
	p, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)

	ch, err := svc.Close(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ch.Before.Closed)
	assert.True(t, ch.After.Closed)
	require.NotNil(t, ch.After.ClosedAt)
	assert.Equal(t, at, *ch.After.ClosedAt)

	_, err = svc.Close(ctx, p.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyClosed)

	_, err = svc.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, errs.ErrState)
}

func TestDelete_BlockedByEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, quiet())
	p, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)

	e := ledger.Entry{ID: uuid.New(), Number: 1, Date: day(2024, 1, 15), PeriodID: p.ID}
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.InsertEntry(ctx, e) }))
	_, err = svc.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, errs.ErrReferential)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.DeleteEntry(ctx, e.ID) }))
	_, err = svc.Delete(ctx, p.ID)
	require.NoError(t, err)
}

func TestCloseWithin(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store, quiet())
	for m := time.January; m <= time.March; m++ {
		_, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, m, 1), End: day(2024, m+1, 1).AddDate(0, 0, -1)})
		require.NoError(t, err)
	}
	var closed []ledger.FiscalPeriod
	at := time.Now().UTC()
	err := store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		closed, err = CloseWithin(ctx, tx, day(2024, 1, 1), day(2024, 2, 29), at)
		return err
	})
	require.NoError(t, err)
	require.Len(t, closed, 2)
	assert.Equal(t, "2024-01", closed[0].Code)
	assert.Equal(t, "2024-02", closed[1].Code)

	march, err := svc.PeriodFor(ctx, day(2024, 3, 10))
	require.NoError(t, err)
	assert.False(t, march.Closed)
}

// staleTx lists periods from a snapshot taken before a concurrent close.
type staleTx struct {
	storage.Tx
	snapshot []ledger.FiscalPeriod
}

func (s staleTx) ListPeriods(context.Context) ([]ledger.FiscalPeriod, error) { return s.snapshot, nil }

func TestCloseWithin_KeepsConcurrentCloseDate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	first := day(2024, 2, 1)
	svc := New(store, quiet(), WithNow(func() time.Time { return first }))
	jan, err := svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 1, 1), End: day(2024, 1, 31)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ledger.FiscalPeriod{Start: day(2024, 2, 1), End: day(2024, 2, 29)})
	require.NoError(t, err)

	snapshot, err := store.ListPeriods(ctx)
	require.NoError(t, err)
	_, err = svc.Close(ctx, jan.ID)
	require.NoError(t, err)

	var closed []ledger.FiscalPeriod
	err = store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		closed, err = CloseWithin(ctx, staleTx{Tx: tx, snapshot: snapshot}, day(2024, 1, 1), day(2024, 2, 29), day(2024, 3, 1))
		return err
	})
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "2024-02", closed[0].Code)

	got, err := store.PeriodByID(ctx, jan.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(first))
}
