package journal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/compta/internal/errs"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/storage"
	"github.com/tinoosan/compta/internal/storage/memory"
)

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New())

	j, err := svc.Create(ctx, ledger.Journal{Code: "vte", Label: "Ventes", Type: ledger.JournalSales, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "VTE", j.Code)

	_, err = svc.Create(ctx, ledger.Journal{Code: "VTE", Label: "Ventes bis", Type: ledger.JournalSales})
	assert.ErrorIs(t, err, errs.ErrDuplicateCode)
	_, err = svc.Create(ctx, ledger.Journal{Code: "ACH", Label: "Achats", Type: "other"})
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = svc.Create(ctx, ledger.Journal{Code: "ACH", Type: ledger.JournalPurchases})
	assert.ErrorIs(t, err, errs.ErrValidation)

	inactive := false
	ch, err := svc.Update(ctx, j.ID, Patch{Active: &inactive})
	require.NoError(t, err)
	assert.True(t, ch.Before.Active)
	assert.False(t, ch.After.Active)
	assert.Equal(t, "VTE", ch.After.Code)
}

func TestDelete_BlockedByEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store)
	j, err := svc.Create(ctx, ledger.Journal{Code: "BQ", Label: "Banque", Type: ledger.JournalTreasury, Active: true})
	require.NoError(t, err)

	e := ledger.Entry{ID: uuid.New(), Number: 1, JournalID: j.ID}
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.InsertEntry(ctx, e) }))

	got, err := svc.Get(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.EntryCount)

	_, err = svc.Delete(ctx, j.ID)
	assert.ErrorIs(t, err, errs.ErrReferential)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error { return tx.DeleteEntry(ctx, e.ID) }))
	removed, err := svc.Delete(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, "BQ", removed.Code)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
