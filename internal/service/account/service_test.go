package account

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

func ptr[T any](v T) *T { return &v }

func TestCreate_NormalizesAndInfersType(t *testing.T) {
	svc := New(memory.New())
	a, err := svc.Create(context.Background(), ledger.Account{Number: "411.000", Name: " Clients divers ", AllowEntry: true, Active: true})
	require.NoError(t, err)
	assert.Equal(t, "411000", a.Number)
	assert.Equal(t, "Clients divers", a.Name)
	assert.Equal(t, ledger.AccountTypeAsset, a.Type)
	assert.NotEqual(t, uuid.Nil, a.ID)

	b, err := svc.Create(context.Background(), ledger.Account{Number: "707000", Name: "Ventes", AllowEntry: true})
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountTypeRevenue, b.Type)
}

func TestCreate_Rejections(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New())
	_, err := svc.Create(ctx, ledger.Account{Number: "411", Name: "Clients"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ledger.Account{Number: "411000", Name: "Clients divers", AllowEntry: true})
	require.NoError(t, err)

	tests := []struct {
		name string
		in   ledger.Account
		want error
	}{
		{"empty number", ledger.Account{Name: "x"}, errs.ErrValidation},
		{"bad number", ledger.Account{Number: "0abc", Name: "x"}, errs.ErrValidation},
		{"empty name", ledger.Account{Number: "512000"}, errs.ErrValidation},
		{"duplicate", ledger.Account{Number: "411 000", Name: "again"}, errs.ErrDuplicateCode},
		{"postable parent", ledger.Account{Number: "41", Name: "Clients et rattachés", AllowEntry: true}, errs.ErrValidation},
		{"child of postable", ledger.Account{Number: "4110001", Name: "Dupont", AllowEntry: true}, errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUpdate_ReturnsChangeAndGuardsLeafRule(t *testing.T) {
	ctx := context.Background()
	svc := New(memory.New())
	parent, err := svc.Create(ctx, ledger.Account{Number: "401", Name: "Fournisseurs"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, ledger.Account{Number: "401000", Name: "Fournisseurs divers", AllowEntry: true})
	require.NoError(t, err)

	ch, err := svc.Update(ctx, parent.ID, Patch{Name: ptr("Fournisseurs et comptes rattachés")})
	require.NoError(t, err)
	assert.Equal(t, "Fournisseurs", ch.Before.Name)
	assert.Equal(t, "Fournisseurs et comptes rattachés", ch.After.Name)

	_, err = svc.Update(ctx, parent.ID, Patch{AllowEntry: ptr(true)})
	assert.ErrorIs(t, err, errs.ErrValidation)

	got, err := svc.Get(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, got.AllowEntry)

	_, err = svc.Update(ctx, uuid.New(), Patch{})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete_ReferentialGuard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := New(store)
	bank, err := svc.Create(ctx, ledger.Account{Number: "512000", Name: "Banque", AllowEntry: true, Active: true})
	require.NoError(t, err)
	sales, err := svc.Create(ctx, ledger.Account{Number: "707000", Name: "Ventes", AllowEntry: true, Active: true})
	require.NoError(t, err)
	spare, err := svc.Create(ctx, ledger.Account{Number: "530000", Name: "Caisse", AllowEntry: true, Active: true})
	require.NoError(t, err)

	entry := ledger.Entry{ID: uuid.New(), Number: 1, TotalDebit: 10, TotalCredit: 10, Lines: []ledger.DetailLine{
		{ID: uuid.New(), AccountID: bank.ID, Debit: 10},
		{ID: uuid.New(), AccountID: sales.ID, Credit: 10},
	}}
	tpl := ledger.OperationTemplate{ID: uuid.New(), Label: "Vente", PrincipalStatic: true, PrincipalAccountID: spare.ID}
	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.InsertEntry(ctx, entry); err != nil { return err }
		return tx.InsertTemplate(ctx, tpl)
	}))

	_, err = svc.Delete(ctx, bank.ID)
	assert.ErrorIs(t, err, errs.ErrInUse)
	assert.ErrorIs(t, err, errs.ErrReferential)
	_, err = svc.Delete(ctx, spare.ID)
	assert.ErrorIs(t, err, errs.ErrReferential)

	require.NoError(t, store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		if err := tx.DeleteEntry(ctx, entry.ID); err != nil { return err }
		return tx.DeleteTemplate(ctx, tpl.ID)
	}))
	removed, err := svc.Delete(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, "512000", removed.Number)
	_, err = svc.Delete(ctx, spare.ID)
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sales.ID, list[0].ID)
}

// lockingStore records the locks taken inside its transactions.
type lockingStore struct {
	storage.Store
	locks *[]string
}

func (s lockingStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return fn(ctx, lockingTx{Tx: tx, locks: s.locks})
	})
}

type lockingTx struct {
	storage.Tx
	locks *[]string
}

func (t lockingTx) LockChart(ctx context.Context) error {
	*t.locks = append(*t.locks, "chart")
	return t.Tx.LockChart(ctx)
}

func (t lockingTx) AccountForUpdate(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	*t.locks = append(*t.locks, "account")
	return t.Tx.AccountForUpdate(ctx, id)
}

func TestChartChecksHoldTheChartLock(t *testing.T) {
	ctx := context.Background()
	var locks []string
	svc := New(lockingStore{Store: memory.New(), locks: &locks})

	a, err := svc.Create(ctx, ledger.Account{Number: "411000", Name: "Clients", AllowEntry: true, Active: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"chart"}, locks)

	locks = nil
	_, err = svc.Update(ctx, a.ID, Patch{Name: ptr("Clients divers")})
	require.NoError(t, err)
	require.NotEmpty(t, locks)
	assert.Equal(t, "chart", locks[0])
	assert.Contains(t, locks, "account")
}
