package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/compta/internal/dictionary"
	"github.com/tinoosan/compta/internal/ledger"
	"github.com/tinoosan/compta/internal/storage/memory"
)

func TestSeed_IsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2024, 2, 14, 9, 30, 0, 0, time.UTC)

	res, err := Seed(ctx, store, now)
	require.NoError(t, err)
	assert.Equal(t, len(dictionary.DefaultJournals()), res.Journals)
	assert.Equal(t, len(dictionary.DefaultChart()), res.Accounts)
	assert.Equal(t, "2024-02", res.Period)

	periods, err := store.ListPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), periods[0].End)

	again, err := Seed(ctx, store, now)
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, again)

	clients, err := store.AccountByNumber(ctx, "411000")
	require.NoError(t, err)
	assert.Equal(t, ledger.AccountTypeAsset, clients.Type)
	assert.True(t, clients.AllowEntry)
}

func TestRootCommand_Registers(t *testing.T) {
	root := NewRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["seed"])
}

func TestSeedCommand_NeedsDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("COMPTA_CONFIG", "")
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"seed"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database url")
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slogLevel(t, "DEBUG"), "DEBUG")
	assert.Equal(t, slogLevel(t, "warning"), "WARN")
	assert.Equal(t, slogLevel(t, "err"), "ERROR")
	assert.Equal(t, slogLevel(t, ""), "INFO")
}

func slogLevel(t *testing.T, s string) string {
	t.Helper()
	return parseLogLevel(s).Level().String()
}
