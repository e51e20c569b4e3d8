package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "EUR", cfg.Book.Currency)
	assert.Equal(t, 10, cfg.Book.TopN)
	assert.Empty(t, cfg.Database.URL)
	require.NoError(t, cfg.Validate())
}

func TestRoundTrip(t *testing.T) {
	t.Setenv("BOOK_CURRENCY", "")
	cfg := Default()
	cfg.Book.Name = "Boutique"
	cfg.Book.Currency = "GBP"
	cfg.Server.WriteTimeout = 30 * time.Second

	path := filepath.Join(t.TempDir(), "compta.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Boutique", got.Book.Name)
	assert.Equal(t, "GBP", got.Book.Currency)
	assert.Equal(t, 30*time.Second, got.Server.WriteTimeout)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Setenv("BOOK_CURRENCY", "")
	t.Setenv("ADDR", "")
	path := filepath.Join(t.TempDir(), "compta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("book:\n  currency: USD\n"), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Book.Currency)
	assert.Equal(t, ":8080", got.Server.Addr)
	assert.Equal(t, 5*time.Second, got.Server.ReadTimeout)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ADDR":             ":9090",
		"DATABASE_URL":     "postgres://localhost/compta",
		"BOOK_CURRENCY":    "GBP",
		"JWT_HS256_SECRET": "s3cret",
		"LOG_FORMAT":       "text",
		"DEV_SEED":         "true",
		"LOG_LEVEL":        "   ",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://localhost/compta", cfg.Database.URL)
	assert.Equal(t, "GBP", cfg.Book.Currency)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Book.DevSeed)

	env["DEV_SEED"] = "perhaps"
	require.Error(t, cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Book.Currency = "ZZZ"
	cfg.Server.IdleTimeout = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "book.currency")
	assert.Contains(t, err.Error(), "server.idle_timeout")
	assert.Contains(t, err.Error(), "log.format")
}
