// Package postgres is the pgx-backed storage.Store.
//
// Transactions run at READ COMMITTED. Rows a service mutates are read with
// SELECT ... FOR UPDATE; range checks on periods, years and the chart take a
// transaction scoped advisory lock. Entry numbers come from the one-row
// entry_counter table, whose row lock is held until commit.
package postgres

import (
    "context"
    "embed"
    "errors"
    "fmt"
    "sort"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"

    "github.com/tinoosan/compta/internal/errs"
    "github.com/tinoosan/compta/internal/ledger"
    "github.com/tinoosan/compta/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
    lockPeriods int64 = 0x636f6d7074610001
    lockYears   int64 = 0x636f6d7074610002
    lockChart   int64 = 0x636f6d7074610003
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
    reader
    pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil { return nil, err }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil { return nil, err }
    // Verify connection
    if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
    return &Store{reader: reader{q: pool}, pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent, so running it twice is harmless.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
    files, err := migrations.ReadDir("migrations")
    if err != nil { return nil, err }
    names := make([]string, 0, len(files))
    for _, f := range files { names = append(names, f.Name()) }
    sort.Strings(names)
    for _, name := range names {
        b, err := migrations.ReadFile("migrations/" + name)
        if err != nil { return nil, err }
        if _, err := s.pool.Exec(ctx, string(b)); err != nil { return nil, fmt.Errorf("%s: %w", name, err) }
    }
    return names, nil
}

// WithTx implements storage.Store.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
    pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
    if err != nil { return err }
    defer func() { _ = pgtx.Rollback(ctx) }()
    if err := fn(ctx, &txStore{reader: reader{q: pgtx}}); err != nil { return err }
    return mapErr(pgtx.Commit(ctx))
}

// --- Idempotency ---

// EntryByIdempotencyKey resolves an entry by idempotency key.
func (s *Store) EntryByIdempotencyKey(ctx context.Context, key string) (ledger.Entry, bool, error) {
    var id uuid.UUID
    err := s.pool.QueryRow(ctx, `select entry_id from entry_idempotency where key=$1`, key).Scan(&id)
    if errors.Is(err, pgx.ErrNoRows) { return ledger.Entry{}, false, nil }
    if err != nil { return ledger.Entry{}, false, err }
    e, err := s.EntryByID(ctx, id)
    if errors.Is(err, errs.ErrNotFound) { return ledger.Entry{}, false, nil }
    if err != nil { return ledger.Entry{}, false, err }
    return e, true, nil
}

// SaveIdempotencyKey stores a mapping from key to entry id, keeping the first one.
func (s *Store) SaveIdempotencyKey(ctx context.Context, key string, entryID uuid.UUID) error {
    _, err := s.pool.Exec(ctx, `
        insert into entry_idempotency (key, entry_id)
        values ($1,$2)
        on conflict (key) do nothing
    `, key, entryID)
    return err
}

// mapErr turns constraint violations into taxonomy errors.
func mapErr(err error) error {
    var pgErr *pgconn.PgError
    if !errors.As(err, &pgErr) { return err }
    switch pgErr.Code {
    case "23505":
        return fmt.Errorf("%s: %w", pgErr.ConstraintName, errs.ErrDuplicateCode)
    case "23503":
        return fmt.Errorf("%s: %w", pgErr.ConstraintName, errs.ErrInUse)
    case "23514":
        return errs.Invalid(pgErr.ConstraintName)
    }
    return err
}

type querier interface {
    Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
    Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
    QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func nullable(id uuid.UUID) any {
    if id == uuid.Nil { return nil }
    return id
}
