package v1

import (
    "github.com/tinoosan/compta/internal/storage"
    "github.com/tinoosan/compta/internal/storage/memory"
    "github.com/tinoosan/compta/internal/storage/postgres"
)

// Compile-time assertions for the optional store capabilities the server probes.
var (
    _ storage.IdempotencyStore = (*memory.Store)(nil)
    _ ReadyChecker             = (*memory.Store)(nil)
    _ storage.IdempotencyStore = (*postgres.Store)(nil)
    _ ReadyChecker             = (*postgres.Store)(nil)
)
