package memory

import "github.com/tinoosan/compta/internal/storage"

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ storage.Store            = (*Store)(nil)
	_ storage.IdempotencyStore = (*Store)(nil)
	_ storage.Tx               = (*tx)(nil)
)
