package postgres

import "github.com/tinoosan/compta/internal/storage"

var (
	_ storage.Store            = (*Store)(nil)
	_ storage.IdempotencyStore = (*Store)(nil)
	_ storage.Tx               = (*txStore)(nil)
)
