// This adapter wires the Postgres backend into the storage-agnostic factory
// by registering a constructor at init time. Callers obtain a Repository via
// storage.New(...) without importing this package directly; blank-importing
// storage/all is enough.
package postgres

import (
	"context"

	"ecometl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// Ensure the concrete type satisfies storage.Repository at compile time.
var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, Config{
			DSN:              cfg.DSN,
			CustomersTable:   cfg.CustomersTable,
			OrdersTable:      cfg.OrdersTable,
			AutoCreateSchema: cfg.AutoCreateSchema,
		})
	})
}
