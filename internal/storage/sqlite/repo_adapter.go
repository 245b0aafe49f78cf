// Registers the SQLite backend with the storage factory at init time, same
// wiring pattern as the Postgres adapter.
package sqlite

import (
	"context"

	"ecometl/internal/storage"
)

var newRepository = NewRepository

var _ storage.Repository = (*Repository)(nil)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, Config{
			DSN:              cfg.DSN,
			CustomersTable:   cfg.CustomersTable,
			OrdersTable:      cfg.OrdersTable,
			AutoCreateSchema: cfg.AutoCreateSchema,
		})
	})
}
