// Package storage defines the persistence contract for the analytical
// schema and the idempotent load protocol on top of it. Concrete stores
// (postgres, sqlite) live in subpackages and register themselves by kind.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"ecometl/internal/schema"
)

// Config selects and parameterizes a concrete repository.
type Config struct {
	Kind             string // "postgres" | "sqlite"
	DSN              string
	CustomersTable   string
	OrdersTable      string
	AutoCreateSchema bool
}

// UpsertStats reports, per entity batch, how the store classified each row.
// Inserted+Updated+Skipped covers every row handed to the repository.
type UpsertStats struct {
	Inserted int
	Updated  int
	Skipped  int // constraint violations and loader guard drops
}

// Add folds another batch's stats into s.
func (s *UpsertStats) Add(o UpsertStats) {
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Skipped += o.Skipped
}

// Total is the number of rows the stats account for.
func (s UpsertStats) Total() int { return s.Inserted + s.Updated + s.Skipped }

// VerifyStats is the post-load consistency snapshot.
type VerifyStats struct {
	Customers int64 // rows in the customers table
	Orders    int64 // rows in the orders table
	Orphans   int64 // orders whose customer_id has no customer row
}

// Repository is the store-side contract. Upserts are keyed by primary
// identifier so repeated loads of the same rows never duplicate. A row the
// store refuses despite passing validation comes back as a
// ConstraintViolation rejection, not an error; errors mean the batch itself
// could not be applied.
type Repository interface {
	// EnsureSchema creates the analytical tables when they do not exist.
	EnsureSchema(ctx context.Context) error

	// UpsertCustomers applies one customer batch in a transaction.
	UpsertCustomers(ctx context.Context, batch []schema.Customer) (UpsertStats, []schema.Rejection, error)

	// ExistingCustomerIDs returns every customer identifier already in the
	// store, for resolving order references across runs.
	ExistingCustomerIDs(ctx context.Context) ([]string, error)

	// UpsertOrders applies one order batch in a transaction.
	UpsertOrders(ctx context.Context, batch []schema.Order) (UpsertStats, []schema.Rejection, error)

	// Verify reports row counts and referential orphans after a load.
	Verify(ctx context.Context) (VerifyStats, error)

	Close() error
}

// TransientError marks a store failure worth retrying (connection drops,
// serialization conflicts). Everything else is treated as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return "transient: " + e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable anywhere in its chain.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// Factory builds a concrete repository from config.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]Factory{}
)

// Register installs a repository factory under kind. Concrete stores call
// this from init; duplicate registration is a programming error.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("storage: Register called twice for kind %q", kind))
	}
	factories[kind] = f
}

// New builds the repository configured by cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Kind]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown kind %q (registered: %v)", cfg.Kind, ListKinds())
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered store kinds, sorted.
func ListKinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
