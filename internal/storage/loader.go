package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ecometl/internal/schema"
)

// Loader drives the load protocol: customers first, committed per batch,
// then the surviving orders in one store transaction so a fatal failure
// leaves the order set untouched. Transient store failures are retried with
// exponential backoff; a phase that still fails is fatal for the run.
type Loader struct {
	repo        Repository
	batchSize   int
	maxRetries  uint64
	backoffBase time.Duration
}

// LoaderOpts tunes batching and retry behavior. Zero values fall back to
// defaults (batch 500, 3 retries, 250ms initial backoff). BatchSize applies
// to the customer phase only; orders are always applied as one unit.
type LoaderOpts struct {
	BatchSize      int
	MaxRetries     int
	RetryBackoffMS int
}

// LoadSummary reports what happened to every row handed to Load.
// For each entity Inserted+Updated+Skipped equals the input row count.
type LoadSummary struct {
	Customers UpsertStats
	Orders    UpsertStats

	// OrdersMissingDate counts orders skipped by the guard because they
	// carried no primary date (the column is NOT NULL). Included in
	// Orders.Skipped.
	OrdersMissingDate int

	// Dropped holds the load-time rejections: store constraint violations
	// and orders whose customer did not survive the customer phase.
	Dropped []schema.Rejection

	Verify VerifyStats
}

// NewLoader wires a loader over repo.
func NewLoader(repo Repository, opts LoaderOpts) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoffMS <= 0 {
		opts.RetryBackoffMS = 250
	}
	return &Loader{
		repo:        repo,
		batchSize:   opts.BatchSize,
		maxRetries:  uint64(opts.MaxRetries),
		backoffBase: time.Duration(opts.RetryBackoffMS) * time.Millisecond,
	}
}

// Load persists customers then orders. Re-running Load with the same rows is
// idempotent: every upsert is keyed by primary identifier.
func (l *Loader) Load(ctx context.Context, customers []schema.Customer, orders []schema.Order) (LoadSummary, error) {
	var sum LoadSummary

	for _, batch := range chunk(customers, l.batchSize) {
		stats, rejects, err := l.retryCustomers(ctx, batch)
		if err != nil {
			return sum, fmt.Errorf("load customers: %w", err)
		}
		sum.Customers.Add(stats)
		sum.Dropped = append(sum.Dropped, rejects...)
	}

	// Customers are committed now; the resident set is the referential truth
	// for the order phase. A customer lost to a constraint violation takes
	// its orders down here, not at the FK.
	loadable, err := l.residentSet(ctx)
	if err != nil {
		return sum, fmt.Errorf("load orders: resident customers: %w", err)
	}

	ready := make([]schema.Order, 0, len(orders))
	for _, o := range orders {
		if !o.HasOrderDate() {
			log.Printf("loader: skip order order_id=%s reason=missing_order_date", o.OrderID)
			sum.OrdersMissingDate++
			sum.Orders.Skipped++
			continue
		}
		if _, ok := loadable[o.CustomerID]; !ok {
			sum.Dropped = append(sum.Dropped, schema.NewRejection(
				schema.EntityOrder, o.OrderID, schema.ReasonUnresolvedCustomer,
				fmt.Sprintf("customer %q not resident after customer load", o.CustomerID), o.AsRecord()))
			sum.Orders.Skipped++
			continue
		}
		ready = append(ready, o)
	}

	// The whole order set goes down in a single repository call, one store
	// transaction. Either every surviving order lands or none do; there is no
	// partially applied order state for a fatal failure to leave behind.
	if len(ready) > 0 {
		stats, rejects, err := l.retryOrders(ctx, ready)
		if err != nil {
			return sum, fmt.Errorf("load orders: %w", err)
		}
		sum.Orders.Add(stats)
		sum.Dropped = append(sum.Dropped, rejects...)
	}

	sum.Verify, err = l.repo.Verify(ctx)
	if err != nil {
		return sum, fmt.Errorf("post-load verification: %w", err)
	}
	if sum.Verify.Orphans > 0 {
		return sum, fmt.Errorf("post-load verification: %d orphaned orders", sum.Verify.Orphans)
	}
	return sum, nil
}

func (l *Loader) retryCustomers(ctx context.Context, batch []schema.Customer) (UpsertStats, []schema.Rejection, error) {
	var (
		stats   UpsertStats
		rejects []schema.Rejection
	)
	err := l.retry(ctx, func() error {
		var err error
		stats, rejects, err = l.repo.UpsertCustomers(ctx, batch)
		return err
	})
	return stats, rejects, err
}

func (l *Loader) retryOrders(ctx context.Context, batch []schema.Order) (UpsertStats, []schema.Rejection, error) {
	var (
		stats   UpsertStats
		rejects []schema.Rejection
	)
	err := l.retry(ctx, func() error {
		var err error
		stats, rejects, err = l.repo.UpsertOrders(ctx, batch)
		return err
	})
	return stats, rejects, err
}

// retry runs op, retrying transient failures with exponential backoff up to
// the configured attempt count. Permanent failures surface immediately.
func (l *Loader) retry(ctx context.Context, op func() error) error {
	attempt := 0
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		attempt++
		log.Printf("loader: transient store failure attempt=%d err=%v", attempt, err)
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = l.backoffBase
	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, l.maxRetries), ctx))
}

func (l *Loader) residentSet(ctx context.Context) (map[string]struct{}, error) {
	var ids []string
	err := l.retry(ctx, func() error {
		var err error
		ids, err = l.repo.ExistingCustomerIDs(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// chunk splits rows into batches of at most size.
func chunk[T any](rows []T, size int) [][]T {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}
