package extract

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"ecometl/internal/config"
	"ecometl/pkg/records"
)

// Snapshot is one run's worth of raw records, grouped by entity.
type Snapshot struct {
	Customers    []records.Record
	Transactions []records.Record
	Reviews      []records.Record
}

// Run reads all configured sources concurrently, one goroutine per file.
// Review files are concatenated in configuration order.
func Run(ctx context.Context, src config.Sources) (Snapshot, error) {
	var snap Snapshot
	reviewSets := make([][]records.Record, len(src.Reviews))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Customers, err = readFile(ctx, src.Customers)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Transactions, err = readFile(ctx, src.Transactions)
		return err
	})
	for i, path := range src.Reviews {
		g.Go(func() error {
			var err error
			reviewSets[i], err = readFile(ctx, path)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	for _, set := range reviewSets {
		snap.Reviews = append(snap.Reviews, set...)
	}
	return snap, nil
}

// readFile opens and decodes one entity file.
func readFile(ctx context.Context, path string) ([]records.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := DecodeAll(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return recs, nil
}

// AssembleOrders joins payment transactions with their reviews on
// transaction_id. Transactions are the base; a matching review contributes
// rating and review_date. Transactions without a review are still orders.
// When several reviews carry the same transaction_id the first one wins.
func AssembleOrders(transactions, reviews []records.Record) []records.Record {
	byTxn := make(map[string]records.Record, len(reviews))
	for _, rev := range reviews {
		id := rev.String("transaction_id")
		if id == "" {
			continue
		}
		if _, seen := byTxn[id]; !seen {
			byTxn[id] = rev
		}
	}

	out := make([]records.Record, 0, len(transactions))
	for _, txn := range transactions {
		order := make(records.Record, len(txn)+2)
		for k, v := range txn {
			order[k] = v
		}
		if rev, ok := byTxn[txn.FirstNonEmpty("transaction_id", "order_id")]; ok {
			if rev.Has("rating") {
				order["rating"] = rev["rating"]
			}
			if rev.Has("review_date") {
				order["review_date"] = rev["review_date"]
			}
		}
		out = append(out, order)
	}
	return out
}
