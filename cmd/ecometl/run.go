package main

import (
	"context"
	"fmt"
	"time"

	"ecometl/internal/config"
	"ecometl/internal/extract"
	"ecometl/internal/link"
	"ecometl/internal/metrics"
	"ecometl/internal/report"
	"ecometl/internal/schema"
	"ecometl/internal/storage"
	"ecometl/internal/validate"
)

// run executes one pipeline pass: extract raw records, validate and dedup
// them, link orders to customers, load, and report. Field- and record-level
// failures become rejections; only extract I/O and store-transaction
// failures abort the run.
func run(ctx context.Context, p config.Pipeline, runID string) error {
	sampleCap := p.Runtime.RejectSamples
	if sampleCap <= 0 {
		sampleCap = 10
	}
	rep := report.NewRun(p.Job, runID, sampleCap)

	t0 := time.Now()
	snap, err := extract.Run(ctx, p.Sources)
	metrics.RecordStage(p.Job, "extract", err, time.Since(t0))
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	rawOrders := extract.AssembleOrders(snap.Transactions, snap.Reviews)
	rep.Extracted(schema.EntityCustomer, len(snap.Customers))
	rep.Extracted(schema.EntityOrder, len(rawOrders))

	t0 = time.Now()
	rules := validate.RulesFromOptions(p.Validation)

	customers := make([]schema.Customer, 0, len(snap.Customers))
	for _, raw := range snap.Customers {
		c, rej := rules.Customer(raw)
		if rej != nil {
			rep.Reject(*rej)
			continue
		}
		customers = append(customers, c)
	}
	orders := make([]schema.Order, 0, len(rawOrders))
	for _, raw := range rawOrders {
		o, rej := rules.Order(raw)
		if rej != nil {
			rep.Reject(*rej)
			continue
		}
		orders = append(orders, o)
	}

	policy := validate.ParseDedupPolicy(p.Validation.String("dedup_policy", ""))
	var dropped int
	customers, dropped = validate.DedupCustomers(customers, policy)
	rep.Deduplicated(schema.EntityCustomer, dropped)
	orders, dropped = validate.DedupOrders(orders, policy)
	rep.Deduplicated(schema.EntityOrder, dropped)
	metrics.RecordStage(p.Job, "validate", nil, time.Since(t0))

	repo, err := storage.New(ctx, storage.Config{
		Kind:             p.Storage.Kind,
		DSN:              p.Storage.DB.DSN,
		CustomersTable:   p.Storage.DB.CustomersTable,
		OrdersTable:      p.Storage.DB.OrdersTable,
		AutoCreateSchema: p.Storage.DB.AutoCreateSchema,
	})
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	t0 = time.Now()
	resident, err := repo.ExistingCustomerIDs(ctx)
	if err == nil {
		idx := link.NewCustomerIndex(customers, resident)
		linked, drops := link.Orders(orders, idx)
		rep.Reject(drops...)
		orders = linked
	}
	metrics.RecordStage(p.Job, "link", err, time.Since(t0))
	if err != nil {
		return fmt.Errorf("link: resident customers: %w", err)
	}

	rep.Accepted(schema.EntityCustomer, len(customers))
	rep.Accepted(schema.EntityOrder, len(orders))

	loader := storage.NewLoader(repo, storage.LoaderOpts{
		BatchSize:      p.Runtime.BatchSize,
		MaxRetries:     p.Runtime.MaxRetries,
		RetryBackoffMS: p.Runtime.RetryBackoffMS,
	})
	t0 = time.Now()
	sum, err := loader.Load(ctx, customers, orders)
	metrics.RecordStage(p.Job, "load", err, time.Since(t0))

	// Summarize even on a fatal load error so partial progress is visible.
	rep.LogSummary(sum)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	return nil
}
