package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ecometl/internal/config"
	"ecometl/pkg/records"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	src := config.Sources{
		Customers:    writeFile(t, dir, "customers.json", `[{"customer_id": "C1"}]`),
		Transactions: writeFile(t, dir, "transactions.json", `[{"transaction_id": "T1"}, {"transaction_id": "T2"}]`),
		Reviews: []string{
			writeFile(t, dir, "reviews_jan.json", `[{"transaction_id": "T1", "rating": 5}]`),
			writeFile(t, dir, "reviews_feb.json", `[{"transaction_id": "T2", "rating": 3}]`),
		},
	}

	snap, err := Run(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Customers) != 1 || len(snap.Transactions) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	// review files concatenate in configuration order
	if len(snap.Reviews) != 2 || snap.Reviews[0].String("transaction_id") != "T1" {
		t.Fatalf("reviews = %+v", snap.Reviews)
	}
}

func TestRunMissingFile(t *testing.T) {
	dir := t.TempDir()
	src := config.Sources{
		Customers:    filepath.Join(dir, "absent.json"),
		Transactions: writeFile(t, dir, "transactions.json", `[]`),
	}
	if _, err := Run(context.Background(), src); err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestAssembleOrders(t *testing.T) {
	transactions := []records.Record{
		{"transaction_id": "T1", "customer_id": "C1", "amount": "10.00"},
		{"transaction_id": "T2", "customer_id": "C2", "amount": "20.00"},
	}
	reviews := []records.Record{
		{"transaction_id": "T1", "rating": 5, "review_date": "2024-01-20"},
		{"transaction_id": "T1", "rating": 1}, // duplicate review, first wins
		{"transaction_id": "", "rating": 4},   // unlinked review, ignored
	}

	orders := AssembleOrders(transactions, reviews)
	if len(orders) != 2 {
		t.Fatalf("len = %d, want 2", len(orders))
	}
	if orders[0].String("rating") != "5" || orders[0].String("review_date") != "2024-01-20" {
		t.Errorf("enriched order = %+v", orders[0])
	}
	// transaction without a review is still an order
	if orders[1].Has("rating") {
		t.Errorf("T2 should carry no rating: %+v", orders[1])
	}
	// source records must not be mutated
	if transactions[0].Has("rating") {
		t.Error("AssembleOrders mutated its input")
	}
}
