package validate

import (
	"testing"

	"ecometl/internal/schema"
)

func cust(id, name string) schema.Customer {
	return schema.Customer{CustomerID: id, Name: name, Email: id + "@x.io"}
}

func TestDedupCustomersKeepFirst(t *testing.T) {
	in := []schema.Customer{cust("C1", "first"), cust("C2", "other"), cust("C1", "second")}

	out, dropped := DedupCustomers(in, DedupKeepFirst)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if len(out) != 2 || out[0].Name != "first" || out[1].CustomerID != "C2" {
		t.Fatalf("out = %+v", out)
	}
}

func TestDedupCustomersKeepLast(t *testing.T) {
	in := []schema.Customer{cust("C1", "first"), cust("C2", "other"), cust("C1", "second")}

	out, dropped := DedupCustomers(in, DedupKeepLast)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	// survivor keeps the first-appearance slot
	if len(out) != 2 || out[0].Name != "second" {
		t.Fatalf("out = %+v", out)
	}
}

func TestDedupCustomersMostComplete(t *testing.T) {
	phone := "123"
	sparse := cust("C1", "")
	rich := cust("C1", "Ana")
	rich.Phone = &phone

	out, dropped := DedupCustomers([]schema.Customer{sparse, rich}, DedupMostComplete)
	if dropped != 1 || len(out) != 1 {
		t.Fatalf("out = %+v dropped = %d", out, dropped)
	}
	if out[0].Phone == nil {
		t.Fatal("most-complete should keep the richer row")
	}

	// ties keep the earlier row
	a, b := cust("C2", "A"), cust("C2", "B")
	out, _ = DedupCustomers([]schema.Customer{a, b}, DedupMostComplete)
	if out[0].Name != "A" {
		t.Fatalf("tie should keep first, got %q", out[0].Name)
	}
}

func TestDedupOrders(t *testing.T) {
	in := []schema.Order{{OrderID: "O1"}, {OrderID: "O1"}, {OrderID: "O2"}}
	out, dropped := DedupOrders(in, DedupKeepFirst)
	if len(out) != 2 || dropped != 1 {
		t.Fatalf("out = %+v dropped = %d", out, dropped)
	}
}

func TestParseDedupPolicy(t *testing.T) {
	if ParseDedupPolicy("keep-last") != DedupKeepLast {
		t.Error("keep-last")
	}
	if ParseDedupPolicy("most-complete") != DedupMostComplete {
		t.Error("most-complete")
	}
	if ParseDedupPolicy("") != DedupKeepFirst {
		t.Error("default")
	}
	if ParseDedupPolicy("bogus") != DedupKeepFirst {
		t.Error("unknown falls back to keep-first")
	}
}
