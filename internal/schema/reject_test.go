package schema

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ecometl/pkg/records"
)

func TestFingerprintRecordDeterministic(t *testing.T) {
	a := records.Record{"customer_id": "C1", "email": "a@b.io", "rating": 5}
	b := records.Record{"rating": 5, "email": "a@b.io", "customer_id": "C1"}

	if FingerprintRecord(a) != FingerprintRecord(b) {
		t.Fatal("fingerprint depends on key order")
	}
	if FingerprintRecord(a) == FingerprintRecord(records.Record{"customer_id": "C2"}) {
		t.Fatal("different records share a fingerprint")
	}
	if FingerprintRecord(nil) != 0 {
		t.Fatal("empty record should fingerprint to 0")
	}
}

func TestFingerprintNestedValues(t *testing.T) {
	a := records.Record{"address": map[string]any{"city": "Madrid"}}
	b := records.Record{"address": map[string]any{"city": "Lisbon"}}
	if FingerprintRecord(a) == FingerprintRecord(b) {
		t.Fatal("nested values must affect the fingerprint")
	}
}

func TestNewRejection(t *testing.T) {
	raw := records.Record{"order_id": "O1"}
	rej := NewRejection(EntityOrder, "O1", ReasonInvalidAmount, "-5 not > 0", raw)

	if rej.Entity != EntityOrder || rej.Reason != ReasonInvalidAmount {
		t.Fatalf("rejection = %+v", rej)
	}
	if rej.Fingerprint == 0 {
		t.Fatal("fingerprint not set")
	}
}

func TestHasOrderDate(t *testing.T) {
	var o Order
	if o.HasOrderDate() {
		t.Fatal("zero date reported present")
	}
}

func TestOrderAsRecord(t *testing.T) {
	status := "completed"
	o := Order{
		OrderID:    "O1",
		CustomerID: "C1",
		Amount:     decimal.NewFromFloat(12.5),
		OrderDate:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Status:     &status,
	}
	rec := o.AsRecord()

	if rec["order_id"] != "O1" || rec["customer_id"] != "C1" || rec["amount"] != "12.50" {
		t.Fatalf("record = %+v", rec)
	}
	if rec["status"] != "completed" {
		t.Fatalf("status = %v", rec["status"])
	}
	// absent optionals stay absent instead of showing up as empty values
	if _, ok := rec["rating"]; ok {
		t.Fatal("nil rating leaked into the record")
	}
	if _, ok := rec["customer_email"]; ok {
		t.Fatal("empty email leaked into the record")
	}
	if FingerprintRecord(rec) == 0 {
		t.Fatal("record must be fingerprintable")
	}
}

func TestCustomerAsRecord(t *testing.T) {
	gender := "F"
	c := Customer{CustomerID: "C1", Email: "c1@shop.io", Gender: &gender}
	rec := c.AsRecord()

	if rec["customer_id"] != "C1" || rec["email"] != "c1@shop.io" || rec["gender"] != "F" {
		t.Fatalf("record = %+v", rec)
	}
	if _, ok := rec["phone"]; ok {
		t.Fatal("nil phone leaked into the record")
	}
}
