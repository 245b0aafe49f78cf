// Package schema holds the typed entities produced by validation and the
// rejection taxonomy consumed by the quality reporter.
package schema

import (
	"time"

	"github.com/shopspring/decimal"

	"ecometl/pkg/records"
)

// Allowed enum values enforced by validation and mirrored by the store's
// CHECK constraints.
var (
	OrderStatuses = []string{"completed", "pending", "cancelled", "refunded"}
	Genders       = []string{"M", "F", "O"}
)

// Customer is a validated, normalized customer row. CustomerID and Email are
// always non-empty; everything else is optional.
type Customer struct {
	CustomerID        string     `db:"customer_id"`
	Name              string     `db:"name"`
	Email             string     `db:"email"` // lowercase, exactly one "@"
	Phone             *string    `db:"phone"`
	RegistrationDate  *time.Time `db:"registration_date"`
	BirthDate         *time.Time `db:"birth_date"`
	Gender            *string    `db:"gender"` // "M" | "F" | "O"
	PreferredLanguage *string    `db:"preferred_language"`
	Address           *string    `db:"address"` // JSON document, already serialized
}

// Order is a validated order/transaction row. OrderID and CustomerID are
// always non-empty and Amount is strictly positive with 2 fractional digits.
//
// OrderDate may be zero when the source carried no primary date at all; such
// orders pass validation but are skipped by the loader's final guard (the
// column is NOT NULL).
type Order struct {
	OrderID       string          `db:"order_id"`
	CustomerID    string          `db:"customer_id"`
	CustomerEmail string          `db:"customer_email"` // filled in by the linker
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	OrderDate     time.Time       `db:"order_date"`
	Status        *string         `db:"status"`
	PaymentMethod *string         `db:"payment_method"`
	Rating        *int64          `db:"rating"` // 1..5
	ReviewDate    *time.Time      `db:"review_date"`
}

// HasOrderDate reports whether the order carries a usable primary date.
func (o Order) HasOrderDate() bool { return !o.OrderDate.IsZero() }

// AsRecord re-expresses the typed customer as a raw record. Rejections raised
// after validation (linker, loader, store) attach this as their audit payload
// because the original source record is no longer in hand.
func (c Customer) AsRecord() records.Record {
	rec := records.Record{"customer_id": c.CustomerID, "email": c.Email}
	if c.Name != "" {
		rec["name"] = c.Name
	}
	putText(rec, "phone", c.Phone)
	putText(rec, "gender", c.Gender)
	putText(rec, "preferred_language", c.PreferredLanguage)
	putText(rec, "address", c.Address)
	putDate(rec, "registration_date", c.RegistrationDate)
	putDate(rec, "birth_date", c.BirthDate)
	return rec
}

// AsRecord re-expresses the typed order as a raw record for audit trails.
func (o Order) AsRecord() records.Record {
	rec := records.Record{
		"order_id":    o.OrderID,
		"customer_id": o.CustomerID,
		"amount":      o.Amount.StringFixed(2),
	}
	if o.CustomerEmail != "" {
		rec["customer_email"] = o.CustomerEmail
	}
	if o.Currency != "" {
		rec["currency"] = o.Currency
	}
	if o.HasOrderDate() {
		rec["order_date"] = o.OrderDate.Format(time.RFC3339)
	}
	putText(rec, "status", o.Status)
	putText(rec, "payment_method", o.PaymentMethod)
	if o.Rating != nil {
		rec["rating"] = *o.Rating
	}
	putDate(rec, "review_date", o.ReviewDate)
	return rec
}

func putText(rec records.Record, key string, v *string) {
	if v != nil {
		rec[key] = *v
	}
}

func putDate(rec records.Record, key string, t *time.Time) {
	if t != nil {
		rec[key] = t.Format(time.RFC3339)
	}
}
