// Package validate applies the per-entity rule tables to raw records,
// producing either a typed entity or a rejection. A record fails on the
// first violated rule; optional fields that merely fail to parse are
// cleared instead of sinking the whole record.
package validate

import (
	"encoding/json"
	"time"

	"ecometl/internal/config"
	"ecometl/internal/normalize"
	"ecometl/internal/schema"
	"ecometl/pkg/records"
)

// Rules carries the tunable parts of the rule tables. Zero value is not
// usable; build one with DefaultRules or RulesFromOptions.
type Rules struct {
	OrderStatuses []string
	Genders       []string
	// DateLayouts are extra time.Parse layouts tried after the built-in ones.
	DateLayouts []string
}

// DefaultRules returns the stock rule set.
func DefaultRules() Rules {
	return Rules{
		OrderStatuses: schema.OrderStatuses,
		Genders:       schema.Genders,
	}
}

// RulesFromOptions overlays pipeline validation options onto the defaults.
func RulesFromOptions(opts config.Options) Rules {
	r := DefaultRules()
	if v := opts.StringSlice("status_enum"); len(v) > 0 {
		r.OrderStatuses = v
	}
	if v := opts.StringSlice("gender_enum"); len(v) > 0 {
		r.Genders = v
	}
	r.DateLayouts = opts.StringSlice("date_layouts")
	return r
}

// Customer judges one raw customer record. Exactly one of the two returns is
// meaningful: a nil rejection means the customer was accepted.
func (r Rules) Customer(raw records.Record) (schema.Customer, *schema.Rejection) {
	if len(raw) == 0 {
		rej := schema.NewRejection(schema.EntityCustomer, "", schema.ReasonMalformedRecord, "empty record", raw)
		return schema.Customer{}, &rej
	}

	id := normalize.Text(raw.FirstNonEmpty("customer_id", "id"))
	if id == "" {
		rej := schema.NewRejection(schema.EntityCustomer, "", schema.ReasonMissingPrimaryKey, "customer_id is empty", raw)
		return schema.Customer{}, &rej
	}

	email, err := normalize.Email(raw["email"])
	if err != nil {
		rej := schema.NewRejection(schema.EntityCustomer, id, schema.ReasonInvalidEmail, err.Error(), raw)
		return schema.Customer{}, &rej
	}

	c := schema.Customer{
		CustomerID:        id,
		Name:              normalize.Text(raw["name"]),
		Email:             email,
		Phone:             r.optText(raw, "phone"),
		RegistrationDate:  r.optDate(raw, "registration_date"),
		BirthDate:         r.optDate(raw, "birth_date"),
		Gender:            r.optEnum(raw, "gender", r.Genders),
		PreferredLanguage: r.optText(raw, "preferred_language"),
		Address:           addressJSON(raw["address"]),
	}
	return c, nil
}

// Order judges one raw order record. customer_id resolution is not checked
// here; that is the linker's rule.
func (r Rules) Order(raw records.Record) (schema.Order, *schema.Rejection) {
	if len(raw) == 0 {
		rej := schema.NewRejection(schema.EntityOrder, "", schema.ReasonMalformedRecord, "empty record", raw)
		return schema.Order{}, &rej
	}

	id := normalize.Text(raw.FirstNonEmpty("order_id", "transaction_id"))
	if id == "" {
		rej := schema.NewRejection(schema.EntityOrder, "", schema.ReasonMissingPrimaryKey, "order_id/transaction_id is empty", raw)
		return schema.Order{}, &rej
	}

	amount, err := normalize.Money(raw.FirstNonEmpty("amount", "payment_amount"))
	if err != nil {
		rej := schema.NewRejection(schema.EntityOrder, id, schema.ReasonInvalidAmount, err.Error(), raw)
		return schema.Order{}, &rej
	}

	var status *string
	if raw.Has("status") {
		s, err := normalize.Enum(raw["status"], r.OrderStatuses)
		if err != nil {
			rej := schema.NewRejection(schema.EntityOrder, id, schema.ReasonInvalidEnumValue, err.Error(), raw)
			return schema.Order{}, &rej
		}
		status = &s
	}

	// The primary date is load-critical: present but unparsable sinks the
	// record, absent leaves a zero date for the loader's guard to skip.
	var orderDate time.Time
	if v := raw.FirstNonEmpty("order_date", "payment_date"); v != "" {
		t, _, err := normalize.Date(v, r.DateLayouts...)
		if err != nil {
			rej := schema.NewRejection(schema.EntityOrder, id, schema.ReasonUnparsableDate, err.Error(), raw)
			return schema.Order{}, &rej
		}
		orderDate = t
	}

	o := schema.Order{
		OrderID:       id,
		CustomerID:    normalize.Text(raw["customer_id"]),
		Amount:        amount,
		Currency:      normalize.Text(raw["currency"]),
		OrderDate:     orderDate,
		Status:        status,
		PaymentMethod: r.optText(raw, "payment_method"),
		Rating:        optRating(raw["rating"]),
		ReviewDate:    r.optDate(raw, "review_date"),
	}
	return o, nil
}

// optText returns a trimmed string field, nil when empty or missing.
func (r Rules) optText(raw records.Record, key string) *string {
	s := normalize.Text(raw[key])
	if s == "" {
		return nil
	}
	return &s
}

// optDate parses an optional date field; unparsable values are dropped, not
// fatal.
func (r Rules) optDate(raw records.Record, key string) *time.Time {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	t, _, err := normalize.Date(v, r.DateLayouts...)
	if err != nil {
		return nil
	}
	return &t
}

// optEnum validates an optional enum field; out-of-set values are dropped.
func (r Rules) optEnum(raw records.Record, key string, allowed []string) *string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	s, err := normalize.Enum(v, allowed)
	if err != nil {
		return nil
	}
	return &s
}

// optRating accepts integers in 1..5, anything else is dropped.
func optRating(v any) *int64 {
	if v == nil {
		return nil
	}
	n, err := normalize.Int(v)
	if err != nil || n < 1 || n > 5 {
		return nil
	}
	return &n
}

// addressJSON serializes a nested address object so it can live in a single
// text column. Plain strings pass through unchanged.
func addressJSON(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := normalize.Text(t)
		if s == "" {
			return nil
		}
		return &s
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s := string(raw)
		return &s
	}
}
