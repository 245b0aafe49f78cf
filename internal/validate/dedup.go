package validate

import "ecometl/internal/schema"

// DedupPolicy picks the surviving row when several validated records share a
// primary identifier within one run.
type DedupPolicy string

const (
	DedupKeepFirst    DedupPolicy = "keep-first"
	DedupKeepLast     DedupPolicy = "keep-last"
	DedupMostComplete DedupPolicy = "most-complete"
)

// ParseDedupPolicy maps a config string onto a policy, defaulting to
// keep-first for empty or unknown values (config lint warns on unknown).
func ParseDedupPolicy(s string) DedupPolicy {
	switch DedupPolicy(s) {
	case DedupKeepLast:
		return DedupKeepLast
	case DedupMostComplete:
		return DedupMostComplete
	default:
		return DedupKeepFirst
	}
}

// DedupCustomers collapses customers sharing a customer_id.
func DedupCustomers(in []schema.Customer, policy DedupPolicy) ([]schema.Customer, int) {
	return dedupe(in, policy,
		func(c schema.Customer) string { return c.CustomerID },
		customerCompleteness)
}

// DedupOrders collapses orders sharing an order_id.
func DedupOrders(in []schema.Order, policy DedupPolicy) ([]schema.Order, int) {
	return dedupe(in, policy,
		func(o schema.Order) string { return o.OrderID },
		orderCompleteness)
}

// dedupe collapses entities sharing a key. The returned count is how many
// rows were dropped. Output order follows first appearance of each key.
// Under most-complete, ties keep the earlier row.
func dedupe[T any](in []T, policy DedupPolicy, key func(T) string, score func(T) int) ([]T, int) {
	if len(in) < 2 {
		return in, 0
	}
	index := make(map[string]int, len(in))
	out := make([]T, 0, len(in))
	dropped := 0
	for _, item := range in {
		k := key(item)
		at, seen := index[k]
		if !seen {
			index[k] = len(out)
			out = append(out, item)
			continue
		}
		dropped++
		switch policy {
		case DedupKeepLast:
			out[at] = item
		case DedupMostComplete:
			if score(item) > score(out[at]) {
				out[at] = item
			}
		}
	}
	return out, dropped
}

// customerCompleteness counts populated optional fields.
func customerCompleteness(c schema.Customer) int {
	n := 0
	if c.Name != "" {
		n++
	}
	for _, set := range []bool{
		c.Phone != nil, c.RegistrationDate != nil, c.BirthDate != nil,
		c.Gender != nil, c.PreferredLanguage != nil, c.Address != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func orderCompleteness(o schema.Order) int {
	n := 0
	if o.Currency != "" {
		n++
	}
	if o.HasOrderDate() {
		n++
	}
	for _, set := range []bool{
		o.Status != nil, o.PaymentMethod != nil, o.Rating != nil, o.ReviewDate != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
