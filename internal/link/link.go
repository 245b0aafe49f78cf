// Package link resolves each validated order's customer reference against the
// customers accepted in the same run plus those already resident in the
// store. Orders whose customer cannot be resolved are dropped, not loaded.
package link

import (
	"fmt"

	"ecometl/internal/schema"
)

// CustomerIndex is the resolution set for one run: every customer_id an order
// may legally reference, with the email used to denormalize onto orders.
type CustomerIndex struct {
	emails map[string]string
}

// NewCustomerIndex builds the index from this run's accepted customers and
// the identifiers already present in the store. Store-resident customers
// resolve with an empty email; the loader preserves the stored value then.
func NewCustomerIndex(fresh []schema.Customer, resident []string) *CustomerIndex {
	idx := &CustomerIndex{emails: make(map[string]string, len(fresh)+len(resident))}
	for _, id := range resident {
		idx.emails[id] = ""
	}
	for _, c := range fresh {
		idx.emails[c.CustomerID] = c.Email
	}
	return idx
}

// Resolve reports whether id is a loadable customer reference and, when it
// is, the email to denormalize.
func (idx *CustomerIndex) Resolve(id string) (email string, ok bool) {
	email, ok = idx.emails[id]
	return email, ok
}

// Len returns the number of resolvable customer identifiers.
func (idx *CustomerIndex) Len() int { return len(idx.emails) }

// Orders partitions orders into linkable and dropped. Linked orders get
// CustomerEmail filled in. Each order is judged on its own; input order is
// preserved in both outputs.
func Orders(orders []schema.Order, idx *CustomerIndex) (linked []schema.Order, dropped []schema.Rejection) {
	linked = make([]schema.Order, 0, len(orders))
	for _, o := range orders {
		email, ok := idx.Resolve(o.CustomerID)
		if !ok {
			dropped = append(dropped, schema.NewRejection(
				schema.EntityOrder, o.OrderID, schema.ReasonUnresolvedCustomer,
				fmt.Sprintf("customer %q not in this run or the store", o.CustomerID), o.AsRecord()))
			continue
		}
		o.CustomerEmail = email
		linked = append(linked, o)
	}
	return linked, dropped
}
