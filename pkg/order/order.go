package order

import (
	"context"
	"errors"
)

// Status is the fulfillment state of a single line item. The store accepts
// any value; the three constants below are the ones the picker produces.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnavailable Status = "unavailable"
	StatusComplete    Status = "complete"
)

// Item is a named line item. It has no identity of its own and is addressed
// by its index within the owning order.
type Item struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
}

// Order represents a customer order waiting to be picked.
type Order struct {
	ID    int    `json:"id"`
	Items []Item `json:"items"`
}

// IsPending reports whether at least one item still needs attention.
func (o Order) IsPending() bool {
	for _, it := range o.Items {
		if it.Status == StatusPending {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the order.
func (o Order) Clone() Order {
	items := make([]Item, len(o.Items))
	copy(items, o.Items)
	return Order{ID: o.ID, Items: items}
}

// CloneAll deep copies a list of orders. The result is never nil.
func CloneAll(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Clone())
	}
	return out
}

// Pending returns the orders that still have at least one pending item.
func Pending(orders []Order) []Order {
	var out []Order
	for _, o := range orders {
		if o.IsPending() {
			out = append(out, o)
		}
	}
	return out
}

// Completed returns the orders whose items are all resolved.
func Completed(orders []Order) []Order {
	var out []Order
	for _, o := range orders {
		if !o.IsPending() {
			out = append(out, o)
		}
	}
	return out
}

// Find returns the index of the first order with the given id, or -1.
func Find(orders []Order, id int) int {
	for i, o := range orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

// Repository defines behavior for the authoritative order collection.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	SetItemStatus(ctx context.Context, orderID, itemIndex int, status Status) error
	Replace(ctx context.Context, orders []Order) error
	Reset(ctx context.Context) error
}

var (
	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound indicates the item index is outside the order.
	ErrItemNotFound = errors.New("item not found")
)
