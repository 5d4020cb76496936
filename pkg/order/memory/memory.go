// Package memory implements an in-memory order repository.
package memory

import (
	"context"
	"sync"

	"orderqueue/pkg/order"
)

// Repository provides an in-memory implementation of order.Repository.
// All access goes through a single lock so a status update can never
// interleave with a bulk replace.
type Repository struct {
	mu     sync.RWMutex
	seed   []order.Order
	orders []order.Order
}

// New creates a repository holding a copy of seed. A nil seed uses order.Seed.
func New(seed []order.Order) *Repository {
	if seed == nil {
		seed = order.Seed()
	}
	seed = order.CloneAll(seed)
	return &Repository{seed: seed, orders: order.CloneAll(seed)}
}

// List returns all orders.
func (r *Repository) List(ctx context.Context) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return order.CloneAll(r.orders), nil
}

// SetItemStatus overwrites one item's status on the first order with orderID.
func (r *Repository) SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := order.Find(r.orders, orderID)
	if i < 0 {
		return order.ErrOrderNotFound
	}
	items := r.orders[i].Items
	if itemIndex < 0 || itemIndex >= len(items) {
		return order.ErrItemNotFound
	}
	items[itemIndex].Status = status
	return nil
}

// Replace overwrites the whole collection.
func (r *Repository) Replace(ctx context.Context, orders []order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = order.CloneAll(orders)
	return nil
}

// Reset restores the seed.
func (r *Repository) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = order.CloneAll(r.seed)
	return nil
}
