// Package syncer keeps a picker's local copy of the order list in step with
// the order store across restarts and connectivity loss.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"orderqueue/pkg/localstore"
	"orderqueue/pkg/logger"
	"orderqueue/pkg/metrics"
	"orderqueue/pkg/order"
)

// Remote is the order store as seen from the client.
type Remote interface {
	ListOrders(ctx context.Context) ([]order.Order, error)
	SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error
	Replace(ctx context.Context, orders []order.Order) error
	Reset(ctx context.Context) error
}

// PendingChange is a status update the store has not acknowledged yet.
type PendingChange struct {
	ID        string       `json:"id,omitempty"`
	OrderID   int          `json:"orderId"`
	ItemIndex int          `json:"itemIndex"`
	Status    order.Status `json:"status"`
}

// ReplayResult summarizes one pass over the pending-change queue.
type ReplayResult struct {
	Replayed  int
	Dropped   int
	Remaining int
}

// Queue is the client's working copy: the order list, the order being picked
// and the changes waiting for the store. Every mutation is mirrored into the
// cache before the method returns.
type Queue struct {
	remote Remote
	cache  localstore.Store
	log    *logger.Logger

	mu         sync.Mutex
	orders     []order.Order
	currentID  int
	hasCurrent bool
	changes    []PendingChange

	// syncMu serializes the operations that talk to the store about the
	// whole list: replay, bulk push and reset.
	syncMu sync.Mutex
}

// NewQueue returns an empty Queue. Call Load before use.
func NewQueue(remote Remote, cache localstore.Store, log *logger.Logger) *Queue {
	return &Queue{remote: remote, cache: cache, log: log}
}

// Load restores the cached state. With no cached orders the list is fetched
// from the store; a failed fetch is logged and leaves the queue empty until
// the next Refresh.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if raw, ok, err := q.cache.Get(ctx, localstore.KeyOrders); err != nil {
		return fmt.Errorf("read cached orders: %w", err)
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &q.orders); err != nil {
			q.log.Warn(ctx, "discarding unreadable cached orders", "error", err)
			q.orders = nil
		}
	}

	if raw, ok, err := q.cache.Get(ctx, localstore.KeyOrderChanges); err != nil {
		return fmt.Errorf("read cached changes: %w", err)
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &q.changes); err != nil {
			q.log.Warn(ctx, "discarding unreadable cached changes", "error", err)
			q.changes = nil
		}
		for i := range q.changes {
			if q.changes[i].ID == "" {
				q.changes[i].ID = uuid.NewString()
			}
		}
	}
	metrics.PendingChanges.Set(float64(len(q.changes)))

	if raw, ok, err := q.cache.Get(ctx, localstore.KeyCurrentOrderID); err != nil {
		return fmt.Errorf("read current order: %w", err)
	} else if ok {
		if id, err := strconv.Atoi(raw); err == nil {
			q.currentID, q.hasCurrent = id, true
		}
	}

	if len(q.orders) == 0 {
		list, err := q.remote.ListOrders(ctx)
		if err != nil {
			q.log.Error(ctx, "error fetching initial orders", "error", err)
		} else {
			q.orders = list
			q.saveOrders(ctx)
		}
	}
	q.ensureCurrent(ctx)
	return nil
}

// Orders returns a copy of the local order list.
func (q *Queue) Orders() []order.Order {
	q.mu.Lock()
	defer q.mu.Unlock()
	return order.CloneAll(q.orders)
}

// PendingOrders returns the local orders that still have pending items.
func (q *Queue) PendingOrders() []order.Order {
	return order.Pending(q.Orders())
}

// CompletedOrders returns the local orders awaiting removal after sync.
func (q *Queue) CompletedOrders() []order.Order {
	return order.Completed(q.Orders())
}

// Current returns the order being picked.
func (q *Queue) Current() (order.Order, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.hasCurrent {
		return order.Order{}, false
	}
	i := order.Find(q.orders, q.currentID)
	if i < 0 {
		return order.Order{}, false
	}
	return q.orders[i].Clone(), true
}

// Select moves the current-order pointer to orderID.
func (q *Queue) Select(ctx context.Context, orderID int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if order.Find(q.orders, orderID) < 0 {
		return order.ErrOrderNotFound
	}
	q.setCurrent(ctx, orderID)
	return nil
}

// PendingChanges returns a copy of the unacknowledged changes in queue order.
func (q *Queue) PendingChanges() []PendingChange {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]PendingChange(nil), q.changes...)
}

// SetItemStatus applies the change locally, then tries the store. A transport
// failure queues the change for replay; a store 404 is logged and dropped.
// Either way the local edit stands. When the touched order has no pending
// items left the pointer moves to the first other order that does.
// Only a change that does not address a local order or item is an error.
func (q *Queue) SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error {
	q.mu.Lock()
	i := order.Find(q.orders, orderID)
	if i < 0 {
		q.mu.Unlock()
		return order.ErrOrderNotFound
	}
	if itemIndex < 0 || itemIndex >= len(q.orders[i].Items) {
		q.mu.Unlock()
		return order.ErrItemNotFound
	}
	q.orders[i].Items[itemIndex].Status = status
	q.saveOrders(ctx)
	q.mu.Unlock()

	err := q.remote.SetItemStatus(ctx, orderID, itemIndex, status)
	switch {
	case err == nil:
	case rejected(err):
		q.log.Warn(ctx, "store rejected status update", "order_id", orderID, "item_index", itemIndex, "error", err)
	default:
		q.log.Warn(ctx, "status update queued for replay", "order_id", orderID, "item_index", itemIndex, "error", err)
		q.enqueue(ctx, PendingChange{ID: uuid.NewString(), OrderID: orderID, ItemIndex: itemIndex, Status: status})
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.advanceFrom(ctx, orderID)
	return nil
}

// ReplayPending sends queued changes to the store in order, acknowledging
// each one individually. Changes the store rejects with 404 are dropped.
// The first transport failure ends the pass and leaves that change and all
// later ones queued. Changes queued while the pass runs are kept. The local
// list is refreshed afterwards.
func (q *Queue) ReplayPending(ctx context.Context) ReplayResult {
	q.syncMu.Lock()
	defer q.syncMu.Unlock()

	batch := q.PendingChanges()
	var res ReplayResult
	acked := make(map[string]bool, len(batch))
	for _, ch := range batch {
		err := q.remote.SetItemStatus(ctx, ch.OrderID, ch.ItemIndex, ch.Status)
		if err == nil {
			acked[ch.ID] = true
			res.Replayed++
			metrics.Replayed.WithLabelValues("ok").Inc()
			continue
		}
		if rejected(err) {
			acked[ch.ID] = true
			res.Dropped++
			metrics.Replayed.WithLabelValues("dropped").Inc()
			q.log.Warn(ctx, "dropping change the store cannot apply", "order_id", ch.OrderID, "item_index", ch.ItemIndex, "error", err)
			continue
		}
		metrics.Replayed.WithLabelValues("failed").Inc()
		q.log.Warn(ctx, "replay interrupted", "order_id", ch.OrderID, "item_index", ch.ItemIndex, "error", err)
		break
	}

	q.mu.Lock()
	kept := make([]PendingChange, 0, len(q.changes))
	for _, ch := range q.changes {
		if !acked[ch.ID] {
			kept = append(kept, ch)
		}
	}
	q.changes = kept
	q.saveChanges(ctx)
	res.Remaining = len(kept)
	q.mu.Unlock()

	q.Refresh(ctx)
	return res
}

// Refresh fetches the store's list and adopts it when the local list is
// empty. A non-empty local list is the source of truth for the next bulk push.
func (q *Queue) Refresh(ctx context.Context) {
	list, err := q.remote.ListOrders(ctx)
	if err != nil {
		q.log.Warn(ctx, "refresh orders", "error", err)
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.orders) > 0 {
		return
	}
	q.orders = list
	q.saveOrders(ctx)
	q.ensureCurrent(ctx)
}

// BulkPush overwrites the store with the whole local list. It waits for a
// reset or replay in progress.
func (q *Queue) BulkPush(ctx context.Context) error {
	q.syncMu.Lock()
	defer q.syncMu.Unlock()

	snapshot := q.Orders()
	if err := q.remote.Replace(ctx, snapshot); err != nil {
		metrics.BulkPushes.WithLabelValues("failed").Inc()
		return err
	}
	metrics.BulkPushes.WithLabelValues("ok").Inc()
	return nil
}

// DropCompleted removes fully resolved orders from the local list and
// returns how many were removed. The store is not touched.
func (q *Queue) DropCompleted(ctx context.Context) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := order.Pending(q.orders)
	removed := len(q.orders) - len(kept)
	if removed == 0 {
		return 0
	}
	q.orders = kept
	q.saveOrders(ctx)
	q.ensureCurrent(ctx)
	return removed
}

// Reset asks the store to restore its seed, then discards all local state
// whether or not that worked, and reloads the list from the store with every
// item forced back to pending. No bulk push runs until the list is back.
func (q *Queue) Reset(ctx context.Context) error {
	q.syncMu.Lock()
	defer q.syncMu.Unlock()

	if err := q.remote.Reset(ctx); err != nil {
		q.log.Error(ctx, "error resetting orders on the server", "error", err)
	}

	q.mu.Lock()
	q.orders = nil
	q.changes = nil
	q.hasCurrent = false
	for _, key := range []string{localstore.KeyOrders, localstore.KeyCurrentOrderID, localstore.KeyOrderChanges} {
		if err := q.cache.Delete(ctx, key); err != nil {
			q.log.Warn(ctx, "clear cache key", "key", key, "error", err)
		}
	}
	metrics.PendingChanges.Set(0)
	q.mu.Unlock()

	list, err := q.remote.ListOrders(ctx)
	if err != nil {
		q.log.Error(ctx, "error fetching initial orders", "error", err)
		return fmt.Errorf("fetch orders after reset: %w", err)
	}
	for i := range list {
		for j := range list[i].Items {
			list[i].Items[j].Status = order.StatusPending
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.orders = list
	q.saveOrders(ctx)
	q.ensureCurrent(ctx)
	return nil
}

func (q *Queue) enqueue(ctx context.Context, ch PendingChange) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.changes = append(q.changes, ch)
	q.saveChanges(ctx)
}

// advanceFrom must be called with mu held.
func (q *Queue) advanceFrom(ctx context.Context, orderID int) {
	i := order.Find(q.orders, orderID)
	if i < 0 || q.orders[i].IsPending() {
		return
	}
	for _, o := range q.orders {
		if o.ID != orderID && o.IsPending() {
			q.setCurrent(ctx, o.ID)
			return
		}
	}
}

// ensureCurrent points at the first order when the pointer is unset or
// refers to an order no longer in the list. Must be called with mu held.
func (q *Queue) ensureCurrent(ctx context.Context) {
	if q.hasCurrent && order.Find(q.orders, q.currentID) >= 0 {
		return
	}
	if len(q.orders) == 0 {
		if q.hasCurrent {
			q.hasCurrent = false
			if err := q.cache.Delete(ctx, localstore.KeyCurrentOrderID); err != nil {
				q.log.Warn(ctx, "clear current order", "error", err)
			}
		}
		return
	}
	q.setCurrent(ctx, q.orders[0].ID)
}

func (q *Queue) setCurrent(ctx context.Context, id int) {
	q.currentID, q.hasCurrent = id, true
	if err := q.cache.Set(ctx, localstore.KeyCurrentOrderID, strconv.Itoa(id)); err != nil {
		q.log.Warn(ctx, "persist current order", "error", err)
	}
}

func (q *Queue) saveOrders(ctx context.Context) {
	orders := q.orders
	if orders == nil {
		orders = []order.Order{}
	}
	b, err := json.Marshal(orders)
	if err == nil {
		err = q.cache.Set(ctx, localstore.KeyOrders, string(b))
	}
	if err != nil {
		q.log.Warn(ctx, "persist orders", "error", err)
	}
}

func (q *Queue) saveChanges(ctx context.Context) {
	metrics.PendingChanges.Set(float64(len(q.changes)))
	changes := q.changes
	if changes == nil {
		changes = []PendingChange{}
	}
	b, err := json.Marshal(changes)
	if err == nil {
		err = q.cache.Set(ctx, localstore.KeyOrderChanges, string(b))
	}
	if err != nil {
		q.log.Warn(ctx, "persist pending changes", "error", err)
	}
}

// rejected reports whether the store answered and refused the change, as
// opposed to the request never reaching it.
func rejected(err error) bool {
	return errors.Is(err, order.ErrOrderNotFound) || errors.Is(err, order.ErrItemNotFound)
}
