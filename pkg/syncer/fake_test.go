package syncer

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"orderqueue/pkg/logger"
	"orderqueue/pkg/order"
	"orderqueue/pkg/order/memory"
)

var errTransport = errors.New("dial tcp: connection refused")

type statusCall struct {
	OrderID   int
	ItemIndex int
	Status    order.Status
}

// fakeRemote is an in-process store whose transport can be cut.
type fakeRemote struct {
	repo *memory.Repository

	mu          sync.Mutex
	down        bool
	failOrder   int
	resetFails  bool
	listDelay   time.Duration
	statusCalls []statusCall
	replaces    int
	resets      int
}

func newFakeRemote(seed []order.Order) *fakeRemote {
	return &fakeRemote{repo: memory.New(seed)}
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeRemote) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *fakeRemote) calls() []statusCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statusCall(nil), f.statusCalls...)
}

func (f *fakeRemote) clearCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = nil
}

func (f *fakeRemote) setListDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listDelay = d
}

func (f *fakeRemote) ListOrders(ctx context.Context) ([]order.Order, error) {
	f.mu.Lock()
	delay := f.listDelay
	f.mu.Unlock()
	time.Sleep(delay)
	if f.isDown() {
		return nil, errTransport
	}
	return f.repo.List(ctx)
}

func (f *fakeRemote) SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error {
	f.mu.Lock()
	f.statusCalls = append(f.statusCalls, statusCall{orderID, itemIndex, status})
	fail := f.down || (f.failOrder != 0 && f.failOrder == orderID)
	f.mu.Unlock()
	if fail {
		return errTransport
	}
	return f.repo.SetItemStatus(ctx, orderID, itemIndex, status)
}

func (f *fakeRemote) Replace(ctx context.Context, orders []order.Order) error {
	f.mu.Lock()
	f.replaces++
	down := f.down
	f.mu.Unlock()
	if down {
		return errTransport
	}
	return f.repo.Replace(ctx, orders)
}

func (f *fakeRemote) Reset(ctx context.Context) error {
	f.mu.Lock()
	f.resets++
	fail := f.down || f.resetFails
	f.mu.Unlock()
	if fail {
		return errTransport
	}
	return f.repo.Reset(ctx)
}

func (f *fakeRemote) Health(ctx context.Context) error {
	if f.isDown() {
		return errTransport
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func twoOrders() []order.Order {
	return []order.Order{
		{ID: 1, Items: []order.Item{{Name: "A", Status: order.StatusPending}, {Name: "B", Status: order.StatusPending}}},
		{ID: 2, Items: []order.Item{{Name: "C", Status: order.StatusPending}}},
	}
}
