package main

import (
	"context"
	"errors"

	"orderqueue/pkg/order"
	"orderqueue/pkg/syncer"
)

var errNetworkDown = errors.New("network is down")

// gatedRemote fails every store call while the network signal is down, so an
// "offline" command behaves like a real outage for the queue.
type gatedRemote struct {
	next syncer.Remote
	up   func() bool
}

func (g gatedRemote) ListOrders(ctx context.Context) ([]order.Order, error) {
	if !g.up() {
		return nil, errNetworkDown
	}
	return g.next.ListOrders(ctx)
}

func (g gatedRemote) SetItemStatus(ctx context.Context, orderID, itemIndex int, status order.Status) error {
	if !g.up() {
		return errNetworkDown
	}
	return g.next.SetItemStatus(ctx, orderID, itemIndex, status)
}

func (g gatedRemote) Replace(ctx context.Context, orders []order.Order) error {
	if !g.up() {
		return errNetworkDown
	}
	return g.next.Replace(ctx, orders)
}

func (g gatedRemote) Reset(ctx context.Context) error {
	if !g.up() {
		return errNetworkDown
	}
	return g.next.Reset(ctx)
}
