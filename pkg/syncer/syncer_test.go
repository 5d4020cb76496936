package syncer

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"orderqueue/pkg/api"
	"orderqueue/pkg/client"
	"orderqueue/pkg/localstore"
	"orderqueue/pkg/logger"
	"orderqueue/pkg/order"
	"orderqueue/pkg/order/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMonitorCombinesSignals(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(nil)
	m := NewMonitor(remote, testLogger())

	var mu sync.Mutex
	var flips []bool
	m.Subscribe(func(_ context.Context, online bool) {
		mu.Lock()
		defer mu.Unlock()
		flips = append(flips, online)
	})

	assert.True(t, m.Online())
	assert.True(t, m.Probe(ctx))
	assert.Empty(t, flips)

	m.SetNetwork(ctx, false)
	assert.False(t, m.Online())
	assert.False(t, m.NetworkUp())

	remote.setDown(true)
	assert.False(t, m.Probe(ctx))
	assert.False(t, m.ServerUp())

	// network back but store still down: still offline, no flip
	m.SetNetwork(ctx, true)
	assert.False(t, m.Online())

	remote.setDown(false)
	assert.True(t, m.Probe(ctx))
	assert.True(t, m.Online())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, flips)
}

func TestComingOnlineDropsCompletedAndReplays(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(twoOrders())
	q, _ := newLoadedQueue(t, remote)
	m := NewMonitor(remote, testLogger())
	New(q, m, testLogger(), Options{})

	m.SetNetwork(ctx, false)
	remote.setDown(true)
	require.NoError(t, q.SetItemStatus(ctx, 2, 0, order.StatusComplete))
	require.NoError(t, q.SetItemStatus(ctx, 1, 0, order.StatusUnavailable))
	require.Len(t, q.PendingChanges(), 2)

	remote.setDown(false)
	remote.clearCalls()
	m.SetNetwork(ctx, true)

	assert.Empty(t, q.PendingChanges())
	assert.Equal(t, []statusCall{
		{2, 0, order.StatusComplete},
		{1, 0, order.StatusUnavailable},
	}, remote.calls())
	orders := q.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 1, orders[0].ID)
}

func TestPushOnceSkipsWhileOffline(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(twoOrders())
	q, _ := newLoadedQueue(t, remote)
	m := NewMonitor(remote, testLogger())
	s := New(q, m, testLogger(), Options{})

	m.SetNetwork(ctx, false)
	s.PushOnce(ctx)
	assert.Zero(t, remote.replaces)

	m.SetNetwork(ctx, true)
	s.PushOnce(ctx)
	assert.Equal(t, 1, remote.replaces)
}

func TestSyncerRecoversAfterOutage(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(twoOrders())
	q, _ := newLoadedQueue(t, remote)
	m := NewMonitor(remote, testLogger())
	s := New(q, m, testLogger(), Options{SyncInterval: 5 * time.Millisecond, HealthInterval: 5 * time.Millisecond})

	remote.setDown(true)
	s.Start(ctx)
	defer s.Stop()
	assert.False(t, m.Online())

	require.NoError(t, q.SetItemStatus(ctx, 1, 0, order.StatusComplete))
	require.Len(t, q.PendingChanges(), 1)

	remote.setDown(false)
	assert.Eventually(t, func() bool {
		if len(q.PendingChanges()) != 0 {
			return false
		}
		stored, err := remote.ListOrders(ctx)
		return err == nil && len(stored) == 2 && stored[0].Items[0].Status == order.StatusComplete
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, m.Online())
}

func TestResetWhileBulkPushTicks(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote(twoOrders())
	q, _ := newLoadedQueue(t, remote)
	require.NoError(t, q.SetItemStatus(ctx, 1, 0, order.StatusComplete))

	s := New(q, NewMonitor(remote, testLogger()), testLogger(), Options{SyncInterval: 2 * time.Millisecond, HealthInterval: time.Hour})
	s.Start(ctx)
	defer s.Stop()

	remote.setListDelay(30 * time.Millisecond)
	require.NoError(t, q.Reset(ctx))
	remote.setListDelay(0)

	assert.Equal(t, twoOrders(), q.Orders())
	time.Sleep(10 * time.Millisecond)
	stored, err := remote.repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, twoOrders(), stored)
}

func TestStartTwiceAndStopTwice(t *testing.T) {
	remote := newFakeRemote(nil)
	q, _ := newLoadedQueue(t, remote)
	s := New(q, NewMonitor(remote, testLogger()), testLogger(), Options{SyncInterval: time.Millisecond, HealthInterval: time.Millisecond})

	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
}

// End to end through the real router and HTTP client.
func TestEndToEndOverHTTP(t *testing.T) {
	ctx := context.Background()
	log := logger.New(io.Discard, logger.LevelInfo, "test", nil)
	repo := memory.New(twoOrders())
	srv := httptest.NewServer(api.New(repo, log, nil).Router())
	defer srv.Close()

	c := client.New(srv.URL, time.Second)
	q := NewQueue(c, localstore.NewMemory(), log)
	require.NoError(t, q.Load(ctx))

	require.NoError(t, q.SetItemStatus(ctx, 1, 0, order.StatusComplete))
	require.NoError(t, q.SetItemStatus(ctx, 1, 1, order.StatusUnavailable))
	cur, _ := q.Current()
	assert.Equal(t, 2, cur.ID)

	stored, err := repo.List(ctx)
	require.NoError(t, err)
	assert.False(t, stored[0].IsPending())
	assert.Empty(t, q.PendingChanges())

	require.NoError(t, q.Reset(ctx))
	stored, _ = repo.List(ctx)
	assert.Equal(t, twoOrders(), stored)
	assert.Equal(t, twoOrders(), q.Orders())
}
