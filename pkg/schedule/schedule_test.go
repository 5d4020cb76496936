package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEveryRunsUntilStopped(t *testing.T) {
	var n atomic.Int32
	h := Every(context.Background(), "count", 5*time.Millisecond, func(context.Context) {
		n.Add(1)
	})
	assert.Equal(t, "count", h.Name())

	assert.Eventually(t, func() bool { return n.Load() >= 3 }, time.Second, time.Millisecond)
	h.Stop()

	stopped := n.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, n.Load())

	// a second Stop is a no-op
	h.Stop()
}

func TestEveryStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := Every(ctx, "parent", time.Millisecond, func(context.Context) {})
	cancel()

	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("task did not exit after parent cancel")
	}
}

func TestStopWaitsForInFlightCall(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	h := Every(context.Background(), "slow", time.Millisecond, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	h.Stop()
	assert.True(t, finished.Load())
}
