// Package schedule runs periodic tasks that can be stopped deterministically.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Handle controls one running task.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every calls fn every interval until ctx is cancelled or Stop is called.
// The first call happens one interval after start. A slow fn delays the next
// tick instead of overlapping with itself.
func Every(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{name: name, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn(ctx)
			}
		}
	}()
	return h
}

// Name returns the name the task was started with.
func (h *Handle) Name() string { return h.name }

// Stop cancels the task and waits for an in-flight call to return.
func (h *Handle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed once the task goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }
