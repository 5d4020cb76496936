package syncer

import (
	"context"
	"sync"
	"time"

	"orderqueue/pkg/logger"
	"orderqueue/pkg/schedule"
)

// Options controls the client's timers.
type Options struct {
	SyncInterval   time.Duration
	HealthInterval time.Duration
}

// Syncer drives a Queue: it probes the store, pushes the local list while
// online, and cleans up and replays pending changes whenever the client comes
// back online.
type Syncer struct {
	queue   *Queue
	monitor *Monitor
	log     *logger.Logger
	opts    Options

	mu      sync.Mutex
	handles []*schedule.Handle
}

// New wires a Syncer to the monitor's connectivity changes.
func New(queue *Queue, monitor *Monitor, log *logger.Logger, opts Options) *Syncer {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = time.Second
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = time.Second
	}
	s := &Syncer{queue: queue, monitor: monitor, log: log, opts: opts}
	monitor.Subscribe(s.onConnectivity)
	return s
}

// Start probes once, runs the online handler if the store is reachable, and
// schedules the probe and bulk-push tasks. Calling Start twice is a no-op.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handles != nil {
		return
	}

	if s.monitor.Probe(ctx) && s.monitor.Online() {
		s.onConnectivity(ctx, true)
	}
	s.handles = []*schedule.Handle{
		schedule.Every(ctx, "health-probe", s.opts.HealthInterval, func(ctx context.Context) {
			s.monitor.Probe(ctx)
		}),
		schedule.Every(ctx, "bulk-push", s.opts.SyncInterval, s.PushOnce),
	}
	s.log.Info(ctx, "sync started", "sync_interval", s.opts.SyncInterval, "health_interval", s.opts.HealthInterval)
}

// Stop cancels both tasks and waits for them to exit.
func (s *Syncer) Stop() {
	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()
	for _, h := range handles {
		h.Stop()
	}
}

// PushOnce overwrites the store with the local list if the client is online.
func (s *Syncer) PushOnce(ctx context.Context) {
	if !s.monitor.Online() {
		return
	}
	if err := s.queue.BulkPush(ctx); err != nil {
		s.log.Warn(ctx, "error synchronizing orders", "error", err)
	}
}

func (s *Syncer) onConnectivity(ctx context.Context, online bool) {
	if !online {
		return
	}
	if n := s.queue.DropCompleted(ctx); n > 0 {
		s.log.Info(ctx, "dropped completed orders", "count", n)
	}
	res := s.queue.ReplayPending(ctx)
	if res.Replayed > 0 || res.Dropped > 0 || res.Remaining > 0 {
		s.log.Info(ctx, "replayed pending changes", "replayed", res.Replayed, "dropped", res.Dropped, "remaining", res.Remaining)
	}
}
