package syncer

import (
	"context"
	"slices"
	"sync"

	"orderqueue/pkg/logger"
	"orderqueue/pkg/metrics"
)

// Prober checks whether the store is reachable.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor combines the environment's network signal with the store's health
// probe. The client is online only while both are up.
type Monitor struct {
	prober Prober
	log    *logger.Logger

	mu        sync.Mutex
	network   bool
	server    bool
	listeners []func(ctx context.Context, online bool)
}

// NewMonitor starts in the online state, matching a freshly opened picker.
func NewMonitor(prober Prober, log *logger.Logger) *Monitor {
	metrics.Online.Set(1)
	return &Monitor{prober: prober, log: log, network: true, server: true}
}

// Subscribe registers fn to be called on every change of the combined status.
// Listeners run synchronously on the goroutine that observed the change.
func (m *Monitor) Subscribe(fn func(ctx context.Context, online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Online reports whether both the network and the last probe are up.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network && m.server
}

// NetworkUp reports the last network signal.
func (m *Monitor) NetworkUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.network
}

// ServerUp reports the outcome of the last health probe.
func (m *Monitor) ServerUp() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.server
}

// SetNetwork records the environment's network presence signal.
func (m *Monitor) SetNetwork(ctx context.Context, up bool) {
	m.update(ctx, func() { m.network = up })
}

// Probe runs one health check and records its outcome.
func (m *Monitor) Probe(ctx context.Context) bool {
	up := m.prober.Health(ctx) == nil
	m.update(ctx, func() { m.server = up })
	return up
}

func (m *Monitor) update(ctx context.Context, mutate func()) {
	m.mu.Lock()
	before := m.network && m.server
	mutate()
	after := m.network && m.server
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	if before == after {
		return
	}
	if after {
		metrics.Online.Set(1)
	} else {
		metrics.Online.Set(0)
	}
	m.log.Info(ctx, "connectivity changed", "online", after)
	for _, fn := range listeners {
		fn(ctx, after)
	}
}
