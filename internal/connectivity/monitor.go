// Package connectivity owns the online/offline and foreground state the
// sync engine reacts to. The state is explicit and injected, never a
// process global: callers either feed transitions in via SetOnline (for
// hosts that know their network state) or run the probe loop, which
// derives the state from periodic health checks against the server.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Prober checks whether the remote authority is reachable.
// *syncclient.Client satisfies it.
type Prober interface {
	Health(ctx context.Context) error
}

// Monitor tracks connectivity and broadcasts transitions.
type Monitor struct {
	mu         sync.Mutex
	online     bool
	nextID     int
	onlineSubs map[int]func(bool)
	fgSubs     map[int]func()
}

// NewMonitor creates a monitor in the offline state.
func NewMonitor() *Monitor {
	return &Monitor{
		onlineSubs: make(map[int]func(bool)),
		fgSubs:     make(map[int]func()),
	}
}

// Online reports the current belief about connectivity.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity transition. Subscribers are notified
// only on an actual change.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]func(bool), 0, len(m.onlineSubs))
	for _, fn := range m.onlineSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers a callback for online/offline transitions and
// returns an unsubscribe function.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.onlineSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.onlineSubs, id)
	}
}

// SubscribeForeground registers a callback for foreground transitions.
func (m *Monitor) SubscribeForeground(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.fgSubs[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.fgSubs, id)
	}
}

// Foreground signals that the application returned to the foreground.
func (m *Monitor) Foreground() {
	m.mu.Lock()
	subs := make([]func(), 0, len(m.fgSubs))
	for _, fn := range m.fgSubs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Run probes the server on a ticker until ctx is cancelled, feeding the
// result into SetOnline. An immediate probe runs before the first tick.
func (m *Monitor) Run(ctx context.Context, prober Prober, interval time.Duration) {
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		err := prober.Health(probeCtx)
		if err != nil && ctx.Err() != nil {
			return // shutting down, not a connectivity verdict
		}
		if err != nil {
			slog.Debug("connectivity probe failed", "err", err)
		}
		m.SetOnline(err == nil)
	}

	probe()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probe()
		}
	}
}
