package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/marcus/todosync/internal/connectivity"
	"github.com/marcus/todosync/internal/events"
	"github.com/marcus/todosync/internal/store"
	"github.com/marcus/todosync/internal/store/boltstore"
	"github.com/marcus/todosync/internal/store/sqlitestore"
	"github.com/marcus/todosync/internal/sync"
	"github.com/marcus/todosync/internal/syncclient"
	"github.com/marcus/todosync/internal/syncconfig"
	"github.com/marcus/todosync/internal/todos"
)

// app bundles everything a command needs: the replica, the todo
// service and a sync engine wired to the configured server.
type app struct {
	store   store.Store
	service *todos.Service
	client  *syncclient.Client
	monitor *connectivity.Monitor
	bus     *events.Bus
	engine  *sync.Engine
}

// openApp opens the configured replica and wires the sync stack. The
// monitor starts offline; commands that talk to the server probe first.
func openApp() (*app, error) {
	s, err := openStore()
	if err != nil {
		return nil, err
	}

	a := &app{
		store:   s,
		service: todos.NewService(s),
		client:  syncclient.New(syncconfig.GetServerURL()),
		monitor: connectivity.NewMonitor(),
		bus:     events.NewBus(),
	}
	a.engine = sync.NewEngine(sync.EngineConfig{
		Store:      s,
		Transport:  a.client,
		Monitor:    a.monitor,
		Bus:        a.bus,
		MaxRetries: syncconfig.GetMaxRetries(),
		BaseDelay:  syncconfig.GetBaseDelay(),
		CapDelay:   syncconfig.GetCapDelay(),
	})
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openStore opens the configured replica backend.
func openStore() (store.Store, error) {
	path, err := syncconfig.GetDBPath()
	if err != nil {
		return nil, err
	}
	if syncconfig.GetStoreBackend() == "bolt" {
		return boltstore.Open(path)
	}
	return sqlitestore.Open(path)
}

// probe checks the server once and feeds the verdict to the monitor.
// The engine reacts to the online transition, so callers that only
// want the verdict should check before wiring triggers.
func (a *app) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	online := a.client.Health(probeCtx) == nil
	a.monitor.SetOnline(online)
	return online
}

// syncNow probes and runs one synchronous cycle. The online transition
// itself starts a cycle, so when RunCycle reports one in flight this
// waits for that cycle instead of failing.
func (a *app) syncNow(ctx context.Context) error {
	done := make(chan error, 1)
	unsubComplete := a.bus.Subscribe(events.KindSyncComplete, func(events.Event) {
		select {
		case done <- nil:
		default:
		}
	})
	defer unsubComplete()
	unsubError := a.bus.Subscribe(events.KindSyncError, func(ev events.Event) {
		select {
		case done <- errors.New(ev.Message):
		default:
		}
	})
	defer unsubError()

	if !a.probe(ctx) {
		return sync.ErrNotConnected
	}

	err := a.engine.RunCycle(ctx)
	if !errors.Is(err, sync.ErrCycleRunning) {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// maybeAutoSync runs a best-effort cycle after a mutation when auto
// sync is on. Failures are invisible here; the record stays dirty and
// the next sync picks it up.
func (a *app) maybeAutoSync(ctx context.Context) {
	if !syncconfig.GetAutoSyncEnabled() {
		return
	}
	a.syncNow(ctx)
}

// maybeSyncOnStart flushes pending changes before a read command
// renders, when sync-on-start is on. A clean replica never touches the
// network here, and a failed cycle just leaves the backlog for later.
func (a *app) maybeSyncOnStart(ctx context.Context) {
	if !syncconfig.GetAutoSyncOnStart() {
		return
	}
	pending, err := a.service.Pending()
	if err != nil || len(pending) == 0 {
		return
	}
	a.syncNow(ctx)
}
