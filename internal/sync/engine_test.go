package sync

import (
	"context"
	"errors"
	stdsync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcus/todosync/internal/connectivity"
	"github.com/marcus/todosync/internal/events"
	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
	"github.com/marcus/todosync/internal/store/memstore"
)

// fakeTransport replays queued responses and records every batch it
// receives. An optional gate blocks Push until released.
type fakeTransport struct {
	mu      stdsync.Mutex
	batches [][]ChangeDescriptor
	queue   []pushOutcome
	gate    chan struct{}
}

type pushOutcome struct {
	result *PushResult
	err    error
}

func (f *fakeTransport) Push(ctx context.Context, batch []ChangeDescriptor) (*PushResult, error) {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cp := make([]ChangeDescriptor, len(batch))
	copy(cp, batch)
	f.batches = append(f.batches, cp)

	if len(f.queue) == 0 {
		return &PushResult{Todos: []ServerTodo{}}, nil
	}
	out := f.queue[0]
	f.queue = f.queue[1:]
	return out.result, out.err
}

func (f *fakeTransport) enqueue(result *PushResult, err error) {
	f.mu.Lock()
	f.queue = append(f.queue, pushOutcome{result, err})
	f.mu.Unlock()
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakeTransport) batch(i int) []ChangeDescriptor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches[i]
}

// countingStore counts writes so tests can assert a cycle was a no-op.
type countingStore struct {
	store.Store
	writes atomic.Int64
}

func (c *countingStore) Add(t *models.Todo) (int64, error) {
	c.writes.Add(1)
	return c.Store.Add(t)
}

func (c *countingStore) Put(t *models.Todo) error {
	c.writes.Add(1)
	return c.Store.Put(t)
}

func (c *countingStore) Delete(id int64) error {
	c.writes.Add(1)
	return c.Store.Delete(id)
}

type engineFixture struct {
	store     *countingStore
	transport *fakeTransport
	monitor   *connectivity.Monitor
	bus       *events.Bus
	engine    *Engine
	eventCh   chan events.Event
}

func newFixture(t *testing.T, online bool) *engineFixture {
	t.Helper()

	f := &engineFixture{
		store:     &countingStore{Store: memstore.New()},
		transport: &fakeTransport{},
		monitor:   connectivity.NewMonitor(),
		bus:       events.NewBus(),
		eventCh:   make(chan events.Event, 64),
	}

	for _, kind := range []events.Kind{
		events.KindSyncStart, events.KindSyncComplete,
		events.KindSyncError, events.KindOnlineStatusChange,
	} {
		f.bus.Subscribe(kind, func(ev events.Event) { f.eventCh <- ev })
	}

	f.engine = NewEngine(EngineConfig{
		Store:     f.store,
		Transport: f.transport,
		Monitor:   f.monitor,
		Bus:       f.bus,
		BaseDelay: time.Millisecond,
		CapDelay:  50 * time.Millisecond,
	})

	if online {
		f.monitor.SetOnline(true)
		f.waitEvent(t, events.KindOnlineStatusChange)
		// The online transition triggers an empty first cycle.
		f.waitEvent(t, events.KindSyncComplete)
	}
	return f
}

func (f *engineFixture) waitEvent(t *testing.T, kind events.Kind) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-f.eventCh:
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", kind)
		}
	}
}

func (f *engineFixture) addDirty(t *testing.T, todo *models.Todo) int64 {
	t.Helper()
	id, err := f.store.Add(todo)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	return id
}

func waitState(t *testing.T, e *Engine, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("engine state: got %v, want %v", e.State(), want)
}

func TestEmptyCycleIsNoop(t *testing.T) {
	f := newFixture(t, true)

	before := f.store.writes.Load()
	for i := 0; i < 3; i++ {
		if err := f.engine.RunCycle(context.Background()); err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		ev := f.waitEvent(t, events.KindSyncComplete)
		if ev.Message != "nothing to sync" {
			t.Errorf("message: got %q, want nothing to sync", ev.Message)
		}
	}

	if got := f.store.writes.Load(); got != before {
		t.Errorf("store writes during empty cycles: %d", got-before)
	}
	if f.transport.calls() != 0 {
		t.Errorf("transport calls for empty dirty set: %d", f.transport.calls())
	}
}

// Scenario: a record created while offline is pushed exactly once, with
// action create, on reconnect.
func TestOfflineMutationPushedOnReconnect(t *testing.T) {
	f := newFixture(t, false)

	now := time.Now().UTC()
	f.addDirty(t, &models.Todo{
		ClientID: "c-1", Title: "buy milk",
		CreatedAt: now, UpdatedAt: now,
		LastAction: models.ActionCreate, LocalOnly: true,
	})

	f.engine.TriggerSync(TriggerMutation)
	time.Sleep(10 * time.Millisecond)
	if f.transport.calls() != 0 {
		t.Fatal("transport called while offline")
	}
	if f.engine.State() != StateIdle {
		t.Fatalf("state while offline: %v", f.engine.State())
	}

	f.transport.enqueue(&PushResult{Todos: []ServerTodo{{
		RemoteID: "srv1", ClientID: "c-1", Title: "buy milk",
		CreatedAt: serverT, UpdatedAt: serverT, SyncedAt: serverT2,
	}}}, nil)

	f.monitor.SetOnline(true)
	f.waitEvent(t, events.KindSyncComplete)

	if f.transport.calls() != 1 {
		t.Fatalf("transport calls: got %d, want 1", f.transport.calls())
	}
	batch := f.transport.batch(0)
	if len(batch) != 1 || batch[0].Action != "create" || batch[0].Title != "buy milk" {
		t.Errorf("pushed batch: %+v", batch)
	}
}

// Scenario: the authoritative response assigns the remote identity and
// confirmation timestamp.
func TestCycleAppliesAuthoritativeResult(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	id := f.addDirty(t, &models.Todo{
		ClientID: "c-1", Title: "buy milk",
		CreatedAt: now, UpdatedAt: now,
		LastAction: models.ActionCreate, LocalOnly: true,
	})

	f.transport.enqueue(&PushResult{Todos: []ServerTodo{{
		RemoteID: "srv1", ClientID: "c-1", Title: "buy milk",
		CreatedAt: serverT, UpdatedAt: serverT, SyncedAt: serverT2,
	}}}, nil)

	if err := f.engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	got, err := f.store.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RemoteID != "srv1" {
		t.Errorf("remote id: got %q, want srv1", got.RemoteID)
	}
	if got.SyncedAt == nil || got.SyncedAt.Format(time.RFC3339) != serverT2 {
		t.Errorf("synced at: %v", got.SyncedAt)
	}
	if got.LastAction != models.ActionNone {
		t.Errorf("last action: %q", got.LastAction)
	}
}

func TestSingleFlight(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	f.addDirty(t, &models.Todo{Title: "x", CreatedAt: now, UpdatedAt: now, LastAction: models.ActionCreate})

	f.transport.gate = make(chan struct{})

	f.engine.TriggerSync(TriggerMutation)
	waitState(t, f.engine, StateRunning)

	// Triggers and synchronous requests while running are rejected.
	f.engine.TriggerSync(TriggerMutation)
	f.engine.TriggerSync(TriggerForeground)
	if err := f.engine.RunCycle(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("concurrent RunCycle: got %v, want ErrCycleRunning", err)
	}

	close(f.transport.gate)
	f.waitEvent(t, events.KindSyncComplete)

	if got := f.transport.calls(); got != 1 {
		t.Errorf("transport calls: got %d, want 1", got)
	}
}

// Scenario: three consecutive transport failures exhaust the retries
// and the engine goes idle until an external trigger.
func TestRetriesExhaustAfterRepeatedFailure(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	f.addDirty(t, &models.Todo{Title: "x", CreatedAt: now, UpdatedAt: now, LastAction: models.ActionCreate})

	serverDown := &RemoteError{Status: 500, Message: "internal error"}
	f.transport.enqueue(nil, serverDown)
	f.transport.enqueue(nil, serverDown)
	f.transport.enqueue(nil, serverDown)

	f.engine.TriggerSync(TriggerMutation)

	for i := 1; i <= 3; i++ {
		ev := f.waitEvent(t, events.KindSyncError)
		if ev.RetryCount != i {
			t.Errorf("failure %d: retry count %d", i, ev.RetryCount)
		}
	}

	waitState(t, f.engine, StateIdle)
	if got := f.engine.RetryCount(); got != 3 {
		t.Errorf("retry count after exhaustion: got %d, want 3", got)
	}

	// No further automatic attempts.
	calls := f.transport.calls()
	time.Sleep(20 * time.Millisecond)
	if f.transport.calls() != calls {
		t.Error("engine retried after exhaustion")
	}

	// An external trigger starts again.
	f.transport.enqueue(&PushResult{Todos: []ServerTodo{}}, nil)
	f.engine.TriggerSync(TriggerManual)
	f.waitEvent(t, events.KindSyncComplete)
	if f.engine.RetryCount() != 0 {
		t.Errorf("retry count after success: %d", f.engine.RetryCount())
	}
}

func TestTransportFailureAnnotatesBatch(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	id := f.addDirty(t, &models.Todo{Title: "x", CreatedAt: now, UpdatedAt: now, LastAction: models.ActionCreate})

	f.transport.enqueue(nil, &RemoteError{Status: 502, Message: "bad gateway"})

	err := f.engine.RunCycle(context.Background())
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("cycle error: %v", err)
	}

	got, _ := f.store.Get(id)
	if got.SyncError == "" {
		t.Error("failed record missing sync error annotation")
	}
	if !got.Dirty() {
		t.Error("failed record no longer dirty")
	}
}

func TestOfflineCancelsPendingRetry(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	f.addDirty(t, &models.Todo{Title: "x", CreatedAt: now, UpdatedAt: now, LastAction: models.ActionCreate})

	// Use a long base delay so the retry is still pending when we cut
	// the connection.
	f.engine.retry = NewRetryScheduler(3, time.Minute, time.Hour)

	f.transport.enqueue(nil, &RemoteError{Status: 500})
	f.engine.TriggerSync(TriggerMutation)
	f.waitEvent(t, events.KindSyncError)
	waitState(t, f.engine, StateRetryPending)

	f.monitor.SetOnline(false)
	waitState(t, f.engine, StateIdle)

	if got := f.engine.RetryCount(); got != 1 {
		t.Errorf("retry count after offline cancel: got %d, want 1", got)
	}

	calls := f.transport.calls()
	time.Sleep(20 * time.Millisecond)
	if f.transport.calls() != calls {
		t.Error("cancelled retry still fired")
	}
}

func TestRunCycleFailsFastOffline(t *testing.T) {
	f := newFixture(t, false)

	if err := f.engine.RunCycle(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
	if f.transport.calls() != 0 {
		t.Error("transport called while offline")
	}
}

func TestSyncCompleteAfterStoreWrites(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	id := f.addDirty(t, &models.Todo{
		ClientID: "c-1", Title: "ordering",
		CreatedAt: now, UpdatedAt: now,
		LastAction: models.ActionCreate, LocalOnly: true,
	})

	// Observers must see the reconciled record by the time the
	// completion event arrives.
	stale := make(chan bool, 1)
	f.bus.Subscribe(events.KindSyncComplete, func(events.Event) {
		got, err := f.store.Get(id)
		stale <- err != nil || got.Dirty()
	})

	f.transport.enqueue(&PushResult{Todos: []ServerTodo{{
		RemoteID: "srv1", ClientID: "c-1", Title: "ordering",
		CreatedAt: serverT, UpdatedAt: serverT, SyncedAt: serverT2,
	}}}, nil)

	if err := f.engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if <-stale {
		t.Error("syncComplete observed before reconciliation writes landed")
	}
}

func TestCyclePurgesConfirmedTombstones(t *testing.T) {
	f := newFixture(t, true)

	now := time.Now().UTC()
	id := f.addDirty(t, &models.Todo{
		RemoteID: "srv1", Title: "remove me", Deleted: true,
		CreatedAt: now, UpdatedAt: now, LastAction: models.ActionDelete,
	})

	f.transport.enqueue(&PushResult{Todos: []ServerTodo{{
		RemoteID: "srv1", Title: "remove me", Deleted: true,
		CreatedAt: serverT, UpdatedAt: serverT, SyncedAt: serverT2,
	}}}, nil)

	if err := f.engine.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle: %v", err)
	}

	if _, err := f.store.Get(id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("confirmed tombstone not purged: %v", err)
	}
}
