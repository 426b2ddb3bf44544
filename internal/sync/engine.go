package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/marcus/todosync/internal/connectivity"
	"github.com/marcus/todosync/internal/events"
	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
)

// State is the engine's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateRetryPending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateRetryPending:
		return "retry-pending"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Trigger names the external event that may start a cycle.
type Trigger string

const (
	TriggerReconnect  Trigger = "reconnect"
	TriggerForeground Trigger = "foreground"
	TriggerMutation   Trigger = "mutation"
	TriggerManual     Trigger = "manual"
	triggerRetry      Trigger = "retry"
)

// EngineConfig holds the collaborators and tuning for NewEngine.
type EngineConfig struct {
	Store     store.Store
	Transport Transport
	Monitor   *connectivity.Monitor
	Bus       *events.Bus

	// Retry bounds; zero values select defaults (3, 1s, 30s).
	MaxRetries int
	BaseDelay  time.Duration
	CapDelay   time.Duration
}

// Engine orchestrates one sync cycle end to end: select the dirty set,
// push it, reconcile the authoritative response, purge confirmed
// tombstones. At most one cycle runs at a time; a trigger arriving
// while a cycle is in flight is dropped, not queued. Failures inside a
// cycle never escape the engine; they become syncError notifications
// and, while retries remain, a scheduled re-attempt.
type Engine struct {
	store     store.Store
	transport Transport
	monitor   *connectivity.Monitor
	bus       *events.Bus
	resolver  *Resolver
	retry     *RetryScheduler

	mu    stdsync.Mutex
	state State
}

// NewEngine wires the engine to its collaborators and subscribes it to
// connectivity transitions.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		store:     cfg.Store,
		transport: cfg.Transport,
		monitor:   cfg.Monitor,
		bus:       cfg.Bus,
		resolver:  NewResolver(cfg.Store),
		retry:     NewRetryScheduler(cfg.MaxRetries, cfg.BaseDelay, cfg.CapDelay),
	}

	cfg.Monitor.Subscribe(e.handleOnlineChange)
	cfg.Monitor.SubscribeForeground(func() { e.TriggerSync(TriggerForeground) })

	return e
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// RetryCount returns the current consecutive-failure count.
func (e *Engine) RetryCount() int {
	return e.retry.Count()
}

// TriggerSync requests a cycle. While offline the trigger is a no-op;
// the next online transition starts a cycle that picks up whatever is
// dirty by then. While a cycle is running or a retry is pending the
// trigger is dropped, not queued.
func (e *Engine) TriggerSync(trigger Trigger) {
	e.mu.Lock()
	if !e.monitor.Online() {
		e.mu.Unlock()
		slog.Debug("sync trigger while offline, deferred to reconnect", "trigger", trigger)
		return
	}
	if e.state != StateIdle {
		e.mu.Unlock()
		slog.Debug("sync trigger dropped", "trigger", trigger, "state", e.state)
		return
	}
	e.state = StateRunning
	e.mu.Unlock()

	go e.runCycle(context.Background(), trigger)
}

// RunCycle runs one cycle synchronously. It fails fast with
// ErrNotConnected while offline and with ErrCycleRunning when a cycle
// is already in flight.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.mu.Lock()
	if !e.monitor.Online() {
		e.mu.Unlock()
		return ErrNotConnected
	}
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrCycleRunning
	}
	e.state = StateRunning
	e.mu.Unlock()

	return e.runCycle(ctx, TriggerManual)
}

// runCycle executes one cycle. The caller has already moved the engine
// to StateRunning.
func (e *Engine) runCycle(ctx context.Context, trigger Trigger) error {
	slog.Debug("sync cycle start", "trigger", trigger)
	e.bus.Publish(events.Event{Kind: events.KindSyncStart})

	all, err := e.store.ListAll(true)
	if err != nil {
		return e.finishLocalError(fmt.Errorf("list replica: %w", err))
	}

	dirty := DirtySet(all)
	if len(dirty) == 0 {
		e.retry.Reset()
		e.setIdle()
		e.bus.Publish(events.Event{Kind: events.KindSyncComplete, Message: "nothing to sync"})
		return nil
	}

	result, err := e.transport.Push(ctx, Descriptors(dirty))
	if err != nil {
		return e.finishTransportError(dirty, err)
	}

	// Reconciliation lands every per-record store write before the
	// completion event is published.
	if err := e.resolver.Reconcile(result); err != nil {
		return e.finishLocalError(err)
	}
	if _, err := e.resolver.Purge(); err != nil {
		return e.finishLocalError(err)
	}

	e.retry.Reset()
	e.setIdle()

	msg := fmt.Sprintf("synced %d todo(s)", len(dirty))
	if n := len(result.Errors); n > 0 {
		msg = fmt.Sprintf("synced %d todo(s), %d failed", len(dirty)-n, n)
	}
	slog.Debug("sync cycle complete", "pushed", len(dirty), "record_errors", len(result.Errors))
	e.bus.Publish(events.Event{Kind: events.KindSyncComplete, Message: msg})
	return nil
}

// finishTransportError annotates the attempted batch, arms the retry
// timer while attempts remain and publishes the error notification.
func (e *Engine) finishTransportError(dirty []*models.Todo, cause error) error {
	e.resolver.MarkFailed(dirty, cause)

	delay, scheduled := e.retry.OnFailure(e.retryTimerFired)

	e.mu.Lock()
	if scheduled {
		e.state = StateRetryPending
	} else {
		e.state = StateIdle
	}
	e.mu.Unlock()

	count := e.retry.Count()
	if scheduled {
		slog.Debug("sync cycle failed, retry scheduled", "err", cause, "retry", count, "delay", delay)
	} else {
		slog.Debug("sync cycle failed, retries exhausted", "err", cause, "retry", count)
	}
	e.bus.Publish(events.Event{Kind: events.KindSyncError, Message: cause.Error(), RetryCount: count})
	return cause
}

// finishLocalError reports a replica failure. Local store errors are
// not retried by the engine.
func (e *Engine) finishLocalError(cause error) error {
	e.setIdle()
	slog.Debug("sync cycle failed", "err", cause)
	e.bus.Publish(events.Event{Kind: events.KindSyncError, Message: cause.Error(), RetryCount: e.retry.Count()})
	return cause
}

func (e *Engine) setIdle() {
	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()
}

// retryTimerFired moves RetryPending to Running when the backoff timer
// fires. An offline transition that won the race has already cancelled
// the timer and left the state Idle.
func (e *Engine) retryTimerFired() {
	e.mu.Lock()
	if e.state != StateRetryPending {
		e.mu.Unlock()
		return
	}
	if !e.monitor.Online() {
		e.state = StateIdle
		e.mu.Unlock()
		return
	}
	e.state = StateRunning
	e.mu.Unlock()

	go e.runCycle(context.Background(), triggerRetry)
}

// handleOnlineChange reacts to connectivity transitions: online resets
// the backoff and starts a cycle; offline cancels a pending retry
// without resetting the count.
func (e *Engine) handleOnlineChange(online bool) {
	e.bus.Publish(events.Event{Kind: events.KindOnlineStatusChange, IsOnline: online})

	if online {
		e.retry.Reset()
		e.TriggerSync(TriggerReconnect)
		return
	}

	e.retry.CancelPending()
	e.mu.Lock()
	if e.state == StateRetryPending {
		e.state = StateIdle
	}
	e.mu.Unlock()
}
