// Package todos is the local mutation API over the replica store. It
// owns the lifecycle fields the sync engine depends on (dirty action,
// timestamps, tombstones) so callers never touch them directly.
package todos

import (
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
)

// Service applies local mutations and keeps record timestamps
// monotonically non-decreasing.
type Service struct {
	store store.Store

	// onMutate, when set, is called after every successful mutation so
	// the sync engine can start a cycle while online.
	onMutate func()

	clockMu stdsync.Mutex
	last    time.Time
	nowFn   func() time.Time
}

// NewService creates a mutation service over the given store.
func NewService(s store.Store) *Service {
	return &Service{store: s, nowFn: time.Now}
}

// OnMutate registers the engine trigger fired after each mutation.
func (s *Service) OnMutate(fn func()) {
	s.onMutate = fn
}

// now returns a wall-clock timestamp that never goes backwards, even if
// the wall clock does.
func (s *Service) now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()

	t := s.nowFn().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Nanosecond)
	}
	s.last = t
	return t
}

// Create adds a new todo. The record starts local-only and dirty, with
// a fresh client-side idempotency key.
func (s *Service) Create(title string) (*models.Todo, error) {
	now := s.now()
	t := &models.Todo{
		ClientID:   uuid.NewString(),
		Title:      title,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastAction: models.ActionCreate,
		LocalOnly:  true,
	}

	id, err := s.store.Add(t)
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	t.LocalID = id

	s.notify()
	return t, nil
}

// Update replaces the title and completed flag of an existing todo and
// marks it dirty. A record the server has never confirmed keeps its
// create action so the server still sees a creation.
func (s *Service) Update(localID int64, title string, completed bool) (*models.Todo, error) {
	t, err := s.store.Get(localID)
	if err != nil {
		return nil, fmt.Errorf("update todo %d: %w", localID, err)
	}

	t.Title = title
	t.Completed = completed
	t.UpdatedAt = s.now()
	t.SyncedAt = nil
	t.SyncError = ""
	if !t.LocalOnly {
		t.LastAction = models.ActionUpdate
	} else {
		t.LastAction = models.ActionCreate
	}

	if err := s.store.Put(t); err != nil {
		return nil, fmt.Errorf("update todo %d: %w", localID, err)
	}

	s.notify()
	return t, nil
}

// Toggle flips the completed flag.
func (s *Service) Toggle(localID int64) (*models.Todo, error) {
	t, err := s.store.Get(localID)
	if err != nil {
		return nil, fmt.Errorf("toggle todo %d: %w", localID, err)
	}
	return s.Update(localID, t.Title, !t.Completed)
}

// Delete tombstones a todo for the next sync. A record the server has
// never seen is removed immediately; there is nothing to reconcile.
func (s *Service) Delete(localID int64) error {
	t, err := s.store.Get(localID)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", localID, err)
	}

	if t.LocalOnly && t.RemoteID == "" {
		if err := s.store.Delete(localID); err != nil {
			return fmt.Errorf("delete todo %d: %w", localID, err)
		}
		s.notify()
		return nil
	}

	t.Deleted = true
	t.LastAction = models.ActionDelete
	t.UpdatedAt = s.now()
	t.SyncedAt = nil
	t.SyncError = ""

	if err := s.store.Put(t); err != nil {
		return fmt.Errorf("delete todo %d: %w", localID, err)
	}

	s.notify()
	return nil
}

// Get returns a single todo.
func (s *Service) Get(localID int64) (*models.Todo, error) {
	return s.store.Get(localID)
}

// List returns todos in insertion order, optionally including
// tombstones.
func (s *Service) List(includeDeleted bool) ([]*models.Todo, error) {
	return s.store.ListAll(includeDeleted)
}

// Pending returns the records that would be pushed by the next cycle.
func (s *Service) Pending() ([]*models.Todo, error) {
	all, err := s.store.ListAll(true)
	if err != nil {
		return nil, err
	}
	var dirty []*models.Todo
	for _, t := range all {
		if t.Dirty() {
			dirty = append(dirty, t)
		}
	}
	return dirty, nil
}

func (s *Service) notify() {
	if s.onMutate != nil {
		s.onMutate()
	}
}
