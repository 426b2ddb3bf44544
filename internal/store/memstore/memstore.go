// Package memstore is an in-memory Store used by tests and by the
// ephemeral store mode. Records live in a slice so insertion order is
// the iteration order.
package memstore

import (
	"sync"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
)

// Store keeps the replica in process memory.
type Store struct {
	mu     sync.Mutex
	nextID int64
	todos  []*models.Todo
	byID   map[int64]*models.Todo
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID: 1,
		byID:   make(map[int64]*models.Todo),
	}
}

func (s *Store) Add(todo *models.Todo) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := todo.Clone()
	c.LocalID = s.nextID
	s.nextID++

	s.todos = append(s.todos, c)
	s.byID[c.LocalID] = c
	return c.LocalID, nil
}

func (s *Store) Get(localID int64) (*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[localID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Store) ListAll(includeDeleted bool) ([]*models.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if t.Deleted && !includeDeleted {
			continue
		}
		out = append(out, t.Clone())
	}
	return out, nil
}

func (s *Store) Put(todo *models.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byID[todo.LocalID]
	if !ok {
		return store.ErrNotFound
	}
	*existing = *todo.Clone()
	return nil
}

func (s *Store) Delete(localID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[localID]; !ok {
		return store.ErrNotFound
	}
	delete(s.byID, localID)
	for i, t := range s.todos {
		if t.LocalID == localID {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }
