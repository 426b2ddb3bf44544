// Package store defines the local replica storage contract consumed by
// the sync engine and the mutation API. Adapters live in subpackages:
// sqlitestore (default), boltstore and memstore.
package store

import (
	"errors"

	"github.com/marcus/todosync/internal/models"
)

// ErrNotFound is returned when no record exists for the given local ID.
var ErrNotFound = errors.New("todo not found")

// Store is the local replica of the todo collection, keyed by a
// store-assigned local ID. ListAll returns records in insertion order;
// the dirty-set selector relies on that ordering.
type Store interface {
	// Add persists a new record, assigns its LocalID and returns it.
	Add(todo *models.Todo) (int64, error)

	// Get returns the record with the given local ID, or ErrNotFound.
	Get(localID int64) (*models.Todo, error)

	// ListAll returns every record in insertion order. Tombstoned
	// records are included only when includeDeleted is true.
	ListAll(includeDeleted bool) ([]*models.Todo, error)

	// Put overwrites the record identified by todo.LocalID.
	Put(todo *models.Todo) error

	// Delete permanently removes the record. Used by the purge pass
	// only; ordinary deletion is a tombstone via Put.
	Delete(localID int64) error

	// Close releases the underlying storage.
	Close() error
}
