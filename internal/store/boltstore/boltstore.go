// Package boltstore is a bbolt-backed Store for hosts where a pure
// key-value file is preferable to sqlite. Records are stored as JSON
// under their big-endian local ID, so a bucket cursor walks them in
// insertion order.
package boltstore

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
)

var bucketTodos = []byte("todos")

// Store wraps a bbolt database holding the local replica.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the replica database at path and ensures the
// todos bucket exists.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTodos)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create todos bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Add(todo *models.Todo) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos)

		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		id = int64(seq)

		c := todo.Clone()
		c.LocalID = id
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal todo: %w", err)
		}
		return b.Put(key(id), data)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Get(localID int64) (*models.Todo, error) {
	var todo *models.Todo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTodos).Get(key(localID))
		if data == nil {
			return store.ErrNotFound
		}
		todo = &models.Todo{}
		if err := json.Unmarshal(data, todo); err != nil {
			return fmt.Errorf("unmarshal todo %d: %w", localID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return todo, nil
}

func (s *Store) ListAll(includeDeleted bool) ([]*models.Todo, error) {
	var out []*models.Todo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketTodos).ForEach(func(_, data []byte) error {
			var t models.Todo
			if err := json.Unmarshal(data, &t); err != nil {
				return fmt.Errorf("unmarshal todo: %w", err)
			}
			if t.Deleted && !includeDeleted {
				return nil
			}
			out = append(out, &t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Put(todo *models.Todo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos)
		if b.Get(key(todo.LocalID)) == nil {
			return store.ErrNotFound
		}
		data, err := json.Marshal(todo)
		if err != nil {
			return fmt.Errorf("marshal todo: %w", err)
		}
		return b.Put(key(todo.LocalID), data)
	})
}

func (s *Store) Delete(localID int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTodos)
		if b.Get(key(localID)) == nil {
			return store.ErrNotFound
		}
		return b.Delete(key(localID))
	})
}

func (s *Store) Close() error {
	return s.db.Close()
}

// key encodes a local ID big-endian so lexicographic bucket order
// matches numeric insertion order.
func key(id int64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], uint64(id))
	return k[:]
}
