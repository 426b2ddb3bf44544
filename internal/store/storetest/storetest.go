// Package storetest runs the Store contract against any adapter.
package storetest

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
)

// Run exercises the full Store contract against the given adapter.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("add assigns increasing ids", func(t *testing.T) {
		id1, err := s.Add(&models.Todo{Title: "first", CreatedAt: now, UpdatedAt: now, LastAction: models.ActionCreate, LocalOnly: true})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		id2, err := s.Add(&models.Todo{Title: "second", CreatedAt: now, UpdatedAt: now, LastAction: models.ActionCreate, LocalOnly: true})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if id2 <= id1 {
			t.Errorf("ids not increasing: %d then %d", id1, id2)
		}
	})

	t.Run("get round-trips fields", func(t *testing.T) {
		synced := now.Add(time.Minute)
		in := &models.Todo{
			ClientID:   "c-1",
			RemoteID:   "srv-9",
			Title:      "round trip",
			Completed:  true,
			CreatedAt:  now,
			UpdatedAt:  now.Add(time.Second),
			SyncedAt:   &synced,
			LastAction: models.ActionUpdate,
			SyncError:  "old failure",
		}
		id, err := s.Add(in)
		if err != nil {
			t.Fatalf("add: %v", err)
		}

		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.LocalID != id {
			t.Errorf("local id: got %d, want %d", got.LocalID, id)
		}
		if got.ClientID != "c-1" || got.RemoteID != "srv-9" || got.Title != "round trip" || !got.Completed {
			t.Errorf("fields lost: %+v", got)
		}
		if got.SyncedAt == nil || !got.SyncedAt.Equal(synced) {
			t.Errorf("synced_at: got %v, want %v", got.SyncedAt, synced)
		}
		if got.LastAction != models.ActionUpdate || got.SyncError != "old failure" {
			t.Errorf("sync state lost: %+v", got)
		}
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		if _, err := s.Get(999999); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("list preserves insertion order and filters deleted", func(t *testing.T) {
		delID, err := s.Add(&models.Todo{Title: "tombstoned", CreatedAt: now, UpdatedAt: now, Deleted: true, LastAction: models.ActionDelete})
		if err != nil {
			t.Fatalf("add: %v", err)
		}

		all, err := s.ListAll(true)
		if err != nil {
			t.Fatalf("list all: %v", err)
		}
		for i := 1; i < len(all); i++ {
			if all[i].LocalID <= all[i-1].LocalID {
				t.Errorf("order broken at %d: %d after %d", i, all[i].LocalID, all[i-1].LocalID)
			}
		}

		visible, err := s.ListAll(false)
		if err != nil {
			t.Fatalf("list visible: %v", err)
		}
		for _, todo := range visible {
			if todo.LocalID == delID {
				t.Errorf("deleted record %d in visible listing", delID)
			}
		}
		if len(visible) >= len(all) {
			t.Errorf("visible (%d) should be fewer than all (%d)", len(visible), len(all))
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		id, err := s.Add(&models.Todo{Title: "before", CreatedAt: now, UpdatedAt: now})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		got.Title = "after"
		got.RemoteID = "srv-42"
		got.LastAction = models.ActionNone
		if err := s.Put(got); err != nil {
			t.Fatalf("put: %v", err)
		}

		again, err := s.Get(id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if again.Title != "after" || again.RemoteID != "srv-42" {
			t.Errorf("put not applied: %+v", again)
		}
	})

	t.Run("put missing returns ErrNotFound", func(t *testing.T) {
		err := s.Put(&models.Todo{LocalID: 999999, Title: "ghost", CreatedAt: now, UpdatedAt: now})
		if !errors.Is(err, store.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("delete removes permanently", func(t *testing.T) {
		id, err := s.Add(&models.Todo{Title: "purge me", CreatedAt: now, UpdatedAt: now})
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := s.Delete(id); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("got %v, want ErrNotFound after delete", err)
		}
		if err := s.Delete(id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("second delete: got %v, want ErrNotFound", err)
		}
	})
}
