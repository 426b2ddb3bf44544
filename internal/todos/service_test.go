package todos

import (
	"errors"
	"testing"
	"time"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
	"github.com/marcus/todosync/internal/store/memstore"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(memstore.New())
}

func TestCreateStartsDirtyAndLocalOnly(t *testing.T) {
	svc := newService(t)

	todo, err := svc.Create("buy milk")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if todo.LocalID == 0 {
		t.Error("local id not assigned")
	}
	if todo.ClientID == "" {
		t.Error("client id not assigned")
	}
	if todo.LastAction != models.ActionCreate {
		t.Errorf("last action: got %q, want create", todo.LastAction)
	}
	if !todo.LocalOnly {
		t.Error("new todo not marked local-only")
	}
	if !todo.Dirty() {
		t.Error("new todo not dirty")
	}
	if !todo.CreatedAt.Equal(todo.UpdatedAt) {
		t.Errorf("created %v != updated %v", todo.CreatedAt, todo.UpdatedAt)
	}

	other, err := svc.Create("walk dog")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if other.ClientID == todo.ClientID {
		t.Error("client ids not unique")
	}
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	svc := newService(t)

	// A wall clock stuck in place still produces increasing timestamps.
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return frozen }

	a, _ := svc.Create("first")
	b, _ := svc.Create("second")

	if !b.UpdatedAt.After(a.UpdatedAt) {
		t.Errorf("timestamps not increasing: %v then %v", a.UpdatedAt, b.UpdatedAt)
	}
}

func TestUpdateMarksDirty(t *testing.T) {
	svc := newService(t)

	created, _ := svc.Create("draft")

	// Simulate a confirmed record.
	synced := time.Now().UTC()
	created.LocalOnly = false
	created.RemoteID = "srv1"
	created.LastAction = models.ActionNone
	created.SyncedAt = &synced
	if err := svc.store.Put(created); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := svc.Update(created.LocalID, "final", true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got.Title != "final" || !got.Completed {
		t.Errorf("fields not applied: %+v", got)
	}
	if got.LastAction != models.ActionUpdate {
		t.Errorf("last action: got %q, want update", got.LastAction)
	}
	if got.SyncedAt != nil {
		t.Error("synced at not cleared")
	}
	if !got.Dirty() {
		t.Error("updated todo not dirty")
	}
}

func TestUpdateBeforeFirstSyncKeepsCreateAction(t *testing.T) {
	svc := newService(t)

	created, _ := svc.Create("draft")
	got, err := svc.Update(created.LocalID, "edited draft", false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got.LastAction != models.ActionCreate {
		t.Errorf("last action: got %q, want create", got.LastAction)
	}
}

func TestToggleFlipsCompleted(t *testing.T) {
	svc := newService(t)

	created, _ := svc.Create("task")
	got, err := svc.Toggle(created.LocalID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !got.Completed {
		t.Error("not completed after toggle")
	}

	got, err = svc.Toggle(created.LocalID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got.Completed {
		t.Error("still completed after second toggle")
	}
}

func TestDeleteLocalOnlyRemovesImmediately(t *testing.T) {
	svc := newService(t)

	created, _ := svc.Create("never synced")
	if err := svc.Delete(created.LocalID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.Get(created.LocalID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("local-only record not removed: %v", err)
	}
}

func TestDeleteSyncedRecordTombstones(t *testing.T) {
	svc := newService(t)

	created, _ := svc.Create("synced once")
	synced := time.Now().UTC()
	created.LocalOnly = false
	created.RemoteID = "srv1"
	created.LastAction = models.ActionNone
	created.SyncedAt = &synced
	if err := svc.store.Put(created); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := svc.Delete(created.LocalID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := svc.Get(created.LocalID)
	if err != nil {
		t.Fatalf("tombstone gone from store: %v", err)
	}
	if !got.Deleted {
		t.Error("tombstone flag not set")
	}
	if got.LastAction != models.ActionDelete {
		t.Errorf("last action: got %q, want delete", got.LastAction)
	}
	if !got.Dirty() {
		t.Error("tombstone not dirty")
	}
}

func TestListHidesTombstones(t *testing.T) {
	svc := newService(t)

	svc.Create("keep")
	victim, _ := svc.Create("drop")

	synced := time.Now().UTC()
	victim.LocalOnly = false
	victim.RemoteID = "srv1"
	victim.SyncedAt = &synced
	if err := svc.store.Put(victim); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := svc.Delete(victim.LocalID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	visible, err := svc.List(false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 1 || visible[0].Title != "keep" {
		t.Errorf("visible list: %+v", visible)
	}

	all, err := svc.List(true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("full list: got %d records, want 2", len(all))
	}
}

func TestPendingReturnsDirtyRecords(t *testing.T) {
	svc := newService(t)

	dirty, _ := svc.Create("pending")
	clean, _ := svc.Create("done")

	synced := time.Now().UTC()
	clean.LocalOnly = false
	clean.RemoteID = "srv1"
	clean.LastAction = models.ActionNone
	clean.SyncedAt = &synced
	if err := svc.store.Put(clean); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := svc.Pending()
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(got) != 1 || got[0].LocalID != dirty.LocalID {
		t.Errorf("pending: %+v", got)
	}
}

func TestEveryMutationNotifies(t *testing.T) {
	svc := newService(t)

	var calls int
	svc.OnMutate(func() { calls++ })

	created, _ := svc.Create("a")
	svc.Update(created.LocalID, "b", false)
	svc.Toggle(created.LocalID)
	svc.Delete(created.LocalID)

	// Toggle delegates to Update, so it notifies once.
	if calls != 4 {
		t.Errorf("mutation notifications: got %d, want 4", calls)
	}
}
