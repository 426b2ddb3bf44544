package serverdb

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) (*ServerDB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, path
}

func testServerTodo(id, clientID, title string, at time.Time) *Todo {
	return &Todo{
		ID:        id,
		ClientID:  clientID,
		Title:     title,
		CreatedAt: at,
		UpdatedAt: at,
		SyncedAt:  at,
	}
}

func TestUpsertAndLookups(t *testing.T) {
	db, _ := openTestDB(t)

	at := time.Date(2025, 6, 1, 10, 0, 0, 123456789, time.UTC)
	if err := db.Upsert(testServerTodo("srv1", "c-1", "buy milk", at)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	byID, err := db.GetByID("srv1")
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Title != "buy milk" || !byID.UpdatedAt.Equal(at) {
		t.Errorf("round trip: %+v", byID)
	}

	byClient, err := db.GetByClientID("c-1")
	if err != nil {
		t.Fatalf("get by client id: %v", err)
	}
	if byClient.ID != "srv1" {
		t.Errorf("client id lookup: %+v", byClient)
	}

	byTitle, err := db.GetByTitle("buy milk")
	if err != nil {
		t.Fatalf("get by title: %v", err)
	}
	if byTitle.ID != "srv1" {
		t.Errorf("title lookup: %+v", byTitle)
	}

	if _, err := db.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id: %v", err)
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	db, _ := openTestDB(t)

	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	db.Upsert(testServerTodo("srv1", "c-1", "v1", at))

	updated := testServerTodo("srv1", "c-1", "v2", at.Add(time.Minute))
	updated.Completed = true
	if err := db.Upsert(updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, _ := db.GetByID("srv1")
	if got.Title != "v2" || !got.Completed {
		t.Errorf("replace: %+v", got)
	}

	live, _ := db.ListLive()
	if len(live) != 1 {
		t.Errorf("upsert duplicated the row: %d", len(live))
	}
}

func TestListLiveHidesTombstonesAndOrders(t *testing.T) {
	db, _ := openTestDB(t)

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	db.Upsert(testServerTodo("b", "", "second", base.Add(time.Minute)))
	db.Upsert(testServerTodo("a", "", "first", base))

	dead := testServerTodo("c", "", "gone", base.Add(2*time.Minute))
	dead.Deleted = true
	db.Upsert(dead)

	live, err := db.ListLive()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(live) != 2 || live[0].Title != "first" || live[1].Title != "second" {
		t.Errorf("live list: %+v", live)
	}

	// Tombstones stay addressable by id.
	got, err := db.GetByID("c")
	if err != nil {
		t.Fatalf("get tombstone: %v", err)
	}
	if !got.Deleted {
		t.Errorf("tombstone flag lost: %+v", got)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	db.Upsert(testServerTodo("srv1", "c-1", "persistent", at))
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()

	got, err := db.GetByID("srv1")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if got.Title != "persistent" {
		t.Errorf("round trip: %+v", got)
	}
}
