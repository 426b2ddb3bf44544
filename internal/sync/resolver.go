package sync

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
)

// Resolver merges authoritative push results back into the local
// replica. Resolution is whole-record, last-write-wins: the authority's
// values overwrite the local copy on confirmation. Every record's
// outcome is independent; partial batch success is normal.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver over the given replica store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Reconcile applies the authoritative batch to the replica. Identity is
// matched by remote ID first, then by the echoed client ID, and as a
// last resort by title among records the server has not named yet. A
// record named in the error list keeps its local state and only gains
// the error annotation.
func (r *Resolver) Reconcile(result *PushResult) error {
	local, err := r.store.ListAll(true)
	if err != nil {
		return fmt.Errorf("list replica: %w", err)
	}

	rejected := make(map[string]bool, len(result.Errors))
	for _, re := range result.Errors {
		if re.ID != "" {
			rejected[re.ID] = true
		}
	}

	for _, st := range result.Todos {
		// The authority echoes a rejected record's stored state in the
		// batch. Applying it would revert the local edit and mark the
		// record clean; the error entry takes precedence and the record
		// stays dirty.
		if rejected[st.RemoteID] || rejected[st.ClientID] {
			continue
		}
		if err := r.applyAuthoritative(local, st); err != nil {
			return err
		}
	}

	for _, re := range result.Errors {
		if err := r.recordError(local, re); err != nil {
			return err
		}
	}
	return nil
}

// applyAuthoritative merges one server record into the replica.
func (r *Resolver) applyAuthoritative(local []*models.Todo, st ServerTodo) error {
	t := match(local, st)

	if st.Deleted {
		if t == nil {
			// Remote delete of a record we never knew is a legal
			// race; accept silently.
			return nil
		}
		t.Deleted = true
		t.RemoteConfirmedDeleted = true
		t.SyncedAt = timePtr(parseServerTime(st.SyncedAt))
		t.LastAction = models.ActionNone
		t.LocalOnly = false
		t.SyncError = ""
		if t.RemoteID == "" {
			t.RemoteID = st.RemoteID
		}
		if err := r.store.Put(t); err != nil {
			return fmt.Errorf("confirm delete %d: %w", t.LocalID, err)
		}
		return nil
	}

	if t == nil {
		// Created on the remote independently; adopt it.
		created := parseServerTime(st.CreatedAt)
		updated := parseServerTime(st.UpdatedAt)
		adopted := &models.Todo{
			ClientID:   st.ClientID,
			RemoteID:   st.RemoteID,
			Title:      st.Title,
			Completed:  st.Completed,
			CreatedAt:  created,
			UpdatedAt:  updated,
			SyncedAt:   timePtr(parseServerTime(st.SyncedAt)),
			LastAction: models.ActionNone,
			LocalOnly:  false,
		}
		if _, err := r.store.Add(adopted); err != nil {
			return fmt.Errorf("adopt remote todo %s: %w", st.RemoteID, err)
		}
		return nil
	}

	if t.Deleted {
		// The authority reported the record without its tombstone: the
		// delete was not applied server-side and its knowledge of the
		// soft delete is treated as lost. Undo the tombstone instead of
		// silently resubmitting the deletion intent.
		t.Deleted = false
		t.RemoteConfirmedDeleted = false
	}

	t.Title = st.Title
	t.Completed = st.Completed
	t.CreatedAt = parseServerTime(st.CreatedAt)
	t.UpdatedAt = parseServerTime(st.UpdatedAt)
	t.SyncedAt = timePtr(parseServerTime(st.SyncedAt))
	t.LastAction = models.ActionNone
	t.LocalOnly = false
	t.SyncError = ""
	if t.RemoteID == "" {
		t.RemoteID = st.RemoteID
	}

	if err := r.store.Put(t); err != nil {
		return fmt.Errorf("apply authoritative %d: %w", t.LocalID, err)
	}
	return nil
}

// recordError attaches a per-record server failure. The record stays
// dirty and is retried on the next cycle.
func (r *Resolver) recordError(local []*models.Todo, re RecordError) error {
	for _, t := range local {
		if re.ID != "" && (t.RemoteID == re.ID || t.ClientID == re.ID) {
			t.SyncError = re.Error
			if err := r.store.Put(t); err != nil {
				return fmt.Errorf("record sync error %d: %w", t.LocalID, err)
			}
			return nil
		}
	}
	slog.Warn("server error for unknown record", "id", re.ID, "err", re.Error)
	return nil
}

// MarkFailed annotates every record of a failed push attempt with the
// transport error, leaving them dirty for the next cycle.
func (r *Resolver) MarkFailed(pushed []*models.Todo, cause error) {
	for _, t := range pushed {
		t.SyncError = cause.Error()
		if err := r.store.Put(t); err != nil {
			slog.Warn("annotate failed push", "local_id", t.LocalID, "err", err)
		}
	}
}

// Purge permanently removes records whose deletion the server has
// confirmed and which carry no sync error.
func (r *Resolver) Purge() (int, error) {
	all, err := r.store.ListAll(true)
	if err != nil {
		return 0, fmt.Errorf("list replica: %w", err)
	}

	purged := 0
	for _, t := range all {
		if !t.Purgeable() {
			continue
		}
		if err := r.store.Delete(t.LocalID); err != nil {
			return purged, fmt.Errorf("purge %d: %w", t.LocalID, err)
		}
		purged++
	}
	return purged, nil
}

// match locates the local counterpart of a server record: remote ID,
// then client ID, then title among records with no remote ID yet. The
// title fallback survives for servers that do not echo clientId; two
// unconfirmed records sharing a title can still be merged incorrectly.
func match(local []*models.Todo, st ServerTodo) *models.Todo {
	if st.RemoteID != "" {
		for _, t := range local {
			if t.RemoteID == st.RemoteID {
				return t
			}
		}
	}
	if st.ClientID != "" {
		for _, t := range local {
			if t.ClientID == st.ClientID {
				return t
			}
		}
	}
	for _, t := range local {
		if t.RemoteID == "" && t.Title == st.Title {
			return t
		}
	}
	return nil
}

func parseServerTime(s string) time.Time {
	for _, f := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	slog.Warn("unparseable server timestamp", "value", s)
	return time.Now().UTC()
}

func timePtr(t time.Time) *time.Time { return &t }
