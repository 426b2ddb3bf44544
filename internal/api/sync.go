package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/todosync/internal/serverdb"
)

const maxSyncBatch = 1000

// allowed actions in a change descriptor; empty means unspecified.
var allowedActions = map[string]bool{
	"":       true,
	"create": true,
	"update": true,
	"delete": true,
}

// SyncRequest is the JSON body for POST /todos/sync.
type SyncRequest struct {
	Todos []ChangeInput `json:"todos"`
}

// ChangeInput is a single client-side change in a sync request.
type ChangeInput struct {
	ID        string `json:"_id"`
	ClientID  string `json:"clientId"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Deleted   bool   `json:"deleted"`
	Action    string `json:"action"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// SyncResponse is the JSON response for a sync request. Todos carries
// the authoritative state: every live record plus a tombstone echo for
// each record this batch deleted.
type SyncResponse struct {
	Todos  []TodoOutput  `json:"todos"`
	Errors []RecordError `json:"errors,omitempty"`
}

// TodoOutput is a single authoritative record in a sync response.
type TodoOutput struct {
	ID        string `json:"_id"`
	ClientID  string `json:"clientId,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Deleted   bool   `json:"deleted,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	SyncedAt  string `json:"syncedAt"`
}

// RecordError reports a change that was rejected while the rest of the
// batch succeeded.
type RecordError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// handleSync handles POST /todos/sync. The whole request fails only on
// malformed input; a problem with an individual change becomes a
// per-record error and the remaining changes still apply.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if len(req.Todos) > maxSyncBatch {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(req.Todos), maxSyncBatch))
		return
	}

	now := time.Now().UTC()
	var recordErrors []RecordError
	// Tombstones touched by this batch, echoed so the client can
	// confirm its local deletions.
	confirmed := make(map[string]*serverdb.Todo)

	for _, in := range req.Todos {
		if deleted, err := s.applyChange(in, now); err != nil {
			recordErrors = append(recordErrors, RecordError{ID: changeRef(in), Error: err.Error()})
		} else if deleted != nil {
			confirmed[deleted.ID] = deleted
		}
	}

	live, err := s.store.ListLive()
	if err != nil {
		logFor(r.Context()).Error("list todos", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := SyncResponse{Todos: make([]TodoOutput, 0, len(live)+len(confirmed)), Errors: recordErrors}
	for _, t := range live {
		resp.Todos = append(resp.Todos, todoOutput(t))
	}
	for _, t := range confirmed {
		resp.Todos = append(resp.Todos, todoOutput(t))
	}

	logFor(r.Context()).Info("sync batch",
		"received", len(req.Todos),
		"rejected", len(recordErrors),
		"returned", len(resp.Todos),
	)
	writeJSON(w, http.StatusOK, resp)
}

// applyChange validates and applies one change. It returns the stored
// tombstone when the change deleted a record, so the caller can echo it.
func (s *Server) applyChange(in ChangeInput, now time.Time) (*serverdb.Todo, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	if !allowedActions[in.Action] {
		return nil, fmt.Errorf("invalid action %q", in.Action)
	}
	updatedAt, err := parseWireTime(in.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updatedAt: %v", err)
	}
	createdAt, err := parseWireTime(in.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt: %v", err)
	}

	existing, err := s.matchChange(in)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		if in.Action == "delete" || in.Deleted {
			// Deleting a record the server never had; nothing to do.
			return nil, nil
		}
		t := &serverdb.Todo{
			ID:        uuid.NewString(),
			ClientID:  in.ClientID,
			Title:     in.Title,
			Completed: in.Completed,
			CreatedAt: createdAt,
			UpdatedAt: updatedAt,
			SyncedAt:  now,
		}
		if err := s.store.Upsert(t); err != nil {
			return nil, fmt.Errorf("store todo: %v", err)
		}
		return nil, nil
	}

	// Last write wins, whole record, deletions included. A change
	// older than the stored record is dropped and the client adopts
	// the authoritative state from the response.
	if updatedAt.After(existing.UpdatedAt) {
		existing.Title = in.Title
		existing.Completed = in.Completed
		existing.Deleted = in.Action == "delete" || in.Deleted
		existing.UpdatedAt = updatedAt
	}
	if existing.ClientID == "" {
		existing.ClientID = in.ClientID
	}
	existing.SyncedAt = now

	if err := s.store.Upsert(existing); err != nil {
		return nil, fmt.Errorf("store todo: %v", err)
	}
	if existing.Deleted {
		return existing, nil
	}
	return nil, nil
}

// matchChange finds the stored record a change refers to: by server id
// first, then by client idempotency key, then by title for batches from
// clients that carry neither.
func (s *Server) matchChange(in ChangeInput) (*serverdb.Todo, error) {
	if in.ID != "" {
		t, err := s.store.GetByID(in.ID)
		if err == serverdb.ErrNotFound {
			return nil, fmt.Errorf("unknown todo %s", in.ID)
		}
		return t, err
	}
	if in.ClientID != "" {
		t, err := s.store.GetByClientID(in.ClientID)
		if err == serverdb.ErrNotFound {
			return nil, nil
		}
		return t, err
	}
	t, err := s.store.GetByTitle(in.Title)
	if err == serverdb.ErrNotFound {
		return nil, nil
	}
	return t, err
}

// changeRef names a change in a per-record error, preferring the most
// specific identifier the client sent.
func changeRef(in ChangeInput) string {
	if in.ID != "" {
		return in.ID
	}
	if in.ClientID != "" {
		return in.ClientID
	}
	return in.Title
}

func todoOutput(t *serverdb.Todo) TodoOutput {
	return TodoOutput{
		ID:        t.ID,
		ClientID:  t.ClientID,
		Title:     t.Title,
		Completed: t.Completed,
		Deleted:   t.Deleted,
		CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339Nano),
		SyncedAt:  t.SyncedAt.Format(time.RFC3339Nano),
	}
}

func parseWireTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
