// Package sync is the reconciliation core: it decides which local todos
// are dirty, pushes them to the remote authority, merges the
// authoritative response back into the local replica and schedules
// retries under intermittent connectivity.
package sync

import (
	"context"
	"time"

	"github.com/marcus/todosync/internal/models"
)

// ChangeDescriptor is a single outgoing record in a push batch.
// Timestamps travel as RFC3339 strings.
type ChangeDescriptor struct {
	RemoteID  string `json:"_id,omitempty"`
	ClientID  string `json:"clientId,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Deleted   bool   `json:"deleted"`
	Action    string `json:"action,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ServerTodo is one authoritative record in a push response.
type ServerTodo struct {
	RemoteID  string `json:"_id"`
	ClientID  string `json:"clientId,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
	SyncedAt  string `json:"syncedAt"`
	Deleted   bool   `json:"deleted,omitempty"`
}

// RecordError is a per-record server-side failure within an otherwise
// successful batch.
type RecordError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// PushResult is the authoritative outcome of one push.
type PushResult struct {
	Todos  []ServerTodo  `json:"todos"`
	Errors []RecordError `json:"errors,omitempty"`
}

// Transport pushes a batch of changes to the remote authority.
// *syncclient.Client satisfies it.
type Transport interface {
	Push(ctx context.Context, batch []ChangeDescriptor) (*PushResult, error)
}

// Descriptors converts dirty records into their wire form.
func Descriptors(todos []*models.Todo) []ChangeDescriptor {
	out := make([]ChangeDescriptor, len(todos))
	for i, t := range todos {
		out[i] = ChangeDescriptor{
			RemoteID:  t.RemoteID,
			ClientID:  t.ClientID,
			Title:     t.Title,
			Completed: t.Completed,
			Deleted:   t.Deleted,
			Action:    string(t.LastAction),
			CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt: t.UpdatedAt.UTC().Format(time.RFC3339Nano),
		}
	}
	return out
}
