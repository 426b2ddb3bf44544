package models

import (
	"time"
)

// Action represents the local mutation that produced a record's current
// dirty state. Cleared to ActionNone once the server confirms the record.
type Action string

const (
	ActionNone   Action = ""
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// IsValidAction checks if the given action string is a known action.
func IsValidAction(a string) bool {
	switch Action(a) {
	case ActionNone, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Todo is a single todo record in the local replica.
//
// LocalID is assigned by the store and never leaves the process as
// identity. RemoteID is assigned by the server on first acceptance and
// never changes afterwards. ClientID is a locally generated idempotency
// key created with the record; servers that echo it back let us match an
// unconfirmed record to its server counterpart without falling back to
// title equality.
type Todo struct {
	LocalID                int64      `json:"local_id"`
	ClientID               string     `json:"client_id,omitempty"`
	RemoteID               string     `json:"remote_id,omitempty"`
	Title                  string     `json:"title"`
	Completed              bool       `json:"completed"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	SyncedAt               *time.Time `json:"synced_at,omitempty"`
	Deleted                bool       `json:"deleted,omitempty"`
	LastAction             Action     `json:"last_action,omitempty"`
	LocalOnly              bool       `json:"local_only,omitempty"`
	RemoteConfirmedDeleted bool       `json:"remote_confirmed_deleted,omitempty"`
	SyncError              string     `json:"sync_error,omitempty"`
}

// Dirty reports whether the record must be included in the next push.
func (t *Todo) Dirty() bool {
	if t.SyncedAt == nil {
		return true
	}
	if t.LastAction != ActionNone {
		return true
	}
	if t.Deleted && !t.RemoteConfirmedDeleted {
		return true
	}
	return false
}

// Purgeable reports whether the record may be permanently removed from
// the local replica: the deletion is confirmed server-side and no sync
// error is outstanding.
func (t *Todo) Purgeable() bool {
	return t.Deleted && t.RemoteConfirmedDeleted && t.SyncedAt != nil && t.SyncError == ""
}

// Clone returns a deep copy of the record.
func (t *Todo) Clone() *Todo {
	c := *t
	if t.SyncedAt != nil {
		ts := *t.SyncedAt
		c.SyncedAt = &ts
	}
	return &c
}
