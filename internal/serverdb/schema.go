package serverdb

// ServerSchemaVersion is the current schema version.
const ServerSchemaVersion = 1

const serverSchema = `
CREATE TABLE IF NOT EXISTS todos (
    id TEXT PRIMARY KEY,
    client_id TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    deleted INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    synced_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_todos_client_id ON todos(client_id) WHERE client_id != '';
CREATE INDEX IF NOT EXISTS idx_todos_deleted ON todos(deleted);
`

// Migration is a single schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations lists schema changes beyond the base schema, in order.
var Migrations = []Migration{}
