// Package serverdb is the sync server's authoritative todo store,
// backed by SQLite.
package serverdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a todo does not exist.
var ErrNotFound = errors.New("todo not found")

// Todo is the server-side authoritative record.
type Todo struct {
	ID        string
	ClientID  string
	Title     string
	Completed bool
	Deleted   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	SyncedAt  time.Time
}

// ServerDB wraps the server database connection.
type ServerDB struct {
	conn *sql.DB
	path string
}

// Open opens the server database, creating and initializing the file if
// it does not exist.
func Open(dbPath string) (*ServerDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(serverSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	db := &ServerDB{conn: conn, path: dbPath}

	if err := db.runMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Ping checks the database connection is alive.
func (db *ServerDB) Ping() error {
	return db.conn.Ping()
}

// Close checkpoints the WAL and closes the database connection.
func (db *ServerDB) Close() error {
	db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return db.conn.Close()
}

func (db *ServerDB) runMigrations() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_info: %w", err)
	}

	current := db.getSchemaVersion()
	for _, m := range Migrations {
		if m.Version > current {
			if _, err := db.conn.Exec(m.SQL); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
			}
			if err := db.setSchemaVersion(m.Version); err != nil {
				return fmt.Errorf("set version %d: %w", m.Version, err)
			}
		}
	}
	if current == 0 {
		return db.setSchemaVersion(ServerSchemaVersion)
	}
	return nil
}

func (db *ServerDB) getSchemaVersion() int {
	var version string
	if err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version); err != nil {
		return 0
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v
}

func (db *ServerDB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(
		"INSERT INTO schema_info (key, value) VALUES ('version', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fmt.Sprintf("%d", version))
	return err
}

const todoColumns = "id, client_id, title, completed, deleted, created_at, updated_at, synced_at"

// GetByID returns the todo with the given server id.
func (db *ServerDB) GetByID(id string) (*Todo, error) {
	row := db.conn.QueryRow("SELECT "+todoColumns+" FROM todos WHERE id = ?", id)
	return scanTodo(row)
}

// GetByClientID returns the todo carrying the given client idempotency
// key.
func (db *ServerDB) GetByClientID(clientID string) (*Todo, error) {
	row := db.conn.QueryRow("SELECT "+todoColumns+" FROM todos WHERE client_id = ?", clientID)
	return scanTodo(row)
}

// GetByTitle returns the live todo with the given title. Used for
// batches from clients that carry neither a server id nor a client id.
func (db *ServerDB) GetByTitle(title string) (*Todo, error) {
	row := db.conn.QueryRow("SELECT "+todoColumns+" FROM todos WHERE title = ? AND deleted = 0 ORDER BY created_at LIMIT 1", title)
	return scanTodo(row)
}

// ListLive returns all non-deleted todos in creation order.
func (db *ServerDB) ListLive() ([]*Todo, error) {
	rows, err := db.conn.Query("SELECT " + todoColumns + " FROM todos WHERE deleted = 0 ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []*Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Upsert writes the todo, inserting or replacing by id.
func (db *ServerDB) Upsert(t *Todo) error {
	_, err := db.conn.Exec(`
		INSERT INTO todos (id, client_id, title, completed, deleted, created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			title = excluded.title,
			completed = excluded.completed,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at`,
		t.ID, t.ClientID, t.Title, boolInt(t.Completed), boolInt(t.Deleted),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), formatTime(t.SyncedAt))
	if err != nil {
		return fmt.Errorf("upsert todo %s: %w", t.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*Todo, error) {
	var t Todo
	var completed, deleted int
	var createdAt, updatedAt, syncedAt string

	err := row.Scan(&t.ID, &t.ClientID, &t.Title, &completed, &deleted, &createdAt, &updatedAt, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan todo: %w", err)
	}

	t.Completed = completed != 0
	t.Deleted = deleted != 0
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("todo %s created_at: %w", t.ID, err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("todo %s updated_at: %w", t.ID, err)
	}
	if t.SyncedAt, err = parseTime(syncedAt); err != nil {
		return nil, fmt.Errorf("todo %s synced_at: %w", t.ID, err)
	}
	return &t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
