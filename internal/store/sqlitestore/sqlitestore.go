// Package sqlitestore is the default on-disk Store, a single sqlite
// table with the auto-increment rowid as the local ID.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/marcus/todosync/internal/models"
	"github.com/marcus/todosync/internal/store"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	local_id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	client_id                TEXT NOT NULL DEFAULT '',
	remote_id                TEXT NOT NULL DEFAULT '',
	title                    TEXT NOT NULL,
	completed                INTEGER NOT NULL DEFAULT 0,
	created_at               TEXT NOT NULL,
	updated_at               TEXT NOT NULL,
	synced_at                TEXT,
	deleted                  INTEGER NOT NULL DEFAULT 0,
	last_action              TEXT NOT NULL DEFAULT '',
	local_only               INTEGER NOT NULL DEFAULT 0,
	remote_confirmed_deleted INTEGER NOT NULL DEFAULT 0,
	sync_error               TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_todos_remote_id ON todos(remote_id);
`

const todoColumns = `local_id, client_id, remote_id, title, completed, created_at, updated_at,
	synced_at, deleted, last_action, local_only, remote_confirmed_deleted, sync_error`

// Store wraps a sqlite database holding the local replica.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the replica database at path and ensures the
// schema exists. WAL mode allows concurrent reads while writes are
// serialized.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=500"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database, creating the schema if needed.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Add(todo *models.Todo) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO todos (client_id, remote_id, title, completed, created_at, updated_at,
			synced_at, deleted, last_action, local_only, remote_confirmed_deleted, sync_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ClientID, todo.RemoteID, todo.Title, todo.Completed,
		formatTime(todo.CreatedAt), formatTime(todo.UpdatedAt), formatTimePtr(todo.SyncedAt),
		todo.Deleted, string(todo.LastAction), todo.LocalOnly,
		todo.RemoteConfirmedDeleted, todo.SyncError,
	)
	if err != nil {
		return 0, fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (s *Store) Get(localID int64) (*models.Todo, error) {
	row := s.db.QueryRow(`SELECT `+todoColumns+` FROM todos WHERE local_id = ?`, localID)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get todo %d: %w", localID, err)
	}
	return t, nil
}

func (s *Store) ListAll(includeDeleted bool) ([]*models.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos ORDER BY local_id ASC`
	if !includeDeleted {
		query = `SELECT ` + todoColumns + ` FROM todos WHERE deleted = 0 ORDER BY local_id ASC`
	}

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []*models.Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

func (s *Store) Put(todo *models.Todo) error {
	res, err := s.db.Exec(
		`UPDATE todos SET client_id=?, remote_id=?, title=?, completed=?, created_at=?, updated_at=?,
			synced_at=?, deleted=?, last_action=?, local_only=?, remote_confirmed_deleted=?, sync_error=?
		 WHERE local_id=?`,
		todo.ClientID, todo.RemoteID, todo.Title, todo.Completed,
		formatTime(todo.CreatedAt), formatTime(todo.UpdatedAt), formatTimePtr(todo.SyncedAt),
		todo.Deleted, string(todo.LastAction), todo.LocalOnly,
		todo.RemoteConfirmedDeleted, todo.SyncError, todo.LocalID,
	)
	if err != nil {
		return fmt.Errorf("update todo %d: %w", todo.LocalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(localID int64) error {
	res, err := s.db.Exec(`DELETE FROM todos WHERE local_id = ?`, localID)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", localID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*models.Todo, error) {
	var t models.Todo
	var createdAt, updatedAt, lastAction string
	var syncedAt sql.NullString

	err := row.Scan(&t.LocalID, &t.ClientID, &t.RemoteID, &t.Title, &t.Completed,
		&createdAt, &updatedAt, &syncedAt, &t.Deleted, &lastAction,
		&t.LocalOnly, &t.RemoteConfirmedDeleted, &t.SyncError)
	if err != nil {
		return nil, err
	}

	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if syncedAt.Valid {
		ts, err := parseTime(syncedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse synced_at: %w", err)
		}
		t.SyncedAt = &ts
	}
	t.LastAction = models.Action(lastAction)
	return &t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
