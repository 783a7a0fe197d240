package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}

	// WAL lets the admin API read while the dispatcher writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS calls (
			id          TEXT PRIMARY KEY,
			tool        TEXT NOT NULL,
			arguments   TEXT NOT NULL DEFAULT '{}',
			ok          INTEGER NOT NULL,
			code        INTEGER NOT NULL DEFAULT 0,
			message     TEXT NOT NULL DEFAULT '',
			failed_in   TEXT NOT NULL DEFAULT '',
			duration_ms INTEGER NOT NULL DEFAULT 0,
			started_at  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_calls_tool ON calls(tool);
		CREATE INDEX IF NOT EXISTS idx_calls_started_at ON calls(started_at);
	`)
	if err != nil {
		return fmt.Errorf("journal: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(c *Call) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	args := c.Arguments
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("journal: encode arguments: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO calls (id, tool, arguments, ok, code, message, failed_in, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Tool, string(argsJSON), c.OK, c.Code, c.Message, c.FailedIn, c.DurationMs,
		c.StartedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*Call, error) {
	row := s.db.QueryRow(`SELECT `+callColumns+` FROM calls WHERE id = ?`, id)
	c, err := scanCall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("call %q not found", id)
		}
		return nil, fmt.Errorf("journal: get: %w", err)
	}
	return c, nil
}

func (s *SQLiteStore) List(filter Filter) ([]*Call, error) {
	where, args := filter.where()
	query := "SELECT " + callColumns + " FROM calls" + where + " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	defer rows.Close()

	calls := []*Call{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("journal: list scan: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func (s *SQLiteStore) Count(filter Filter) (int, error) {
	where, args := filter.where()
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM calls"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("journal: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Prune(before time.Time) (int, error) {
	result, err := s.db.Exec(`DELETE FROM calls WHERE started_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("journal: prune: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

const callColumns = "id, tool, arguments, ok, code, message, failed_in, duration_ms, started_at"

// timeLayout has fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (f Filter) where() (string, []any) {
	clause := " WHERE 1=1"
	var args []any
	if f.Tool != "" {
		clause += " AND tool = ?"
		args = append(args, f.Tool)
	}
	if f.OK != nil {
		clause += " AND ok = ?"
		args = append(args, *f.OK)
	}
	if !f.Since.IsZero() {
		clause += " AND started_at >= ?"
		args = append(args, f.Since.UTC().Format(timeLayout))
	}
	return clause, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanCall(s scannable) (*Call, error) {
	var c Call
	var argsJSON, startedAt string
	err := s.Scan(&c.ID, &c.Tool, &argsJSON, &c.OK, &c.Code, &c.Message, &c.FailedIn, &c.DurationMs, &startedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(argsJSON), &c.Arguments)
	if c.Arguments == nil {
		c.Arguments = map[string]any{}
	}
	c.StartedAt, _ = time.Parse(timeLayout, startedAt)
	return &c, nil
}
