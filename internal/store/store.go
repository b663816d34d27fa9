// Package store persists generated content using SQLite.
//
// The generation log is an audit trail, not a source of truth: the gateway
// writes to it best-effort and a lost record never affects a caller.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	// SQLite driver (required for database/sql registration).
	_ "github.com/mattn/go-sqlite3"
)

// ContentType is the kind of generated content.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// Content is one generation record.
type Content struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id,omitempty"`
	Type      ContentType    `json:"type"`
	Prompt    string         `json:"prompt"`
	Data      string         `json:"data,omitempty"`
	URL       string         `json:"url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Store is the SQLite-backed generation log.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at the given path.
// Creates the database and tables if they don't exist.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("store: create dir: %w", err)
		}
	}

	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// openDB opens a single SQLite database with optimal settings.
func openDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -16000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ============================================================
// SCHEMA
// ============================================================

func (s *Store) init() error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS generated_content (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL DEFAULT '',
		type            TEXT NOT NULL CHECK (type IN ('text', 'image')),
		prompt          TEXT NOT NULL,
		data            TEXT,
		url             TEXT,
		metadata_json   TEXT,
		created_at      INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_content_user ON generated_content(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_content_type ON generated_content(type);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}

	return ensureSchemaVersion(s.db, 1, "Initial generation log schema")
}

func ensureSchemaVersion(db *sql.DB, version int, description string) error {
	var current sql.NullInt64
	if err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&current); err != nil {
		return err
	}

	if !current.Valid || int(current.Int64) < version {
		_, err := db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			version,
			description,
		)
		return err
	}

	return nil
}

// ============================================================
// RECORDS
// ============================================================

// Record stores one generation. ID and CreatedAt are filled when empty.
func (s *Store) Record(ctx context.Context, c *Content) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store not initialized")
	}
	if c == nil || c.Prompt == "" {
		return fmt.Errorf("content and prompt required")
	}
	if c.Type != ContentText && c.Type != ContentImage {
		return fmt.Errorf("unknown content type %q", c.Type)
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	var meta sql.NullString
	if len(c.Metadata) > 0 {
		b, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("store: marshal metadata: %w", err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generated_content (id, user_id, type, prompt, data, url, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.UserID, string(c.Type), c.Prompt, nullString(c.Data), nullString(c.URL), meta, c.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: insert content: %w", err)
	}
	return nil
}

// List returns a user's most recent generations, newest first.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]Content, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, prompt, data, url, metadata_json, created_at
		FROM generated_content
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list content: %w", err)
	}
	defer rows.Close()

	items := []Content{}
	for rows.Next() {
		var (
			c         Content
			typ       string
			data, url sql.NullString
			meta      sql.NullString
			created   int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &typ, &c.Prompt, &data, &url, &meta, &created); err != nil {
			return nil, err
		}
		c.Type = ContentType(typ)
		c.Data = data.String
		c.URL = url.String
		c.CreatedAt = time.Unix(created, 0)
		if meta.Valid {
			if err := json.Unmarshal([]byte(meta.String), &c.Metadata); err != nil {
				return nil, fmt.Errorf("store: decode metadata: %w", err)
			}
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
