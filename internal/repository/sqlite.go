package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/magefree/mage-duel-server/internal/game"
	"github.com/magefree/mage-duel-server/internal/repository/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// SQLiteStore persists sessions in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the
// embedded migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// Create implements SessionStore.
func (s *SQLiteStore) Create(ctx context.Context, session *game.Session) error {
	data, err := game.EncodeSession(session)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_sessions (id, state, version, created_at, updated_at) VALUES (?, ?, 1, ?, ?)`,
		session.ID,
		string(data),
		toMillis(session.CreatedAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, session.ID)
		}
		return fmt.Errorf("create session %s: %w", session.ID, err)
	}
	session.Version = 1
	return nil
}

// Load implements SessionStore.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*game.Session, error) {
	var (
		state   string
		version int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT state, version FROM game_sessions WHERE id = ?`, id).Scan(&state, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	session, err := game.DecodeSession([]byte(state))
	if err != nil {
		return nil, err
	}
	session.Version = version
	return session, nil
}

// Save implements SessionStore.
func (s *SQLiteStore) Save(ctx context.Context, session *game.Session) error {
	data, err := game.EncodeSession(session)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE game_sessions SET state = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		string(data),
		toMillis(session.UpdatedAt),
		session.ID,
		session.Version,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	if n == 0 {
		return s.missOrConflict(ctx, session.ID)
	}
	session.Version++
	return nil
}

func (s *SQLiteStore) missOrConflict(ctx context.Context, id string) error {
	var found int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM game_sessions WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("check session %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s", ErrConflict, id)
}

// Ping implements SessionStore.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements SessionStore.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

const migrationTable = "schema_migrations"

// applyMigrations runs each embedded .sql file once, in name order.
func applyMigrations(db *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var applied int
		err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&applied)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`, file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL between the "-- +migrate Up" and
// "-- +migrate Down" markers.
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start < 0 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end >= 0 {
		content = content[:end]
	}
	return content
}
