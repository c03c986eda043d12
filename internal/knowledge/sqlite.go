package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS knowledge (
	question TEXT PRIMARY KEY,
	answer   TEXT NOT NULL,
	position INTEGER NOT NULL
)`

// SQLiteStore persists the knowledge base in a SQLite database using the
// CGO-free modernc.org/sqlite driver. Writes replace the table contents in a
// single transaction, so the on-disk state is always a complete snapshot.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	retry RetryPolicy
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, policy RetryPolicy) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: path, retry: policy}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL", // learned answers must survive a crash
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("create knowledge table: %w", err)
	}
	return nil
}

// Name identifies the backend in logs.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Read loads every entry ordered by insertion position.
func (s *SQLiteStore) Read(ctx context.Context) (*KnowledgeBase, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT question, answer FROM knowledge ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query knowledge: %w", err)
	}
	defer rows.Close()

	kb := NewKnowledgeBase()
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Question, &e.Answer); err != nil {
			return nil, fmt.Errorf("scan knowledge row: %w", err)
		}
		kb.Set(e.Question, e.Answer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate knowledge rows: %w", err)
	}
	return kb, nil
}

// Write replaces the stored entries with kb.
func (s *SQLiteStore) Write(ctx context.Context, kb *KnowledgeBase) error {
	entries := kb.Entries()
	return s.retry.Do(ctx, "write "+s.path, func(ctx context.Context) error {
		return s.replaceAll(ctx, entries)
	})
}

func (s *SQLiteStore) replaceAll(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledge`); err != nil {
		return fmt.Errorf("clear knowledge: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO knowledge (question, answer, position) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Question, e.Answer, i); err != nil {
			return fmt.Errorf("insert %q: %w", e.Question, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit knowledge: %w", err)
	}
	return nil
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Warn().Err(err).Str("path", s.path).Msg("WAL checkpoint failed")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
