// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// schema is safe to run on every open.
const schema = `
CREATE TABLE IF NOT EXISTS chats (
    id           TEXT PRIMARY KEY,
    difficulty   TEXT NOT NULL,
    chat_history TEXT NOT NULL
) WITHOUT ROWID;
`

// SQLiteStore keeps entries in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. Opening an existing
// database never drops entries.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("archive database path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, unavailable("open", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("open", err)
	}

	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, unavailable("open", fmt.Errorf("failed to set pragma: %w", err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, unavailable("open", fmt.Errorf("failed to initialize schema: %w", err))
	}

	return &SQLiteStore{db: db}, nil
}

// Put upserts e.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	history, err := json.Marshal(e.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chats (id, difficulty, chat_history) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			difficulty = excluded.difficulty,
			chat_history = excluded.chat_history`,
		e.ID, e.PersonaID, string(history))
	if err != nil {
		return unavailable("put", err)
	}
	return nil
}

// GetAll returns every row. Rows whose history cannot be decoded are
// skipped and logged.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, difficulty, chat_history FROM chats`)
	if err != nil {
		return nil, unavailable("get", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			history string
		)
		if err := rows.Scan(&e.ID, &e.PersonaID, &history); err != nil {
			return nil, unavailable("get", err)
		}
		if err := json.Unmarshal([]byte(history), &e.Messages); err != nil {
			slog.Warn("ARCHIVE_ENTRY_CORRUPT", "backend", BackendSQLite, "id", e.ID, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	return entries, nil
}

// Delete removes id. Deleting a missing id affects no rows and succeeds.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id); err != nil {
		return unavailable("delete", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
