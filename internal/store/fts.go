package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Message-body full-text search is optional: archives imported without
// the index still answer body queries through a LIKE scan. The index is
// an external-content FTS5 table over messages, kept in sync by
// triggers, so its rowids are message ids.

// EnableBodyIndex creates the message-body full-text index and
// populates it from existing messages. Idempotent.
func (s *Store) EnableBodyIndex(ctx context.Context) error {
	stmts := []string{
		`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts
			USING fts5(body, content='messages', content_rowid='id')`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_insert AFTER INSERT ON messages BEGIN
			INSERT INTO messages_fts(rowid, body) VALUES (new.id, new.body);
		END`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_delete AFTER DELETE ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, body) VALUES ('delete', old.id, old.body);
		END`,
		`CREATE TRIGGER IF NOT EXISTS messages_fts_update AFTER UPDATE OF body ON messages BEGIN
			INSERT INTO messages_fts(messages_fts, rowid, body) VALUES ('delete', old.id, old.body);
			INSERT INTO messages_fts(rowid, body) VALUES (new.id, new.body);
		END`,
		`INSERT INTO messages_fts(messages_fts) VALUES ('rebuild')`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("enable body index: %w", err)
		}
	}
	s.bodyIndex = true
	s.bodyIndexChecked = true
	return nil
}

// HasBodyIndex reports whether the full-text index exists. The check
// hits sqlite_master once and is cached for the life of the Store.
func (s *Store) HasBodyIndex(ctx context.Context) (bool, error) {
	if s.bodyIndexChecked {
		return s.bodyIndex, nil
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = 'messages_fts'")
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.bodyIndex = false
			s.bodyIndexChecked = true
			return false, nil
		}
		return false, fmt.Errorf("check body index: %w", err)
	}
	s.bodyIndex = true
	s.bodyIndexChecked = true
	return true, nil
}
