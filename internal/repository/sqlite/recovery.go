// Package sqlite persists the local recovery cache in a SQLite file so
// unsaved editor buffers survive a process restart.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS recovery_entries (
    document_id TEXT PRIMARY KEY,
    content BLOB NOT NULL,
    updated_at DATETIME NOT NULL
);`

// RecoveryStore implements repositories.RecoveryStore on SQLite.
// Content is zstd-compressed at rest.
type RecoveryStore struct {
	db      *sql.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger
}

// OpenRecoveryStore opens (or creates) the database at path
func OpenRecoveryStore(path string, logger *slog.Logger) (*RecoveryStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open recovery database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY between debounce timers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init recovery schema: %w", err)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &RecoveryStore{db: db, encoder: encoder, decoder: decoder, logger: logger}, nil
}

func (s *RecoveryStore) Get(ctx context.Context, documentID string) (string, bool, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM recovery_entries WHERE document_id = ?`, documentID,
	).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read recovery entry: %w", err)
	}

	body, err := s.decoder.DecodeAll(compressed, nil)
	if err != nil {
		// a corrupt entry is worth less than the draft behind it
		s.logger.Warn("discarding unreadable recovery entry", "document_id", documentID, "error", err)
		return "", false, nil
	}
	return string(body), true, nil
}

func (s *RecoveryStore) Put(ctx context.Context, documentID, content string) error {
	compressed := s.encoder.EncodeAll([]byte(content), nil)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recovery_entries (document_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`, documentID, compressed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write recovery entry: %w", err)
	}
	return nil
}

func (s *RecoveryStore) Delete(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM recovery_entries WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete recovery entry: %w", err)
	}
	return nil
}

// Close releases the database and codecs
func (s *RecoveryStore) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return s.db.Close()
}
