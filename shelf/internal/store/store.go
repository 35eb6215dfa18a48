// CLAUDE:SUMMARY SQLite catalog of ingested documents: documents, extracted_texts and the documents_fts search index.
// Package store is the docshelf catalog. It exclusively owns the documents,
// extracted_texts and documents_fts tables; every multi-table write runs in
// one transaction so the catalog and the index commit or roll back together.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docshelf/dbopen"
)

// TimeLayout is the stored timestamp format. Fixed width keeps lexical
// order equal to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// ErrRebuildFailed wraps any failure of RebuildIndex. The index is left
// as it was before the call.
var ErrRebuildFailed = errors.New("store: index rebuild failed")

// ErrInvalidDocument is returned by Insert for documents missing name or path.
var ErrInvalidDocument = errors.New("store: document requires name and path")

// Store is the catalog handle.
type Store struct {
	DB *sql.DB

	// Now stamps inserted documents (default: time.Now).
	Now func() time.Time

	logger *slog.Logger
}

// Open opens (or creates) the catalog at path and runs Init.
func Open(ctx context.Context, path string, logger *slog.Logger, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{dbopen.WithMkdirAll(), dbopen.WithSchema(Schema)}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	s := New(db, logger)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. Call Init before use.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{DB: db, Now: time.Now, logger: logger}
}

// Init creates missing catalog tables, then drops, recreates and
// repopulates the search index. Index contents never survive Init.
func (s *Store) Init(ctx context.Context) error {
	var entries int64
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, Schema); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS documents_fts`); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, indexDDL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, populateIndex); err != nil {
			return fmt.Errorf("populate index: %w", err)
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts`).Scan(&entries)
	})
	if err != nil {
		return fmt.Errorf("store: init: %w", err)
	}
	s.logger.Debug("store: initialised", "index_entries", entries)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) stamp() (string, time.Time) {
	now := s.Now().UTC().Truncate(time.Microsecond)
	return now.Format(TimeLayout), now
}

func parseStamp(v string) time.Time {
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
