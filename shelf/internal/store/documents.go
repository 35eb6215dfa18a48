package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/docshelf/dbopen"
)

// Document is one catalogued file.
type Document struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	CustomName        string    `json:"custom_name"`
	Path              string    `json:"path"`
	OriginalFormat    string    `json:"original_format"`
	IsMachineReadable bool      `json:"is_machine_readable"`
	Readable          bool      `json:"readable"`
	ExtractedTextPath string    `json:"extracted_text_path,omitempty"`
	OutputFormat      string    `json:"output_format,omitempty"`
	OutputPath        string    `json:"output_path,omitempty"`
	ProcessingMethod  string    `json:"processing_method"`
	FileSize          int64     `json:"file_size"`
	WordCount         int       `json:"word_count"`
	Tags              string    `json:"tags"`
	Description       string    `json:"description"`
	IngestedAt        time.Time `json:"ingested_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	// Content is the extracted text, empty when none was stored.
	Content string `json:"content,omitempty"`
}

// DisplayName is the custom name when set, the original name otherwise.
func (d *Document) DisplayName() string {
	if d.CustomName != "" {
		return d.CustomName
	}
	return d.Name
}

const docColumns = `d.id, d.name, d.custom_name, d.path, d.original_format,
	d.is_machine_readable, d.readable, d.extracted_text_path, d.output_format, d.output_path,
	d.processing_method, d.file_size, d.word_count, d.tags, d.description,
	d.ingested_at, d.updated_at, COALESCE(t.content, '')`

const docJoin = `LEFT JOIN extracted_texts t ON t.doc_id = d.id`

const newestFirst = `ORDER BY d.updated_at DESC, d.id DESC`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc rowScanner) (*Document, error) {
	var (
		d                     Document
		machine, readable     int
		ingestedAt, updatedAt string
	)
	err := sc.Scan(&d.ID, &d.Name, &d.CustomName, &d.Path, &d.OriginalFormat,
		&machine, &readable, &d.ExtractedTextPath, &d.OutputFormat, &d.OutputPath,
		&d.ProcessingMethod, &d.FileSize, &d.WordCount, &d.Tags, &d.Description,
		&ingestedAt, &updatedAt, &d.Content)
	if err != nil {
		return nil, err
	}
	d.IsMachineReadable = machine != 0
	d.Readable = readable != 0
	d.IngestedAt = parseStamp(ingestedAt)
	d.UpdatedAt = parseStamp(updatedAt)
	return &d, nil
}

func (s *Store) queryDocuments(ctx context.Context, query string, args ...any) ([]*Document, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Insert stores d and its extracted text in one transaction: the documents
// row, the extracted_texts row (only for non-empty text) and the index entry.
// It sets d.ID, d.IngestedAt, d.UpdatedAt and d.Content, and returns the id.
func (s *Store) Insert(ctx context.Context, d *Document, text string) (int64, error) {
	if d.Name == "" || d.Path == "" {
		return 0, ErrInvalidDocument
	}
	stamp, now := s.stamp()

	var id int64
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (name, custom_name, path, original_format,
				is_machine_readable, readable, extracted_text_path, output_format, output_path,
				processing_method, file_size, word_count, tags, description, ingested_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Name, d.CustomName, d.Path, d.OriginalFormat,
			boolInt(d.IsMachineReadable), boolInt(d.Readable), d.ExtractedTextPath, d.OutputFormat, d.OutputPath,
			d.ProcessingMethod, d.FileSize, d.WordCount, d.Tags, d.Description, stamp, stamp)
		if err != nil {
			return fmt.Errorf("insert document: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if text != "" {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO extracted_texts (doc_id, content) VALUES (?, ?)`, id, text); err != nil {
				return fmt.Errorf("insert text: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents_fts (doc_id, name, custom_name, content, tags, description)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, d.Name, d.CustomName, text, d.Tags, d.Description); err != nil {
			return fmt.Errorf("index document: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	d.ID = id
	d.IngestedAt = now
	d.UpdatedAt = now
	d.Content = text
	s.logger.Debug("store: document inserted", "id", id, "name", d.Name, "readable", d.Readable)
	return id, nil
}

// ListAll returns every document matching f, newest first.
func (s *Store) ListAll(ctx context.Context, f Readability) ([]*Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents d ` + docJoin +
		` WHERE 1=1` + f.clause() + ` ` + newestFirst
	docs, err := s.queryDocuments(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return docs, nil
}

// Get returns the document with the given id, or nil if absent.
func (s *Store) Get(ctx context.Context, id int64) (*Document, error) {
	d, err := getDocument(ctx, s.DB, id)
	if err != nil {
		return nil, fmt.Errorf("store: get %d: %w", id, err)
	}
	return d, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocument(ctx context.Context, q querier, id int64) (*Document, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+docColumns+` FROM documents d `+docJoin+` WHERE d.id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// Delete removes the document, its text and its index entry in one
// transaction and returns what was removed so the caller can clean up
// files. A missing id is a no-op returning nil.
func (s *Store) Delete(ctx context.Context, id int64) (*Document, error) {
	var removed *Document
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		d, err := getDocument(ctx, tx, id)
		if err != nil || d == nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE doc_id = ?`, id); err != nil {
			return fmt.Errorf("unindex: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_texts WHERE doc_id = ?`, id); err != nil {
			return fmt.Errorf("delete text: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		removed = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: delete %d: %w", id, err)
	}
	if removed != nil {
		s.logger.Debug("store: document deleted", "id", id)
	}
	return removed, nil
}

// RebuildIndex clears documents_fts and refills it from the catalog in one
// transaction. It returns the number of index entries.
func (s *Store) RebuildIndex(ctx context.Context) (int, error) {
	var n int
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, populateIndex); err != nil {
			return err
		}
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRebuildFailed, err)
	}
	s.logger.Info("store: index rebuilt", "entries", n)
	return n, nil
}

// Stats summarises the catalog.
type Stats struct {
	Documents       int   `json:"documents"`
	MachineReadable int   `json:"machine_readable"`
	Readable        int   `json:"readable"`
	Texts           int   `json:"texts"`
	IndexEntries    int   `json:"index_entries"`
	TotalBytes      int64 `json:"total_bytes"`
	TotalWords      int64 `json:"total_words"`

	// IndexDrift is set when the index and the catalog disagree on size.
	IndexDrift bool `json:"index_drift"`
}

// Stats counts documents, stored texts and index entries.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(is_machine_readable), 0),
			COALESCE(SUM(readable), 0),
			COALESCE(SUM(file_size), 0),
			COALESCE(SUM(word_count), 0)
		FROM documents`).Scan(&st.Documents, &st.MachineReadable, &st.Readable, &st.TotalBytes, &st.TotalWords)
	if err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM extracted_texts`).Scan(&st.Texts); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts`).Scan(&st.IndexEntries); err != nil {
		return nil, fmt.Errorf("store: stats: %w", err)
	}
	st.IndexDrift = st.IndexEntries != st.Documents
	return &st, nil
}
