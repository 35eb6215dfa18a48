// CLAUDE:SUMMARY Main docshelf orchestrator: wires catalog store, docpipe, converter, ingestion and search; exposes the document API.
// Package shelf is the document shelf: it ingests files of many formats,
// keeps a SQLite catalog with a ranked full-text index, and answers
// tiered searches over it.
//
// Pipeline:
//
//	file → docpipe.Classify → docpipe.Extract → convert → store (catalog + FTS5) → search
//
// Usage:
//
//	s, err := shelf.New(cfg, logger)
//	defer s.Close()
//	doc, err := s.Ingest(ctx, shelf.IngestRequest{Path: "report.pdf"})
//	res, err := s.Search(ctx, shelf.SearchRequest{Query: "quarterly revenue"})
//	s.RegisterMCP(mcpServer)
//	http.ListenAndServe(cfg.HTTP.Listen, s.Handler())
package shelf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/docshelf/convert"
	"github.com/hazyhaar/docshelf/docpipe"
	"github.com/hazyhaar/docshelf/shelf/internal/ingest"
	"github.com/hazyhaar/docshelf/shelf/internal/search"
	"github.com/hazyhaar/docshelf/shelf/internal/store"
)

// ErrNotFound is returned by Get for document ids absent from the catalog.
var ErrNotFound = errors.New("shelf: document not found")

// Re-exported so front ends need not import internal packages.
type (
	Document      = store.Document
	Readability   = store.Readability
	Stats         = store.Stats
	IngestRequest = ingest.Request
	IngestOutcome = ingest.Outcome
	SearchRequest = search.Request
	SearchResult  = search.Result
	Scope         = search.Scope
)

const (
	ReadabilityAll     = store.ReadabilityAll
	MachineReadable    = store.MachineReadable
	NonMachineReadable = store.NonMachineReadable

	ScopeAll     = search.ScopeAll
	ScopeName    = search.ScopeName
	ScopeContent = search.ScopeContent
	ScopeTags    = search.ScopeTags
)

// ParseReadability and ParseScope validate user-supplied filter values.
var (
	ParseReadability = store.ParseReadability
	ParseScope       = search.ParseScope
)

// Shelf is the docshelf orchestrator.
type Shelf struct {
	config  *Config
	store   *store.Store
	docs    *docpipe.Pipeline
	ingest  *ingest.Pipeline
	engine  *search.Engine
	closers []func() error
	logger  *slog.Logger
}

// Option overrides a capability provider, mostly for tests and embedding.
type Option func(*docpipe.Config)

// WithRecognizer replaces the configured OCR provider.
func WithRecognizer(r docpipe.Recognizer) Option {
	return func(c *docpipe.Config) { c.Recognizer = r }
}

// WithRasterizer replaces pdftoppm.
func WithRasterizer(r docpipe.Rasterizer) Option {
	return func(c *docpipe.Config) { c.Rasterizer = r }
}

// WithLegacyWordReader replaces antiword.
func WithLegacyWordReader(r docpipe.LegacyWordReader) Option {
	return func(c *docpipe.Config) { c.LegacyWord = r }
}

// New opens the catalog and wires every component.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Shelf, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("shelf: config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	s := &Shelf{config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	st, err := store.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}
	s.store = st
	s.closers = append(s.closers, st.Close)

	dcfg := docpipe.Config{
		MaxFileSize: cfg.MaxFileBytes(),
		OCRWorkers:  cfg.Extraction.OCRWorkers,
		DPI:         cfg.Extraction.DPI,
		WorkDir:     cfg.Extraction.WorkDir,
		Rasterizer: &docpipe.PopplerRasterizer{
			Binary: cfg.Extraction.PdftoppmBin,
			DPI:    cfg.Extraction.DPI,
		},
		LegacyWord: &docpipe.AntiwordReader{Binary: cfg.Extraction.AntiwordBin},
		Logger:     logger,
	}
	for _, o := range opts {
		o(&dcfg)
	}
	if dcfg.Recognizer == nil {
		rec, closeFn, err := newRecognizer(ctx, cfg.Extraction)
		if err != nil {
			return nil, err
		}
		dcfg.Recognizer = rec
		if closeFn != nil {
			s.closers = append(s.closers, closeFn)
		}
	}
	docs, err := docpipe.New(dcfg)
	if err != nil {
		return nil, err
	}
	s.docs = docs
	s.closers = append(s.closers, func() error { docs.Close(); return nil })

	conv := convert.New(convert.Config{
		BrowserBin: cfg.Conversion.BrowserBin,
		PDFTimeout: cfg.Conversion.PDFTimeout,
		Logger:     logger,
	})

	s.ingest, err = ingest.New(ingest.Config{
		StorageDir:  cfg.StorageDir,
		MaxFileSize: cfg.MaxFileBytes(),
		Logger:      logger,
	}, docs, conv, st)
	if err != nil {
		return nil, err
	}
	s.engine = search.New(st, logger)

	ok = true
	logger.Info("shelf: ready", "db", cfg.DBPath, "storage", cfg.StorageDir, "recognizer", cfg.Extraction.Recognizer)
	return s, nil
}

func newRecognizer(ctx context.Context, ec ExtractionConfig) (docpipe.Recognizer, func() error, error) {
	if ec.Recognizer == RecognizerVision {
		v, err := docpipe.NewVisionRecognizer(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("shelf: %w", err)
		}
		v.Timeout = ec.OCRTimeout
		return v, v.Close, nil
	}
	return &docpipe.TesseractRecognizer{
		Binary:   ec.TesseractBin,
		Language: ec.TesseractLang,
		Timeout:  ec.OCRTimeout,
	}, nil, nil
}

// Close releases the OCR pool, the recognizer and the catalog.
func (s *Shelf) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Config returns the effective configuration.
func (s *Shelf) Config() *Config { return s.config }

// Ingest catalogues one file. An empty output format takes the configured default.
func (s *Shelf) Ingest(ctx context.Context, req IngestRequest) (*Document, error) {
	if req.OutputFormat == "" {
		req.OutputFormat = s.config.DefaultOutputFormat
	}
	return s.ingest.Process(ctx, req)
}

// IngestBatch catalogues several files; failures are reported per file.
func (s *Shelf) IngestBatch(ctx context.Context, reqs []IngestRequest) []IngestOutcome {
	for i := range reqs {
		if reqs[i].OutputFormat == "" {
			reqs[i].OutputFormat = s.config.DefaultOutputFormat
		}
	}
	return s.ingest.ProcessBatch(ctx, reqs)
}

// Search runs a tiered search.
func (s *Shelf) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	return s.engine.Search(ctx, req)
}

// List returns every document matching f, newest first.
func (s *Shelf) List(ctx context.Context, f Readability) ([]*Document, error) {
	return s.store.ListAll(ctx, f)
}

// Get returns one document with its text.
func (s *Shelf) Get(ctx context.Context, id int64) (*Document, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return d, nil
}

// Delete removes the document from the catalog, then its stored files.
// File removal is best effort. Deleting an absent id is a no-op that
// returns a nil document.
func (s *Shelf) Delete(ctx context.Context, id int64) (*Document, error) {
	d, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		s.logger.Debug("shelf: delete of absent document", "id", id)
		return nil, nil
	}
	for _, path := range []string{d.Path, d.ExtractedTextPath, d.OutputPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("shelf: file cleanup failed", "id", id, "path", path, "error", err)
		}
	}
	s.logger.Info("shelf: document deleted", "id", id, "name", d.Name)
	return d, nil
}

// RebuildIndex regenerates the search index from the catalog.
func (s *Shelf) RebuildIndex(ctx context.Context) (int, error) {
	return s.store.RebuildIndex(ctx)
}

// Stats returns catalog counters.
func (s *Shelf) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}

// Formats lists the accepted input formats and the output formats.
type Formats struct {
	Input  []docpipe.FormatInfo `json:"input"`
	Output []convert.FormatInfo `json:"output"`
}

// Formats returns the input and output format registries.
func (s *Shelf) Formats() Formats {
	return Formats{Input: s.docs.SupportedFormats(), Output: convert.Formats()}
}
