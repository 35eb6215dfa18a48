// CLAUDE:SUMMARY Ingestion orchestrator: classify, copy into storage, extract, write text and converted artifacts, insert into the catalog.
// Package ingest is the single write path into the catalog. One call to
// Process takes one file from disk to a persisted store.Document.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/docshelf/convert"
	"github.com/hazyhaar/docshelf/docpipe"
	"github.com/hazyhaar/docshelf/horosafe"
	"github.com/hazyhaar/docshelf/shelf/internal/store"
)

// DefaultOutputFormat is used when a request names no output format.
const DefaultOutputFormat = "txt"

// ErrInvalidSource is returned for missing, non-regular or oversized sources.
var ErrInvalidSource = errors.New("ingest: invalid source file")

// Extractor classifies and extracts files.
type Extractor interface {
	Detect(path string) (docpipe.Family, error)
	Classify(path string) bool
	Extract(ctx context.Context, path string, force bool) (*docpipe.Result, error)
}

// Converter writes the converted output artifact.
type Converter interface {
	Convert(ctx context.Context, text, format, dst string) error
}

// Catalog persists documents.
type Catalog interface {
	Insert(ctx context.Context, d *store.Document, text string) (int64, error)
}

// Config configures a Pipeline.
type Config struct {
	// StorageDir receives stored originals, text artifacts and converted outputs.
	StorageDir string

	// MaxFileSize rejects larger sources before anything is written
	// (default: 100 MB).
	MaxFileSize int64

	Logger *slog.Logger
}

// Request describes one file to ingest.
type Request struct {
	Path             string `json:"path"`
	OutputFormat     string `json:"output_format,omitempty"`
	CustomName       string `json:"custom_name,omitempty"`
	Tags             string `json:"tags,omitempty"`
	Description      string `json:"description,omitempty"`
	ForceRecognition bool   `json:"force_recognition,omitempty"`
}

// Pipeline runs ingestion requests. Callers serialise calls.
type Pipeline struct {
	cfg     Config
	extract Extractor
	convert Converter
	catalog Catalog
	logger  *slog.Logger
}

// New checks cfg and creates the storage directory.
func New(cfg Config, ex Extractor, conv Converter, cat Catalog) (*Pipeline, error) {
	if cfg.StorageDir == "" {
		return nil, errors.New("ingest: storage_dir is required")
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 * 1024 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		return nil, fmt.Errorf("ingest: storage dir: %w", err)
	}
	return &Pipeline{cfg: cfg, extract: ex, convert: conv, catalog: cat, logger: cfg.Logger}, nil
}

// Process ingests one file:
//  1. validate the source and the output format
//  2. classify the source
//  3. copy it into storage under a unique display name
//  4. extract text from the stored copy
//  5. write the text artifact and the converted output (readable files only)
//  6. insert the catalog row
//
// Unsupported extensions fail before anything is written. Extraction
// failures other than unsupported formats produce a "failed" document
// instead of an error. A conversion failure only clears the output fields.
func (p *Pipeline) Process(ctx context.Context, req Request) (*store.Document, error) {
	format := strings.ToLower(strings.TrimSpace(req.OutputFormat))
	if format == "" {
		format = DefaultOutputFormat
	}
	if !convert.Supported(format) {
		return nil, fmt.Errorf("%w: %q", convert.ErrUnknownFormat, req.OutputFormat)
	}

	// Step 1: source checks.
	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidSource, req.Path)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrInvalidSource, req.Path, info.Size(), p.cfg.MaxFileSize)
	}
	if _, err := p.extract.Detect(req.Path); err != nil {
		return nil, err
	}
	ext := docpipe.Ext(req.Path)
	baseName := filepath.Base(req.Path)

	// Step 2: classification of the source as handed in.
	machineReadable := p.extract.Classify(req.Path) && !req.ForceRecognition

	// Step 3: stored copy.
	display, customName := displayName(baseName, req.CustomName)
	storedPath, err := horosafe.UniquePath(p.cfg.StorageDir, display, "."+ext)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	if err := copyFile(req.Path, storedPath); err != nil {
		return nil, fmt.Errorf("ingest: store original: %w", err)
	}
	written := []string{storedPath}
	cleanup := func() {
		for _, path := range written {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				p.logger.Warn("ingest: cleanup failed", "path", path, "error", err)
			}
		}
	}

	// Step 4: extraction.
	var (
		readable bool
		text     string
		method   = string(docpipe.MethodFailed)
	)
	res, err := p.extract.Extract(ctx, storedPath, req.ForceRecognition)
	switch {
	case errors.Is(err, docpipe.ErrUnsupportedFormat):
		cleanup()
		return nil, err
	case err != nil:
		p.logger.Warn("ingest: extraction failed", "path", req.Path, "error", err)
	default:
		readable, text, method = res.Succeeded, res.Text, string(res.Method)
	}
	if !readable {
		text = ""
	}

	doc := &store.Document{
		Name:              baseName,
		CustomName:        customName,
		Path:              storedPath,
		OriginalFormat:    ext,
		IsMachineReadable: machineReadable,
		Readable:          readable,
		ProcessingMethod:  method,
		FileSize:          info.Size(),
		WordCount:         len(strings.Fields(text)),
		Tags:              req.Tags,
		Description:       req.Description,
	}

	// Step 5: artifacts.
	if readable && text != "" {
		textPath, err := horosafe.UniquePath(p.cfg.StorageDir, display+"_extracted", ".txt")
		if err == nil {
			err = os.WriteFile(textPath, []byte(text), 0o644)
		}
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("ingest: write text: %w", err)
		}
		written = append(written, textPath)
		doc.ExtractedTextPath = textPath

		if out, err := p.convertText(ctx, text, display, format); err != nil {
			p.logger.Warn("ingest: conversion failed", "path", req.Path, "format", format, "error", err)
		} else {
			written = append(written, out)
			doc.OutputFormat = format
			doc.OutputPath = out
		}
	}

	// Step 6: catalog.
	if _, err := p.catalog.Insert(ctx, doc, text); err != nil {
		cleanup()
		return nil, err
	}
	p.logger.Info("ingest: document stored",
		"id", doc.ID, "name", doc.Name, "method", doc.ProcessingMethod,
		"readable", doc.Readable, "words", doc.WordCount)
	return doc, nil
}

func (p *Pipeline) convertText(ctx context.Context, text, display, format string) (string, error) {
	out, err := horosafe.UniquePath(p.cfg.StorageDir, display+"_converted", "."+format)
	if err != nil {
		return "", err
	}
	if err := p.convert.Convert(ctx, text, format, out); err != nil {
		return "", err
	}
	return out, nil
}

// displayName returns the name used for stored files and the custom name
// recorded on the document. Without a custom name the stem is used for
// files and the original base name becomes the custom name.
func displayName(baseName, custom string) (display, customName string) {
	stem := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if custom = strings.TrimSpace(custom); custom != "" {
		display = horosafe.SanitizeFilename(custom)
		customName = custom
	} else {
		display = horosafe.SanitizeFilename(stem)
		customName = baseName
	}
	if display == "" {
		display = horosafe.SanitizeFilename(stem)
	}
	if display == "" {
		display = "document"
	}
	return display, customName
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
