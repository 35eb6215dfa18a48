// CLAUDE:SUMMARY Classifier and extraction router: resolves a file to a format family and dispatches to direct or OCR extraction.
// Package docpipe decides whether a document's text can be read directly
// and extracts it, either through a per-family direct strategy or through
// optical recognition.
//
// Families and their direct strategies:
//   - plain text (txt, csv, json, xml, md): UTF-8 read, invalid bytes dropped
//   - pdf: pdfcpu page content streams; scanned PDFs go to OCR
//   - word (docx): word/document.xml runs
//   - legacy word (doc): antiword
//   - rtf: control-word stripper
//   - odt: content.xml headings and paragraphs
//   - html: visible text via golang.org/x/net/html
//   - image: OCR only
//
// Usage:
//
//	pipe, err := docpipe.New(docpipe.Config{})
//	if err != nil { ... }
//	defer pipe.Close()
//	res, err := pipe.Extract(ctx, "/path/to/scan.pdf", false)
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/panjf2000/ants/v2"
)

// strategy binds a family to its extraction paths. A nil recognize means
// the family cannot be routed to OCR.
type strategy struct {
	capability string
	direct     func(ctx context.Context, p *Pipeline, path string) (string, Method, error)
	recognize  func(ctx context.Context, p *Pipeline, path string) (string, error)
}

var strategies = map[Family]strategy{
	FamilyPlainText:  {capability: "text", direct: readPlainText},
	FamilyPDF:        {capability: "pdf", direct: extractPDFDirect, recognize: recognizePDF},
	FamilyWord:       {capability: "docx", direct: extractDocx},
	FamilyLegacyWord: {capability: "antiword", direct: extractLegacyWord},
	FamilyRTF:        {capability: "rtf", direct: extractRTF},
	FamilyODT:        {capability: "odt", direct: extractODT},
	FamilyHTML:       {capability: "html", direct: extractHTML},
	FamilyImage:      {capability: "ocr", recognize: recognizeImage},
}

// Pipeline classifies and extracts documents. It is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	pool   *ants.Pool
}

// New validates cfg and builds a Pipeline. Every family referenced by the
// format registry must have a strategy.
func New(cfg Config) (*Pipeline, error) {
	cfg.defaults()
	for ext, fam := range cfg.Formats {
		st, ok := strategies[fam]
		if !ok || (st.direct == nil && st.recognize == nil) {
			return nil, fmt.Errorf("docpipe: extension %q maps to %s which has no strategy", ext, fam)
		}
		if ext == "" || strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
			return nil, fmt.Errorf("docpipe: registry key %q must be a lower-case extension without dot", ext)
		}
	}
	pool, err := ants.NewPool(cfg.OCRWorkers)
	if err != nil {
		return nil, fmt.Errorf("docpipe: ocr pool: %w", err)
	}
	return &Pipeline{cfg: cfg, logger: cfg.Logger, pool: pool}, nil
}

// Close releases the OCR worker pool.
func (p *Pipeline) Close() {
	p.pool.Release()
}

// Ext returns the lower-case extension of path without the dot.
func Ext(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Detect resolves path to its family. Unknown extensions wrap ErrUnsupportedFormat.
func (p *Pipeline) Detect(path string) (Family, error) {
	ext := Ext(path)
	fam, ok := p.cfg.Formats[ext]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return fam, nil
}

// Classify reports whether path can be read without recognition. It never
// fails: images, unknown extensions and PDFs whose first page yields no
// text (or cannot be probed) are all false.
func (p *Pipeline) Classify(path string) bool {
	fam, err := p.Detect(path)
	if err != nil {
		return false
	}
	switch fam {
	case FamilyImage:
		return false
	case FamilyPDF:
		return p.probe(path)
	}
	return true
}

func (p *Pipeline) probe(path string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Debug("docpipe: pdf probe panicked", "path", path, "panic", r)
			ok = false
		}
	}()
	ok, err := p.cfg.ProbePDF(path)
	if err != nil {
		p.logger.Debug("docpipe: pdf probe failed", "path", path, "error", err)
		return false
	}
	return ok
}

// Extract routes path to recognition (when force is set or the file is not
// machine readable) or to the family's direct strategy.
//
// Unknown extensions and recognition requests for families without a
// recognition path return errors wrapping ErrUnsupportedFormat. Provider
// failures return a *CapabilityError. An extraction that yields only
// whitespace is not an error: Succeeded is false.
func (p *Pipeline) Extract(ctx context.Context, path string, force bool) (*Result, error) {
	fam, err := p.Detect(path)
	if err != nil {
		return nil, err
	}
	st := strategies[fam]

	if force || !p.Classify(path) {
		if st.recognize == nil {
			return nil, fmt.Errorf("%w: %s (%s)", ErrNotRecognizable, filepath.Base(path), fam)
		}
		if err := p.checkSize(path); err != nil {
			return nil, capabilityErr(st.capability, path, err)
		}
		p.logger.Debug("docpipe: recognizing", "path", path, "family", fam, "forced", force)
		text, err := st.recognize(ctx, p, path)
		if err != nil {
			return nil, capabilityErr(st.capability, path, err)
		}
		return newResult(text, MethodOCR), nil
	}

	if err := p.checkSize(path); err != nil {
		return nil, capabilityErr(st.capability, path, err)
	}
	p.logger.Debug("docpipe: extracting", "path", path, "family", fam)
	text, method, err := st.direct(ctx, p, path)
	if err != nil {
		return nil, capabilityErr(st.capability, path, err)
	}
	return newResult(text, method), nil
}

func newResult(text string, method Method) *Result {
	text = strings.TrimSpace(text)
	return &Result{Succeeded: text != "", Text: text, Method: method}
}

var errTooLarge = errors.New("file exceeds size limit")

func (p *Pipeline) checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return fmt.Errorf("%w: %d bytes (max %d)", errTooLarge, info.Size(), p.cfg.MaxFileSize)
	}
	return nil
}
