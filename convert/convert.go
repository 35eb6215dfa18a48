// CLAUDE:SUMMARY Writes extracted text as txt, md, html, json, docx or pdf artifacts.
// Package convert renders extracted document text into output artifacts.
//
// Every format splits the text on newlines and treats each non-blank line
// as a paragraph, except txt which is written verbatim.
//
//	txt   verbatim UTF-8
//	md    paragraphs via html-to-markdown (escapes markdown syntax in the text)
//	html  standalone page, one <p> per paragraph
//	json  {content, paragraphs, converted_at, word_count}
//	docx  minimal WordprocessingML package
//	pdf   the html page printed by headless Chrome (go-rod)
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// ErrUnknownFormat is returned for output formats outside Formats().
var ErrUnknownFormat = errors.New("convert: unknown output format")

// FormatInfo describes one output format.
type FormatInfo struct {
	Format string `json:"format"`
	Label  string `json:"label"`
}

var formats = []FormatInfo{
	{"txt", "Plain Text (.txt)"},
	{"docx", "Word Document (.docx)"},
	{"pdf", "PDF Document (.pdf)"},
	{"html", "HTML (.html)"},
	{"md", "Markdown (.md)"},
	{"json", "JSON (.json)"},
}

// Formats lists the supported output formats.
func Formats() []FormatInfo { return slices.Clone(formats) }

// Supported reports whether format is an output format.
func Supported(format string) bool {
	return slices.ContainsFunc(formats, func(f FormatInfo) bool { return f.Format == format })
}

// Config configures a Converter.
type Config struct {
	// BrowserBin is the Chrome/Chromium binary used for pdf output.
	// Empty looks the browser up on the system.
	BrowserBin string `yaml:"browser_bin"`

	// PDFTimeout bounds one pdf rendering (default: 60s).
	PDFTimeout time.Duration `yaml:"pdf_timeout"`

	// Now stamps json output (default: time.Now).
	Now func() time.Time `yaml:"-"`

	Logger *slog.Logger `yaml:"-"`
}

// Converter writes output artifacts. The zero value is not usable; call New.
type Converter struct {
	cfg Config
}

// New returns a Converter with defaults applied.
func New(cfg Config) *Converter {
	if cfg.PDFTimeout <= 0 {
		cfg.PDFTimeout = 60 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Converter{cfg: cfg}
}

// Convert writes text in format to dst. A partially written dst is removed.
func (c *Converter) Convert(ctx context.Context, text, format, dst string) error {
	var data []byte
	var err error
	switch format {
	case "txt":
		data = []byte(text)
	case "md":
		data, err = renderMarkdown(text)
	case "html":
		data = []byte(renderHTML(text))
	case "json":
		data, err = renderJSON(text, c.cfg.Now())
	case "docx":
		data, err = renderDocx(text)
	case "pdf":
		data, err = c.renderPDF(ctx, text)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return fmt.Errorf("convert %s: %w", format, err)
	}
	if err := writeFile(dst, data); err != nil {
		return fmt.Errorf("convert %s: %w", format, err)
	}
	c.cfg.Logger.Debug("convert: wrote artifact", "format", format, "path", dst, "bytes", len(data))
	return nil
}

// paragraphs returns the trimmed non-blank lines of text.
func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}
