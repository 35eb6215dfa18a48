// CLAUDE:SUMMARY Configuration, default format registry and provider wiring for the docpipe classifier and router.
package docpipe

import (
	"log/slog"
	"maps"
	"slices"
)

// Config configures a Pipeline. Zero values take the documented defaults.
type Config struct {
	// Formats maps lower-case extensions (no dot) to a family.
	// Default: DefaultFormats().
	Formats map[string]Family `yaml:"-"`

	// MaxFileSize caps files read into memory (default: 100 MB).
	MaxFileSize int64 `yaml:"max_file_size"`

	// Recognizer performs OCR on single images (default: tesseract binary).
	Recognizer Recognizer `yaml:"-"`

	// Rasterizer renders PDF pages to images for OCR (default: pdftoppm).
	Rasterizer Rasterizer `yaml:"-"`

	// LegacyWord reads .doc files (default: antiword binary).
	LegacyWord LegacyWordReader `yaml:"-"`

	// ProbePDF reports whether the first page of a PDF carries text.
	// Default: pdfcpu content-stream probe.
	ProbePDF func(path string) (bool, error) `yaml:"-"`

	// OCRWorkers bounds concurrent page recognition (default: 2).
	OCRWorkers int `yaml:"ocr_workers"`

	// DPI used when rasterising PDF pages (default: 300).
	DPI int `yaml:"dpi"`

	// WorkDir holds per-call scratch directories (default: os.TempDir()).
	WorkDir string `yaml:"work_dir"`

	// Logger for debug and warning messages.
	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Formats == nil {
		c.Formats = DefaultFormats()
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = 100 * 1024 * 1024
	}
	if c.OCRWorkers <= 0 {
		c.OCRWorkers = 2
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Recognizer == nil {
		c.Recognizer = &TesseractRecognizer{}
	}
	if c.Rasterizer == nil {
		c.Rasterizer = &PopplerRasterizer{DPI: c.DPI}
	}
	if c.LegacyWord == nil {
		c.LegacyWord = &AntiwordReader{}
	}
	if c.ProbePDF == nil {
		c.ProbePDF = probePDFFirstPage
	}
}

// DefaultFormats returns a fresh copy of the built-in extension registry.
func DefaultFormats() map[string]Family {
	return map[string]Family{
		"txt":  FamilyPlainText,
		"csv":  FamilyPlainText,
		"json": FamilyPlainText,
		"xml":  FamilyPlainText,
		"md":   FamilyPlainText,
		"pdf":  FamilyPDF,
		"docx": FamilyWord,
		"doc":  FamilyLegacyWord,
		"rtf":  FamilyRTF,
		"odt":  FamilyODT,
		"html": FamilyHTML,
		"htm":  FamilyHTML,
		"jpg":  FamilyImage,
		"jpeg": FamilyImage,
		"png":  FamilyImage,
		"tiff": FamilyImage,
		"tif":  FamilyImage,
		"bmp":  FamilyImage,
		"gif":  FamilyImage,
		"webp": FamilyImage,
	}
}

var formatLabels = map[string]string{
	"txt":  "Text Files",
	"csv":  "CSV Files",
	"json": "JSON Files",
	"xml":  "XML Files",
	"md":   "Markdown Files",
	"pdf":  "PDF Files",
	"docx": "Word Documents",
	"doc":  "Legacy Word Documents",
	"rtf":  "Rich Text Format",
	"odt":  "OpenDocument Text",
	"html": "HTML Files",
	"htm":  "HTML Files",
	"jpg":  "JPEG Images",
	"jpeg": "JPEG Images",
	"png":  "PNG Images",
	"tiff": "TIFF Images",
	"tif":  "TIFF Images",
	"bmp":  "Bitmap Images",
	"gif":  "GIF Images",
	"webp": "WebP Images",
}

// FormatLabel returns a human readable label for ext, or ext itself.
func FormatLabel(ext string) string {
	if l, ok := formatLabels[ext]; ok {
		return l
	}
	return ext
}

// FormatInfo describes one registered extension.
type FormatInfo struct {
	Extension string `json:"extension"`
	Family    string `json:"family"`
	Label     string `json:"label"`
}

// SupportedFormats lists the pipeline's registry sorted by extension.
func (p *Pipeline) SupportedFormats() []FormatInfo {
	exts := slices.Sorted(maps.Keys(p.cfg.Formats))
	out := make([]FormatInfo, 0, len(exts))
	for _, ext := range exts {
		out = append(out, FormatInfo{Extension: ext, Family: p.cfg.Formats[ext].String(), Label: FormatLabel(ext)})
	}
	return out
}
