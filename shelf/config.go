// CLAUDE:SUMMARY docshelf configuration: catalog and storage paths, extraction providers, conversion, HTTP; YAML loader and validation.
package shelf

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docshelf/convert"
)

// Config holds the full docshelf configuration.
type Config struct {
	DBPath              string `yaml:"db_path"`
	StorageDir          string `yaml:"storage_dir"`
	MaxFileMB           int    `yaml:"max_file_mb"`
	DefaultOutputFormat string `yaml:"default_output_format"`

	Extraction ExtractionConfig `yaml:"extraction"`
	Conversion ConversionConfig `yaml:"conversion"`
	HTTP       HTTPConfig       `yaml:"http"`
}

// ExtractionConfig selects and tunes the capability providers.
type ExtractionConfig struct {
	// Recognizer is "tesseract" (local binary) or "vision" (Cloud Vision).
	Recognizer    string        `yaml:"recognizer"`
	TesseractBin  string        `yaml:"tesseract_bin"`
	TesseractLang string        `yaml:"tesseract_lang"`
	PdftoppmBin   string        `yaml:"pdftoppm_bin"`
	AntiwordBin   string        `yaml:"antiword_bin"`
	OCRWorkers    int           `yaml:"ocr_workers"`
	DPI           int           `yaml:"dpi"`
	WorkDir       string        `yaml:"work_dir"`
	OCRTimeout    time.Duration `yaml:"ocr_timeout"`
}

// ConversionConfig tunes output conversion.
type ConversionConfig struct {
	BrowserBin string        `yaml:"browser_bin"`
	PDFTimeout time.Duration `yaml:"pdf_timeout"`
}

// HTTPConfig configures `docshelf serve`. Basic auth is enabled when
// Username is set; PasswordHash is a bcrypt hash. A listener outside
// loopback requires basic auth.
type HTTPConfig struct {
	Listen       string `yaml:"listen"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`

	// IngestRoot confines the source paths accepted by POST /api/documents.
	// Empty accepts any path readable by the server.
	IngestRoot string `yaml:"ingest_root"`
}

const (
	RecognizerTesseract = "tesseract"
	RecognizerVision    = "vision"
)

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

func (c *Config) defaults() {
	if c.DBPath == "" {
		c.DBPath = "db/documents.db"
	}
	if c.StorageDir == "" {
		c.StorageDir = "storage"
	}
	if c.MaxFileMB <= 0 {
		c.MaxFileMB = 100
	}
	if c.DefaultOutputFormat == "" {
		c.DefaultOutputFormat = "txt"
	}
	if c.Extraction.Recognizer == "" {
		c.Extraction.Recognizer = RecognizerTesseract
	}
	if c.Extraction.OCRWorkers <= 0 {
		c.Extraction.OCRWorkers = 2
	}
	if c.Extraction.DPI <= 0 {
		c.Extraction.DPI = 300
	}
	if c.Conversion.PDFTimeout <= 0 {
		c.Conversion.PDFTimeout = 60 * time.Second
	}
	if c.HTTP.Listen == "" {
		c.HTTP.Listen = "127.0.0.1:8080"
	}
}

// LoadConfigFile reads a YAML file over the defaults and validates it.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.StorageDir == "" {
		return errors.New("storage_dir is required")
	}
	if c.MaxFileMB <= 0 {
		return errors.New("max_file_mb must be > 0")
	}
	if !convert.Supported(c.DefaultOutputFormat) {
		return fmt.Errorf("default_output_format: %w: %q", convert.ErrUnknownFormat, c.DefaultOutputFormat)
	}
	switch c.Extraction.Recognizer {
	case RecognizerTesseract, RecognizerVision:
	default:
		return fmt.Errorf("extraction.recognizer: unsupported %q (use tesseract or vision)", c.Extraction.Recognizer)
	}
	if (c.HTTP.Username == "") != (c.HTTP.PasswordHash == "") {
		return errors.New("http: username and password_hash must be set together")
	}
	if c.HTTP.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.HTTP.PasswordHash)); err != nil {
			return fmt.Errorf("http.password_hash: %w", err)
		}
	}
	return c.HTTP.CheckListen(c.HTTP.Listen)
}

// ErrUnauthenticatedListener rejects a non-loopback listener without basic auth.
var ErrUnauthenticatedListener = errors.New("http: listening beyond loopback requires username and password_hash")

// CheckListen validates addr as a listen address for this configuration.
func (h HTTPConfig) CheckListen(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("http.listen %q: %w", addr, err)
	}
	if h.Username != "" || isLoopback(host) {
		return nil
	}
	return fmt.Errorf("%w (listen %q)", ErrUnauthenticatedListener, addr)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// MaxFileBytes returns the size cap in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
