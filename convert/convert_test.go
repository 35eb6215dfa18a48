package convert

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
)

const sample = "Title line\n\n  Second <para> & more  \nThird *starred* line\n"

func convertTo(t *testing.T, c *Converter, format string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "out."+format)
	if err := c.Convert(context.Background(), sample, format, dst); err != nil {
		t.Fatalf("Convert(%s): %v", format, err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestConvert_Text(t *testing.T) {
	if got := convertTo(t, New(Config{}), "txt"); got != sample {
		t.Fatalf("txt = %q, want verbatim", got)
	}
}

func TestConvert_HTML(t *testing.T) {
	got := convertTo(t, New(Config{}), "html")
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<p>Title line</p>",
		"<p>Second &lt;para&gt; &amp; more</p>",
		"<p>Third *starred* line</p>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("html missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "<p>") != 3 {
		t.Errorf("want 3 paragraphs, got %d", strings.Count(got, "<p>"))
	}
}

func TestConvert_Markdown(t *testing.T) {
	got := convertTo(t, New(Config{}), "md")
	if !strings.HasPrefix(got, "Title line\n\n") {
		t.Errorf("md = %q", got)
	}
	for _, want := range []string{"para", "starred", "\n\nThird"} {
		if !strings.Contains(got, want) {
			t.Errorf("md missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "<p>") {
		t.Errorf("md still contains html: %q", got)
	}
}

func TestConvert_JSON(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := convertTo(t, New(Config{Now: func() time.Time { return at }}), "json")

	var doc struct {
		Content     string   `json:"content"`
		Paragraphs  []string `json:"paragraphs"`
		ConvertedAt string   `json:"converted_at"`
		WordCount   int      `json:"word_count"`
	}
	if err := json.Unmarshal([]byte(got), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Content != sample {
		t.Errorf("content = %q", doc.Content)
	}
	if len(doc.Paragraphs) != 3 || doc.Paragraphs[1] != "Second <para> & more" {
		t.Errorf("paragraphs = %q", doc.Paragraphs)
	}
	if doc.WordCount != 9 {
		t.Errorf("word_count = %d, want 9", doc.WordCount)
	}
	if doc.ConvertedAt != "2026-03-01T12:00:00Z" {
		t.Errorf("converted_at = %q", doc.ConvertedAt)
	}
}

func TestConvert_Docx(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.docx")
	if err := New(Config{}).Convert(context.Background(), sample, "docx", dst); err != nil {
		t.Fatal(err)
	}
	r, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var doc string
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		doc = string(data)
	}
	if doc == "" {
		t.Fatal("word/document.xml missing")
	}
	if strings.Count(doc, "<w:p>") != 3 {
		t.Errorf("want 3 paragraphs in %s", doc)
	}
	if !strings.Contains(doc, "Second &lt;para&gt; &amp; more") {
		t.Errorf("paragraph text not escaped: %s", doc)
	}
}

func TestConvert_UnknownFormat(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.epub")
	err := New(Config{}).Convert(context.Background(), "x", "epub", dst)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if _, statErr := os.Stat(dst); !os.IsNotExist(statErr) {
		t.Fatal("no file may be written for an unknown format")
	}
}

func TestConvert_PDF(t *testing.T) {
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no chrome available")
	}
	got := convertTo(t, New(Config{}), "pdf")
	if !strings.HasPrefix(got, "%PDF") {
		t.Fatalf("not a pdf: %q", got[:min(len(got), 16)])
	}
}

func TestConvert_PDFWithoutBrowser(t *testing.T) {
	// WHAT: a missing browser binary fails pdf conversion promptly.
	// WHY: ingestion degrades the output fields on conversion errors and
	// must not block waiting on a browser that never started.
	dir := t.TempDir()
	c := New(Config{BrowserBin: filepath.Join(dir, "no-such-chrome")})
	dst := filepath.Join(dir, "o.pdf")
	done := make(chan error, 1)
	go func() { done <- c.Convert(context.Background(), "x", "pdf", dst) }()
	select {
	case err := <-done:
		if !errors.Is(err, ErrNoBrowser) {
			t.Fatalf("err = %v, want ErrNoBrowser", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("pdf conversion did not return")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatal("no file may be written when conversion fails")
	}
}

func TestConvert_PDFBrowserFailsToStart(t *testing.T) {
	// WHAT: a browser binary that exits at once fails without hanging.
	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-chrome")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := New(Config{BrowserBin: bin, PDFTimeout: 5 * time.Second})
	done := make(chan error, 1)
	go func() { done <- c.Convert(context.Background(), "x", "pdf", filepath.Join(dir, "o.pdf")) }()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error from a browser that cannot start")
		}
	case <-time.After(30 * time.Second):
		t.Fatal("pdf conversion did not return")
	}
}

func TestFormats(t *testing.T) {
	if len(Formats()) != 6 {
		t.Fatalf("got %d formats", len(Formats()))
	}
	for _, f := range []string{"txt", "docx", "pdf", "html", "md", "json"} {
		if !Supported(f) {
			t.Errorf("%s not supported", f)
		}
	}
	if Supported("epub") {
		t.Error("epub reported supported")
	}
}
