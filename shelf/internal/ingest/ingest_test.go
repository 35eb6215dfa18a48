package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docshelf/convert"
	"github.com/hazyhaar/docshelf/dbopen"
	"github.com/hazyhaar/docshelf/docpipe"
	"github.com/hazyhaar/docshelf/shelf/internal/search"
	"github.com/hazyhaar/docshelf/shelf/internal/store"
)

// cannedOCR returns the same text for every image.
type cannedOCR struct {
	text string
	err  error
}

func (c cannedOCR) RecognizeImage(context.Context, string) (string, error) { return c.text, c.err }

type failingConverter struct{}

func (failingConverter) Convert(context.Context, string, string, string) error {
	return errors.New("no renderer")
}

type failingCatalog struct{}

func (failingCatalog) Insert(context.Context, *store.Document, string) (int64, error) {
	return 0, errors.New("database is locked")
}

type fixture struct {
	pipe    *Pipeline
	store   *store.Store
	storage string
	src     string
}

func newFixture(t *testing.T, ocr docpipe.Recognizer, conv Converter, cat Catalog) *fixture {
	t.Helper()
	dp, err := docpipe.New(docpipe.Config{Recognizer: ocr})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(dp.Close)

	st := store.New(dbopen.OpenMemory(t), nil)
	if err := st.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if conv == nil {
		conv = convert.New(convert.Config{})
	}
	if cat == nil {
		cat = st
	}
	f := &fixture{store: st, storage: filepath.Join(t.TempDir(), "storage"), src: t.TempDir()}
	f.pipe, err = New(Config{StorageDir: f.storage}, dp, conv, cat)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func (f *fixture) file(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(f.src, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.store.DB.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

func storedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestProcess_PlainTextEndToEnd(t *testing.T) {
	// WHAT: a text file is stored, extracted, converted, catalogued and searchable.
	// WHY: this is the main write path every front end uses.
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()
	src := f.file(t, "notes.txt", "alpha beta gamma")

	doc, err := f.pipe.Process(ctx, Request{Path: src, OutputFormat: "txt", Tags: "greek"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.ID == 0 || !doc.Readable || !doc.IsMachineReadable {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.ProcessingMethod != string(docpipe.MethodDirectRead) || doc.WordCount != 3 {
		t.Fatalf("method %q words %d", doc.ProcessingMethod, doc.WordCount)
	}
	if doc.Name != "notes.txt" || doc.CustomName != "notes.txt" || doc.OriginalFormat != "txt" {
		t.Fatalf("names = %q %q %q", doc.Name, doc.CustomName, doc.OriginalFormat)
	}
	if doc.Path != filepath.Join(f.storage, "notes.txt") {
		t.Fatalf("stored path = %s", doc.Path)
	}
	if doc.ExtractedTextPath != filepath.Join(f.storage, "notes_extracted.txt") {
		t.Fatalf("text path = %s", doc.ExtractedTextPath)
	}
	if doc.OutputFormat != "txt" || doc.OutputPath != filepath.Join(f.storage, "notes_converted.txt") {
		t.Fatalf("output = %s %s", doc.OutputFormat, doc.OutputPath)
	}
	for _, p := range []string{doc.Path, doc.ExtractedTextPath, doc.OutputPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact missing: %v", err)
		}
	}
	if doc.FileSize != int64(len("alpha beta gamma")) {
		t.Errorf("file size = %d", doc.FileSize)
	}

	res, err := search.New(f.store, nil).Search(ctx, search.Request{Query: "beta", Scope: search.ScopeContent})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Documents) != 1 || res.Documents[0].ID != doc.ID {
		t.Fatalf("search returned %d documents", len(res.Documents))
	}
}

func TestProcess_UnsupportedExtension(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	src := f.file(t, "data.xyz", "whatever")

	_, err := f.pipe.Process(context.Background(), Request{Path: src})
	if !errors.Is(err, docpipe.ErrUnsupportedFormat) {
		t.Fatalf("err = %v", err)
	}
	if n := f.count(t); n != 0 {
		t.Fatalf("%d rows created", n)
	}
	if names := storedFiles(t, f.storage); len(names) != 0 {
		t.Fatalf("storage not empty: %v", names)
	}
}

func TestProcess_ImageWithoutText(t *testing.T) {
	// WHAT: a blank scan is catalogued as unreadable with no artifacts.
	// WHY: recognition that finds nothing is an outcome, not an error.
	f := newFixture(t, cannedOCR{text: "  \n "}, nil, nil)
	src := f.file(t, "blank.png", "\x89PNG fake")

	doc, err := f.pipe.Process(context.Background(), Request{Path: src, OutputFormat: "html"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Readable || doc.IsMachineReadable {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.ProcessingMethod != string(docpipe.MethodOCR) {
		t.Fatalf("method = %q", doc.ProcessingMethod)
	}
	if doc.OutputPath != "" || doc.OutputFormat != "" || doc.ExtractedTextPath != "" || doc.WordCount != 0 {
		t.Fatalf("unexpected artifacts: %+v", doc)
	}
	if names := storedFiles(t, f.storage); len(names) != 1 {
		t.Fatalf("storage = %v, want only the original", names)
	}
}

func TestProcess_RecognitionFailureDowngrades(t *testing.T) {
	f := newFixture(t, cannedOCR{err: errors.New("tesseract: not found")}, nil, nil)
	src := f.file(t, "scan.jpg", "jpeg bytes")

	doc, err := f.pipe.Process(context.Background(), Request{Path: src})
	if err != nil {
		t.Fatalf("capability error leaked: %v", err)
	}
	if doc.ProcessingMethod != string(docpipe.MethodFailed) || doc.Readable || doc.WordCount != 0 {
		t.Fatalf("doc = %+v", doc)
	}
	if f.count(t) != 1 {
		t.Fatal("failed document not catalogued")
	}
}

func TestProcess_ForcedRecognitionOnText(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	src := f.file(t, "plain.txt", "hello")

	_, err := f.pipe.Process(context.Background(), Request{Path: src, ForceRecognition: true})
	if !errors.Is(err, docpipe.ErrNotRecognizable) {
		t.Fatalf("err = %v", err)
	}
	if names := storedFiles(t, f.storage); len(names) != 0 {
		t.Fatalf("stored copy left behind: %v", names)
	}
	if f.count(t) != 0 {
		t.Fatal("row created")
	}
}

func TestProcess_ForcedRecognitionOnImage(t *testing.T) {
	f := newFixture(t, cannedOCR{text: "scanned words here"}, nil, nil)
	src := f.file(t, "page.tif", "tiff bytes")

	doc, err := f.pipe.Process(context.Background(), Request{Path: src, ForceRecognition: true, OutputFormat: "json"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.IsMachineReadable || !doc.Readable || doc.WordCount != 3 || doc.OutputFormat != "json" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestProcess_UniqueNames(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx := context.Background()
	src := f.file(t, "notes.txt", "one two")

	first, err := f.pipe.Process(ctx, Request{Path: src})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.pipe.Process(ctx, Request{Path: src})
	if err != nil {
		t.Fatal(err)
	}
	if first.Path == second.Path {
		t.Fatal("second ingestion overwrote the first copy")
	}
	if want := filepath.Join(f.storage, "notes_1.txt"); second.Path != want {
		t.Errorf("second path = %s, want %s", second.Path, want)
	}
	if want := filepath.Join(f.storage, "notes_extracted_1.txt"); second.ExtractedTextPath != want {
		t.Errorf("second text path = %s, want %s", second.ExtractedTextPath, want)
	}
}

func TestProcess_CustomNameSanitised(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	src := f.file(t, "raw.txt", "content")

	doc, err := f.pipe.Process(context.Background(), Request{Path: src, CustomName: "Q3: plan?"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.CustomName != "Q3: plan?" {
		t.Errorf("custom name = %q", doc.CustomName)
	}
	if want := filepath.Join(f.storage, "Q3_ plan_.txt"); doc.Path != want {
		t.Errorf("stored path = %s, want %s", doc.Path, want)
	}
}

func TestProcess_ConversionFailureKeepsDocument(t *testing.T) {
	f := newFixture(t, nil, failingConverter{}, nil)
	src := f.file(t, "a.txt", "some text")

	doc, err := f.pipe.Process(context.Background(), Request{Path: src, OutputFormat: "pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.OutputPath != "" || doc.OutputFormat != "" {
		t.Fatalf("output = %q %q", doc.OutputFormat, doc.OutputPath)
	}
	if !doc.Readable || doc.ExtractedTextPath == "" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestProcess_InsertFailureCleansUp(t *testing.T) {
	f := newFixture(t, nil, nil, failingCatalog{})
	src := f.file(t, "a.txt", "some text")

	if _, err := f.pipe.Process(context.Background(), Request{Path: src, OutputFormat: "md"}); err == nil {
		t.Fatal("expected insert error")
	}
	if names := storedFiles(t, f.storage); len(names) != 0 {
		t.Fatalf("files left behind: %v", names)
	}
}

func TestProcess_BadRequests(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	src := f.file(t, "a.txt", "text")

	if _, err := f.pipe.Process(context.Background(), Request{Path: src, OutputFormat: "odt"}); !errors.Is(err, convert.ErrUnknownFormat) {
		t.Errorf("unknown output format: err = %v", err)
	}
	if _, err := f.pipe.Process(context.Background(), Request{Path: filepath.Join(f.src, "missing.txt")}); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("missing source: err = %v", err)
	}
	if _, err := f.pipe.Process(context.Background(), Request{Path: f.src}); !errors.Is(err, ErrInvalidSource) {
		t.Errorf("directory source: err = %v", err)
	}
	if f.count(t) != 0 {
		t.Fatal("rows created for rejected requests")
	}
}

func TestProcessBatch(t *testing.T) {
	// WHAT: one bad file is reported without stopping the batch.
	// WHY: batch ingestion reports per-file outcomes.
	f := newFixture(t, nil, nil, nil)
	reqs := []Request{
		{Path: f.file(t, "a.txt", "first file")},
		{Path: f.file(t, "b.xyz", "unsupported")},
		{Path: f.file(t, "c.md", "# third file")},
	}

	out := f.pipe.ProcessBatch(context.Background(), reqs)
	if len(out) != 3 {
		t.Fatalf("outcomes = %d", len(out))
	}
	if out[0].Err != nil || out[0].Document == nil {
		t.Errorf("a.txt: %+v", out[0])
	}
	if !errors.Is(out[1].Err, docpipe.ErrUnsupportedFormat) || out[1].Error == "" {
		t.Errorf("b.xyz: %+v", out[1])
	}
	if out[2].Err != nil || out[2].Document == nil {
		t.Errorf("c.md: %+v", out[2])
	}
	if f.count(t) != 2 {
		t.Fatalf("rows = %d, want 2", f.count(t))
	}
}

func TestProcessBatch_Cancelled(t *testing.T) {
	f := newFixture(t, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.pipe.ProcessBatch(ctx, []Request{{Path: f.file(t, "a.txt", "x")}})
	if !errors.Is(out[0].Err, context.Canceled) {
		t.Fatalf("err = %v", out[0].Err)
	}
	if f.count(t) != 0 {
		t.Fatal("cancelled batch wrote rows")
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		base, custom      string
		display, recorded string
	}{
		{"report.pdf", "", "report", "report.pdf"},
		{"report.pdf", "Final/Draft", "Final_Draft", "Final/Draft"},
		{"report.pdf", " ... ", "report", "..."},
		{"report.pdf", "..", "report", ".."},
		{".pdf", "", "document", ".pdf"},
	}
	for _, tt := range tests {
		d, c := displayName(tt.base, tt.custom)
		if d != tt.display || c != tt.recorded {
			t.Errorf("displayName(%q, %q) = %q, %q; want %q, %q", tt.base, tt.custom, d, c, tt.display, tt.recorded)
		}
	}
}
