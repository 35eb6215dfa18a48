// CLAUDE:SUMMARY OCR path: image recognition and per-page PDF recognition on a bounded ants pool with page-indexed error placeholders.
package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/docshelf/idgen"
)

// Recognizer derives text from a single image file.
type Recognizer interface {
	RecognizeImage(ctx context.Context, imagePath string) (string, error)
}

// Rasterizer renders every page of a PDF into outDir and returns the image
// paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error)
}

// TesseractRecognizer shells out to the tesseract binary.
type TesseractRecognizer struct {
	Binary   string        // default "tesseract"
	Language string        // e.g. "eng+fra"; empty uses tesseract's default
	Timeout  time.Duration // per image, default 5m
}

func (t *TesseractRecognizer) RecognizeImage(ctx context.Context, imagePath string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", bin, err)
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{imagePath, "stdout"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract failed: %w; stderr=%s", err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

// PopplerRasterizer renders pages with pdftoppm.
type PopplerRasterizer struct {
	Binary  string        // default "pdftoppm"
	DPI     int           // default 300
	Timeout time.Duration // whole document, default 10m
}

var pageImageRe = regexp.MustCompile(`^page-(\d+)\.png$`)

func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdfPath, outDir string) ([]string, error) {
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", bin, err)
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 300
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, "-r", strconv.Itoa(dpi), "-png", pdfPath, filepath.Join(outDir, "page"))
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w; out=%s", err, strings.TrimSpace(string(out)))
	}
	return pageImages(outDir)
}

// pageImages lists page-N.png files in numeric page order. pdftoppm pads N
// to the width of the page count, so lexical order is not enough.
func pageImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type page struct {
		nr   int
		path string
	}
	var pages []page
	for _, e := range entries {
		m := pageImageRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		nr, _ := strconv.Atoi(m[1])
		pages = append(pages, page{nr, filepath.Join(dir, e.Name())})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no page images rendered in %s", dir)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].nr < pages[j].nr })
	out := make([]string, len(pages))
	for i, pg := range pages {
		out[i] = pg.path
	}
	return out, nil
}

var scratchID = idgen.Prefixed("ocr_", idgen.UUIDv7())

func recognizeImage(ctx context.Context, p *Pipeline, path string) (string, error) {
	return p.cfg.Recognizer.RecognizeImage(ctx, path)
}

// recognizePDF rasterises path into a scratch directory and recognises the
// pages on the worker pool. A failing page is replaced by a placeholder
// naming its zero-based index; the output keeps page order.
func recognizePDF(ctx context.Context, p *Pipeline, path string) (string, error) {
	base := p.cfg.WorkDir
	if base == "" {
		base = os.TempDir()
	}
	workDir := filepath.Join(base, scratchID())
	if err := os.MkdirAll(workDir, 0o700); err != nil {
		return "", fmt.Errorf("ocr scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	images, err := p.cfg.Rasterizer.Rasterize(ctx, path, workDir)
	if err != nil {
		return "", err
	}
	texts, err := p.recognizePages(ctx, images)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

func (p *Pipeline) recognizePages(ctx context.Context, images []string) ([]string, error) {
	texts := make([]string, len(images))
	var wg sync.WaitGroup
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			texts[i] = p.recognizePage(ctx, i, img)
		})
		if err != nil {
			wg.Done()
			texts[i] = pagePlaceholder(i, err)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

func (p *Pipeline) recognizePage(ctx context.Context, i int, img string) string {
	text, err := p.cfg.Recognizer.RecognizeImage(ctx, img)
	if err != nil {
		p.logger.Warn("docpipe: page recognition failed", "page", i, "image", img, "error", err)
		return pagePlaceholder(i, err)
	}
	return text
}

func pagePlaceholder(i int, err error) string {
	return fmt.Sprintf("[ERROR extracting page %d: %v]", i, err)
}
