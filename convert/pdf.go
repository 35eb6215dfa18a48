package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNoBrowser is returned for pdf output when no Chrome binary is available.
var ErrNoBrowser = errors.New("convert: no chrome/chromium binary for pdf output")

// renderPDF prints the html rendering of text with a short-lived headless
// browser.
func (c *Converter) renderPDF(ctx context.Context, text string) ([]byte, error) {
	bin := c.cfg.BrowserBin
	if bin == "" {
		found, ok := launcher.LookPath()
		if !ok {
			return nil, ErrNoBrowser
		}
		bin = found
	} else if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBrowser, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PDFTimeout)
	defer cancel()

	l := launcher.New().Bin(bin).Headless(true).Context(ctx)
	wsURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	// Cleanup waits for the process to exit, so it is only safe once
	// Launch has started one.
	defer l.Cleanup()
	defer l.Kill()

	browser := rod.New().ControlURL(wsURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := page.SetDocumentContent(renderHTML(text)); err != nil {
		return nil, fmt.Errorf("set content: %w", err)
	}
	stream, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
	if err != nil {
		return nil, fmt.Errorf("print to pdf: %w", err)
	}
	return io.ReadAll(stream)
}
