package docpipe

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// LegacyWordReader reads binary .doc files.
type LegacyWordReader interface {
	ReadLegacyWord(ctx context.Context, path string) (string, error)
}

// AntiwordReader shells out to antiword.
type AntiwordReader struct {
	Binary  string        // default "antiword"
	Timeout time.Duration // default 2m
}

func (a *AntiwordReader) ReadLegacyWord(ctx context.Context, path string) (string, error) {
	bin := a.Binary
	if bin == "" {
		bin = "antiword"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", bin, err)
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-w", "0", path)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("antiword failed: %w; stderr=%s", err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}

func extractLegacyWord(ctx context.Context, p *Pipeline, path string) (string, Method, error) {
	text, err := p.cfg.LegacyWord.ReadLegacyWord(ctx, path)
	if err != nil {
		return "", "", err
	}
	return text, MethodDirectExtraction, nil
}
