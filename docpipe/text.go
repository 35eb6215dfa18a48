package docpipe

import (
	"context"
	"os"
	"strings"

	"github.com/hazyhaar/docshelf/horosafe"
)

// readPlainText reads text-like files verbatim. Invalid UTF-8 sequences
// are dropped rather than failing the read.
func readPlainText(_ context.Context, p *Pipeline, path string) (string, Method, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	data, err := horosafe.LimitedReadAll(f, p.cfg.MaxFileSize)
	if err != nil {
		return "", "", err
	}
	text := strings.ToValidUTF8(string(data), "")
	text = strings.TrimPrefix(text, "\ufeff")
	return text, MethodDirectRead, nil
}

// joinLines joins non-blank trimmed lines with a single newline.
func joinLines(lines []string) string {
	var sb strings.Builder
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l)
	}
	return sb.String()
}
