package convert

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type jsonArtifact struct {
	Content     string   `json:"content"`
	Paragraphs  []string `json:"paragraphs"`
	ConvertedAt string   `json:"converted_at"`
	WordCount   int      `json:"word_count"`
}

func renderJSON(text string, now time.Time) ([]byte, error) {
	paras := paragraphs(text)
	if paras == nil {
		paras = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	err := enc.Encode(jsonArtifact{
		Content:     text,
		Paragraphs:  paras,
		ConvertedAt: now.UTC().Format(time.RFC3339Nano),
		WordCount:   len(strings.Fields(text)),
	})
	return buf.Bytes(), err
}
