// Package idgen generates identifiers for docshelf's transient resources:
// OCR scratch directories and HTTP request ids. Catalog rows use
// SQLite autoincrement ids and never go through here.
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator of RFC 9562 version 7 UUIDs (time ordered).
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed prepends prefix to every id produced by gen ("ocr_", "req_").
func Prefixed(prefix string, gen Generator) Generator {
	return func() string { return prefix + gen() }
}
