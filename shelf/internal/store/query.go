package store

import (
	"context"
	"fmt"
	"strings"
)

// Readability restricts queries by classification verdict.
type Readability string

const (
	ReadabilityAll     Readability = "all"
	MachineReadable    Readability = "machine_readable"
	NonMachineReadable Readability = "non_machine_readable"
)

// ParseReadability maps "" to ReadabilityAll and rejects unknown values.
func ParseReadability(s string) (Readability, error) {
	switch r := Readability(strings.ToLower(strings.TrimSpace(s))); r {
	case "", ReadabilityAll:
		return ReadabilityAll, nil
	case MachineReadable, NonMachineReadable:
		return r, nil
	default:
		return "", fmt.Errorf("store: unknown readability filter %q", s)
	}
}

func (r Readability) clause() string {
	switch r {
	case MachineReadable:
		return ` AND d.is_machine_readable = 1`
	case NonMachineReadable:
		return ` AND d.is_machine_readable = 0`
	}
	return ""
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern wraps q for a substring LIKE with wildcards escaped.
func likePattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

const like = ` LIKE ? ESCAPE '\'`

// MatchIndex runs a MATCH expression against documents_fts, best bm25
// score first.
func (s *Store) MatchIndex(ctx context.Context, expr string, f Readability) ([]*Document, error) {
	q := `SELECT ` + docColumns + `
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.doc_id
		` + docJoin + `
		WHERE documents_fts MATCH ?` + f.clause() + `
		ORDER BY bm25(documents_fts), d.id DESC`
	return s.queryDocuments(ctx, q, expr)
}

// MatchNameLike finds documents whose name or custom name contains q.
func (s *Store) MatchNameLike(ctx context.Context, q string, f Readability) ([]*Document, error) {
	p := likePattern(q)
	return s.likeQuery(ctx, `(d.name`+like+` OR d.custom_name`+like+`)`, f, p, p)
}

// MatchTagsLike finds documents whose tags contain q.
func (s *Store) MatchTagsLike(ctx context.Context, q string, f Readability) ([]*Document, error) {
	return s.likeQuery(ctx, `d.tags`+like, f, likePattern(q))
}

// MatchContentLike finds documents whose extracted text contains q.
func (s *Store) MatchContentLike(ctx context.Context, q string, f Readability) ([]*Document, error) {
	return s.likeQuery(ctx, `t.content`+like, f, likePattern(q))
}

// MatchAny unions a metadata substring match on q with membership in the
// ranked index for expr. Each document appears once, newest first.
func (s *Store) MatchAny(ctx context.Context, q, expr string, f Readability) ([]*Document, error) {
	p := likePattern(q)
	cond := `(d.name` + like + ` OR d.custom_name` + like + ` OR d.tags` + like + ` OR d.description` + like + `
		OR d.id IN (SELECT doc_id FROM documents_fts WHERE documents_fts MATCH ?))`
	return s.likeQuery(ctx, cond, f, p, p, p, p, expr)
}

// MatchAllLike is the substring match over every metadata field and the
// extracted text.
func (s *Store) MatchAllLike(ctx context.Context, q string, f Readability) ([]*Document, error) {
	p := likePattern(q)
	cond := `(d.name` + like + ` OR d.custom_name` + like + ` OR d.tags` + like +
		` OR d.description` + like + ` OR t.content` + like + `)`
	return s.likeQuery(ctx, cond, f, p, p, p, p, p)
}

func (s *Store) likeQuery(ctx context.Context, cond string, f Readability, args ...any) ([]*Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents d ` + docJoin +
		` WHERE ` + cond + f.clause() + ` ` + newestFirst
	return s.queryDocuments(ctx, q, args...)
}
