// CLAUDE:SUMMARY Tiered document search: ranked FTS5 match, OR-of-prefixes retry, then substring fallback, per scope.
// Package search runs queries against the catalog. Content and "all"
// searches degrade tier by tier: a ranked index match, a wider OR-of-prefixes
// retry for multi-word queries, then a plain substring match. Ranked-tier
// failures are logged and skipped; only a substring-tier failure reaches
// the caller.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/hazyhaar/docshelf/shelf/internal/store"
)

// Scope selects which fields a query looks at.
type Scope string

const (
	ScopeAll     Scope = "all"
	ScopeName    Scope = "name"
	ScopeContent Scope = "content"
	ScopeTags    Scope = "tags"
)

// ParseScope maps "" to ScopeAll and rejects unknown scopes.
func ParseScope(s string) (Scope, error) {
	switch sc := Scope(strings.ToLower(strings.TrimSpace(s))); sc {
	case "":
		return ScopeAll, nil
	case ScopeAll, ScopeName, ScopeContent, ScopeTags:
		return sc, nil
	default:
		return "", fmt.Errorf("search: unknown scope %q", s)
	}
}

// Tier names the strategy that produced a result.
type Tier string

const (
	TierList        Tier = "list"
	TierNameLike    Tier = "name_like"
	TierTagsLike    Tier = "tags_like"
	TierRanked      Tier = "ranked"
	TierPrefixOr    Tier = "prefix_or"
	TierContentLike Tier = "content_like"
	TierCombined    Tier = "combined"
	TierCombinedOr  Tier = "combined_prefix_or"
	TierAllLike     Tier = "all_like"
)

// Catalog is the subset of the store the engine queries.
type Catalog interface {
	ListAll(ctx context.Context, f store.Readability) ([]*store.Document, error)
	MatchIndex(ctx context.Context, expr string, f store.Readability) ([]*store.Document, error)
	MatchNameLike(ctx context.Context, q string, f store.Readability) ([]*store.Document, error)
	MatchTagsLike(ctx context.Context, q string, f store.Readability) ([]*store.Document, error)
	MatchContentLike(ctx context.Context, q string, f store.Readability) ([]*store.Document, error)
	MatchAny(ctx context.Context, q, expr string, f store.Readability) ([]*store.Document, error)
	MatchAllLike(ctx context.Context, q string, f store.Readability) ([]*store.Document, error)
}

// Request is one search.
type Request struct {
	Query  string            `json:"query"`
	Scope  Scope             `json:"scope,omitempty"`
	Filter store.Readability `json:"filter,omitempty"`
}

// Result carries the matching documents and the tier that produced them.
type Result struct {
	Documents []*store.Document `json:"documents"`
	Tier      Tier              `json:"tier"`
}

// Engine executes searches.
type Engine struct {
	catalog Catalog
	logger  *slog.Logger
}

// New creates an Engine over catalog.
func New(catalog Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// attempt is the outcome of one tier.
type attempt struct {
	tier Tier
	docs []*store.Document
	err  error
}

// done reports whether the orchestrator can stop at this tier.
func (a attempt) done() bool {
	return a.err == nil && len(a.docs) > 0
}

func (a attempt) result() (*Result, error) {
	if a.err != nil {
		return nil, fmt.Errorf("search: %s: %w", a.tier, a.err)
	}
	return &Result{Documents: a.docs, Tier: a.tier}, nil
}

func run(tier Tier, fn func() ([]*store.Document, error)) attempt {
	docs, err := fn()
	return attempt{tier: tier, docs: docs, err: err}
}

// Search dispatches req by scope. A blank query lists the catalog.
func (e *Engine) Search(ctx context.Context, req Request) (*Result, error) {
	q := strings.TrimSpace(req.Query)
	f := req.Filter
	if f == "" {
		f = store.ReadabilityAll
	}
	if q == "" {
		return run(TierList, func() ([]*store.Document, error) {
			return e.catalog.ListAll(ctx, f)
		}).result()
	}

	switch req.Scope {
	case ScopeName:
		return run(TierNameLike, func() ([]*store.Document, error) {
			return e.catalog.MatchNameLike(ctx, q, f)
		}).result()
	case ScopeTags:
		return run(TierTagsLike, func() ([]*store.Document, error) {
			return e.catalog.MatchTagsLike(ctx, q, f)
		}).result()
	case ScopeContent:
		return e.content(ctx, q, f)
	case ScopeAll, "":
		return e.all(ctx, q, f)
	default:
		return nil, fmt.Errorf("search: unknown scope %q", req.Scope)
	}
}

func (e *Engine) content(ctx context.Context, q string, f store.Readability) (*Result, error) {
	if expr := Normalize(q); expr != "" {
		a := run(TierRanked, func() ([]*store.Document, error) {
			return e.catalog.MatchIndex(ctx, expr, f)
		})
		if a.done() {
			return a.result()
		}
		e.degrade(a, q)

		if a.err == nil && multiWord(q) {
			a = run(TierPrefixOr, func() ([]*store.Document, error) {
				return e.catalog.MatchIndex(ctx, PrefixOr(q), f)
			})
			if a.done() {
				return a.result()
			}
			e.degrade(a, q)
		}
	}
	return run(TierContentLike, func() ([]*store.Document, error) {
		return e.catalog.MatchContentLike(ctx, q, f)
	}).result()
}

// all unions metadata substrings with index membership. An empty
// prefix-OR retry is a final empty answer; only errors fall through to the
// all-fields substring match.
func (e *Engine) all(ctx context.Context, q string, f store.Readability) (*Result, error) {
	expr := Normalize(q)
	if expr == "" {
		return e.allLike(ctx, q, f)
	}

	a := run(TierCombined, func() ([]*store.Document, error) {
		return e.catalog.MatchAny(ctx, q, expr, f)
	})
	if a.done() {
		return a.result()
	}
	e.degrade(a, q)
	if a.err != nil {
		return e.allLike(ctx, q, f)
	}
	if !multiWord(q) {
		return a.result()
	}

	a = run(TierCombinedOr, func() ([]*store.Document, error) {
		return e.catalog.MatchAny(ctx, q, PrefixOr(q), f)
	})
	if a.err != nil {
		e.degrade(a, q)
		return e.allLike(ctx, q, f)
	}
	return a.result()
}

func (e *Engine) allLike(ctx context.Context, q string, f store.Readability) (*Result, error) {
	return run(TierAllLike, func() ([]*store.Document, error) {
		return e.catalog.MatchAllLike(ctx, q, f)
	}).result()
}

func (e *Engine) degrade(a attempt, q string) {
	if a.err != nil {
		e.logger.Warn("search: tier failed, falling back", "tier", a.tier, "query", q, "error", a.err)
		return
	}
	e.logger.Debug("search: tier empty", "tier", a.tier, "query", q)
}

func multiWord(q string) bool {
	return strings.ContainsFunc(q, unicode.IsSpace)
}
