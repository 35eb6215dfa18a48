// CLAUDE:SUMMARY chi JSON API over the shelf: documents CRUD, ingest from server paths, tiered search, index rebuild, stats.
package shelf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/docshelf/convert"
	"github.com/hazyhaar/docshelf/docpipe"
	"github.com/hazyhaar/docshelf/horosafe"
	"github.com/hazyhaar/docshelf/kit"
	"github.com/hazyhaar/docshelf/shelf/internal/ingest"
	"github.com/hazyhaar/docshelf/shield"
)

const maxRequestBody = 1 << 20

// errBadRequest marks client errors that have no sentinel of their own.
var errBadRequest = errors.New("bad request")

// Handler returns the HTTP API. Basic auth applies when configured;
// /health is always public.
func (s *Shelf) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultAPIStack(s.logger, maxRequestBody) {
		r.Use(mw)
	}
	r.Use(shield.BasicAuth("docshelf", s.config.HTTP.Username, s.config.HTTP.PasswordHash, "/health"))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleIngest)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
	})
	r.Get("/api/search", s.handleSearch)
	r.Post("/api/index/rebuild", s.handleRebuild)
	r.Get("/api/stats", s.handleStats)
	r.Get("/api/formats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Formats())
	})
	return r
}

func (s *Shelf) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseReadability(r.URL.Query().Get("filter"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	docs, err := s.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if docs == nil {
		docs = []*Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Shelf) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Shelf) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.logged(r, "http_delete", func(ctx context.Context, _ any) (any, error) {
		return s.Delete(ctx, id)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if doc, _ := d.(*Document); doc != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "deleted", "id": doc.ID})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Shelf) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if req.Path == "" {
		s.fail(w, r, fmt.Errorf("%w: path is required", errBadRequest))
		return
	}
	if root := s.config.HTTP.IngestRoot; root != "" {
		p, err := confine(root, req.Path)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		req.Path = p
	}
	d, err := s.logged(r, "http_ingest", func(ctx context.Context, _ any) (any, error) {
		return s.Ingest(ctx, req)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Shelf) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope, err := ParseScope(q.Get("scope"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	filter, err := ParseReadability(q.Get("filter"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	res, err := s.Search(r.Context(), SearchRequest{Query: q.Get("q"), Scope: scope, Filter: filter})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	docs := res.Documents
	if docs == nil {
		docs = []*Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs), "tier": res.Tier})
}

func (s *Shelf) handleRebuild(w http.ResponseWriter, r *http.Request) {
	n, err := s.RebuildIndex(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexed": n})
}

func (s *Shelf) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// logged runs a catalog mutation through the endpoint logging middleware
// so writes are attributed to a request id and client address.
func (s *Shelf) logged(r *http.Request, op string, fn kit.Endpoint) (any, error) {
	return kit.Chain(kit.Logging(s.logger, op))(fn)(r.Context(), nil)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid document id %q", errBadRequest, raw)
	}
	return id, nil
}

// confine resolves path inside root. Relative paths are taken from root;
// absolute paths must already lie under it.
func confine(root, path string) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(root, filepath.Clean(path))
		if err != nil {
			return "", fmt.Errorf("%w: %s", horosafe.ErrPathTraversal, path)
		}
		path = rel
	}
	p, err := horosafe.SafePath(root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s is outside the ingest root", err, path)
	}
	return p, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, docpipe.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, horosafe.ErrPathTraversal):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.Is(err, convert.ErrUnknownFormat),
		errors.Is(err, ingest.ErrInvalidSource):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Shelf) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code >= 500 {
		shield.GetLogger(r.Context()).Error("shelf: request failed", "error", err)
	}
	writeError(w, code, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
