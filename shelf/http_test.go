package shelf

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, body string) string {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestHTTP_Lifecycle(t *testing.T) {
	s, src := testShelf(t)
	h := s.Handler()
	path := writeSource(t, src, "plan.txt", "roadmap milestones for spring")

	rec := do(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/documents", `{"path":`+jsonBody(t, path)+`,"output_format":"html","tags":"plans"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest = %d %s", rec.Code, rec.Body)
	}
	var doc Document
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.ID == 0 || doc.OutputFormat != "html" {
		t.Fatalf("doc = %+v", doc)
	}
	idPath := "/api/documents/" + strconv.FormatInt(doc.ID, 10)

	rec = do(t, h, http.MethodGet, "/api/search?q=milestones&scope=content", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("search = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/documents?filter=machine_readable", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("list = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, idPath, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "roadmap milestones") {
		t.Fatalf("get = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodPost, "/api/index/rebuild", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"indexed":1`) {
		t.Fatalf("rebuild = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"documents":1`) {
		t.Fatalf("stats = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, h, http.MethodDelete, idPath, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body)
	}
	rec = do(t, h, http.MethodGet, idPath, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}
	rec = do(t, h, http.MethodDelete, idPath, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("second delete = %d, want 204", rec.Code)
	}
}

func TestHTTP_StatusMapping(t *testing.T) {
	s, src := testShelf(t)
	h := s.Handler()
	xyz := writeSource(t, src, "data.xyz", "??")
	txt := writeSource(t, src, "a.txt", "text")

	tests := []struct {
		name, method, target, body string
		want                       int
	}{
		{"unsupported format", http.MethodPost, "/api/documents", `{"path":` + jsonBody(t, xyz) + `}`, http.StatusUnsupportedMediaType},
		{"unknown output", http.MethodPost, "/api/documents", `{"path":` + jsonBody(t, txt) + `,"output_format":"odt"}`, http.StatusBadRequest},
		{"missing source", http.MethodPost, "/api/documents", `{"path":` + jsonBody(t, filepath.Join(src, "nope.txt")) + `}`, http.StatusBadRequest},
		{"no path", http.MethodPost, "/api/documents", `{}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/documents", `{`, http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/documents/abc", "", http.StatusBadRequest},
		{"absent id", http.MethodGet, "/api/documents/999", "", http.StatusNotFound},
		{"delete absent id", http.MethodDelete, "/api/documents/999", "", http.StatusNoContent},
		{"bad scope", http.MethodGet, "/api/search?q=x&scope=body", "", http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/api/documents?filter=maybe", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, h, tt.method, tt.target, tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.want, rec.Body)
		}
	}
}

func TestHTTP_BasicAuth(t *testing.T) {
	s, _ := testShelf(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	s.config.HTTP.Username = "reader"
	s.config.HTTP.PasswordHash = string(hash)
	h := s.Handler()

	if rec := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health behind auth: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/stats", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("stats without credentials: %d", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil).WithContext(context.Background())
	req.SetBasicAuth("reader", "letmein")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("stats with credentials: %d", rec.Code)
	}
}

func TestHTTP_IngestRootConfinesPaths(t *testing.T) {
	// WHAT: with an ingest root, only sources under it can be ingested.
	// WHY: the API must not read arbitrary server files into the catalog.
	s, src := testShelf(t)
	s.config.HTTP.IngestRoot = src
	h := s.Handler()

	outside := filepath.Join(t.TempDir(), "secret.txt")
	if err := os.WriteFile(outside, []byte("private"), 0o644); err != nil {
		t.Fatal(err)
	}
	inside := writeSource(t, src, "public.txt", "shared text")
	writeSource(t, src, "rel.txt", "relative text")

	tests := []struct {
		name, path string
		want       int
	}{
		{"absolute outside", outside, http.StatusForbidden},
		{"traversal", "../" + filepath.Base(filepath.Dir(outside)) + "/secret.txt", http.StatusForbidden},
		{"absolute inside", inside, http.StatusCreated},
		{"relative inside", "rel.txt", http.StatusCreated},
	}
	for _, tt := range tests {
		rec := do(t, h, http.MethodPost, "/api/documents", `{"path":`+jsonBody(t, tt.path)+`}`)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.want, rec.Body)
		}
	}

	docs, err := s.List(context.Background(), ReadabilityAll)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range docs {
		if d.Name == "secret.txt" {
			t.Fatal("file outside the ingest root was catalogued")
		}
	}
}
