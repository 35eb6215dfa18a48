package shelf

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "docshelf-test", Version: "0.1.0"}

// mcpSession registers the shelf tools and returns a connected client.
func mcpSession(t *testing.T) (*Shelf, string, *mcp.ClientSession) {
	t.Helper()
	s, src := testShelf(t)

	srv := mcp.NewServer(testImpl, nil)
	s.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return s, src, session
}

// callTool invokes a tool and returns the JSON text, or the tool error.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, error) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	if result.IsError {
		return "", errors.New(tc.Text)
	}
	return tc.Text, nil
}

func TestMCP_ToolsRegistered(t *testing.T) {
	_, _, session := mcpSession(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	have := map[string]bool{}
	for _, tool := range res.Tools {
		have[tool.Name] = true
	}
	for _, name := range []string{
		"docshelf_search", "docshelf_list", "docshelf_get", "docshelf_ingest",
		"docshelf_delete", "docshelf_rebuild_index", "docshelf_formats",
		"docpipe_classify", "docpipe_extract", "docpipe_formats",
	} {
		if !have[name] {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestMCP_IngestSearchGetDelete(t *testing.T) {
	// WHAT: the MCP tools drive a full ingest → search → get → delete cycle.
	// WHY: agents use the shelf only through these tools.
	_, src, session := mcpSession(t)
	path := writeSource(t, src, "memo.txt", "quarterly revenue grew")

	text, err := callTool(t, session, "docshelf_ingest", map[string]any{"paths": []string{path}, "tags": "finance"})
	if err != nil {
		t.Fatal(err)
	}
	var ing struct {
		Results []struct {
			Path     string    `json:"path"`
			Document *Document `json:"document"`
			Error    string    `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &ing); err != nil {
		t.Fatal(err)
	}
	if len(ing.Results) != 1 || ing.Results[0].Document == nil || ing.Results[0].Error != "" {
		t.Fatalf("ingest = %s", text)
	}
	id := ing.Results[0].Document.ID

	text, err = callTool(t, session, "docshelf_search", map[string]any{"query": "revenue", "scope": "content"})
	if err != nil {
		t.Fatal(err)
	}
	var res SearchResult
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Documents) != 1 || res.Documents[0].ID != id || res.Tier != "ranked" {
		t.Fatalf("search = %s", text)
	}

	text, err = callTool(t, session, "docshelf_get", map[string]any{"id": id})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "quarterly revenue grew") {
		t.Fatalf("get = %s", text)
	}

	text, err = callTool(t, session, "docshelf_delete", map[string]any{"id": id})
	if err != nil || !strings.Contains(text, `"removed":true`) {
		t.Fatalf("delete = %s, %v", text, err)
	}
	if _, err := callTool(t, session, "docshelf_get", map[string]any{"id": id}); err == nil {
		t.Fatal("get after delete succeeded")
	}
	text, err = callTool(t, session, "docshelf_delete", map[string]any{"id": id})
	if err != nil || !strings.Contains(text, `"removed":false`) {
		t.Fatalf("second delete = %s, %v", text, err)
	}
}

func TestMCP_IngestReportsPerFileErrors(t *testing.T) {
	_, src, session := mcpSession(t)
	text, err := callTool(t, session, "docshelf_ingest", map[string]any{
		"paths": []string{writeSource(t, src, "a.txt", "ok"), writeSource(t, src, "b.xyz", "no")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "unsupported format") {
		t.Fatalf("ingest = %s", text)
	}
}

func TestMCP_InvalidArguments(t *testing.T) {
	_, _, session := mcpSession(t)
	if _, err := callTool(t, session, "docshelf_search", map[string]any{"query": "x", "scope": "body"}); err == nil {
		t.Error("unknown scope accepted")
	}
	if _, err := callTool(t, session, "docshelf_list", map[string]any{"filter": "sometimes"}); err == nil {
		t.Error("unknown filter accepted")
	}
}

func TestMCP_ListRebuildFormats(t *testing.T) {
	s, src, session := mcpSession(t)
	if _, err := s.Ingest(context.Background(), IngestRequest{Path: writeSource(t, src, "x.csv", "a,b\n1,2")}); err != nil {
		t.Fatal(err)
	}

	text, err := callTool(t, session, "docshelf_list", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"count":1`) {
		t.Errorf("list = %s", text)
	}

	text, err = callTool(t, session, "docshelf_rebuild_index", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"indexed":1`) {
		t.Errorf("rebuild = %s", text)
	}

	text, err = callTool(t, session, "docshelf_formats", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, `"docx"`) || !strings.Contains(text, `"input"`) {
		t.Errorf("formats = %s", text)
	}
}
