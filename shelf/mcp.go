// CLAUDE:SUMMARY Registers the docshelf MCP tools (search, list, get, ingest, delete, rebuild, formats) plus the docpipe tools.
package shelf

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docshelf/kit"
)

// RegisterMCP registers docshelf tools, and the underlying docpipe tools,
// on an MCP server.
func (s *Shelf) RegisterMCP(srv *mcp.Server) {
	s.registerSearchTool(srv)
	s.registerListTool(srv)
	s.registerGetTool(srv)
	s.registerIngestTool(srv)
	s.registerDeleteTool(srv)
	s.registerRebuildTool(srv)
	s.registerFormatsTool(srv)
	s.docs.RegisterMCP(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

var filterSchema = map[string]any{
	"type":        "string",
	"enum":        []any{"all", "machine_readable", "non_machine_readable"},
	"description": "Readability filter (default all)",
}

func (s *Shelf) register(srv *mcp.Server, tool *mcp.Tool, endpoint kit.Endpoint, decode func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error)) {
	wrapped := kit.Chain(kit.Logging(s.logger, tool.Name))(endpoint)
	kit.RegisterMCPTool(srv, tool, wrapped, decode)
}

// --- search ---

type searchToolRequest struct {
	Query  string `json:"query"`
	Scope  string `json:"scope,omitempty"`
	Filter string `json:"filter,omitempty"`
}

func (s *Shelf) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_search",
		Description: "Search catalogued documents. Content and all scopes fall back from ranked full-text to substring matching. An empty query lists everything.",
		InputSchema: inputSchema(map[string]any{
			"query":  map[string]any{"type": "string", "description": "Search text"},
			"scope":  map[string]any{"type": "string", "enum": []any{"all", "name", "content", "tags"}, "description": "Fields to search (default all)"},
			"filter": filterSchema,
		}, []string{"query"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*searchToolRequest)
		scope, err := ParseScope(r.Scope)
		if err != nil {
			return nil, err
		}
		filter, err := ParseReadability(r.Filter)
		if err != nil {
			return nil, err
		}
		return s.Search(ctx, SearchRequest{Query: r.Query, Scope: scope, Filter: filter})
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[searchToolRequest]())
}

// --- list ---

type listToolRequest struct {
	Filter string `json:"filter,omitempty"`
}

func (s *Shelf) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_list",
		Description: "List catalogued documents, most recent first.",
		InputSchema: inputSchema(map[string]any{"filter": filterSchema}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		filter, err := ParseReadability(req.(*listToolRequest).Filter)
		if err != nil {
			return nil, err
		}
		docs, err := s.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return map[string]any{"documents": docs, "count": len(docs)}, nil
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[listToolRequest]())
}

// --- get / delete ---

type idToolRequest struct {
	ID int64 `json:"id"`
}

func (s *Shelf) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_get",
		Description: "Get one document with its extracted text.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "integer", "description": "Document id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Get(ctx, req.(*idToolRequest).ID)
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[idToolRequest]())
}

func (s *Shelf) registerDeleteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_delete",
		Description: "Delete a document from the catalog and remove its stored files. Deleting an absent id is a no-op.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "integer", "description": "Document id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		id := req.(*idToolRequest).ID
		d, err := s.Delete(ctx, id)
		if err != nil {
			return nil, err
		}
		if d == nil {
			return map[string]any{"id": id, "removed": false}, nil
		}
		return map[string]any{"id": id, "removed": true, "name": d.Name}, nil
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[idToolRequest]())
}

// --- ingest ---

type ingestToolRequest struct {
	Paths            []string `json:"paths"`
	OutputFormat     string   `json:"output_format,omitempty"`
	CustomName       string   `json:"custom_name,omitempty"`
	Tags             string   `json:"tags,omitempty"`
	Description      string   `json:"description,omitempty"`
	ForceRecognition bool     `json:"force_recognition,omitempty"`
}

func (s *Shelf) registerIngestTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_ingest",
		Description: "Ingest one or more files from the server's filesystem. Each file is classified, extracted (OCR when needed), converted and catalogued; results are reported per file.",
		InputSchema: inputSchema(map[string]any{
			"paths":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "File paths"},
			"output_format":     map[string]any{"type": "string", "enum": []any{"txt", "pdf", "docx", "html", "md", "json"}, "description": "Converted output format"},
			"custom_name":       map[string]any{"type": "string", "description": "Display name (single file only)"},
			"tags":              map[string]any{"type": "string", "description": "Comma-separated tags"},
			"description":       map[string]any{"type": "string", "description": "Free-text description"},
			"force_recognition": map[string]any{"type": "boolean", "description": "Run OCR regardless of classification"},
		}, []string{"paths"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*ingestToolRequest)
		reqs := make([]IngestRequest, len(r.Paths))
		for i, p := range r.Paths {
			reqs[i] = IngestRequest{
				Path:             p,
				OutputFormat:     r.OutputFormat,
				Tags:             r.Tags,
				Description:      r.Description,
				ForceRecognition: r.ForceRecognition,
			}
			if len(r.Paths) == 1 {
				reqs[i].CustomName = r.CustomName
			}
		}
		return map[string]any{"results": s.IngestBatch(ctx, reqs)}, nil
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[ingestToolRequest]())
}

// --- rebuild / formats ---

func (s *Shelf) registerRebuildTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_rebuild_index",
		Description: "Rebuild the full-text index from the catalog and report catalog statistics.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		n, err := s.RebuildIndex(ctx)
		if err != nil {
			return nil, err
		}
		stats, err := s.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"indexed": n, "stats": stats}, nil
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[struct{}]())
}

func (s *Shelf) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docshelf_formats",
		Description: "List accepted input formats and available output formats.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return s.Formats(), nil
	}

	s.register(srv, tool, endpoint, kit.DecodeJSON[struct{}]())
}
