package docpipe

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/docshelf/kit"
)

// RegisterMCP registers docpipe tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerClassifyTool(srv)
	p.registerExtractTool(srv)
	p.registerFormatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

type pathReq struct {
	Path  string `json:"path"`
	Force bool   `json:"force,omitempty"`
}

func (p *Pipeline) registerClassifyTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docpipe_classify",
		Description: "Report whether a document's text can be read directly (true) or needs OCR (false).",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "File path to classify"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*pathReq)
		resp := map[string]any{"machine_readable": p.Classify(r.Path)}
		if fam, err := p.Detect(r.Path); err == nil {
			resp["family"] = fam.String()
		}
		return resp, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[pathReq]())
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docpipe_extract",
		Description: "Extract the text of a document without cataloguing it. Set force to run OCR regardless of classification.",
		InputSchema: inputSchema(map[string]any{
			"path":  map[string]any{"type": "string", "description": "File path to extract"},
			"force": map[string]any{"type": "boolean", "description": "Force optical recognition (pdf and images only)"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pathReq)
		return p.Extract(ctx, r.Path, r.Force)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeJSON[pathReq]())
}

func (p *Pipeline) registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "docpipe_formats",
		Description: "List the file extensions docpipe accepts, with their family.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": p.SupportedFormats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
