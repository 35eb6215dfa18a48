package ingest

import (
	"context"

	"github.com/hazyhaar/docshelf/shelf/internal/store"
)

// Outcome is the result of one file in a batch.
type Outcome struct {
	Path     string          `json:"path"`
	Document *store.Document `json:"document,omitempty"`
	Err      error           `json:"-"`
	Error    string          `json:"error,omitempty"`
}

// ProcessBatch ingests reqs in order. A failing file is recorded in its
// outcome and the batch continues; cancellation stops before the next file.
func (p *Pipeline) ProcessBatch(ctx context.Context, reqs []Request) []Outcome {
	out := make([]Outcome, 0, len(reqs))
	for _, req := range reqs {
		o := Outcome{Path: req.Path}
		if err := ctx.Err(); err != nil {
			o.Err = err
		} else {
			o.Document, o.Err = p.Process(ctx, req)
		}
		if o.Err != nil {
			o.Error = o.Err.Error()
			p.logger.Warn("ingest: batch item failed", "path", req.Path, "error", o.Err)
		}
		out = append(out, o)
	}
	return out
}
