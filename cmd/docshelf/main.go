// CLAUDE:SUMMARY docshelf CLI: ingest, search, list, show, delete, rebuild, stats, and the HTTP and stdio MCP servers.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/hazyhaar/docshelf/shelf"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "docshelf:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "docshelf",
		Usage:   "Catalog, extract and search documents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{"DOCSHELF_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "db",
				Usage:   "Catalog database path (overrides config)",
				EnvVars: []string{"DOCSHELF_DB"},
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Storage directory for originals and artifacts (overrides config)",
				EnvVars: []string{"DOCSHELF_STORAGE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Logging level (debug, info, warn, error)",
				Value:   env("DOCSHELF_LOG_LEVEL", "warn"),
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest one or more files",
				ArgsUsage: "FILE...",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format (txt, pdf, docx, html, md, json)"},
					&cli.StringFlag{Name: "name", Usage: "Display name (single file only)"},
					&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
					&cli.StringFlag{Name: "description", Usage: "Free-text description"},
					&cli.BoolFlag{Name: "force-ocr", Usage: "Run recognition regardless of classification"},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the catalog",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scope", Aliases: []string{"s"}, Usage: "all, name, content or tags", Value: "all"},
					filterFlag(),
				},
			},
			{
				Name:   "list",
				Usage:  "List catalogued documents, most recent first",
				Action: listCommand,
				Flags:  []cli.Flag{filterFlag()},
			},
			{
				Name:      "show",
				Usage:     "Show one document with its extracted text",
				ArgsUsage: "ID",
				Action:    showCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and its stored files",
				ArgsUsage: "ID",
				Action:    deleteCommand,
			},
			{
				Name:   "rebuild",
				Usage:  "Rebuild the full-text index from the catalog",
				Action: rebuildCommand,
			},
			{
				Name:   "stats",
				Usage:  "Print catalog statistics",
				Action: statsCommand,
			},
			{
				Name:   "formats",
				Usage:  "List input and output formats",
				Action: formatsCommand,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "Listen address (overrides config)", EnvVars: []string{"DOCSHELF_LISTEN"}},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools over stdio",
				Action: mcpCommand,
			},
		},
	}
}

func filterFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "filter",
		Usage: "all, machine_readable or non_machine_readable",
		Value: "all",
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// setupLogger logs JSON to stderr so stdout stays machine-readable.
func setupLogger(c *cli.Context) error {
	var lvl slog.Level
	switch c.String("log-level") {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", c.String("log-level"))
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func loadConfig(c *cli.Context) (*shelf.Config, error) {
	cfg := shelf.DefaultConfig()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = shelf.LoadConfigFile(path); err != nil {
			return nil, err
		}
	}
	if v := c.String("db"); v != "" {
		cfg.DBPath = v
	}
	if v := c.String("storage"); v != "" {
		cfg.StorageDir = v
	}
	return cfg, nil
}

func openShelf(c *cli.Context) (*shelf.Shelf, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	return shelf.New(cfg, slog.Default())
}

// withShelf opens the shelf for the duration of fn.
func withShelf(fn func(*cli.Context, *shelf.Shelf) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		s, err := openShelf(c)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(c, s)
	}
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func argID(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, errors.New("exactly one document id is required")
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", c.Args().First())
	}
	return id, nil
}

var ingestCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return errors.New("at least one file is required")
	}
	if c.String("name") != "" && len(paths) > 1 {
		return errors.New("--name applies to a single file")
	}
	reqs := make([]shelf.IngestRequest, len(paths))
	for i, p := range paths {
		reqs[i] = shelf.IngestRequest{
			Path:             p,
			OutputFormat:     c.String("format"),
			CustomName:       c.String("name"),
			Tags:             c.String("tags"),
			Description:      c.String("description"),
			ForceRecognition: c.Bool("force-ocr"),
		}
	}
	outcomes := s.IngestBatch(c.Context, reqs)
	if err := printJSON(c, outcomes); err != nil {
		return err
	}
	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(outcomes))
	}
	return nil
})

var searchCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	scope, err := shelf.ParseScope(c.String("scope"))
	if err != nil {
		return err
	}
	filter, err := shelf.ParseReadability(c.String("filter"))
	if err != nil {
		return err
	}
	res, err := s.Search(c.Context, shelf.SearchRequest{Query: c.Args().First(), Scope: scope, Filter: filter})
	if err != nil {
		return err
	}
	return printJSON(c, res)
})

var listCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	filter, err := shelf.ParseReadability(c.String("filter"))
	if err != nil {
		return err
	}
	docs, err := s.List(c.Context, filter)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []*shelf.Document{}
	}
	return printJSON(c, docs)
})

var showCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	d, err := s.Get(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c, d)
})

var deleteCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	d, err := s.Delete(c.Context, id)
	if err != nil {
		return err
	}
	if d == nil {
		return printJSON(c, map[string]any{"id": id, "removed": false})
	}
	return printJSON(c, map[string]any{"id": id, "removed": true, "name": d.Name})
})

var rebuildCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	n, err := s.RebuildIndex(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, map[string]int{"indexed": n})
})

var statsCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	st, err := s.Stats(c.Context)
	if err != nil {
		return err
	}
	return printJSON(c, st)
})

var formatsCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	return printJSON(c, s.Formats())
})

var serveCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := s.Config().HTTP.Listen
	if v := c.String("listen"); v != "" {
		addr = v
	}
	if err := s.Config().HTTP.CheckListen(addr); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
})

var mcpCommand = withShelf(func(c *cli.Context, s *shelf.Shelf) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := mcp.NewServer(&mcp.Implementation{Name: "docshelf", Version: version}, nil)
	s.RegisterMCP(srv)
	slog.Info("mcp stdio starting")
	return srv.Run(ctx, &mcp.StdioTransport{})
})
