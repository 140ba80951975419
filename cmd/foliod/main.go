// Command foliod runs the folio page-synchronization engine.
//
// Usage:
//
//	foliod -demo                             # simulated surface, HTTP API
//	foliod -url http://localhost:3000/doc    # attach to a live canvas page
//	foliod -config folio.yaml -demo          # with a YAML config
//	foliod -demo -mcp stdio                  # also serve MCP tools on stdio
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/folio/dbopen"
	"github.com/hazyhaar/folio/docstore"
	"github.com/hazyhaar/folio/geom"
	"github.com/hazyhaar/folio/pagesync"
	surfacepkg "github.com/hazyhaar/folio/surface"
	"github.com/hazyhaar/folio/surface/rodsurface"
	"github.com/hazyhaar/folio/surface/sim"
)

func main() {
	configPath := flag.String("config", "", "path to folio.yaml config file")
	demo := flag.Bool("demo", false, "run against a simulated surface")
	pageURL := flag.String("url", "", "attach to a live canvas page at this URL")
	wsURL := flag.String("ws", "", "WebSocket URL of an external Chrome (default: launch local)")
	root := flag.String("root", "body", "CSS selector of the canvas root element")
	stealthMode := flag.Bool("stealth", false, "create the page with automation fingerprint hardening")
	docKey := flag.String("doc", "default", "document key to open")
	mcpMode := flag.String("mcp", "", "MCP transport: stdio or empty")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, options{
		configPath: *configPath,
		demo:       *demo,
		pageURL:    *pageURL,
		wsURL:      *wsURL,
		root:       *root,
		stealth:    *stealthMode,
		docKey:     *docKey,
		mcpMode:    *mcpMode,
	}); err != nil {
		logger.Error("foliod: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	demo       bool
	pageURL    string
	wsURL      string
	root       string
	stealth    bool
	docKey     string
	mcpMode    string
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	if !opts.demo && opts.pageURL == "" {
		fmt.Fprintln(os.Stderr, "usage: foliod -demo | -url <url> [-config <file>] [-mcp stdio]")
		os.Exit(1)
	}

	cfg := pagesync.DefaultConfig()
	if opts.configPath != "" {
		loaded, err := pagesync.LoadConfigFile(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	back, err := docstore.Open(cfg.Storage.Path, dbopen.WithMkdirAll())
	if err != nil {
		return fmt.Errorf("open docstore: %w", err)
	}
	defer back.Close()
	if err := back.SaveSettings(ctx, cfg.PageSize()); err != nil {
		logger.Warn("foliod: save settings", "error", err)
	}

	eng := pagesync.New(cfg, back, logger)
	engDone := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(engDone)
	}()

	surf, cleanup, err := buildSurface(ctx, logger, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := eng.OpenDocument(ctx, opts.docKey, surf); err != nil {
		return fmt.Errorf("open document %s: %w", opts.docKey, err)
	}

	if opts.mcpMode == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "folio",
			Version: "1.0.0",
		}, nil)
		eng.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				logger.Error("foliod: mcp", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           eng.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("foliod: http starting", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("foliod: http", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("foliod: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("foliod: http shutdown", "error", err)
	}

	// The engine loop flushes the open document before exiting.
	<-engDone
	return nil
}

// buildSurface picks the host: a seeded in-memory simulation or a live
// browser page.
func buildSurface(ctx context.Context, logger *slog.Logger, opts options) (surfacepkg.Surface, func(), error) {
	if opts.demo {
		s := sim.New()
		s.Seed(geom.Rect{X: 100, Y: 200, W: 150, H: 80})
		s.Seed(geom.Rect{X: 800, Y: 1200, W: 150, H: 80})
		s.Seed(geom.Rect{X: 300, Y: 2500, W: 200, H: 120})
		logger.Info("foliod: simulated surface", "nodes", 3)
		return s, func() {}, nil
	}

	wsURL := opts.wsURL
	if wsURL == "" {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
	}
	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect chrome: %w", err)
	}

	scfg := rodsurface.Config{Root: opts.root, Stealth: opts.stealth, Logger: logger}
	page, err := rodsurface.OpenPage(ctx, browser, opts.pageURL, scfg)
	if err != nil {
		browser.Close()
		return nil, nil, err
	}
	surf, err := rodsurface.Attach(ctx, page, scfg)
	if err != nil {
		browser.Close()
		return nil, nil, err
	}
	logger.Info("foliod: attached to live page", "url", opts.pageURL, "root", opts.root)

	cleanup := func() {
		surf.Detach()
		page.Close()
		browser.Close()
	}
	return surf, cleanup, nil
}
