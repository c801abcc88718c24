package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storeforge/prodscrape/api"
	"github.com/storeforge/prodscrape/cache"
	"github.com/storeforge/prodscrape/config"
	"github.com/storeforge/prodscrape/engine"
	"github.com/storeforge/prodscrape/extract"
	"github.com/storeforge/prodscrape/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("prodscrape starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"browser", cfg.Browser.Enabled,
	)

	// ── 3. Initialise transports ─────────────────────────────────────
	engines := []engine.Engine{engine.NewHTTPEngine()}

	var browser *engine.Browser
	if cfg.Browser.Enabled {
		var err error
		browser, err = engine.NewBrowser(engine.BrowserConfig{
			Headless:             cfg.Browser.Headless,
			NoSandbox:            cfg.Browser.NoSandbox,
			BrowserBin:           cfg.Browser.BrowserBin,
			Proxy:                cfg.Browser.DefaultProxy,
			BlockedResourceTypes: cfg.Scraper.BlockedResourceTypes,
			Pool: engine.PagePoolConfig{
				MinPages:     cfg.PagePool.MinPages,
				HardMax:      cfg.PagePool.HardMax,
				MemThreshold: cfg.PagePool.MemThreshold,
				ScaleStep:    cfg.PagePool.ScaleStep,
			},
		})
		if err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer browser.Close()
		engines = append(engines, browser.Engine(false), browser.Engine(true))
	} else {
		slog.Warn("browser transports disabled, running HTTP-only")
	}

	policy := engine.RetryPolicy{
		MaxAttempts:    cfg.Fetch.MaxAttempts,
		BaseDelay:      cfg.Fetch.BaseDelay,
		MaxDelay:       cfg.Fetch.MaxDelay,
		AttemptTimeout: cfg.Fetch.AttemptTimeout,
	}
	fetcher := engine.NewFetcher(policy, engines...)

	// ── 4. Initialise pipeline + cache ───────────────────────────────
	sc := scraper.New(fetcher, extract.NewRegistry())
	cc := cache.New(cfg.Cache.MaxEntries)

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(sc, browser, cfg, cc, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// browser.Close() runs via defer — drains page pool and kills Chrome.
	slog.Info("prodscrape stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
