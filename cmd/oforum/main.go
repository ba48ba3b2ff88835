// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package main is the entry point for the oForum API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/oforum/internal/cache"
	"github.com/olegiv/oforum/internal/config"
	"github.com/olegiv/oforum/internal/handler"
	"github.com/olegiv/oforum/internal/handler/api"
	"github.com/olegiv/oforum/internal/logging"
	"github.com/olegiv/oforum/internal/middleware"
	"github.com/olegiv/oforum/internal/scheduler"
	"github.com/olegiv/oforum/internal/search"
	"github.com/olegiv/oforum/internal/service"
	"github.com/olegiv/oforum/internal/store"
	"github.com/olegiv/oforum/internal/theme"
	"github.com/olegiv/oforum/internal/themes"
	"github.com/olegiv/oforum/internal/version"
)

// Version information, injected at build time via ldflags.
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oForum - theming and discussion search API\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_DB_DRIVER       Database driver: sqlite|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_DB_DSN          Database path or DSN (default: ./data/oforum.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_THEMES_DIR      Directory of file-based themes (default: ./custom/themes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_SEARCH_DRIVER   Search driver: sql|index (default: sql)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_REDIS_URL       Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OFORUM_ADMIN_API_KEY   Bootstrap API key with every permission (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		_, _ = fmt.Printf("oforum %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	var baseHandler slog.Handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	if !cfg.IsDevelopment() {
		baseHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(baseHandler)
	slog.SetDefault(logger)

	if cfg.DBDriver == config.DBDriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.DBDSN), 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	slog.Info("initializing database", "driver", cfg.DBDriver)
	db, err := store.NewDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Warnings and errors also go to the event log from here on
	logger = slog.New(logging.NewEventLogHandler(baseHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if err := store.Seed(ctx, db, store.SeedOptions{
		AdminAPIKey: cfg.AdminAPIKey,
		SampleData:  cfg.DoSeed,
	}); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	themeCache := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheDuration(),
		MaxSize:    cfg.CacheMaxSize,
	}, logger)
	defer func() { _ = themeCache.Close() }()

	themeManager := theme.NewManager(themes.FS, cfg.ThemesDir, logger)
	if err := themeManager.LoadThemes(); err != nil {
		return fmt.Errorf("loading themes: %w", err)
	}
	slog.Info("file themes loaded", "count", themeManager.ThemeCount())

	discussionType := search.NewDiscussionType(db)
	var (
		engine  search.Engine = search.NewSQLEngine(db)
		indexer *search.Indexer
		index   *search.Index
		// left nil unless the index is enabled, so the service skips indexing
		discussionIndexer service.SearchIndexer
	)
	if cfg.UseSearchIndex() {
		if err := os.MkdirAll(filepath.Dir(cfg.SearchIndexPath), 0755); err != nil {
			return fmt.Errorf("creating search index directory: %w", err)
		}
		index, err = search.OpenIndex(cfg.SearchIndexPath)
		if err != nil {
			return fmt.Errorf("opening search index: %w", err)
		}
		defer func() {
			if err := index.Close(); err != nil {
				slog.Error("error closing search index", "error", err)
			}
		}()
		indexer = search.NewIndexer(index, logger, discussionType)
		discussionIndexer = indexer
		engine = search.NewIndexEngine(index)
	}
	searchService := search.NewService(engine, logger, discussionType)
	slog.Info("search ready", "engine", searchService.Engine(), "record_types", searchService.RecordTypes())

	eventService := service.NewEventService(db)

	sched := scheduler.New(db, logger)
	if indexer != nil {
		if err := sched.Register(ctx, scheduler.SearchReindexJob(cfg.SearchReindexSchedule, indexer, logger)); err != nil {
			return fmt.Errorf("registering search reindex job: %w", err)
		}
		// An empty index would hide every discussion until the first scheduled run
		if n, err := index.Count(); err == nil && n == 0 {
			if err := sched.Jobs().TriggerNow(ctx, scheduler.JobSearchReindex); err != nil {
				slog.Warn("initial search index build failed", "error", err)
			}
		}
	}
	if cfg.EventRetentionDays > 0 {
		job := scheduler.EventsPruneJob(scheduler.DefaultEventsPruneSchedule, cfg.EventRetentionDays, eventService, logger)
		if err := sched.Register(ctx, job); err != nil {
			return fmt.Errorf("registering events prune job: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	apiHandler := api.NewHandler(db, api.Services{
		Themes:      service.NewThemeService(db, themeManager, themeCache, logger),
		Discussions: service.NewDiscussionService(db, discussionIndexer, logger),
		Taxonomy:    service.NewTaxonomyService(db, logger),
		Search:      searchService,
		Jobs:        sched.Jobs(),
	}, versionInfo, logger)

	var counter handler.DocumentCounter
	if index != nil {
		counter = index
	}
	healthHandler := handler.NewHealthHandler(db, counter, cfg.ThemesDir, versionInfo.Version)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(cfg.IsDevelopment()))
	r.Use(middleware.Compress(1024))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/health", func(r chi.Router) {
		r.Use(middleware.OptionalAPIKeyAuth(db))
		r.Get("/", healthHandler.Health)
		r.Get("/live", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Route("/api/v1", func(r chi.Router) {
		apiHandler.Routes(r, api.RouteOptions{
			RateLimit: cfg.APIRateLimit,
			RateBurst: cfg.APIRateBurst,
		})
	})
	slog.Info("REST API v1 mounted at /api/v1")

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
