package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billhound/docstage/internal/config"
	"github.com/billhound/docstage/internal/export"
	"github.com/billhound/docstage/internal/forms"
	"github.com/billhound/docstage/internal/license"
	"github.com/billhound/docstage/internal/mapper"
	"github.com/billhound/docstage/internal/pdftext"
	"github.com/billhound/docstage/internal/promotion"
	repo "github.com/billhound/docstage/internal/repository"
	"github.com/billhound/docstage/internal/resolver"
	"github.com/billhound/docstage/internal/server"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer server.CloseDB(pool, logger)

	if err := server.PingDB(ctx, pool, logger, 5*time.Second); err != nil {
		os.Exit(1)
	}
	if err := repo.RunMigrations(cfg.Database.DSN, cfg.MigrationsPath, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	stagingRepo := repo.NewStagingRepository(pool, logger)
	filesRepo := repo.NewFileRepository(pool, logger)
	directoryRepo := repo.NewDirectoryRepository(pool, logger)

	schema := forms.BillSchema()
	workflow := server.NewWorkflow(
		stagingRepo, filesRepo,
		mapper.New(directoryRepo, logger),
		resolver.New(stagingRepo, filesRepo, logger),
		promotion.NewGate(schema, logger),
		logger,
	)
	httpServer := server.NewHTTPServer(
		workflow,
		filesRepo,
		export.NewService(stagingRepo, logger),
		pdftext.NewExtractor(logger),
		func(ctx context.Context) error {
			return server.PingDB(ctx, pool, logger, 3*time.Second)
		},
		logger,
	)
	httpServer.SetDateFormat(cfg.SiteDateFormat)
	if cfg.LicenseURL != "" && cfg.AccountID != "" {
		httpServer.UseLicense(license.NewClient(cfg.LicenseURL, nil, logger), cfg.AccountID)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
