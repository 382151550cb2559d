package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/billhound/docstage/internal/config"
	"github.com/billhound/docstage/internal/ingest"
)

// inboxwatch tails an inbox directory and submits every dropped document
// into the capture pipeline.
func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if cfg.InboxDir == "" {
		logger.Error("inbox-dir is required")
		os.Exit(2)
	}
	captureURL, err := url.JoinPath("http://"+cfg.HTTPAddr, "/v1/extractions")
	if err != nil {
		logger.Error("invalid capture address", "addr", cfg.HTTPAddr, "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	submitter := ingest.NewSubmitter(captureURL, cfg.OCRVendorURL, cfg.OCRVendorAPIKey, nil, logger)

	evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.InboxDir},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start watcher", "inbox_dir", cfg.InboxDir, "error", err)
		os.Exit(1)
	}
	logger.Info("watching inbox", "inbox_dir", cfg.InboxDir)

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopped")
			return
		case err, ok := <-errCh:
			if ok {
				logger.Error("watcher error", "error", err)
			}
		case path, ok := <-evCh:
			if !ok {
				return
			}
			if err := submitter.SubmitFile(ctx, path); err != nil {
				logger.Error("submission failed", "path", path, "error", err)
				continue
			}
			logger.Info("submitted", "path", path)
		}
	}
}
