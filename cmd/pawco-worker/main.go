package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pawco/internal/amqp"
	"pawco/internal/cli"
	"pawco/internal/config"
	"pawco/internal/sheets"
	gsheet "pawco/internal/sheets/google"
	mem "pawco/internal/sheets/memory"
	"pawco/internal/worker"
)

// resyncInterval bounds how long a missed message can leave the mirror stale.
const resyncInterval = time.Hour

func main() {
	cfg, logger := cli.Bootstrap()
	logger.Info("Starting pawco-worker", "mirror", cfg.MirrorBackend)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize mirror", "error", err, "mirror", cfg.MirrorBackend)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewSyncWorker(repo, mirror)

	if err := w.StartupSyncCheck(ctx); err != nil {
		// Not fatal: the next message or periodic resync retries.
		logger.Error("Failed startup sync check", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeRecordSync(gctx, w.HandleSyncMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		ticker := time.NewTicker(resyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := w.Resync(gctx); err != nil {
					logger.Error("Periodic resync failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func newMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.RecordMirror, error) {
	switch cfg.MirrorBackend {
	case "sheets":
		client, err := gsheet.New(ctx, gsheet.Options{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
		return client, nil
	default:
		logger.Info("Memory mirror initialized")
		return mem.New(), nil
	}
}
