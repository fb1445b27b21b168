package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"pawco/internal/amqp"
	"pawco/internal/cli"
	apphttp "pawco/internal/http"
	applog "pawco/internal/log"
	"pawco/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// A nil *amqp.Client stored in the interface would not compare equal to
	// nil, so the publisher stays untyped until a client exists.
	var publisher services.Publisher
	if cfg.EventsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			_ = repo.Close()
			os.Exit(1)
		}
		publisher = client
		logger.Info("Record sync events enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Record sync events disabled - no AMQP_URL provided")
	}

	svc := services.NewLedgerService(repo, publisher)

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		StoreName:      cfg.StoreName,
		RequestTimeout: cfg.RequestTimeout,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 15 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting pawco server", "port", cfg.Port, "store", cfg.StoreName, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		cli.RunCleanup(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Server shutdown error", applog.FieldError, err, applog.FieldOperation, applog.OpShutdown)
			}
			if err := svc.Close(); err != nil {
				logger.Error("Ledger close error", applog.FieldError, err, applog.FieldOperation, applog.OpShutdown)
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
