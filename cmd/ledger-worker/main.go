package main

import (
	"context"
	"errors"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting ledger-worker", log.FieldOperation, log.OpStartup, "events", cfg.EventsBackend)

	factory := backend.NewFactory(logger)
	repo := cli.OpenRepository(context.Background(), logger, cfg)
	defer repo.Close()

	scheduler := worker.NewAuditScheduler(
		services.NewAuditService(repo, cfg.AuditConcurrency, logger),
		cfg.AuditInterval,
		logger,
	)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Audit scheduler did not stop cleanly", log.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	if err := scheduler.Start(gctx); err != nil {
		logger.Error("Failed to start audit scheduler", log.FieldError, err)
		os.Exit(1)
	}

	if cfg.EventsBackend == string(backend.EventsNone) {
		logger.Info("EVENTS_BACKEND is none, journal export disabled")
	} else {
		writer, err := factory.NewJournalWriter(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize journal writer", log.FieldError, err)
			os.Exit(1)
		}
		src, closeSrc, err := factory.NewEventSource(cfg)
		if err != nil {
			logger.Error("Failed to initialize event source", log.FieldError, err)
			os.Exit(1)
		}
		defer closeSrc()

		exporter := worker.NewJournalExporter(writer, logger)
		g.Go(func() error {
			return exporter.Run(gctx, src)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		_ = scheduler.Stop(context.Background())
		os.Exit(1)
	}

	<-done
	logger.Info("Worker shutdown complete")
}
