package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	factory := backend.NewFactory(logger)
	repo := cli.OpenRepository(context.Background(), logger, cfg)
	defer repo.Close()

	publisher, err := factory.NewPublisher(cfg)
	if err != nil {
		logger.Error("Failed to initialize event publisher", log.FieldError, err)
		os.Exit(1)
	}
	defer publisher.Close()

	summaries := cache.NewSummaries(cfg.SummaryCacheSize, cfg.SummaryCacheTTL, logger)
	publisher = summaries.Publisher(publisher)

	svc := apphttp.Services{
		Ledger:     services.NewLedgerService(repo, publisher, logger),
		Reports:    services.NewReportService(repo, logger),
		Accounts:   services.NewAccountService(repo, cfg.DefaultCurrency, logger),
		Categories: services.NewCategoryService(repo, logger),
		Health:     repo,
		Summaries:  summaries,
	}
	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Authenticator:      factory.NewAuthenticator(cfg),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}, svc)

	_, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		}
	})

	logger.Info("Starting ledgerd",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.EventsBackend,
		"auth", cfg.AuthMode)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
