package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/app"
	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
	"github.com/aradsms/telco_churn_prep/internal/churn_prep/repository/csvcache"
	"github.com/aradsms/telco_churn_prep/internal/churn_prep/repository/postgres"
	"github.com/aradsms/telco_churn_prep/internal/platform/config"
	"github.com/aradsms/telco_churn_prep/internal/platform/database"
	"github.com/aradsms/telco_churn_prep/internal/platform/logger"
	"github.com/aradsms/telco_churn_prep/internal/platform/objectstore"
)

const serviceName = "churn-prep-service"

func main() {
	mode := flag.String("mode", app.ModeTraining, "Preparation mode: 'training' (train/validate/test split) or 'prediction'.")
	refresh := flag.Bool("refresh", false, "Fetch from the customer source even if a cache file exists.")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(serviceName)
	if err != nil {
		slog.Error("Failed to load configuration", "service", serviceName, "error", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
	appLogger.Info("Churn preparation starting...", "mode", *mode, "refresh", *refresh)
	appLogger.Info("Configuration loaded",
		"log_level", cfg.LogLevel,
		"source_host", cfg.SourceHost,
		"source_database", cfg.SourceDatabase,
		"cache_path", cfg.CachePath,
		"output_url", cfg.OutputURL,
		"output_format", cfg.OutputFormat,
	)

	if err := run(ctx, cfg, appLogger, *mode, *refresh); err != nil {
		appLogger.Error("Churn preparation failed", "error", err)
		os.Exit(exitCode(err))
	}
	appLogger.Info("Churn preparation finished successfully.")
}

func run(ctx context.Context, cfg *config.Config, appLogger *slog.Logger, mode string, refresh bool) error {
	switch mode {
	case app.ModeTraining, app.ModePrediction:
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}

	openSource := func(ctx context.Context) (domain.CustomerSource, func(), error) {
		pool, err := database.NewDBPool(ctx, cfg.SourceDSN())
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewPgCustomerRepository(pool, appLogger), pool.Close, nil
	}
	cache := csvcache.NewStore(cfg.CachePath, appLogger)
	loader := app.NewLoader(openSource, cache, appLogger)

	prep := app.NewPrepService(app.NewTransformer(appLogger), splitConfig(cfg), appLogger)

	store, err := objectstore.Open(ctx, cfg.OutputURL)
	if err != nil {
		return fmt.Errorf("open output store: %w: %w", domain.ErrIO, err)
	}
	defer store.Close()
	exporter := app.NewExporter(store, app.ExporterConfig{
		Format:      cfg.OutputFormat,
		Compression: cfg.OutputCompression,
	}, appLogger)

	customers, err := loader.GetData(ctx, refresh)
	if err != nil {
		return err
	}

	var manifest *app.Manifest
	switch mode {
	case app.ModeTraining:
		split, err := prep.PrepTraining(ctx, customers)
		if err != nil {
			return err
		}
		manifest, err = exporter.ExportTraining(ctx, split)
		if err != nil {
			return err
		}
	case app.ModePrediction:
		prepared, err := prep.PrepPrediction(ctx, customers)
		if err != nil {
			return err
		}
		manifest, err = exporter.ExportPrediction(ctx, prepared)
		if err != nil {
			return err
		}
	}
	appLogger.InfoContext(ctx, "Run complete", "run_id", manifest.RunID, "partitions", len(manifest.Partitions))

	if cfg.MetricsTextfilePath != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsTextfilePath, prometheus.DefaultGatherer); err != nil {
			appLogger.WarnContext(ctx, "Failed to write metrics textfile", "path", cfg.MetricsTextfilePath, "error", err)
		}
	}
	return nil
}

func splitConfig(cfg *config.Config) domain.SplitConfig {
	return domain.SplitConfig{
		TestFraction:     cfg.SplitTestFraction,
		ValidateFraction: cfg.SplitValidateFraction,
		Seed:             cfg.SplitSeed,
	}
}

// exitCode maps the error taxonomy onto distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrConnection):
		return 3
	case errors.Is(err, domain.ErrIO):
		return 4
	case errors.Is(err, domain.ErrFormat):
		return 5
	case errors.Is(err, domain.ErrValue):
		return 6
	default:
		return 1
	}
}
