package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/couchcryptid/wofost-input-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wofost-input-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wofost-input-etl/internal/config"
	"github.com/couchcryptid/wofost-input-etl/internal/observability"
	"github.com/couchcryptid/wofost-input-etl/internal/pipeline"
	"github.com/couchcryptid/wofost-input-etl/internal/storage"
	"github.com/joho/godotenv"
)

func main() {
	// Local runs keep settings in .env; deployed containers set the environment directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	sink, err := storage.NewFileSink(cfg.OutputDir)
	if err != nil {
		logger.Error("failed to prepare output dir", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize the archive (feature-flagged via S3_ENABLED / S3_BUCKET).
	var archiver storage.Archiver
	if cfg.S3Enabled {
		a, err := storage.NewS3Archiver(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		}, logger)
		if err != nil {
			logger.Error("failed to create s3 archiver", "error", err)
			os.Exit(1)
		}
		archiver = a
		metrics.ArchiveEnabled.Set(1)
		logger.Info("s3 archive enabled", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	} else {
		logger.Info("s3 archive disabled")
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(sink, archiver, cfg.Encode, cfg.LeapDayPolicy, metrics, logger)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, logger,
		httpadapter.Check{Name: "pipeline", Checker: p},
		httpadapter.Check{Name: "output_dir", Checker: sink},
	)

	logger.Info("starting",
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
		"output_dir", cfg.OutputDir,
		"leap_day_policy", cfg.LeapDayPolicy.String(),
	)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
