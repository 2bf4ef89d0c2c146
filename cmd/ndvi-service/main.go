package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/ndvi-aggregation-service/internal/adapter/csvsource"
	httpadapter "github.com/couchcryptid/ndvi-aggregation-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ndvi-aggregation-service/internal/adapter/kafka"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/config"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/observability"
	"github.com/couchcryptid/ndvi-aggregation-service/internal/pipeline"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("failed to read .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	defaults := pipeline.Settings{Thresholds: cfg.Thresholds, Window: cfg.Window}
	p := pipeline.New(logger, metrics, defaults, cfg.CacheSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := p.Load(ctx, csvsource.NewFileSource(cfg.DatasetPath, logger))
	if err != nil {
		logger.Error("failed to load dataset", "path", cfg.DatasetPath, "error", err)
		os.Exit(1)
	}
	if len(res.Skipped) > 0 {
		logger.Warn("dataset has rejected rows, see GET /v1/dataset", "rejected", len(res.Skipped))
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.ExportEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		g.Go(func() error {
			defer func() {
				if err := writer.Close(); err != nil {
					logger.Error("kafka writer close error", "error", err)
				}
			}()
			n, err := p.Export(gctx, writer, cfg.BatchSize)
			if err != nil {
				// The query API keeps serving when export fails.
				logger.Error("export failed", "written", n, "error", err)
				return nil
			}
			logger.Info("export complete", "topic", cfg.KafkaSinkTopic, "records", n)
			return nil
		})
	} else {
		logger.Info("kafka export disabled")
	}

	if err := g.Wait(); err != nil {
		logger.Error("service error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
