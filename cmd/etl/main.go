package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/wxprofiler-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/wxprofiler-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wxprofiler-etl/internal/config"
	"github.com/couchcryptid/wxprofiler-etl/internal/observability"
	"github.com/couchcryptid/wxprofiler-etl/internal/pipeline"
	"github.com/couchcryptid/wxprofiler-etl/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)

	// Conversion ledger (feature-flagged via LEDGER_ENABLED / LEDGER_PATH).
	var (
		loader      pipeline.BatchLoader = writer
		jobLedger   pipeline.JobLedger
		conversions httpadapter.ConversionLookup
		ledger      *store.Ledger
	)
	if cfg.LedgerEnabled {
		ledger, err = store.Open(cfg.LedgerPath)
		if err != nil {
			logger.Error("failed to open conversion ledger", "error", err, "path", cfg.LedgerPath)
			os.Exit(1)
		}
		loader = store.NewRecordingLoader(writer, ledger, logger)
		jobLedger, conversions = ledger, ledger
		metrics.LedgerEnabled.Set(1)
		logger.Info("conversion ledger enabled", "path", cfg.LedgerPath)
	} else {
		logger.Info("conversion ledger disabled")
	}

	transformer := pipeline.NewTransformer(cfg.InputRoot, jobLedger, logger, metrics)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, conversions, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
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
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if ledger != nil {
		if err := ledger.Close(); err != nil {
			logger.Error("conversion ledger close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
