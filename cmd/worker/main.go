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

	"github.com/dermadoc/backend/internal/bootstrap"
	"github.com/dermadoc/backend/internal/config"
	"github.com/dermadoc/backend/internal/observability/logging"
	"github.com/dermadoc/backend/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	wm := metrics.NewWorkerMetrics("worker")

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", wm.Handler())
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsMux,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server", "error", err)
		}
	}()

	jobTimeout := time.Duration(cfg.JobTimeoutSeconds) * time.Second

	handler := func(ctx context.Context, checkID string) error {
		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		wm.StartCheck()
		start := time.Now()
		err := app.ProcessUC.ProcessByID(jobCtx, checkID)
		wm.FinishCheck("worker", time.Since(start), err)
		return err
	}

	slog.Info("worker consuming",
		"subject", cfg.NATSSubject,
		"concurrency", cfg.WorkerConcurrency,
	)
	if err := app.Queue.SubscribeCheckSubmitted(ctx, handler); err != nil {
		slog.Error("subscribe", "error", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown", "error", err)
	}
}
