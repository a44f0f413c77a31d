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

	"github.com/joho/godotenv"

	"course-assistant/internal/bootstrap"
	"course-assistant/internal/config"
	"course-assistant/internal/observability/logging"
	"course-assistant/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// Seed the index from a local course folder before consuming uploads.
	if cfg.CourseDocsPath != "" {
		report, err := app.ProcessUC.ProcessFolder(ctx, cfg.CourseDocsPath)
		if err != nil {
			slog.Error("course_folder_ingest_failed", "path", cfg.CourseDocsPath, "error", err)
		} else {
			workerMetrics.AddChunksIndexed("worker", report.ChunksIndexed)
			slog.Info("course_folder_ingested",
				"path", cfg.CourseDocsPath,
				"ingested", len(report.Ingested),
				"skipped", len(report.Skipped),
				"failed", len(report.Failed),
				"chunks", report.ChunksIndexed,
			)
		}
	}

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeCourseUploaded(ctx, func(handlerCtx context.Context, storageKey string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartCourse()
		start := time.Now()
		chunks, processErr := app.ProcessUC.ProcessByKey(processCtx, storageKey)
		workerMetrics.FinishCourse("worker", time.Since(start), processErr)
		workerMetrics.AddChunksIndexed("worker", chunks)
		return processErr
	})
	if err != nil {
		slog.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
