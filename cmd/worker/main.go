package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/retail-etl/internal/api/handlers"
	"github.com/dvloznov/retail-etl/internal/api/middleware"
	"github.com/dvloznov/retail-etl/internal/config"
	"github.com/dvloznov/retail-etl/internal/etl"
	infraBQ "github.com/dvloznov/retail-etl/internal/infra/bigquery"
	"github.com/dvloznov/retail-etl/internal/infra/postgres"
	"github.com/dvloznov/retail-etl/internal/jobs"
	"github.com/dvloznov/retail-etl/internal/jobs/inmemory"
	"github.com/dvloznov/retail-etl/internal/logger"
	"github.com/dvloznov/retail-etl/internal/metrics"
	"github.com/dvloznov/retail-etl/internal/refdata"
	"github.com/dvloznov/retail-etl/internal/watermark"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	source, err := postgres.Open(ctx, postgres.Config{URL: cfg.PosDatabaseURL})
	if err != nil {
		log.Fatal().Err(err).Msg("Connecting to POS database failed")
	}
	defer source.Close()

	store, err := infraBQ.NewStore(ctx, cfg.ProjectID, cfg.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Connecting to BigQuery failed")
	}
	defer store.Close()

	refRepo, err := refdata.NewGCSRepository(ctx, cfg.Bucket, cfg.ProductsObject, cfg.CustomersObject)
	if err != nil {
		log.Fatal().Err(err).Msg("Opening reference data repository failed")
	}
	defer refRepo.Close()

	watermarks, err := watermark.NewGCSStore(ctx, cfg.Bucket, cfg.WatermarkObject)
	if err != nil {
		log.Fatal().Err(err).Msg("Opening watermark store failed")
	}
	defer watermarks.Close()

	registry := metrics.NewRegistry()
	runner := etl.NewRunner(source, store, watermarks, refRepo, refRepo, store, registry)

	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(16, jobStore)

	handler := func(ctx context.Context, job jobs.Job) error {
		summary, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		if batchJob, ok := job.(*jobs.LoadBatchJob); ok {
			batchJob.LoadRunID = summary.LoadRunID
		}
		jobLog := logger.FromContext(ctx)
		jobLog.Info().
			Str("job_id", job.GetID()).
			Str("load_run_id", summary.LoadRunID).
			Int("extracted", summary.Extracted).
			Int("loaded", summary.Loaded).
			Int("errored", summary.Errored).
			Int("duplicates", summary.Duplicates).
			Msg("Load job completed")
		return nil
	}

	if err := queue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Starting job queue failed")
	}

	// Publish one run immediately, then on every tick.
	publish := func(triggeredBy string) {
		job := &jobs.LoadBatchJob{
			JobID:       uuid.New().String(),
			TriggeredBy: triggeredBy,
			Status:      jobs.JobStatusPending,
			CreatedAt:   time.Now(),
			MaxRetries:  2,
		}
		if err := queue.PublishLoadBatch(ctx, job); err != nil {
			log.Error().Err(err).Msg("Publishing load job failed")
		}
	}

	ticker := time.NewTicker(cfg.RunInterval)
	defer ticker.Stop()
	go func() {
		publish("startup")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				publish("schedule")
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())
	handlers.NewJobsHandler(jobStore, queue, log).Routes(mux)

	var opsHandler http.Handler = mux
	opsHandler = middleware.RequestID(opsHandler)
	opsHandler = middleware.Recovery(log)(opsHandler)
	opsHandler = middleware.Logger(log)(opsHandler)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: opsHandler}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	log.Info().
		Dur("run_interval", cfg.RunInterval).
		Msg("Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Metrics server shutdown failed")
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Queue shutdown did not complete cleanly")
	}

	log.Info().Msg("Worker stopped")
}
