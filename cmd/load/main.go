package main

import (
	"context"
	"flag"
	"time"

	"github.com/dvloznov/retail-etl/internal/config"
	"github.com/dvloznov/retail-etl/internal/etl"
	infraBQ "github.com/dvloznov/retail-etl/internal/infra/bigquery"
	"github.com/dvloznov/retail-etl/internal/infra/postgres"
	"github.com/dvloznov/retail-etl/internal/logger"
	"github.com/dvloznov/retail-etl/internal/refdata"
	"github.com/dvloznov/retail-etl/internal/watermark"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using system environment variables")
	}

	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
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

	runner := etl.NewRunner(source, store, watermarks, refRepo, refRepo, store, nil)

	summary, err := runner.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Incremental load failed")
	}

	log.Info().
		Str("load_run_id", summary.LoadRunID).
		Int("extracted", summary.Extracted).
		Int("loaded", summary.Loaded).
		Int("errored", summary.Errored).
		Int("duplicates", summary.Duplicates).
		Str("new_watermark", summary.NewWatermark).
		Msg("Load finished")
}
