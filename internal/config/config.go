// Package config loads application settings from environment variables,
// optionally populated from a .env file by the entrypoints.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds everything the loader needs to reach its collaborators.
type Config struct {
	// POS source.
	PosDatabaseURL string

	// Warehouse.
	ProjectID string
	DatasetID string

	// Reference data and watermark, all in one bucket.
	Bucket          string
	ProductsObject  string
	CustomersObject string
	WatermarkObject string

	// Worker.
	RunInterval time.Duration
	MetricsAddr string
}

// Load reads the configuration from the environment. Required variables
// produce an error when unset; optional ones fall back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		PosDatabaseURL:  os.Getenv("POS_DATABASE_URL"),
		ProjectID:       os.Getenv("GCP_PROJECT_ID"),
		DatasetID:       envOr("BQ_DATASET", "retail"),
		Bucket:          os.Getenv("GCS_BUCKET"),
		ProductsObject:  envOr("PRODUCTS_OBJECT", "refdata/products.csv"),
		CustomersObject: envOr("CUSTOMERS_OBJECT", "refdata/customers.csv"),
		WatermarkObject: envOr("WATERMARK_OBJECT", "state/sales_watermark"),
		MetricsAddr:     envOr("METRICS_ADDR", ":9090"),
	}

	if cfg.PosDatabaseURL == "" {
		return nil, fmt.Errorf("POS_DATABASE_URL environment variable not set")
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GCP_PROJECT_ID environment variable not set")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET environment variable not set")
	}

	interval := envOr("RUN_INTERVAL", "15m")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid RUN_INTERVAL %q: %w", interval, err)
	}
	cfg.RunInterval = d

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
