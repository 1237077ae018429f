package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POS_DATABASE_URL", "postgres://etl:pw@localhost:5432/pos")
	t.Setenv("GCP_PROJECT_ID", "acme-prod")
	t.Setenv("GCS_BUCKET", "acme-retail-etl")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatasetID != "retail" {
		t.Errorf("expected default dataset retail, got %q", cfg.DatasetID)
	}
	if cfg.ProductsObject != "refdata/products.csv" || cfg.CustomersObject != "refdata/customers.csv" {
		t.Errorf("unexpected refdata defaults: %q %q", cfg.ProductsObject, cfg.CustomersObject)
	}
	if cfg.WatermarkObject != "state/sales_watermark" {
		t.Errorf("unexpected watermark default: %q", cfg.WatermarkObject)
	}
	if cfg.RunInterval != 15*time.Minute {
		t.Errorf("expected default interval 15m, got %v", cfg.RunInterval)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr :9090, got %q", cfg.MetricsAddr)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("BQ_DATASET", "retail_staging")
	t.Setenv("RUN_INTERVAL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatasetID != "retail_staging" {
		t.Errorf("dataset override not applied: %q", cfg.DatasetID)
	}
	if cfg.RunInterval != time.Hour {
		t.Errorf("interval override not applied: %v", cfg.RunInterval)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	tests := []string{"POS_DATABASE_URL", "GCP_PROJECT_ID", "GCS_BUCKET"}

	for _, missing := range tests {
		t.Run(missing, func(t *testing.T) {
			setRequired(t)
			t.Setenv(missing, "")
			if _, err := Load(); err == nil {
				t.Errorf("expected error when %s is unset", missing)
			}
		})
	}
}

func TestLoadInvalidInterval(t *testing.T) {
	setRequired(t)
	t.Setenv("RUN_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for invalid RUN_INTERVAL")
	}
}
