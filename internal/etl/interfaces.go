package etl

import (
	"context"
	"time"

	"github.com/dvloznov/retail-etl/internal/domain"
)

// SaleSource is a queryable store of raw sale events. Extract returns every
// record with a creation timestamp strictly greater than the watermark, in
// ascending creation-timestamp order.
type SaleSource interface {
	Extract(ctx context.Context, sinceWatermark string) ([]domain.RawSaleRecord, error)
}

// Warehouse is the analytical sink. UpsertSales must be idempotent per
// transaction ID (on conflict only quantity, total and segment change);
// AppendErrors is append-only.
type Warehouse interface {
	UpsertSales(ctx context.Context, loadRunID string, records []*domain.TransformedSaleRecord) error
	AppendErrors(ctx context.Context, loadRunID string, records []domain.ErrorRecord) error
}

// WatermarkStore persists the single watermark value between runs.
// Read returns an empty string when no watermark has been written yet.
type WatermarkStore interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, value string) error
}

// LoadRunLog records run bookkeeping in the warehouse. MarkLoadRunFailed is
// best-effort: the run is already failing, so it logs instead of returning.
type LoadRunLog interface {
	StartLoadRun(ctx context.Context, oldWatermark string) (string, error)
	MarkLoadRunSucceeded(ctx context.Context, loadRunID string, summary domain.RunSummary) error
	MarkLoadRunFailed(ctx context.Context, loadRunID string, runErr error)
}

// ProductMappingRepository lists the product reference set, loaded once per run.
type ProductMappingRepository interface {
	ListProductMappings(ctx context.Context) ([]domain.ProductMapping, error)
}

// CustomerProfileRepository lists the customer segmentation directory,
// loaded once per run.
type CustomerProfileRepository interface {
	ListCustomerProfiles(ctx context.Context) ([]domain.CustomerProfile, error)
}

// RunReporter receives run outcomes for observability. Implementations must
// not fail the run.
type RunReporter interface {
	RecordRun(summary domain.RunSummary, duration time.Duration)
	RecordRunFailure()
	RecordError(kind domain.ErrorKind)
}

// NopReporter discards all observations. Useful default for tests and the
// one-shot CLI.
type NopReporter struct{}

func (NopReporter) RecordRun(domain.RunSummary, time.Duration) {}
func (NopReporter) RecordRunFailure()                          {}
func (NopReporter) RecordError(domain.ErrorKind)               {}
