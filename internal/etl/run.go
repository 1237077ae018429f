package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/retail-etl/internal/domain"
	"github.com/dvloznov/retail-etl/internal/logger"
)

// Runner executes one incremental load run end to end: read watermark,
// extract, transform, load, advance watermark. All collaborators are
// injected at construction time; the Runner owns no connections and no
// state between runs.
type Runner struct {
	source     SaleSource
	warehouse  Warehouse
	watermarks WatermarkStore
	products   ProductMappingRepository
	customers  CustomerProfileRepository
	runLog     LoadRunLog
	reporter   RunReporter
}

// NewRunner wires a Runner from its collaborators. reporter may be nil, in
// which case run outcomes are not recorded anywhere but the log.
func NewRunner(
	source SaleSource,
	warehouse Warehouse,
	watermarks WatermarkStore,
	products ProductMappingRepository,
	customers CustomerProfileRepository,
	runLog LoadRunLog,
	reporter RunReporter,
) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Runner{
		source:     source,
		warehouse:  warehouse,
		watermarks: watermarks,
		products:   products,
		customers:  customers,
		runLog:     runLog,
		reporter:   reporter,
	}
}

// Run performs a single incremental load. Per-record faults are isolated
// into the error stream and never abort the batch; only collaborator
// failures (source, sink, watermark persistence) are fatal, and a fatal run
// never advances the watermark.
func (r *Runner) Run(ctx context.Context) (domain.RunSummary, error) {
	log := logger.FromContext(ctx)
	started := time.Now()

	oldWatermark, err := r.watermarks.Read(ctx)
	if err != nil {
		r.reporter.RecordRunFailure()
		return domain.RunSummary{}, fmt.Errorf("Run: read watermark: %w", err)
	}

	loadRunID, err := r.runLog.StartLoadRun(ctx, oldWatermark)
	if err != nil {
		r.reporter.RecordRunFailure()
		return domain.RunSummary{}, fmt.Errorf("Run: start load run: %w", err)
	}

	log.Info().
		Str("load_run_id", loadRunID).
		Str("watermark", oldWatermark).
		Msg("Extracting sales since watermark")

	batch, err := r.source.Extract(ctx, oldWatermark)
	if err != nil {
		return r.fail(ctx, loadRunID, fmt.Errorf("Run: extract: %w", err))
	}

	summary := domain.RunSummary{
		LoadRunID:    loadRunID,
		Extracted:    len(batch),
		OldWatermark: oldWatermark,
		NewWatermark: oldWatermark,
	}

	// An empty batch issues no warehouse writes and leaves the watermark
	// untouched.
	if len(batch) == 0 {
		if err := r.runLog.MarkLoadRunSucceeded(ctx, loadRunID, summary); err != nil {
			return r.fail(ctx, loadRunID, fmt.Errorf("Run: mark load run succeeded: %w", err))
		}
		r.reporter.RecordRun(summary, time.Since(started))
		log.Info().Str("load_run_id", loadRunID).Msg("No new sales to process")
		return summary, nil
	}

	resolver, err := NewReferenceResolver(ctx, r.products, r.customers)
	if err != nil {
		return r.fail(ctx, loadRunID, fmt.Errorf("Run: load reference data: %w", err))
	}

	result := NewTransformer(resolver, r.reporter).Transform(ctx, batch)
	summary.Loaded = len(result.Valid)
	summary.Errored = len(result.Errors)
	summary.Duplicates = result.Duplicates

	if len(result.Valid) > 0 {
		if err := r.warehouse.UpsertSales(ctx, loadRunID, result.Valid); err != nil {
			return r.fail(ctx, loadRunID, fmt.Errorf("Run: upsert sales: %w", err))
		}
	}
	if len(result.Errors) > 0 {
		if err := r.warehouse.AppendErrors(ctx, loadRunID, result.Errors); err != nil {
			return r.fail(ctx, loadRunID, fmt.Errorf("Run: append errors: %w", err))
		}
	}

	summary.NewWatermark = AdvanceWatermark(oldWatermark, batch)
	if summary.NewWatermark != oldWatermark {
		if err := r.watermarks.Write(ctx, summary.NewWatermark); err != nil {
			return r.fail(ctx, loadRunID, fmt.Errorf("Run: write watermark: %w", err))
		}
	}

	if err := r.runLog.MarkLoadRunSucceeded(ctx, loadRunID, summary); err != nil {
		return r.fail(ctx, loadRunID, fmt.Errorf("Run: mark load run succeeded: %w", err))
	}

	r.reporter.RecordRun(summary, time.Since(started))
	log.Info().
		Str("load_run_id", loadRunID).
		Int("extracted", summary.Extracted).
		Int("loaded", summary.Loaded).
		Int("errored", summary.Errored).
		Int("duplicates", summary.Duplicates).
		Str("new_watermark", summary.NewWatermark).
		Dur("duration", time.Since(started)).
		Msg("Incremental load completed")

	return summary, nil
}

func (r *Runner) fail(ctx context.Context, loadRunID string, runErr error) (domain.RunSummary, error) {
	r.runLog.MarkLoadRunFailed(ctx, loadRunID, runErr)
	r.reporter.RecordRunFailure()
	return domain.RunSummary{}, runErr
}
