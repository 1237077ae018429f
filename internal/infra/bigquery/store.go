// Package bigquery implements the warehouse side of the incremental load:
// idempotent upsert of consolidated sales, append-only error records, and
// load-run bookkeeping. All statements are parameterized DML.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/retail-etl/internal/domain"
	"github.com/dvloznov/retail-etl/internal/logger"
	"github.com/google/uuid"
)

const (
	salesTable    = "consolidated_sales"
	errorsTable   = "sale_load_errors"
	loadRunsTable = "load_runs"
)

// Store holds a shared BigQuery client scoped to one project and dataset.
// It implements the warehouse and load-run-log contracts of the ETL runner.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a Store with a shared BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: creating client: %w", err)
	}
	return &Store{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
	}, nil
}

// NewStoreWithClient creates a Store around an existing client. The caller
// keeps ownership of the client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close closes the underlying BigQuery client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// runDML runs a parameterized DML statement and waits for the job.
func (s *Store) runDML(ctx context.Context, stmt string, params []bigquery.QueryParameter) error {
	q := s.client.Query(stmt)
	q.Parameters = params

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

// UpsertSales merges accepted records into consolidated_sales keyed by
// transaction_id. On conflict only quantity, total_amount, customer_segment
// and updated_ts are overwritten; re-running the same batch leaves the table
// in the same final state.
func (s *Store) UpsertSales(ctx context.Context, loadRunID string, records []*domain.TransformedSaleRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now()
	stmt := fmt.Sprintf(`
		MERGE %s t
		USING (SELECT @transaction_id AS transaction_id) s
		ON t.transaction_id = s.transaction_id
		WHEN MATCHED THEN UPDATE SET
			quantity = @quantity,
			total_amount = @total_amount,
			customer_segment = @customer_segment,
			updated_ts = @now
		WHEN NOT MATCHED THEN INSERT (
			transaction_id, sale_date, store_id, customer_id,
			product_id, product_name, quantity, unit_price, total_amount,
			sales_channel, customer_segment, source_created_at, source_system,
			dedup_fingerprint, load_run_id, created_ts
		)
		VALUES (
			@transaction_id, @sale_date, @store_id, @customer_id,
			@product_id, @product_name, @quantity, @unit_price, @total_amount,
			@sales_channel, @customer_segment, @source_created_at, @source_system,
			@dedup_fingerprint, @load_run_id, @now
		)
	`, s.table(salesTable))

	for _, record := range records {
		row := saleRowFromDomain(record, loadRunID, now)

		params := []bigquery.QueryParameter{
			{Name: "transaction_id", Value: row.TransactionID},
			{Name: "sale_date", Value: row.SaleDate},
			{Name: "store_id", Value: row.StoreID},
			{Name: "customer_id", Value: row.CustomerID},
			{Name: "product_id", Value: row.ProductID},
			{Name: "product_name", Value: row.ProductName},
			{Name: "quantity", Value: row.Quantity},
			{Name: "unit_price", Value: row.UnitPrice},
			{Name: "total_amount", Value: row.TotalAmount},
			{Name: "sales_channel", Value: row.SalesChannel},
			{Name: "customer_segment", Value: row.CustomerSegment},
			{Name: "source_created_at", Value: row.SourceCreatedAt},
			{Name: "source_system", Value: row.SourceSystem},
			{Name: "dedup_fingerprint", Value: row.DedupFingerprint},
			{Name: "load_run_id", Value: row.LoadRunID},
			{Name: "now", Value: now},
		}

		if err := s.runDML(ctx, stmt, params); err != nil {
			return fmt.Errorf("UpsertSales: transaction %d: %w", record.TransactionID, err)
		}
	}

	return nil
}

// AppendErrors streams quarantined records into the append-only error
// table, one row per error, original payload included.
func (s *Store) AppendErrors(ctx context.Context, loadRunID string, records []domain.ErrorRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]*SaleErrorRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, errorRowFromDomain(record, uuid.NewString(), loadRunID, now))
	}

	inserter := s.client.DatasetInProject(s.projectID, s.datasetID).Table(errorsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("AppendErrors: inserting rows: %w", err)
	}

	return nil
}

// StartLoadRun inserts a new load_runs row with status=RUNNING and returns
// the generated load_run_id.
func (s *Store) StartLoadRun(ctx context.Context, oldWatermark string) (string, error) {
	loadRunID := uuid.NewString()

	stmt := fmt.Sprintf(`
		INSERT %s (
			load_run_id, started_ts, status, old_watermark, new_watermark,
			extracted_count, loaded_count, error_count, duplicate_count
		)
		VALUES (
			@load_run_id, @started_ts, @status, @old_watermark, @old_watermark,
			0, 0, 0, 0
		)
	`, s.table(loadRunsTable))

	params := []bigquery.QueryParameter{
		{Name: "load_run_id", Value: loadRunID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "status", Value: "RUNNING"},
		{Name: "old_watermark", Value: oldWatermark},
	}

	if err := s.runDML(ctx, stmt, params); err != nil {
		return "", fmt.Errorf("StartLoadRun: %w", err)
	}

	return loadRunID, nil
}

// MarkLoadRunSucceeded sets status=SUCCESS, records the run counts and the
// watermark the run advanced to.
func (s *Store) MarkLoadRunSucceeded(ctx context.Context, loadRunID string, summary domain.RunSummary) error {
	stmt := fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = "",
		    new_watermark = @new_watermark,
		    extracted_count = @extracted_count,
		    loaded_count = @loaded_count,
		    error_count = @error_count,
		    duplicate_count = @duplicate_count
		WHERE load_run_id = @load_run_id
	`, s.table(loadRunsTable))

	params := []bigquery.QueryParameter{
		{Name: "status", Value: "SUCCESS"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "new_watermark", Value: summary.NewWatermark},
		{Name: "extracted_count", Value: int64(summary.Extracted)},
		{Name: "loaded_count", Value: int64(summary.Loaded)},
		{Name: "error_count", Value: int64(summary.Errored)},
		{Name: "duplicate_count", Value: int64(summary.Duplicates)},
		{Name: "load_run_id", Value: loadRunID},
	}

	if err := s.runDML(ctx, stmt, params); err != nil {
		return fmt.Errorf("MarkLoadRunSucceeded: %w", err)
	}

	return nil
}

// MarkLoadRunFailed sets status=FAILED with the run error. Best-effort: the
// run is already failing, so problems here are logged, not returned.
func (s *Store) MarkLoadRunFailed(ctx context.Context, loadRunID string, runErr error) {
	log := logger.FromContext(ctx)

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	stmt := fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE load_run_id = @load_run_id
	`, s.table(loadRunsTable))

	params := []bigquery.QueryParameter{
		{Name: "status", Value: "FAILED"},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: errMsg},
		{Name: "load_run_id", Value: loadRunID},
	}

	if err := s.runDML(ctx, stmt, params); err != nil {
		log.Error().
			Err(err).
			Str("load_run_id", loadRunID).
			Msg("MarkLoadRunFailed: recording failure")
	}
}
