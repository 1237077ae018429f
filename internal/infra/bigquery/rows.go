package bigquery

import (
	"encoding/json"
	"math"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/retail-etl/internal/domain"
)

// SaleRow represents one consolidated sale in the warehouse. Money columns
// are NUMERIC; upsert keeps quantity, total_amount and customer_segment
// mutable, everything else is immutable once first written.
type SaleRow struct {
	TransactionID int64 `bigquery:"transaction_id"` // REQUIRED, upsert key

	SaleDate   civil.Date         `bigquery:"sale_date"`   // REQUIRED DATE
	StoreID    int64              `bigquery:"store_id"`    // REQUIRED
	CustomerID bigquery.NullInt64 `bigquery:"customer_id"` // NULLABLE (anonymous)

	ProductID   string `bigquery:"product_id"`   // REQUIRED, unified identifier
	ProductName string `bigquery:"product_name"` // NULLABLE in schema

	Quantity    int64    `bigquery:"quantity"`     // REQUIRED
	UnitPrice   *big.Rat `bigquery:"unit_price"`   // REQUIRED NUMERIC
	TotalAmount *big.Rat `bigquery:"total_amount"` // REQUIRED NUMERIC

	SalesChannel    string `bigquery:"sales_channel"`    // constant "store" for POS
	CustomerSegment string `bigquery:"customer_segment"` // REQUIRED, never empty

	SourceCreatedAt string `bigquery:"source_created_at"` // original POS timestamp string
	SourceSystem    string `bigquery:"source_system"`

	DedupFingerprint string `bigquery:"dedup_fingerprint"`
	LoadRunID        string `bigquery:"load_run_id"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// SaleErrorRow is one quarantined record in the append-only error table.
type SaleErrorRow struct {
	ErrorID   string `bigquery:"error_id"`
	LoadRunID string `bigquery:"load_run_id"`

	TransactionID   int64  `bigquery:"transaction_id"`
	SourceCreatedAt string `bigquery:"source_created_at"`

	ErrorKind string `bigquery:"error_kind"`
	Reason    string `bigquery:"reason"`

	RawPayload bigquery.NullJSON `bigquery:"raw_payload"` // original record as extracted

	RecordedTS time.Time `bigquery:"recorded_ts"`
}

// LoadRunRow is the bookkeeping record for one incremental load run.
type LoadRunRow struct {
	LoadRunID string `bigquery:"load_run_id"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"` // RUNNING / SUCCESS / FAILED
	ErrorMessage string `bigquery:"error_message"`

	OldWatermark string `bigquery:"old_watermark"`
	NewWatermark string `bigquery:"new_watermark"`

	ExtractedCount int64 `bigquery:"extracted_count"`
	LoadedCount    int64 `bigquery:"loaded_count"`
	ErrorCount     int64 `bigquery:"error_count"`
	DuplicateCount int64 `bigquery:"duplicate_count"`
}

// saleRowFromDomain maps an accepted record onto the warehouse schema.
// The transformer guarantees Quantity and UnitPrice are non-nil here.
func saleRowFromDomain(t *domain.TransformedSaleRecord, loadRunID string, now time.Time) *SaleRow {
	row := &SaleRow{
		TransactionID:    t.TransactionID,
		SaleDate:         civil.DateOf(t.SaleDate),
		StoreID:          t.StoreID,
		ProductID:        t.ProductID,
		ProductName:      t.ProductName,
		TotalAmount:      ratFromAmount(t.Total),
		SalesChannel:     t.Channel,
		CustomerSegment:  t.Segment,
		SourceCreatedAt:  t.CreatedAt,
		SourceSystem:     t.Source,
		DedupFingerprint: t.Fingerprint,
		LoadRunID:        loadRunID,
		CreatedTS:        now,
	}
	if t.CustomerID != nil {
		row.CustomerID = bigquery.NullInt64{Int64: *t.CustomerID, Valid: true}
	}
	if t.Quantity != nil {
		row.Quantity = *t.Quantity
	}
	if t.UnitPrice != nil {
		row.UnitPrice = ratFromAmount(*t.UnitPrice)
	}
	return row
}

// errorRowFromDomain maps a quarantined record onto the error schema. The
// raw payload is preserved verbatim as JSON.
func errorRowFromDomain(e domain.ErrorRecord, errorID, loadRunID string, now time.Time) *SaleErrorRow {
	row := &SaleErrorRow{
		ErrorID:         errorID,
		LoadRunID:       loadRunID,
		TransactionID:   e.Raw.TransactionID,
		SourceCreatedAt: e.Raw.CreatedAt,
		ErrorKind:       string(e.Kind),
		Reason:          e.Reason,
		RecordedTS:      now,
	}
	rawJSON, _ := json.Marshal(e.Raw)
	row.RawPayload = bigquery.NullJSON{JSONVal: string(rawJSON), Valid: true}
	return row
}

// ratFromAmount converts a 2-decimal monetary amount to an exact NUMERIC
// value. Going through cents avoids float artifacts like 51.00000000000001.
func ratFromAmount(v float64) *big.Rat {
	return big.NewRat(int64(math.Round(v*100)), 100)
}
