package domain

import (
	"time"
)

// RawSaleRecord is a sale event exactly as extracted from the POS source.
// TransactionID is not guaranteed unique within a batch, CustomerID is nil
// for anonymous purchases, and Quantity/UnitPrice may be nil or negative;
// the transformation pipeline is responsible for sorting that out.
type RawSaleRecord struct {
	TransactionID int64    `json:"transaction_id"`
	CreatedAt     string   `json:"created_at"` // "2006-01-02 15:04:05", sortable lexicographically
	StoreID       int64    `json:"store_id"`
	CustomerID    *int64   `json:"customer_id,omitempty"`
	ProductCode   string   `json:"product_code"`
	Quantity      *int64   `json:"quantity,omitempty"`
	UnitPrice     *float64 `json:"unit_price,omitempty"`
}

// ProductMapping links a source product code to its unified identity.
type ProductMapping struct {
	SourceCode  string
	ProductID   string
	DisplayName string
}

// CustomerProfile carries the segmentation label for one customer.
type CustomerProfile struct {
	CustomerID int64
	Segment    string
}

// TransformedSaleRecord is a normalized, enriched sale ready for the
// warehouse. Quantity and UnitPrice stay nullable until the validator has
// passed the record; accepted records always carry both.
type TransformedSaleRecord struct {
	TransactionID int64
	SaleDate      time.Time // date component only
	StoreID       int64
	CustomerID    *int64
	ProductID     string
	ProductName   string
	Quantity      *int64
	UnitPrice     *float64
	Total         float64 // round(quantity * unit price, 2)
	Channel       string
	Segment       string
	CreatedAt     string // original source timestamp
	Source        string
	Fingerprint   string
}

// ErrorKind classifies why a record was quarantined.
type ErrorKind string

const (
	// ErrorKindMapping means the product code had no entry in the mapping.
	ErrorKindMapping ErrorKind = "mapping"
	// ErrorKindMalformedInput means the record could not be normalized.
	ErrorKindMalformedInput ErrorKind = "malformed_input"
	// ErrorKindValidation means a business rule rejected the record.
	ErrorKindValidation ErrorKind = "validation"
)

// ErrorRecord pairs a raw record with the reason it was rejected. Error
// records are never dropped; they are appended to the error table as-is.
type ErrorRecord struct {
	Raw    RawSaleRecord
	Kind   ErrorKind
	Reason string
}

// RunSummary is the observable outcome of one incremental load run.
// Extracted always equals Loaded + Errored + Duplicates.
type RunSummary struct {
	LoadRunID    string
	Extracted    int
	Loaded       int
	Errored      int
	Duplicates   int
	OldWatermark string
	NewWatermark string
}
