package etl

import (
	"context"
	"testing"

	"github.com/dvloznov/retail-etl/internal/domain"
)

func testResolver(t *testing.T) *ReferenceResolver {
	t.Helper()
	resolver, err := NewReferenceResolver(context.Background(),
		&mockProductRepo{mappings: []domain.ProductMapping{
			{SourceCode: "POS-001", ProductID: "SKU-1001", DisplayName: "Espresso Beans 1kg"},
			{SourceCode: "POS-002", ProductID: "SKU-1002", DisplayName: "Filter Papers"},
		}},
		&mockCustomerRepo{profiles: []domain.CustomerProfile{
			{CustomerID: 42, Segment: "premium"},
			{CustomerID: 43, Segment: "regular"},
		}},
	)
	if err != nil {
		t.Fatalf("building resolver: %v", err)
	}
	return resolver
}

func TestTransformAcceptsAndEnriches(t *testing.T) {
	tr := NewTransformer(testResolver(t), nil)

	result := tr.Transform(context.Background(), []domain.RawSaleRecord{
		{
			TransactionID: 1001,
			CreatedAt:     "2024-03-15 14:30:00",
			StoreID:       7,
			CustomerID:    i64(42),
			ProductCode:   "POS-001",
			Quantity:      i64(2),
			UnitPrice:     f64(25.50),
		},
	})

	if len(result.Valid) != 1 || len(result.Errors) != 0 || result.Duplicates != 0 {
		t.Fatalf("unexpected dispositions: valid=%d errors=%d duplicates=%d",
			len(result.Valid), len(result.Errors), result.Duplicates)
	}

	rec := result.Valid[0]
	if rec.ProductID != "SKU-1001" || rec.ProductName != "Espresso Beans 1kg" {
		t.Errorf("product not resolved: %q %q", rec.ProductID, rec.ProductName)
	}
	if rec.Total != 51.00 {
		t.Errorf("expected total 51.00, got %v", rec.Total)
	}
	if rec.Segment != "premium" {
		t.Errorf("expected segment premium, got %q", rec.Segment)
	}
	if got := rec.SaleDate.Format("2006-01-02 15:04:05"); got != "2024-03-15 00:00:00" {
		t.Errorf("sale date not truncated to midnight: %s", got)
	}
	if rec.Channel != ChannelStore || rec.Source != SourcePOS {
		t.Errorf("channel/source tags wrong: %q %q", rec.Channel, rec.Source)
	}
	if rec.CreatedAt != "2024-03-15 14:30:00" {
		t.Errorf("original timestamp not preserved: %q", rec.CreatedAt)
	}
	if len(rec.Fingerprint) != 64 {
		t.Errorf("expected sha256 hex fingerprint, got %q", rec.Fingerprint)
	}
}

func TestTransformSegmentsAnonymousAndUnknown(t *testing.T) {
	tr := NewTransformer(testResolver(t), nil)

	result := tr.Transform(context.Background(), []domain.RawSaleRecord{
		{TransactionID: 1, CreatedAt: "2024-03-15 09:00:00", StoreID: 7, CustomerID: nil,
			ProductCode: "POS-001", Quantity: i64(1), UnitPrice: f64(10)},
		{TransactionID: 2, CreatedAt: "2024-03-15 09:05:00", StoreID: 7, CustomerID: i64(999),
			ProductCode: "POS-001", Quantity: i64(1), UnitPrice: f64(10)},
	})

	if len(result.Valid) != 2 {
		t.Fatalf("expected 2 valid records, got %d (errors: %+v)", len(result.Valid), result.Errors)
	}
	if result.Valid[0].Segment != SegmentAnonymous {
		t.Errorf("nil customer: expected %q, got %q", SegmentAnonymous, result.Valid[0].Segment)
	}
	if result.Valid[1].Segment != SegmentUnclassified {
		t.Errorf("unknown customer: expected %q, got %q", SegmentUnclassified, result.Valid[1].Segment)
	}
}

func TestTransformQuarantines(t *testing.T) {
	tests := []struct {
		name   string
		raw    domain.RawSaleRecord
		kind   domain.ErrorKind
		reason string
	}{
		{
			name: "unmapped product",
			raw: domain.RawSaleRecord{TransactionID: 10, CreatedAt: "2024-03-15 09:00:00",
				StoreID: 7, ProductCode: "POS-999", Quantity: i64(1), UnitPrice: f64(10)},
			kind:   domain.ErrorKindMapping,
			reason: "product POS-999 not found in mapping",
		},
		{
			name: "malformed timestamp",
			raw: domain.RawSaleRecord{TransactionID: 11, CreatedAt: "15/03/2024 09:00",
				StoreID: 7, ProductCode: "POS-001", Quantity: i64(1), UnitPrice: f64(10)},
			kind:   domain.ErrorKindMalformedInput,
			reason: "malformed timestamp",
		},
		{
			name: "negative quantity",
			raw: domain.RawSaleRecord{TransactionID: 12, CreatedAt: "2024-03-15 09:00:00",
				StoreID: 7, ProductCode: "POS-001", Quantity: i64(-1), UnitPrice: f64(10)},
			kind:   domain.ErrorKindValidation,
			reason: "negative quantity",
		},
		{
			name: "null unit price",
			raw: domain.RawSaleRecord{TransactionID: 13, CreatedAt: "2024-03-15 09:00:00",
				StoreID: 7, ProductCode: "POS-001", Quantity: i64(1)},
			kind:   domain.ErrorKindValidation,
			reason: "unit price is null",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTransformer(testResolver(t), nil)
			result := tr.Transform(context.Background(), []domain.RawSaleRecord{tt.raw})

			if len(result.Valid) != 0 || len(result.Errors) != 1 {
				t.Fatalf("unexpected dispositions: valid=%d errors=%d", len(result.Valid), len(result.Errors))
			}
			e := result.Errors[0]
			if e.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, e.Kind)
			}
			if e.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, e.Reason)
			}
			if e.Raw.TransactionID != tt.raw.TransactionID {
				t.Errorf("raw record not preserved on error")
			}
		})
	}
}

func TestTransformDeduplicatesByTransactionID(t *testing.T) {
	tr := NewTransformer(testResolver(t), nil)

	result := tr.Transform(context.Background(), []domain.RawSaleRecord{
		{TransactionID: 500, CreatedAt: "2024-03-15 09:00:00", StoreID: 7,
			ProductCode: "POS-001", Quantity: i64(1), UnitPrice: f64(10)},
		{TransactionID: 500, CreatedAt: "2024-03-15 09:01:00", StoreID: 7,
			ProductCode: "POS-002", Quantity: i64(3), UnitPrice: f64(4)},
	})

	if len(result.Valid) != 1 {
		t.Fatalf("expected 1 valid record, got %d", len(result.Valid))
	}
	if result.Duplicates != 1 {
		t.Errorf("expected 1 duplicate, got %d", result.Duplicates)
	}
	if len(result.Errors) != 0 {
		t.Errorf("duplicates must not land in the error stream: %+v", result.Errors)
	}
	// First occurrence wins.
	if result.Valid[0].ProductID != "SKU-1001" {
		t.Errorf("expected first occurrence kept, got %q", result.Valid[0].ProductID)
	}
}

// An invalid record must not register its transaction ID: a later valid
// record with the same ID is not a duplicate.
func TestTransformInvalidRecordDoesNotClaimID(t *testing.T) {
	tr := NewTransformer(testResolver(t), nil)

	result := tr.Transform(context.Background(), []domain.RawSaleRecord{
		{TransactionID: 600, CreatedAt: "2024-03-15 09:00:00", StoreID: 7,
			ProductCode: "POS-001", Quantity: i64(-5), UnitPrice: f64(10)},
		{TransactionID: 600, CreatedAt: "2024-03-15 09:01:00", StoreID: 7,
			ProductCode: "POS-001", Quantity: i64(5), UnitPrice: f64(10)},
	})

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if result.Duplicates != 0 {
		t.Errorf("expected 0 duplicates, got %d", result.Duplicates)
	}
	if len(result.Valid) != 1 {
		t.Fatalf("valid retry of an errored ID must be accepted, got %d valid", len(result.Valid))
	}
}

func TestTransformEmptyBatch(t *testing.T) {
	tr := NewTransformer(testResolver(t), nil)
	result := tr.Transform(context.Background(), nil)

	if len(result.Valid) != 0 || len(result.Errors) != 0 || result.Duplicates != 0 {
		t.Errorf("empty batch must produce no dispositions: %+v", result)
	}
}

func TestTransformZeroQuantityAndPriceAreValid(t *testing.T) {
	tr := NewTransformer(testResolver(t), nil)

	result := tr.Transform(context.Background(), []domain.RawSaleRecord{
		{TransactionID: 700, CreatedAt: "2024-03-15 09:00:00", StoreID: 7,
			ProductCode: "POS-001", Quantity: i64(0), UnitPrice: f64(0)},
	})

	if len(result.Valid) != 1 {
		t.Fatalf("zero quantity/price should be valid, got errors: %+v", result.Errors)
	}
	if result.Valid[0].Total != 0 {
		t.Errorf("expected total 0, got %v", result.Valid[0].Total)
	}
}
