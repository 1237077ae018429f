package etl

import (
	"context"
	"fmt"

	"github.com/dvloznov/retail-etl/internal/domain"
	"github.com/dvloznov/retail-etl/internal/logger"
)

// Sales channel and source tags for all records coming from the POS feed.
const (
	ChannelStore = "store"
	SourcePOS    = "pos"
)

// TransformResult partitions one batch into its three dispositions. Every
// extracted record contributes to exactly one of them.
type TransformResult struct {
	Valid      []*domain.TransformedSaleRecord
	Errors     []domain.ErrorRecord
	Duplicates int
}

// Transformer converts raw sale records into warehouse-ready records. It
// composes the reference resolver, normalizer, validator and deduplicator
// into a single per-record pipeline with a fixed stage order.
type Transformer struct {
	resolver *ReferenceResolver
	reporter RunReporter
}

// NewTransformer builds a Transformer around already-loaded reference data.
func NewTransformer(resolver *ReferenceResolver, reporter RunReporter) *Transformer {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Transformer{resolver: resolver, reporter: reporter}
}

// Transform runs the per-record pipeline over one extracted batch, in batch
// order. The stage order is load-bearing: product resolution and
// normalization short-circuit to the error stream, validation runs before
// the duplicate check, and only accepted records register their ID.
func (t *Transformer) Transform(ctx context.Context, batch []domain.RawSaleRecord) TransformResult {
	log := logger.FromContext(ctx)

	result := TransformResult{}
	dedup := newDeduplicator()

	for _, raw := range batch {
		// 1. Resolve product identity. Not-found is a per-record fault.
		mapping, found := t.resolver.ResolveProduct(raw.ProductCode)
		if !found {
			result.Errors = append(result.Errors, t.quarantine(raw, domain.ErrorKindMapping,
				fmt.Sprintf("product %s not found in mapping", raw.ProductCode)))
			continue
		}

		// 2. Normalize the timestamp and compute the line total.
		saleDate, err := normalizeTimestamp(raw.CreatedAt)
		if err != nil {
			result.Errors = append(result.Errors, t.quarantine(raw, domain.ErrorKindMalformedInput,
				"malformed timestamp"))
			continue
		}
		total := lineTotal(raw.Quantity, raw.UnitPrice)

		// 3. Enrich with the customer segment.
		segment := t.resolver.ResolveSegment(raw.CustomerID)

		// 4. Assemble the transformed record and fingerprint it.
		transformed := &domain.TransformedSaleRecord{
			TransactionID: raw.TransactionID,
			SaleDate:      saleDate,
			StoreID:       raw.StoreID,
			CustomerID:    raw.CustomerID,
			ProductID:     mapping.ProductID,
			ProductName:   mapping.DisplayName,
			Quantity:      raw.Quantity,
			UnitPrice:     raw.UnitPrice,
			Total:         total,
			Channel:       ChannelStore,
			Segment:       segment,
			CreatedAt:     raw.CreatedAt,
			Source:        SourcePOS,
		}
		transformed.Fingerprint = contentFingerprint(transformed)

		// 5. Validate business rules.
		if ok, reason := validateSale(transformed); !ok {
			result.Errors = append(result.Errors, t.quarantine(raw, domain.ErrorKindValidation, reason))
			continue
		}

		// 6. Duplicate check. Runs only on records that passed validation;
		// duplicates are a third disposition, not errors.
		if dedup.isDuplicate(raw.TransactionID) {
			result.Duplicates++
			log.Warn().
				Int64("transaction_id", raw.TransactionID).
				Msg("Duplicate transaction skipped")
			continue
		}

		// 7. Accept.
		dedup.register(raw.TransactionID)
		result.Valid = append(result.Valid, transformed)
	}

	return result
}

func (t *Transformer) quarantine(raw domain.RawSaleRecord, kind domain.ErrorKind, reason string) domain.ErrorRecord {
	t.reporter.RecordError(kind)
	return domain.ErrorRecord{Raw: raw, Kind: kind, Reason: reason}
}
