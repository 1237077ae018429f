package etl

import (
	"github.com/dvloznov/retail-etl/internal/domain"
)

// AdvanceWatermark computes the new watermark from one extracted batch: the
// maximum creation timestamp across all extracted records, whatever their
// disposition. Counting errored and duplicate records too keeps a
// permanently invalid record from being re-extracted forever. An empty
// batch leaves the watermark unchanged.
//
// Comparison is lexicographic, which TimestampLayout makes equivalent to
// chronological order.
func AdvanceWatermark(current string, batch []domain.RawSaleRecord) string {
	max := current
	for _, r := range batch {
		if r.CreatedAt > max {
			max = r.CreatedAt
		}
	}
	return max
}
