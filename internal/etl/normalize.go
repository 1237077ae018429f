package etl

import (
	"fmt"
	"math"
	"time"
)

// TimestampLayout is the only accepted creation-timestamp format. It is
// fixed-width and zero-padded, which keeps lexicographic comparison of
// watermark strings equivalent to chronological comparison.
const TimestampLayout = "2006-01-02 15:04:05"

// normalizeTimestamp parses a source creation timestamp and truncates it to
// its date component. A timestamp that does not match TimestampLayout is
// fatal for that record only.
func normalizeTimestamp(createdAt string) (time.Time, error) {
	ts, err := time.Parse(TimestampLayout, createdAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("normalizeTimestamp: parse %q: %w", createdAt, err)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// lineTotal computes quantity * unit price rounded to 2 decimal places.
// Rounding is half away from zero. Nil inputs count as zero; the validator
// rejects such records afterwards, so the placeholder total never reaches
// the warehouse.
func lineTotal(quantity *int64, unitPrice *float64) float64 {
	if quantity == nil || unitPrice == nil {
		return 0
	}
	return round2(float64(*quantity) * *unitPrice)
}

// round2 rounds to 2 decimal places, half away from zero.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
