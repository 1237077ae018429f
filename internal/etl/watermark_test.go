package etl

import (
	"testing"

	"github.com/dvloznov/retail-etl/internal/domain"
)

func TestAdvanceWatermark(t *testing.T) {
	batch := func(timestamps ...string) []domain.RawSaleRecord {
		records := make([]domain.RawSaleRecord, len(timestamps))
		for i, ts := range timestamps {
			records[i] = domain.RawSaleRecord{CreatedAt: ts}
		}
		return records
	}

	tests := []struct {
		name    string
		current string
		batch   []domain.RawSaleRecord
		want    string
	}{
		{"empty batch keeps watermark", "2024-03-15 10:00:00", nil, "2024-03-15 10:00:00"},
		{"advances to max", "2024-03-15 10:00:00",
			batch("2024-03-15 11:00:00", "2024-03-15 12:30:00", "2024-03-15 11:45:00"),
			"2024-03-15 12:30:00"},
		{"max not necessarily last", "",
			batch("2024-03-15 12:30:00", "2024-03-15 11:00:00"),
			"2024-03-15 12:30:00"},
		{"single record", "2024-03-15 10:00:00",
			batch("2024-03-15 13:00:00"),
			"2024-03-15 13:00:00"},
		{"never regresses", "2024-03-15 10:00:00",
			batch("2024-03-14 09:00:00"),
			"2024-03-15 10:00:00"},
		{"initial load from empty", "",
			batch("2024-01-01 00:00:01"),
			"2024-01-01 00:00:01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AdvanceWatermark(tt.current, tt.batch); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
