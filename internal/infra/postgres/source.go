// Package postgres reads raw sale events from the operational POS database
// using a pgx connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/dvloznov/retail-etl/internal/domain"
	"github.com/dvloznov/retail-etl/internal/etl"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config configures the pgx pool for the POS source.
type Config struct {
	URL      string
	MaxConns int32
}

// SaleSource extracts raw sale records from the POS transactions table.
type SaleSource struct {
	pool *pgxpool.Pool
}

// Open creates a SaleSource backed by a new pgx pool.
func Open(ctx context.Context, cfg Config) (*SaleSource, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("Open: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("Open: create pool: %w", err)
	}

	return &SaleSource{pool: pool}, nil
}

// Close closes the pool.
func (s *SaleSource) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Extract returns every sale created strictly after the watermark, ordered
// by creation timestamp ascending. Timestamps are rendered in the fixed
// layout the transformation pipeline expects, so the comparison against the
// watermark string stays consistent on both sides.
func (s *SaleSource) Extract(ctx context.Context, sinceWatermark string) ([]domain.RawSaleRecord, error) {
	const query = `
		SELECT sale_id,
		       to_char(created_at, 'YYYY-MM-DD HH24:MI:SS'),
		       store_id,
		       customer_id,
		       product_code,
		       quantity,
		       unit_price
		FROM pos_sales
		WHERE to_char(created_at, 'YYYY-MM-DD HH24:MI:SS') > $1
		ORDER BY created_at ASC
	`

	rows, err := s.pool.Query(ctx, query, sinceWatermark)
	if err != nil {
		return nil, fmt.Errorf("Extract: query: %w", err)
	}
	defer rows.Close()

	var records []domain.RawSaleRecord
	for rows.Next() {
		var r domain.RawSaleRecord
		if err := rows.Scan(
			&r.TransactionID,
			&r.CreatedAt,
			&r.StoreID,
			&r.CustomerID,
			&r.ProductCode,
			&r.Quantity,
			&r.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("Extract: scan: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Extract: rows: %w", err)
	}

	return records, nil
}

var _ etl.SaleSource = (*SaleSource)(nil)
