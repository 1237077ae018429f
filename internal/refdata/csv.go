// Package refdata loads the read-only reference sets the transformation
// pipeline enriches from: the product mapping and the customer segmentation
// directory. Both are CSV objects fetched from GCS once per run.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dvloznov/retail-etl/internal/domain"
)

// ParseProductMappings reads a product mapping CSV. Required columns:
// source_code, product_id, display_name. Column order is taken from the
// header row.
func ParseProductMappings(r io.Reader) ([]domain.ProductMapping, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseProductMappings: %w", err)
	}

	codeIdx, err := columnIndex(header, "source_code")
	if err != nil {
		return nil, fmt.Errorf("ParseProductMappings: %w", err)
	}
	idIdx, err := columnIndex(header, "product_id")
	if err != nil {
		return nil, fmt.Errorf("ParseProductMappings: %w", err)
	}
	nameIdx, err := columnIndex(header, "display_name")
	if err != nil {
		return nil, fmt.Errorf("ParseProductMappings: %w", err)
	}

	mappings := make([]domain.ProductMapping, 0, len(records))
	for i, rec := range records {
		code := strings.TrimSpace(rec[codeIdx])
		id := strings.TrimSpace(rec[idIdx])
		if code == "" || id == "" {
			return nil, fmt.Errorf("ParseProductMappings: row %d: empty source_code or product_id", i+2)
		}
		mappings = append(mappings, domain.ProductMapping{
			SourceCode:  code,
			ProductID:   id,
			DisplayName: strings.TrimSpace(rec[nameIdx]),
		})
	}

	return mappings, nil
}

// ParseCustomerProfiles reads a customer directory CSV. Required columns:
// customer_id, segment. Extra columns (name, email) are ignored.
func ParseCustomerProfiles(r io.Reader) ([]domain.CustomerProfile, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("ParseCustomerProfiles: %w", err)
	}

	idIdx, err := columnIndex(header, "customer_id")
	if err != nil {
		return nil, fmt.Errorf("ParseCustomerProfiles: %w", err)
	}
	segmentIdx, err := columnIndex(header, "segment")
	if err != nil {
		return nil, fmt.Errorf("ParseCustomerProfiles: %w", err)
	}

	profiles := make([]domain.CustomerProfile, 0, len(records))
	for i, rec := range records {
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idIdx]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ParseCustomerProfiles: row %d: invalid customer_id %q", i+2, rec[idIdx])
		}
		segment := strings.TrimSpace(rec[segmentIdx])
		if segment == "" {
			return nil, fmt.Errorf("ParseCustomerProfiles: row %d: empty segment", i+2)
		}
		profiles = append(profiles, domain.CustomerProfile{
			CustomerID: id,
			Segment:    segment,
		})
	}

	return profiles, nil
}

func readCSV(r io.Reader) (records [][]string, header []string, err error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("csv is empty")
	}
	return rows[1:], rows[0], nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("missing column %q", name)
}
