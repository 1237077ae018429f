package refdata

import (
	"strings"
	"testing"
)

func TestParseProductMappings(t *testing.T) {
	csv := strings.Join([]string{
		"source_code,product_id,display_name",
		"POS-001,SKU-1001,Espresso Beans 1kg",
		"POS-002,SKU-1002,Filter Papers",
	}, "\n")

	mappings, err := ParseProductMappings(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseProductMappings: %v", err)
	}
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d", len(mappings))
	}
	if mappings[0].SourceCode != "POS-001" || mappings[0].ProductID != "SKU-1001" {
		t.Errorf("unexpected first mapping: %+v", mappings[0])
	}
	if mappings[0].DisplayName != "Espresso Beans 1kg" {
		t.Errorf("unexpected display name: %q", mappings[0].DisplayName)
	}
}

func TestParseProductMappingsColumnOrderFromHeader(t *testing.T) {
	csv := strings.Join([]string{
		"display_name,source_code,product_id",
		"Espresso Beans 1kg,POS-001,SKU-1001",
	}, "\n")

	mappings, err := ParseProductMappings(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseProductMappings: %v", err)
	}
	if mappings[0].SourceCode != "POS-001" || mappings[0].ProductID != "SKU-1001" {
		t.Errorf("header order not respected: %+v", mappings[0])
	}
}

func TestParseProductMappingsErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"missing column", "source_code,display_name\nPOS-001,Beans"},
		{"empty source code", "source_code,product_id,display_name\n,SKU-1001,Beans"},
		{"empty product id", "source_code,product_id,display_name\nPOS-001,,Beans"},
		{"empty file", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseProductMappings(strings.NewReader(tt.csv)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseCustomerProfiles(t *testing.T) {
	csv := strings.Join([]string{
		"customer_id,segment,name,email",
		"42,premium,Alex,alex@example.com",
		"43,regular,Sam,sam@example.com",
	}, "\n")

	profiles, err := ParseCustomerProfiles(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCustomerProfiles: %v", err)
	}
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[0].CustomerID != 42 || profiles[0].Segment != "premium" {
		t.Errorf("unexpected first profile: %+v", profiles[0])
	}
}

func TestParseCustomerProfilesErrors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"non-numeric id", "customer_id,segment\nabc,premium"},
		{"empty segment", "customer_id,segment\n42,"},
		{"missing segment column", "customer_id,name\n42,Alex"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCustomerProfiles(strings.NewReader(tt.csv)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseHeaderCaseInsensitive(t *testing.T) {
	csv := "Customer_ID,Segment\n42,premium"
	profiles, err := ParseCustomerProfiles(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("ParseCustomerProfiles: %v", err)
	}
	if profiles[0].CustomerID != 42 {
		t.Errorf("case-insensitive header match failed: %+v", profiles)
	}
}
