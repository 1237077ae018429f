package etl

import (
	"github.com/dvloznov/retail-etl/internal/domain"
)

// Validation reasons, surfaced verbatim on error records.
const (
	reasonProductIDMissing  = "product id is missing"
	reasonQuantityNull      = "quantity is null"
	reasonNegativeQuantity  = "negative quantity"
	reasonUnitPriceNull     = "unit price is null"
	reasonNegativeUnitPrice = "negative unit price"
)

// validateSale enforces the business rules on a transformed record.
// Rules run in a fixed order and the first failure wins; ok is true only
// when every rule passes. Zero quantity and zero price are valid.
func validateSale(t *domain.TransformedSaleRecord) (ok bool, reason string) {
	if t.ProductID == "" {
		return false, reasonProductIDMissing
	}
	if t.Quantity == nil {
		return false, reasonQuantityNull
	}
	if *t.Quantity < 0 {
		return false, reasonNegativeQuantity
	}
	if t.UnitPrice == nil {
		return false, reasonUnitPriceNull
	}
	if *t.UnitPrice < 0 {
		return false, reasonNegativeUnitPrice
	}
	return true, ""
}
