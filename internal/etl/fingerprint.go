package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/dvloznov/retail-etl/internal/domain"
)

// contentFingerprint digests the semantically significant fields of a
// transformed record so downstream consumers can detect content-identical
// rows independent of the assigned transaction ID. It is stored on the row
// but is not the within-batch dedup key; that gate uses the transaction ID.
func contentFingerprint(t *domain.TransformedSaleRecord) string {
	var quantity int64
	if t.Quantity != nil {
		quantity = *t.Quantity
	}
	payload := fmt.Sprintf("%d|%s|%s|%d|%.2f",
		t.StoreID,
		t.SaleDate.Format("2006-01-02"),
		t.ProductID,
		quantity,
		t.Total,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
