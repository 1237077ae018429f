package etl

// deduplicator tracks transaction IDs already accepted within one batch.
// It is consulted strictly after validation, so an invalid record sharing
// an ID with an earlier one still lands in the error stream.
// Cross-run duplicates are handled by the warehouse upsert, not here.
type deduplicator struct {
	seen map[int64]struct{}
}

func newDeduplicator() *deduplicator {
	return &deduplicator{seen: make(map[int64]struct{})}
}

func (d *deduplicator) isDuplicate(transactionID int64) bool {
	_, ok := d.seen[transactionID]
	return ok
}

func (d *deduplicator) register(transactionID int64) {
	d.seen[transactionID] = struct{}{}
}
