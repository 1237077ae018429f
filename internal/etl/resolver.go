package etl

import (
	"context"
	"fmt"

	"github.com/dvloznov/retail-etl/internal/domain"
)

// Segment labels for customers the directory cannot classify. An absent
// customer ID and an unknown customer ID are different states and must not
// collapse into one.
const (
	SegmentAnonymous    = "anonymous"
	SegmentUnclassified = "unclassified"
)

// ReferenceResolver answers product and customer lookups from reference
// data loaded once per run. Lookups are read-only and side-effect-free.
type ReferenceResolver struct {
	products map[string]domain.ProductMapping
	segments map[int64]string
}

// NewReferenceResolver loads both reference sets through the given
// repositories and builds the lookup maps.
func NewReferenceResolver(ctx context.Context, products ProductMappingRepository, customers CustomerProfileRepository) (*ReferenceResolver, error) {
	mappings, err := products.ListProductMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewReferenceResolver: list product mappings: %w", err)
	}

	profiles, err := customers.ListCustomerProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewReferenceResolver: list customer profiles: %w", err)
	}

	r := &ReferenceResolver{
		products: make(map[string]domain.ProductMapping, len(mappings)),
		segments: make(map[int64]string, len(profiles)),
	}
	for _, m := range mappings {
		r.products[m.SourceCode] = m
	}
	for _, p := range profiles {
		r.segments[p.CustomerID] = p.Segment
	}

	return r, nil
}

// ResolveProduct maps a source product code to its unified identity.
// A missing entry is a normal outcome, reported through ok, not an error.
func (r *ReferenceResolver) ResolveProduct(code string) (domain.ProductMapping, bool) {
	m, ok := r.products[code]
	return m, ok
}

// ResolveSegment returns the segmentation label for a customer. It never
// fails: a nil customer ID yields "anonymous" and an unknown one
// "unclassified".
func (r *ReferenceResolver) ResolveSegment(customerID *int64) string {
	if customerID == nil {
		return SegmentAnonymous
	}
	segment, ok := r.segments[*customerID]
	if !ok {
		return SegmentUnclassified
	}
	return segment
}
