package etl

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/retail-etl/internal/domain"
)

func TestResolveSegment(t *testing.T) {
	resolver := testResolver(t)

	if got := resolver.ResolveSegment(nil); got != SegmentAnonymous {
		t.Errorf("nil customer: expected %q, got %q", SegmentAnonymous, got)
	}
	if got := resolver.ResolveSegment(i64(999)); got != SegmentUnclassified {
		t.Errorf("unknown customer: expected %q, got %q", SegmentUnclassified, got)
	}
	if got := resolver.ResolveSegment(i64(42)); got != "premium" {
		t.Errorf("known customer: expected %q, got %q", "premium", got)
	}
}

func TestResolveProduct(t *testing.T) {
	resolver := testResolver(t)

	m, ok := resolver.ResolveProduct("POS-001")
	if !ok {
		t.Fatal("expected POS-001 to resolve")
	}
	if m.ProductID != "SKU-1001" || m.DisplayName != "Espresso Beans 1kg" {
		t.Errorf("unexpected mapping: %+v", m)
	}

	if _, ok := resolver.ResolveProduct("POS-404"); ok {
		t.Error("unknown code must not resolve")
	}
}

func TestNewReferenceResolverPropagatesErrors(t *testing.T) {
	boom := errors.New("gcs unavailable")

	_, err := NewReferenceResolver(context.Background(),
		&mockProductRepo{err: boom},
		&mockCustomerRepo{},
	)
	if !errors.Is(err, boom) {
		t.Errorf("expected product repo error, got %v", err)
	}

	_, err = NewReferenceResolver(context.Background(),
		&mockProductRepo{mappings: []domain.ProductMapping{{SourceCode: "a", ProductID: "b"}}},
		&mockCustomerRepo{err: boom},
	)
	if !errors.Is(err, boom) {
		t.Errorf("expected customer repo error, got %v", err)
	}
}
