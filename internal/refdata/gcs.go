package refdata

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/dvloznov/retail-etl/internal/domain"
)

// GCSRepository serves both reference sets from CSV objects in one bucket.
// Objects are fetched fresh on every List call, so a run always sees the
// reference data as of its start.
type GCSRepository struct {
	client          *storage.Client
	bucket          string
	productsObject  string
	customersObject string
}

// NewGCSRepository creates a repository over the given bucket and objects.
func NewGCSRepository(ctx context.Context, bucket, productsObject, customersObject string) (*GCSRepository, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSRepository: creating storage client: %w", err)
	}
	return &GCSRepository{
		client:          client,
		bucket:          bucket,
		productsObject:  productsObject,
		customersObject: customersObject,
	}, nil
}

// Close closes the storage client.
func (r *GCSRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ListProductMappings fetches and parses the product mapping CSV.
func (r *GCSRepository) ListProductMappings(ctx context.Context) ([]domain.ProductMapping, error) {
	data, err := r.fetchObject(ctx, r.productsObject)
	if err != nil {
		return nil, fmt.Errorf("ListProductMappings: %w", err)
	}
	return ParseProductMappings(bytes.NewReader(data))
}

// ListCustomerProfiles fetches and parses the customer directory CSV.
func (r *GCSRepository) ListCustomerProfiles(ctx context.Context) ([]domain.CustomerProfile, error) {
	data, err := r.fetchObject(ctx, r.customersObject)
	if err != nil {
		return nil, fmt.Errorf("ListCustomerProfiles: %w", err)
	}
	return ParseCustomerProfiles(bytes.NewReader(data))
}

func (r *GCSRepository) fetchObject(ctx context.Context, object string) ([]byte, error) {
	rc, err := r.client.Bucket(r.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", r.bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading bytes of %s/%s: %w", r.bucket, object, err)
	}
	return data, nil
}
