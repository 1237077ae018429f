package etl

import (
	"context"

	"github.com/dvloznov/retail-etl/internal/domain"
)

// Function-field mocks for the Runner's collaborators. Unset fields mean
// the test does not expect that call.

type mockSaleSource struct {
	ExtractFunc func(ctx context.Context, sinceWatermark string) ([]domain.RawSaleRecord, error)
}

func (m *mockSaleSource) Extract(ctx context.Context, sinceWatermark string) ([]domain.RawSaleRecord, error) {
	return m.ExtractFunc(ctx, sinceWatermark)
}

type mockWarehouse struct {
	UpsertSalesFunc  func(ctx context.Context, loadRunID string, records []*domain.TransformedSaleRecord) error
	AppendErrorsFunc func(ctx context.Context, loadRunID string, records []domain.ErrorRecord) error

	upsertCalls int
	appendCalls int
}

func (m *mockWarehouse) UpsertSales(ctx context.Context, loadRunID string, records []*domain.TransformedSaleRecord) error {
	m.upsertCalls++
	if m.UpsertSalesFunc == nil {
		return nil
	}
	return m.UpsertSalesFunc(ctx, loadRunID, records)
}

func (m *mockWarehouse) AppendErrors(ctx context.Context, loadRunID string, records []domain.ErrorRecord) error {
	m.appendCalls++
	if m.AppendErrorsFunc == nil {
		return nil
	}
	return m.AppendErrorsFunc(ctx, loadRunID, records)
}

type mockWatermarkStore struct {
	value      string
	writes     []string
	readErr    error
	writeErr   error
}

func (m *mockWatermarkStore) Read(ctx context.Context) (string, error) {
	if m.readErr != nil {
		return "", m.readErr
	}
	return m.value, nil
}

func (m *mockWatermarkStore) Write(ctx context.Context, value string) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes = append(m.writes, value)
	m.value = value
	return nil
}

type mockRunLog struct {
	startErr      error
	succeedErr    error
	succeeded     []domain.RunSummary
	failed        []error
}

func (m *mockRunLog) StartLoadRun(ctx context.Context, oldWatermark string) (string, error) {
	if m.startErr != nil {
		return "", m.startErr
	}
	return "run-1", nil
}

func (m *mockRunLog) MarkLoadRunSucceeded(ctx context.Context, loadRunID string, summary domain.RunSummary) error {
	if m.succeedErr != nil {
		return m.succeedErr
	}
	m.succeeded = append(m.succeeded, summary)
	return nil
}

func (m *mockRunLog) MarkLoadRunFailed(ctx context.Context, loadRunID string, runErr error) {
	m.failed = append(m.failed, runErr)
}

type mockProductRepo struct {
	mappings []domain.ProductMapping
	err      error
}

func (m *mockProductRepo) ListProductMappings(ctx context.Context) ([]domain.ProductMapping, error) {
	return m.mappings, m.err
}

type mockCustomerRepo struct {
	profiles []domain.CustomerProfile
	err      error
}

func (m *mockCustomerRepo) ListCustomerProfiles(ctx context.Context) ([]domain.CustomerProfile, error) {
	return m.profiles, m.err
}

func i64(v int64) *int64 {
	return &v
}

func f64(v float64) *float64 {
	return &v
}
