package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/priotag/fieldcrypt/internal/metrics"
	reportDomain "github.com/priotag/fieldcrypt/internal/report/domain"
)

// mockBusinessMetrics is a mock implementation of metrics.BusinessMetrics for testing.
type mockBusinessMetrics struct {
	mock.Mock
}

func (m *mockBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.Called(ctx, domain, operation, status)
}

func (m *mockBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.Called(ctx, domain, operation, duration, status)
}

func (m *mockBusinessMetrics) RecordBatchOutcome(ctx context.Context, operation, outcome string, count int) {
	m.Called(ctx, operation, outcome, count)
}

var _ metrics.BusinessMetrics = (*mockBusinessMetrics)(nil)

// stubDecryptor is a canned ReportDecryptor for decorator tests.
type stubDecryptor struct {
	result *reportDomain.BatchResult
	err    error
}

func (s *stubDecryptor) DecryptAll(
	ctx context.Context,
	subjects []reportDomain.Subject,
) (*reportDomain.BatchResult, error) {
	return s.result, s.err
}

func (s *stubDecryptor) DecryptIncremental(
	ctx context.Context,
	subjects []reportDomain.Subject,
) (*reportDomain.BatchResult, error) {
	return s.result, s.err
}

func TestNewReportDecryptorWithMetrics(t *testing.T) {
	decorator := NewReportDecryptorWithMetrics(&stubDecryptor{}, metrics.NewNoOpBusinessMetrics())

	assert.NotNil(t, decorator)
	assert.Implements(t, (*ReportDecryptor)(nil), decorator)
}

func TestMetricsDecorator_DecryptAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetricsAndOutcomes", func(t *testing.T) {
		stub := &stubDecryptor{
			result: &reportDomain.BatchResult{
				Stats: reportDomain.BatchStats{NewDecryptions: 3, Failures: 1},
			},
		}
		mockMetrics := &mockBusinessMetrics{}

		mockMetrics.On("RecordOperation", ctx, "report", "decrypt_all", "success").
			Return().
			Once()
		mockMetrics.On("RecordDuration", ctx, "report", "decrypt_all", mock.AnythingOfType("time.Duration"), "success").
			Return().
			Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_all", "cache_hit", 0).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_all", "new", 3).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_all", "redecrypt", 0).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_all", "failure", 1).Return().Once()

		decorator := NewReportDecryptorWithMetrics(stub, mockMetrics)
		result, err := decorator.DecryptAll(ctx, nil)

		assert.NoError(t, err)
		assert.Equal(t, stub.result, result)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		expectedError := errors.New("session closed")
		stub := &stubDecryptor{err: expectedError}
		mockMetrics := &mockBusinessMetrics{}

		mockMetrics.On("RecordOperation", ctx, "report", "decrypt_all", "error").
			Return().
			Once()
		mockMetrics.On("RecordDuration", ctx, "report", "decrypt_all", mock.AnythingOfType("time.Duration"), "error").
			Return().
			Once()

		decorator := NewReportDecryptorWithMetrics(stub, mockMetrics)
		result, err := decorator.DecryptAll(ctx, nil)

		assert.Nil(t, result)
		assert.Equal(t, expectedError, err)
		mockMetrics.AssertExpectations(t)
	})
}

func TestMetricsDecorator_DecryptIncremental(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RecordsSuccessMetricsAndOutcomes", func(t *testing.T) {
		stub := &stubDecryptor{
			result: &reportDomain.BatchResult{
				Stats: reportDomain.BatchStats{CacheHits: 5, Redecryptions: 2},
			},
		}
		mockMetrics := &mockBusinessMetrics{}

		mockMetrics.On("RecordOperation", ctx, "report", "decrypt_incremental", "success").
			Return().
			Once()
		mockMetrics.On(
			"RecordDuration",
			ctx,
			"report",
			"decrypt_incremental",
			mock.AnythingOfType("time.Duration"),
			"success",
		).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_incremental", "cache_hit", 5).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_incremental", "new", 0).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_incremental", "redecrypt", 2).Return().Once()
		mockMetrics.On("RecordBatchOutcome", ctx, "decrypt_incremental", "failure", 0).Return().Once()

		decorator := NewReportDecryptorWithMetrics(stub, mockMetrics)
		result, err := decorator.DecryptIncremental(ctx, nil)

		assert.NoError(t, err)
		assert.Equal(t, stub.result, result)
		mockMetrics.AssertExpectations(t)
	})

	t.Run("Error_RecordsErrorMetrics", func(t *testing.T) {
		expectedError := errors.New("session closed")
		stub := &stubDecryptor{err: expectedError}
		mockMetrics := &mockBusinessMetrics{}

		mockMetrics.On("RecordOperation", ctx, "report", "decrypt_incremental", "error").
			Return().
			Once()
		mockMetrics.On(
			"RecordDuration",
			ctx,
			"report",
			"decrypt_incremental",
			mock.AnythingOfType("time.Duration"),
			"error",
		).Return().Once()

		decorator := NewReportDecryptorWithMetrics(stub, mockMetrics)
		result, err := decorator.DecryptIncremental(ctx, nil)

		assert.Nil(t, result)
		assert.Equal(t, expectedError, err)
		mockMetrics.AssertExpectations(t)
	})
}
