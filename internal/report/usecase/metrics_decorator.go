package usecase

import (
	"context"
	"time"

	"github.com/priotag/fieldcrypt/internal/metrics"
	reportDomain "github.com/priotag/fieldcrypt/internal/report/domain"
)

// reportDecryptorWithMetrics decorates ReportDecryptor with metrics instrumentation.
type reportDecryptorWithMetrics struct {
	next    ReportDecryptor
	metrics metrics.BusinessMetrics
}

// NewReportDecryptorWithMetrics wraps a ReportDecryptor with metrics recording.
func NewReportDecryptorWithMetrics(decryptor ReportDecryptor, m metrics.BusinessMetrics) ReportDecryptor {
	return &reportDecryptorWithMetrics{
		next:    decryptor,
		metrics: m,
	}
}

// DecryptAll records metrics for full batch decryption operations.
func (r *reportDecryptorWithMetrics) DecryptAll(
	ctx context.Context,
	subjects []reportDomain.Subject,
) (*reportDomain.BatchResult, error) {
	start := time.Now()
	result, err := r.next.DecryptAll(ctx, subjects)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "report", "decrypt_all", status)
	r.metrics.RecordDuration(ctx, "report", "decrypt_all", time.Since(start), status)
	if result != nil {
		r.recordOutcomes(ctx, "decrypt_all", result.Stats)
	}

	return result, err
}

// DecryptIncremental records metrics for incremental batch decryption operations.
func (r *reportDecryptorWithMetrics) DecryptIncremental(
	ctx context.Context,
	subjects []reportDomain.Subject,
) (*reportDomain.BatchResult, error) {
	start := time.Now()
	result, err := r.next.DecryptIncremental(ctx, subjects)

	status := "success"
	if err != nil {
		status = "error"
	}

	r.metrics.RecordOperation(ctx, "report", "decrypt_incremental", status)
	r.metrics.RecordDuration(ctx, "report", "decrypt_incremental", time.Since(start), status)
	if result != nil {
		r.recordOutcomes(ctx, "decrypt_incremental", result.Stats)
	}

	return result, err
}

// recordOutcomes records per-subject outcome counts for one batch.
func (r *reportDecryptorWithMetrics) recordOutcomes(
	ctx context.Context,
	operation string,
	stats reportDomain.BatchStats,
) {
	r.metrics.RecordBatchOutcome(ctx, operation, "cache_hit", stats.CacheHits)
	r.metrics.RecordBatchOutcome(ctx, operation, "new", stats.NewDecryptions)
	r.metrics.RecordBatchOutcome(ctx, operation, "redecrypt", stats.Redecryptions)
	r.metrics.RecordBatchOutcome(ctx, operation, "failure", stats.Failures)
}
