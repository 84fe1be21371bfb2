// Package usecase implements business logic orchestration for report decryption.
// This package coordinates between the key access session, cryptographic services,
// and the report domain to decrypt subject batches with change-aware caching.
package usecase

import (
	"context"

	reportDomain "github.com/priotag/fieldcrypt/internal/report/domain"
)

// ReportDecryptor defines the interface for batch subject decryption.
type ReportDecryptor interface {
	// DecryptAll decrypts every subject from scratch, discarding any cached
	// plaintext from earlier batches.
	//
	// Security Note: The returned BatchResult contains plaintext subject data.
	// Callers must not log it or include it in error messages.
	DecryptAll(ctx context.Context, subjects []reportDomain.Subject) (*reportDomain.BatchResult, error)

	// DecryptIncremental decrypts only subjects that are new or whose
	// ciphertext changed since the previous batch, serving unchanged subjects
	// from cache. Subjects absent from the list are evicted from the cache.
	//
	// Security Note: The returned BatchResult contains plaintext subject data.
	// Callers must not log it or include it in error messages.
	DecryptIncremental(ctx context.Context, subjects []reportDomain.Subject) (*reportDomain.BatchResult, error)
}
