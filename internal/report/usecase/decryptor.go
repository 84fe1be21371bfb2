package usecase

import (
	"context"
	"crypto/rsa"
	"log/slog"
	"sync"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/priotag/fieldcrypt/internal/crypto/service"
	keyaccessDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
	reportDomain "github.com/priotag/fieldcrypt/internal/report/domain"
)

// cacheEntry holds one subject's decrypted data together with the ciphertext
// it was decrypted from. Fingerprints are the field group strings themselves:
// AES-GCM with random nonces never produces the same ciphertext twice, so
// ciphertext equality implies the plaintext is unchanged.
type cacheEntry struct {
	identityFingerprint cryptoDomain.FieldGroup
	scheduleFingerprint cryptoDomain.FieldGroup
	subject             reportDomain.DecryptedSubject
}

// reportDecryptor implements ReportDecryptor with a per-session plaintext cache.
//
// The decryptor is bound to one key session for its lifetime. When the session
// is closed mid-batch, the batch completes against the already-obtained
// private key but its results are not cached, so no plaintext derived from a
// closed session outlives the batch call.
type reportDecryptor struct {
	session     *keyaccessDomain.Session
	keyWrapper  cryptoService.KeyWrapper
	fieldCipher cryptoService.FieldCipher
	logger      *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewReportDecryptor creates a ReportDecryptor bound to the given key session.
// The cache starts empty and lives as long as the decryptor.
func NewReportDecryptor(
	session *keyaccessDomain.Session,
	keyWrapper cryptoService.KeyWrapper,
	fieldCipher cryptoService.FieldCipher,
	logger *slog.Logger,
) ReportDecryptor {
	return &reportDecryptor{
		session:     session,
		keyWrapper:  keyWrapper,
		fieldCipher: fieldCipher,
		logger:      logger,
		cache:       make(map[string]cacheEntry),
	}
}

// DecryptAll decrypts every subject from scratch.
func (r *reportDecryptor) DecryptAll(
	ctx context.Context,
	subjects []reportDomain.Subject,
) (*reportDomain.BatchResult, error) {
	key, err := r.session.PrivateKey()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A full decryption invalidates everything cached before it.
	r.cache = make(map[string]cacheEntry)

	result := &reportDomain.BatchResult{}
	for _, subject := range subjects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decrypted, err := r.decryptSubject(key, subject)
		if err != nil {
			result.Failures = append(result.Failures, reportDomain.SubjectFailure{
				SubjectID: subject.ID,
				Err:       err,
			})
			result.Stats.Failures++
			r.logger.Warn("subject decryption failed",
				slog.String("subject_id", subject.ID),
				slog.Any("error", err),
			)
			continue
		}

		result.Subjects = append(result.Subjects, decrypted)
		result.Stats.NewDecryptions++
		r.store(subject, decrypted)
	}

	r.logBatch("decrypt_all", len(subjects), result.Stats)
	return result, nil
}

// DecryptIncremental decrypts only new or changed subjects.
func (r *reportDecryptor) DecryptIncremental(
	ctx context.Context,
	subjects []reportDomain.Subject,
) (*reportDomain.BatchResult, error) {
	key, err := r.session.PrivateKey()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictAbsent(subjects)

	result := &reportDomain.BatchResult{}
	for _, subject := range subjects {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry, cached := r.cache[subject.ID]
		if cached &&
			entry.identityFingerprint == subject.IdentityGroup &&
			entry.scheduleFingerprint == subject.ScheduleGroup {
			result.Subjects = append(result.Subjects, entry.subject)
			result.Stats.CacheHits++
			continue
		}

		decrypted, err := r.decryptSubject(key, subject)
		if err != nil {
			// A stale entry must not survive a failed re-decryption: serving
			// it later would silently mask the changed ciphertext.
			delete(r.cache, subject.ID)
			result.Failures = append(result.Failures, reportDomain.SubjectFailure{
				SubjectID: subject.ID,
				Err:       err,
			})
			result.Stats.Failures++
			r.logger.Warn("subject decryption failed",
				slog.String("subject_id", subject.ID),
				slog.Any("error", err),
			)
			continue
		}

		result.Subjects = append(result.Subjects, decrypted)
		if cached {
			result.Stats.Redecryptions++
		} else {
			result.Stats.NewDecryptions++
		}
		r.store(subject, decrypted)
	}

	r.logBatch("decrypt_incremental", len(subjects), result.Stats)
	return result, nil
}

// decryptSubject unwraps the subject's DEK and decrypts its field groups.
// The DEK is zeroed before returning.
func (r *reportDecryptor) decryptSubject(
	key *rsa.PrivateKey,
	subject reportDomain.Subject,
) (reportDomain.DecryptedSubject, error) {
	var decrypted reportDomain.DecryptedSubject

	dek, err := r.keyWrapper.Unwrap(key, subject.WrappedDek)
	if err != nil {
		return decrypted, err
	}
	defer cryptoDomain.Zero(dek)

	var schedule reportDomain.SchedulePayload
	if err := r.fieldCipher.Decrypt(dek, subject.ScheduleGroup, &schedule); err != nil {
		return decrypted, err
	}

	decrypted = reportDomain.DecryptedSubject{
		SubjectID:  subject.ID,
		UserName:   subject.UserName,
		Manual:     subject.Manual,
		Priorities: schedule,
	}

	// Manual subjects carry their display name inside the schedule payload
	// and have no identity group.
	if subject.Manual || subject.IdentityGroup == "" {
		decrypted.Name = schedule.Name
		return decrypted, nil
	}

	var identity reportDomain.IdentityPayload
	if err := r.fieldCipher.Decrypt(dek, subject.IdentityGroup, &identity); err != nil {
		return decrypted, err
	}
	decrypted.Name = identity.Name

	return decrypted, nil
}

// store caches a decrypted subject unless the session was closed during the
// batch. Callers hold r.mu.
func (r *reportDecryptor) store(subject reportDomain.Subject, decrypted reportDomain.DecryptedSubject) {
	if !r.session.Active() {
		return
	}
	r.cache[subject.ID] = cacheEntry{
		identityFingerprint: subject.IdentityGroup,
		scheduleFingerprint: subject.ScheduleGroup,
		subject:             decrypted,
	}
}

// evictAbsent drops cache entries for subjects no longer present in the
// listing. Callers hold r.mu.
func (r *reportDecryptor) evictAbsent(subjects []reportDomain.Subject) {
	present := make(map[string]struct{}, len(subjects))
	for _, subject := range subjects {
		present[subject.ID] = struct{}{}
	}
	for id := range r.cache {
		if _, ok := present[id]; !ok {
			delete(r.cache, id)
		}
	}
}

// logBatch logs batch statistics. Plaintext never appears here.
func (r *reportDecryptor) logBatch(operation string, total int, stats reportDomain.BatchStats) {
	r.logger.Info("batch decryption finished",
		slog.String("operation", operation),
		slog.String("session_id", r.session.ID().String()),
		slog.Int("subjects", total),
		slog.Int("cache_hits", stats.CacheHits),
		slog.Int("new_decryptions", stats.NewDecryptions),
		slog.Int("redecryptions", stats.Redecryptions),
		slog.Int("failures", stats.Failures),
	)
}
