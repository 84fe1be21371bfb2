package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/priotag/fieldcrypt/internal/crypto/service"
	"github.com/priotag/fieldcrypt/internal/errors"
	keyaccessDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
	reportDomain "github.com/priotag/fieldcrypt/internal/report/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(v int) *int {
	return &v
}

// fixture bundles a key session with the crypto services and a way to build
// encrypted subjects for it.
type fixture struct {
	t           *testing.T
	key         *rsa.PrivateKey
	session     *keyaccessDomain.Session
	keyWrapper  cryptoService.KeyWrapper
	fieldCipher cryptoService.FieldCipher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, cryptoDomain.RSAKeyBits)
	require.NoError(t, err)

	return &fixture{
		t:           t,
		key:         key,
		session:     keyaccessDomain.NewSession(keyaccessDomain.SourceFile, key),
		keyWrapper:  cryptoService.NewRSAKeyWrapper(),
		fieldCipher: cryptoService.NewFieldCipher(),
	}
}

func (f *fixture) newDecryptor() *reportDecryptor {
	return NewReportDecryptor(f.session, f.keyWrapper, f.fieldCipher, testLogger()).(*reportDecryptor)
}

// encryptSubject builds an encrypted subject record the way the backend
// would: fresh DEK, wrapped under the admin public key, payloads sealed as
// field groups.
func (f *fixture) encryptSubject(
	id, userName string,
	identity *reportDomain.IdentityPayload,
	schedule reportDomain.SchedulePayload,
	manual bool,
) reportDomain.Subject {
	f.t.Helper()

	dek, err := cryptoService.GenerateDek()
	require.NoError(f.t, err)

	wrapped, err := f.keyWrapper.Wrap(&f.key.PublicKey, dek)
	require.NoError(f.t, err)

	subject := reportDomain.Subject{
		ID:         id,
		UserName:   userName,
		WrappedDek: wrapped,
		Manual:     manual,
	}

	if identity != nil {
		group, err := f.fieldCipher.Encrypt(dek, identity)
		require.NoError(f.t, err)
		subject.IdentityGroup = group
	}

	scheduleGroup, err := f.fieldCipher.Encrypt(dek, schedule)
	require.NoError(f.t, err)
	subject.ScheduleGroup = scheduleGroup

	return subject
}

func oneWeekSchedule() reportDomain.SchedulePayload {
	return reportDomain.SchedulePayload{
		Weeks: []reportDomain.Week{
			{WeekNumber: 1, Monday: intPtr(3)},
		},
	}
}

func TestReportDecryptor_DecryptAll(t *testing.T) {
	t.Run("Success_DecryptRegularSubject", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		subject := f.encryptSubject(
			"s-1",
			"max.mustermann",
			&reportDomain.IdentityPayload{Name: "Max"},
			oneWeekSchedule(),
			false,
		)

		result, err := decryptor.DecryptAll(context.Background(), []reportDomain.Subject{subject})

		require.NoError(t, err)
		require.Len(t, result.Subjects, 1)
		assert.Equal(t, "s-1", result.Subjects[0].SubjectID)
		assert.Equal(t, "Max", result.Subjects[0].Name)
		assert.Equal(t, "max.mustermann", result.Subjects[0].UserName)
		require.Len(t, result.Subjects[0].Priorities.Weeks, 1)
		week := result.Subjects[0].Priorities.Weeks[0]
		assert.Equal(t, 1, week.WeekNumber)
		require.NotNil(t, week.Monday)
		assert.Equal(t, 3, *week.Monday)
		assert.Nil(t, week.Tuesday)
		assert.Equal(t, reportDomain.BatchStats{NewDecryptions: 1}, result.Stats)
	})

	t.Run("Success_ManualSubjectNameFromSchedule", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		schedule := oneWeekSchedule()
		schedule.Name = "Erika Musterfrau"
		subject := f.encryptSubject("m-1", "", nil, schedule, true)

		result, err := decryptor.DecryptAll(context.Background(), []reportDomain.Subject{subject})

		require.NoError(t, err)
		require.Len(t, result.Subjects, 1)
		assert.Equal(t, "Erika Musterfrau", result.Subjects[0].Name)
		assert.True(t, result.Subjects[0].Manual)
	})

	t.Run("Success_ClearsCacheFromEarlierBatches", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		subject := f.encryptSubject("s-1", "u", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		subjects := []reportDomain.Subject{subject}

		_, err := decryptor.DecryptAll(context.Background(), subjects)
		require.NoError(t, err)

		result, err := decryptor.DecryptAll(context.Background(), subjects)
		require.NoError(t, err)

		// Identical ciphertext, but a full run never serves from cache.
		assert.Equal(t, reportDomain.BatchStats{NewDecryptions: 1}, result.Stats)
	})

	t.Run("Error_SessionClosed", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()
		f.session.Close()

		_, err := decryptor.DecryptAll(context.Background(), nil)

		assert.ErrorIs(t, err, keyaccessDomain.ErrSessionClosed)
	})

	t.Run("Error_ContextCancelled", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		subject := f.encryptSubject("s-1", "u", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := decryptor.DecryptAll(ctx, []reportDomain.Subject{subject})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReportDecryptor_DecryptIncremental(t *testing.T) {
	t.Run("Success_UnchangedSubjectsServedFromCache", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		subjects := []reportDomain.Subject{
			f.encryptSubject("s-1", "u1", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false),
			f.encryptSubject("s-2", "u2", &reportDomain.IdentityPayload{Name: "B"}, oneWeekSchedule(), false),
		}

		first, err := decryptor.DecryptIncremental(context.Background(), subjects)
		require.NoError(t, err)
		assert.Equal(t, reportDomain.BatchStats{NewDecryptions: 2}, first.Stats)

		second, err := decryptor.DecryptIncremental(context.Background(), subjects)
		require.NoError(t, err)
		assert.Equal(t, reportDomain.BatchStats{CacheHits: 2}, second.Stats)
		require.Len(t, second.Subjects, 2)
		assert.Equal(t, "A", second.Subjects[0].Name)
		assert.Equal(t, "B", second.Subjects[1].Name)
	})

	t.Run("Success_OnlyChangedSubjectIsRedecrypted", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		unchanged := f.encryptSubject("s-1", "u1", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		original := f.encryptSubject("s-2", "u2", &reportDomain.IdentityPayload{Name: "B"}, oneWeekSchedule(), false)
		_, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{unchanged, original})
		require.NoError(t, err)

		// Re-encrypting yields new ciphertext (fresh nonce and DEK), which
		// must defeat the cache for that subject only.
		updated := f.encryptSubject("s-2", "u2", &reportDomain.IdentityPayload{Name: "B2"}, oneWeekSchedule(), false)
		result, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{unchanged, updated})

		require.NoError(t, err)
		assert.Equal(t, reportDomain.BatchStats{CacheHits: 1, Redecryptions: 1}, result.Stats)
		require.Len(t, result.Subjects, 2)
		assert.Equal(t, "A", result.Subjects[0].Name)
		assert.Equal(t, "B2", result.Subjects[1].Name)
	})

	t.Run("Success_AbsentSubjectsAreEvicted", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		s1 := f.encryptSubject("s-1", "u1", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		s2 := f.encryptSubject("s-2", "u2", &reportDomain.IdentityPayload{Name: "B"}, oneWeekSchedule(), false)

		_, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{s1, s2})
		require.NoError(t, err)

		_, err = decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{s1})
		require.NoError(t, err)
		assert.NotContains(t, decryptor.cache, "s-2")

		// A subject that returns after eviction counts as new, not a hit.
		result, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{s1, s2})
		require.NoError(t, err)
		assert.Equal(t, reportDomain.BatchStats{CacheHits: 1, NewDecryptions: 1}, result.Stats)
	})

	t.Run("Success_FailedSubjectIsIsolated", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		good := f.encryptSubject("s-1", "u1", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		bad := f.encryptSubject("s-2", "u2", &reportDomain.IdentityPayload{Name: "B"}, oneWeekSchedule(), false)
		bad.ScheduleGroup = "!!!not-base64!!!"

		result, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{good, bad})

		require.NoError(t, err)
		require.Len(t, result.Subjects, 1)
		assert.Equal(t, "s-1", result.Subjects[0].SubjectID)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, "s-2", result.Failures[0].SubjectID)
		assert.ErrorIs(t, result.Failures[0].Err, cryptoDomain.ErrMalformedGroup)
		assert.Equal(t, reportDomain.BatchStats{NewDecryptions: 1, Failures: 1}, result.Stats)
		assert.NotContains(t, decryptor.cache, "s-2")
	})

	t.Run("Success_FailedRedecryptionDropsStaleEntry", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		subject := f.encryptSubject("s-1", "u", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		_, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{subject})
		require.NoError(t, err)

		tampered := subject
		tampered.ScheduleGroup = "!!!not-base64!!!"
		result, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{tampered})

		require.NoError(t, err)
		assert.Equal(t, reportDomain.BatchStats{Redecryptions: 0, Failures: 1}, result.Stats)
		assert.NotContains(t, decryptor.cache, "s-1")
	})

	t.Run("Error_ForeignWrappedDekReportsKeyMismatch", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		otherKey, err := rsa.GenerateKey(rand.Reader, cryptoDomain.RSAKeyBits)
		require.NoError(t, err)

		dek, err := cryptoService.GenerateDek()
		require.NoError(t, err)
		foreignWrapped, err := f.keyWrapper.Wrap(&otherKey.PublicKey, dek)
		require.NoError(t, err)

		subject := f.encryptSubject("s-1", "u", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		subject.WrappedDek = foreignWrapped

		result, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{subject})

		require.NoError(t, err)
		require.Len(t, result.Failures, 1)
		assert.ErrorIs(t, result.Failures[0].Err, cryptoDomain.ErrKeyMismatch)
		assert.True(t, errors.Is(result.Failures[0].Err, errors.ErrInvalidInput))
	})

	t.Run("Error_SessionClosed", func(t *testing.T) {
		f := newFixture(t)
		decryptor := f.newDecryptor()

		subject := f.encryptSubject("s-1", "u", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)
		_, err := decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{subject})
		require.NoError(t, err)

		f.session.Close()

		_, err = decryptor.DecryptIncremental(context.Background(), []reportDomain.Subject{subject})
		assert.ErrorIs(t, err, keyaccessDomain.ErrSessionClosed)
	})
}

func TestReportDecryptor_SessionClosedDuringBatchSkipsCache(t *testing.T) {
	f := newFixture(t)
	decryptor := f.newDecryptor()

	subject := f.encryptSubject("s-1", "u", &reportDomain.IdentityPayload{Name: "A"}, oneWeekSchedule(), false)

	// Simulate a key swap landing after the batch obtained the private key:
	// the decryption result is still produced, but nothing is cached.
	key, err := f.session.PrivateKey()
	require.NoError(t, err)
	f.session.Close()

	decrypted, err := decryptor.decryptSubject(key, subject)
	require.NoError(t, err)

	decryptor.mu.Lock()
	decryptor.store(subject, decrypted)
	decryptor.mu.Unlock()

	assert.Empty(t, decryptor.cache)
}
