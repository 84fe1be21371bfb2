package domain

import (
	"github.com/priotag/fieldcrypt/internal/errors"
)

// Key acquisition error definitions.
//
// Each failure kind maps to a different remediation: re-export the key file,
// re-enter the passphrase, or re-touch the hardware authenticator. Callers
// match with errors.Is; message text is informational only.
var (
	// ErrKeyFormat indicates the key file or blob is not a parseable private
	// key (bad PEM, wrong block type, non-RSA key, corrupt blob structure).
	ErrKeyFormat = errors.Wrap(errors.ErrInvalidInput, "unparseable key material")

	// ErrWrongPassphrase indicates the supplied passphrase failed to decrypt
	// an encrypted PKCS#8 key.
	//
	// Password-based CBC decryption cannot distinguish a wrong passphrase
	// from a corrupted ciphertext, so both surface here; re-entering the
	// passphrase is the remediation to try first.
	ErrWrongPassphrase = errors.Wrap(errors.ErrUnauthorized, "wrong passphrase")

	// ErrUserCancelled indicates the hardware authenticator ceremony was
	// aborted by the user or timed out. Distinct from cryptographic
	// failures so the caller can offer a retry instead of treating the
	// key blob as corrupted.
	ErrUserCancelled = errors.Wrap(errors.ErrCancelled, "authenticator ceremony cancelled")

	// ErrNoAuthenticator indicates no hardware authenticator device was found.
	ErrNoAuthenticator = errors.Wrap(errors.ErrUnavailable, "no authenticator device found")

	// ErrSessionClosed indicates an operation was attempted against a key
	// session whose private key has been cleared.
	ErrSessionClosed = errors.Wrap(errors.ErrUnavailable, "key session closed")
)
