// Package service implements administrator private key acquisition: file-based
// loading of (possibly passphrase-encrypted) PEM keys, hardware-authenticator
// unwrapping of locally stored key blobs, and the session loader that keeps
// exactly one key active at a time.
package service

import (
	"context"
	"crypto/rsa"

	keyDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
)

// KeyProvider acquires an administrator private key from one source.
// The session loader depends only on this capability, not on the concrete
// source.
type KeyProvider interface {
	// UnwrapPrivateKey produces the private key and reports its source.
	UnwrapPrivateKey(ctx context.Context) (*rsa.PrivateKey, keyDomain.Source, error)
}

// PassphrasePrompt requests the key file passphrase from the user. It is
// invoked only when the key file turns out to be encrypted.
type PassphrasePrompt func() (string, error)

// Authenticator abstracts the hardware authenticator ceremony used by
// hardware-mode key access. Implementations must return
// ErrUserCancelled when the user aborts or the ceremony times out.
type Authenticator interface {
	// MakeCredential runs the registration ceremony and returns the new
	// credential ID. Used once, at enrollment time.
	MakeCredential(ctx context.Context, rpID, userName string) ([]byte, error)

	// HMACSecret runs an assertion ceremony for the given credential and
	// returns the hmac-secret output for the salt. The secret is stable per
	// (credential, salt) pair, which is what makes it usable as key-wrapping
	// input.
	HMACSecret(ctx context.Context, rpID string, credentialID, salt []byte) ([]byte, error)
}
