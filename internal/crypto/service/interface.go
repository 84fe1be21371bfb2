// Package service provides the cryptographic services for subject field
// encryption: the AES-256-GCM field cipher, RSA-OAEP DEK wrapping, and admin
// keypair provisioning.
package service

import (
	"crypto/rsa"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
)

// FieldCipher encrypts and decrypts JSON field groups under a subject's DEK.
type FieldCipher interface {
	// Encrypt marshals payload to JSON and seals it into an opaque field group.
	Encrypt(dek []byte, payload any) (cryptoDomain.FieldGroup, error)

	// Decrypt opens a field group and unmarshals the JSON plaintext into out.
	// Returns ErrIntegrity when the authentication tag does not verify and
	// ErrMalformedGroup when the blob or the plaintext is structurally invalid.
	Decrypt(dek []byte, group cryptoDomain.FieldGroup, out any) error
}

// KeyWrapper wraps and unwraps DEKs under the institution admin keypair.
type KeyWrapper interface {
	// Wrap encrypts a DEK under the admin public key with RSA-OAEP(SHA-256).
	Wrap(publicKey *rsa.PublicKey, dek []byte) (cryptoDomain.WrappedDek, error)

	// Unwrap recovers a DEK using the admin private key. Returns
	// ErrKeyMismatch when the wrapped DEK was not produced for this key.
	// The caller owns the returned key material and must zero it after use.
	Unwrap(privateKey *rsa.PrivateKey, wrapped cryptoDomain.WrappedDek) ([]byte, error)
}

// Provisioner performs one-time admin keypair provisioning for an institution.
type Provisioner interface {
	// GenerateKeyPair creates a fresh RSA keypair. The private key is
	// returned in memory only; it is never persisted by this module.
	GenerateKeyPair() (cryptoDomain.AdminKeyPair, error)

	// ExportPrivateKeyPEM serializes the private key as a PKCS#8 PEM,
	// encrypted under the passphrase when one is given. Passphrase policy
	// violations are rejected before any encryption is attempted.
	ExportPrivateKeyPEM(privateKey *rsa.PrivateKey, passphrase, confirm string) ([]byte, error)
}
