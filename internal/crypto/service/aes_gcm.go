package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
)

// AESGCMCipher is the AES-256-GCM primitive underneath the field cipher.
//
// Security properties:
//   - 256-bit key (the subject DEK)
//   - 12-byte nonce, randomly generated per encryption
//   - 16-byte authentication tag appended to the ciphertext
//
// The instance is stateless and safe for concurrent use; each Seal generates
// its own nonce. Nonce reuse under the same key would be catastrophic for GCM,
// which is why nonces are never caller-supplied.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM creates an AES-256-GCM cipher for the given 32-byte key.
// Keys of any other length are rejected with ErrInvalidKeySize.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.DekSize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Seal encrypts plaintext and returns the generated nonce and the ciphertext
// with the authentication tag appended. The nonce must be stored alongside the
// ciphertext for decryption.
func (a *AESGCMCipher) Seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Open decrypts ciphertext using the provided nonce. The authentication tag is
// verified before any plaintext is returned; a failed check yields
// ErrIntegrity, never partial plaintext.
func (a *AESGCMCipher) Open(nonce, ciphertext []byte) ([]byte, error) {
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, cryptoDomain.ErrIntegrity
	}
	return plaintext, nil
}
