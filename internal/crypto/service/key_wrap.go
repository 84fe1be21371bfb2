package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
	"github.com/priotag/fieldcrypt/internal/errors"
)

// RSAKeyWrapper implements KeyWrapper using RSA-OAEP with SHA-256.
//
// The padding and hash must match what the backend uses when wrapping a fresh
// DEK at subject-creation time; both sides use OAEP with SHA-256 for the hash
// and the mask generation function, with an empty label.
type RSAKeyWrapper struct{}

// NewRSAKeyWrapper creates a new RSAKeyWrapper.
func NewRSAKeyWrapper() *RSAKeyWrapper {
	return &RSAKeyWrapper{}
}

// Wrap encrypts a 32-byte DEK under the admin public key and returns the
// base64-encoded ciphertext.
func (w *RSAKeyWrapper) Wrap(publicKey *rsa.PublicKey, dek []byte) (cryptoDomain.WrappedDek, error) {
	if publicKey == nil {
		return "", errors.New("public key is nil")
	}
	if publicKey.Size()*8 < cryptoDomain.MinRSAKeyBits {
		return "", fmt.Errorf("RSA key too small: need at least %d bits", cryptoDomain.MinRSAKeyBits)
	}
	if len(dek) != cryptoDomain.DekSize {
		return "", cryptoDomain.ErrInvalidKeySize
	}

	ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, publicKey, dek, nil)
	if err != nil {
		return "", fmt.Errorf("RSA-OAEP encryption failed: %w", err)
	}

	return cryptoDomain.WrappedDek(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

// Unwrap recovers a DEK using the admin private key.
//
// OAEP deliberately reports one opaque failure for both a non-matching key
// and a corrupted ciphertext, so every decryption failure maps to
// ErrKeyMismatch. Undecodable base64 is reported as ErrMalformedWrappedDek
// instead, since it cannot have been produced by a correct wrap.
func (w *RSAKeyWrapper) Unwrap(privateKey *rsa.PrivateKey, wrapped cryptoDomain.WrappedDek) ([]byte, error) {
	if privateKey == nil {
		return nil, errors.New("private key is nil")
	}

	ciphertext, err := base64.StdEncoding.DecodeString(string(wrapped))
	if err != nil {
		return nil, errors.Wrap(cryptoDomain.ErrMalformedWrappedDek, "invalid base64")
	}

	dek, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, privateKey, ciphertext, nil)
	if err != nil {
		return nil, cryptoDomain.ErrKeyMismatch
	}

	if len(dek) != cryptoDomain.DekSize {
		cryptoDomain.Zero(dek)
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	return dek, nil
}
