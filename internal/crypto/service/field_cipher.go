package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
	"github.com/priotag/fieldcrypt/internal/errors"
)

// FieldCipherService implements FieldCipher over AES-256-GCM in the wire
// layout the backend writes: base64(standard) over nonce || ciphertext || tag.
//
// The service is stateless; the DEK is passed per call and never retained.
// Plaintext never appears in returned errors.
type FieldCipherService struct{}

// NewFieldCipher creates a new FieldCipherService.
func NewFieldCipher() *FieldCipherService {
	return &FieldCipherService{}
}

// Encrypt marshals payload to JSON and seals it under the DEK into an opaque
// field group string.
func (f *FieldCipherService) Encrypt(dek []byte, payload any) (cryptoDomain.FieldGroup, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal field group payload: %w", err)
	}

	aead, err := NewAESGCM(dek)
	if err != nil {
		return "", err
	}

	nonce, ciphertext, err := aead.Seal(plaintext)
	if err != nil {
		return "", err
	}

	blob := make([]byte, 0, len(nonce)+len(ciphertext))
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return cryptoDomain.FieldGroup(base64.StdEncoding.EncodeToString(blob)), nil
}

// Decrypt opens a field group under the DEK and unmarshals the JSON plaintext
// into out.
//
// Failure split: undecodable base64, a blob too short to hold nonce and tag,
// or non-JSON plaintext yield ErrMalformedGroup; a failed authentication tag
// yields ErrIntegrity. The caller can tell a corrupted record apart from a
// wrong key without inspecting message text.
func (f *FieldCipherService) Decrypt(dek []byte, group cryptoDomain.FieldGroup, out any) error {
	blob, err := base64.StdEncoding.DecodeString(string(group))
	if err != nil {
		return errors.Wrap(cryptoDomain.ErrMalformedGroup, "invalid base64 envelope")
	}

	if len(blob) < cryptoDomain.NonceSize+cryptoDomain.TagSize {
		return errors.Wrap(cryptoDomain.ErrMalformedGroup, "blob too short")
	}

	aead, err := NewAESGCM(dek)
	if err != nil {
		return err
	}

	nonce := blob[:cryptoDomain.NonceSize]
	ciphertext := blob[cryptoDomain.NonceSize:]

	plaintext, err := aead.Open(nonce, ciphertext)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return errors.Wrap(cryptoDomain.ErrMalformedGroup, "plaintext is not valid JSON")
	}

	return nil
}

// GenerateDek creates a fresh random 32-byte Data Encryption Key.
// The caller owns the key material and must zero it when done.
func GenerateDek() ([]byte, error) {
	dek := make([]byte, cryptoDomain.DekSize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("failed to generate DEK: %w", err)
	}
	return dek, nil
}
