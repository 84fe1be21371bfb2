package service

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
	cryptoService "github.com/priotag/fieldcrypt/internal/crypto/service"
	"github.com/priotag/fieldcrypt/internal/errors"
	keyDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
)

// keyBlobInfo is the HKDF info string binding derived wrapping keys to this
// blob format. Changing it invalidates every existing blob, so it is
// versioned together with KeyBlob.Version.
const keyBlobInfo = "fieldcrypt-key-blob-v1"

// hmacSaltSize is the size of the hmac-secret salt stored in a key blob.
const hmacSaltSize = 32

// KeyBlob is the wrapped-private-key structure produced at authenticator
// enrollment and stored locally. Only this module and its authenticator
// counterpart understand it: the private key DER is sealed with AES-256-GCM
// under a key derived (HKDF-SHA256) from the authenticator's hmac-secret
// output for the stored salt.
type KeyBlob struct {
	Version      int    `json:"version"`
	RPID         string `json:"rpId"`
	CredentialID []byte `json:"credentialId"`
	Salt         []byte `json:"salt"`
	Nonce        []byte `json:"nonce"`
	Ciphertext   []byte `json:"ciphertext"`
}

// HardwareKeyProvider unwraps the administrator private key from a local key
// blob via a hardware authenticator ceremony.
type HardwareKeyProvider struct {
	blobPath      string
	authenticator Authenticator
}

// NewHardwareKeyProvider creates a HardwareKeyProvider reading the blob at
// blobPath and running ceremonies through the given authenticator.
func NewHardwareKeyProvider(blobPath string, authenticator Authenticator) *HardwareKeyProvider {
	return &HardwareKeyProvider{blobPath: blobPath, authenticator: authenticator}
}

// UnwrapPrivateKey reads the key blob, runs the assertion ceremony to obtain
// the hmac-secret, derives the wrapping key and opens the sealed private key.
//
// User cancellation or timeout propagates as ErrUserCancelled from the
// authenticator. A blob sealed for a different credential fails the GCM
// integrity check and is reported as ErrKeyFormat: from the caller's side the
// blob is unusable regardless of whether it is corrupt or foreign.
func (h *HardwareKeyProvider) UnwrapPrivateKey(ctx context.Context) (*rsa.PrivateKey, keyDomain.Source, error) {
	blob, err := ReadKeyBlob(h.blobPath)
	if err != nil {
		return nil, "", err
	}

	secret, err := h.authenticator.HMACSecret(ctx, blob.RPID, blob.CredentialID, blob.Salt)
	if err != nil {
		return nil, "", err
	}
	defer cryptoDomain.Zero(secret)

	wrappingKey, err := deriveWrappingKey(secret, blob.Salt)
	if err != nil {
		return nil, "", err
	}
	defer cryptoDomain.Zero(wrappingKey)

	aead, err := cryptoService.NewAESGCM(wrappingKey)
	if err != nil {
		return nil, "", err
	}

	der, err := aead.Open(blob.Nonce, blob.Ciphertext)
	if err != nil {
		return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, "authenticator secret does not unwrap key blob")
	}
	defer cryptoDomain.Zero(der)

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, "blob does not contain a PKCS#8 key")
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, "not an RSA private key")
	}

	return key, keyDomain.SourceAuthenticator, nil
}

// EnrollKeyBlob runs the one-time enrollment ceremony: it registers a new
// credential on the authenticator, derives the wrapping key from the
// credential's hmac-secret output for a fresh salt, and seals the private key
// into a KeyBlob. The blob is returned for the caller to persist; the
// plaintext private key is never written anywhere.
func EnrollKeyBlob(
	ctx context.Context,
	authenticator Authenticator,
	rpID, userName string,
	privateKey *rsa.PrivateKey,
) (*KeyBlob, error) {
	credentialID, err := authenticator.MakeCredential(ctx, rpID, userName)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, hmacSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	secret, err := authenticator.HMACSecret(ctx, rpID, credentialID, salt)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(secret)

	wrappingKey, err := deriveWrappingKey(secret, salt)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(wrappingKey)

	der, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	defer cryptoDomain.Zero(der)

	aead, err := cryptoService.NewAESGCM(wrappingKey)
	if err != nil {
		return nil, err
	}
	nonce, ciphertext, err := aead.Seal(der)
	if err != nil {
		return nil, err
	}

	return &KeyBlob{
		Version:      1,
		RPID:         rpID,
		CredentialID: credentialID,
		Salt:         salt,
		Nonce:        nonce,
		Ciphertext:   ciphertext,
	}, nil
}

// ReadKeyBlob loads a KeyBlob from disk. Structural problems are reported as
// ErrKeyFormat.
func ReadKeyBlob(path string) (*KeyBlob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key blob: %w", err)
	}

	var blob KeyBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return nil, errors.Wrap(keyDomain.ErrKeyFormat, "key blob is not valid JSON")
	}
	if blob.Version != 1 {
		return nil, errors.Wrap(keyDomain.ErrKeyFormat, fmt.Sprintf("unsupported key blob version %d", blob.Version))
	}
	if len(blob.CredentialID) == 0 || len(blob.Salt) == 0 || len(blob.Ciphertext) == 0 {
		return nil, errors.Wrap(keyDomain.ErrKeyFormat, "key blob is missing required fields")
	}

	return &blob, nil
}

// WriteKeyBlob persists a KeyBlob to disk, readable only by the owner.
func WriteKeyBlob(path string, blob *KeyBlob) error {
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal key blob: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write key blob: %w", err)
	}
	return nil
}

// deriveWrappingKey expands the authenticator's hmac-secret output into a
// 32-byte AES key with HKDF-SHA256.
func deriveWrappingKey(secret, salt []byte) ([]byte, error) {
	key := make([]byte, cryptoDomain.DekSize)
	r := hkdf.New(sha256.New, secret, salt, []byte(keyBlobInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive wrapping key: %w", err)
	}
	return key, nil
}
