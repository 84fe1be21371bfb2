package service

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/youmark/pkcs8"

	cryptoDomain "github.com/priotag/fieldcrypt/internal/crypto/domain"
	"github.com/priotag/fieldcrypt/internal/validation"
)

// PEM block types for exported key material.
const (
	pemTypePublicKey           = "PUBLIC KEY"
	pemTypePrivateKey          = "PRIVATE KEY"
	pemTypeEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
)

// pbkdf2Iterations is the PBKDF2 iteration count for passphrase-encrypted
// PKCS#8 exports. Matches the backend's KDF configuration.
const pbkdf2Iterations = 600000

// KeyPairProvisioner implements Provisioner for one-time institution
// onboarding. It generates the admin RSA keypair and serializes its halves;
// it never persists or transmits the private key itself.
type KeyPairProvisioner struct{}

// NewKeyPairProvisioner creates a new KeyPairProvisioner.
func NewKeyPairProvisioner() *KeyPairProvisioner {
	return &KeyPairProvisioner{}
}

// GenerateKeyPair creates a fresh RSA-2048 keypair suitable for OAEP wrapping.
// The public half is returned as a SubjectPublicKeyInfo PEM for submission to
// the backend; the private half stays in memory.
func (p *KeyPairProvisioner) GenerateKeyPair() (cryptoDomain.AdminKeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, cryptoDomain.RSAKeyBits)
	if err != nil {
		return cryptoDomain.AdminKeyPair{}, fmt.Errorf("failed to generate RSA keypair: %w", err)
	}

	publicPEM, err := MarshalPublicKeyPEM(&privateKey.PublicKey)
	if err != nil {
		return cryptoDomain.AdminKeyPair{}, err
	}

	return cryptoDomain.AdminKeyPair{
		PrivateKey:   privateKey,
		PublicKeyPEM: publicPEM,
	}, nil
}

// ExportPrivateKeyPEM serializes the private key as a PKCS#8 PEM.
//
// With a non-empty passphrase the key is encrypted (PBKDF2-SHA256 key
// derivation, AES-256-CBC) into an ENCRYPTED PRIVATE KEY block; the KDF
// parameters are embedded in the PKCS#8 header so any standards-compliant
// reader can recover the key. The passphrase policy (minimum length,
// confirmation match) is checked before any encryption runs, so policy
// violations surface as validation errors rather than crypto failures.
//
// With an empty passphrase (and empty confirmation) the key is exported as a
// plain PRIVATE KEY block.
func (p *KeyPairProvisioner) ExportPrivateKeyPEM(
	privateKey *rsa.PrivateKey,
	passphrase, confirm string,
) ([]byte, error) {
	if passphrase == "" && confirm == "" {
		der, err := x509.MarshalPKCS8PrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der}), nil
	}

	if err := validation.Passphrase(passphrase, confirm); err != nil {
		return nil, err
	}

	der, err := pkcs8.MarshalPrivateKey(privateKey, []byte(passphrase), &pkcs8.Opts{
		Cipher: pkcs8.AES256CBC,
		KDFOpts: pkcs8.PBKDF2Opts{
			SaltSize:       16,
			IterationCount: pbkdf2Iterations,
			HMACHash:       crypto.SHA256,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: pemTypeEncryptedPrivateKey, Bytes: der}), nil
}

// MarshalPublicKeyPEM serializes an RSA public key as a SubjectPublicKeyInfo PEM.
func MarshalPublicKeyPEM(publicKey *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der}), nil
}

// ParsePublicKeyPEM parses a SubjectPublicKeyInfo PEM into an RSA public key.
func ParsePublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != pemTypePublicKey {
		return nil, fmt.Errorf("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key")
	}
	return rsaPub, nil
}
