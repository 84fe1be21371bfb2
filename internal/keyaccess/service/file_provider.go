package service

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/youmark/pkcs8"

	"github.com/priotag/fieldcrypt/internal/errors"
	keyDomain "github.com/priotag/fieldcrypt/internal/keyaccess/domain"
)

// FileKeyProvider loads the administrator private key from an exported PEM
// file. Plain PKCS#1 and PKCS#8 keys are read directly; encrypted PKCS#8
// keys trigger the passphrase prompt.
type FileKeyProvider struct {
	path   string
	prompt PassphrasePrompt
}

// NewFileKeyProvider creates a FileKeyProvider for the given key file path.
// The prompt is required only for encrypted keys; passing nil makes
// encrypted files fail with ErrWrongPassphrase.
func NewFileKeyProvider(path string, prompt PassphrasePrompt) *FileKeyProvider {
	return &FileKeyProvider{path: path, prompt: prompt}
}

// UnwrapPrivateKey reads and parses the key file.
//
// Failure kinds: an unreadable file or a non-key/unparseable PEM yields
// ErrKeyFormat; a passphrase that fails to decrypt an encrypted PKCS#8 block
// yields ErrWrongPassphrase; a prompt aborted by the user propagates its
// cancellation error unchanged.
func (f *FileKeyProvider) UnwrapPrivateKey(ctx context.Context) (*rsa.PrivateKey, keyDomain.Source, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read key file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, "no PEM block found")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, err.Error())
		}
		return key, keyDomain.SourceFile, nil

	case "PRIVATE KEY":
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, err.Error())
		}
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, "", errors.Wrap(keyDomain.ErrKeyFormat, "not an RSA private key")
		}
		return key, keyDomain.SourceFile, nil

	case "ENCRYPTED PRIVATE KEY":
		if f.prompt == nil {
			return nil, "", keyDomain.ErrWrongPassphrase
		}
		passphrase, err := f.prompt()
		if err != nil {
			return nil, "", err
		}
		key, err := pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, "", keyDomain.ErrWrongPassphrase
		}
		return key, keyDomain.SourceFile, nil

	default:
		return nil, "", errors.Wrap(
			keyDomain.ErrKeyFormat,
			fmt.Sprintf("unexpected PEM block type %q", block.Type),
		)
	}
}
