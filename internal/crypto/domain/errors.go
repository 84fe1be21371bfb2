package domain

import (
	"github.com/priotag/fieldcrypt/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors.
// Callers match them with errors.Is to choose the correct remediation
// (re-export a key, re-enter a passphrase, report a corrupted record)
// without parsing message text. None of them ever carries plaintext.
var (
	// ErrIntegrity indicates the AES-GCM authentication tag did not verify.
	//
	// This happens when the wrong DEK is used or the ciphertext has been
	// tampered with or corrupted. The two causes are intentionally not
	// distinguishable: GCM reports both as a single authentication failure.
	ErrIntegrity = errors.Wrap(errors.ErrInvalidInput, "integrity check failed")

	// ErrMalformedGroup indicates an encrypted field group could not be
	// parsed: the base64 envelope is invalid, the blob is too short to hold
	// nonce and tag, or the decrypted bytes are not valid JSON.
	//
	// Distinct from ErrIntegrity so structural corruption is not mistaken
	// for a wrong key.
	ErrMalformedGroup = errors.Wrap(errors.ErrInvalidInput, "malformed field group")

	// ErrMalformedWrappedDek indicates a wrapped DEK string is not valid
	// base64 or has an impossible length for the expected RSA modulus.
	ErrMalformedWrappedDek = errors.Wrap(errors.ErrInvalidInput, "malformed wrapped dek")

	// ErrKeyMismatch indicates an RSA-OAEP unwrap failed.
	//
	// OAEP reports a single opaque decryption failure whether the wrapped
	// DEK was produced for a different public key or the ciphertext is
	// corrupted, so both surface as a key mismatch.
	ErrKeyMismatch = errors.Wrap(errors.ErrInvalidInput, "wrapped dek does not match private key")

	// ErrInvalidKeySize indicates a DEK of incorrect length was provided.
	// DEKs must be exactly 32 bytes (256 bits) for AES-256-GCM.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")
)
