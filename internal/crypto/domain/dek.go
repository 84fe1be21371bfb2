package domain

import (
	"crypto/rsa"
)

// WrappedDek is a subject's Data Encryption Key encrypted under the institution
// admin public key with RSA-OAEP(SHA-256), base64-encoded. It is immutable once
// issued; only the holder of the matching private key can recover the DEK.
type WrappedDek string

// FieldGroup is an opaque encrypted bundle of related plaintext fields.
//
// Layout: base64(standard) over 12-byte nonce || AES-256-GCM ciphertext || tag,
// produced by encrypting a JSON object under the subject's DEK. The plaintext
// DEK exists only transiently in administrator memory and must be zeroed after
// use.
type FieldGroup string

// AdminKeyPair is the institution administrator's RSA keypair produced at
// provisioning time. The public half is submitted to the backend for wrapping
// new subject DEKs; the private half is returned in memory only and exported
// by the caller exactly once. It is never persisted or transmitted by this
// module.
type AdminKeyPair struct {
	PrivateKey   *rsa.PrivateKey
	PublicKeyPEM []byte
}
