package domain

// Sizes of the cryptographic primitives used for subject field groups.
//
// The wire layout of an encrypted field group is fixed by the backend that
// writes it: base64(standard) over nonce || ciphertext || tag. Both sides
// must agree on these sizes to parse the opaque string.
const (
	// DekSize is the size in bytes of a subject's Data Encryption Key (AES-256).
	DekSize = 32

	// NonceSize is the AES-GCM nonce size in bytes (96 bits).
	NonceSize = 12

	// TagSize is the AES-GCM authentication tag size in bytes (128 bits).
	TagSize = 16

	// RSAKeyBits is the modulus size of an institution admin keypair.
	RSAKeyBits = 2048

	// MinRSAKeyBits is the smallest modulus accepted for wrap/unwrap.
	// Wrapping a 32-byte DEK under OAEP-SHA256 needs at least 2048 bits anyway.
	MinRSAKeyBits = 2048
)
