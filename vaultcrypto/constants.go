package vaultcrypto

// Sizes, in bytes, of the cryptographic primitives used throughout the vault.
const (
	// NonceSizeGCM is the length of a fresh AES-GCM nonce.
	NonceSizeGCM = 12

	// TagSize is the length of the AES-GCM authentication tag appended
	// to every sealed blob.
	TagSize = 16

	// SaltSize is the length of a freshly generated KDF salt.
	SaltSize = 32

	// KeySize is the length of a derived AES-256 key.
	KeySize = 32
)
