package crypto

// Provider defines the interface for cryptographic operations.
type Provider interface {
	// DeriveKey derives an encryption key from a password. A nil salt
	// means a fresh random one; the salt actually used is returned.
	DeriveKey(password string, salt []byte) (key, outSalt []byte, err error)

	// Encrypt seals plaintext using AES-GCM.
	Encrypt(plaintext, key []byte) ([]byte, error)

	// Decrypt opens an AES-GCM token.
	Decrypt(ciphertext, key []byte) ([]byte, error)
}
