package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"

	"github.com/cosmicvault/locker/internal/models"
)

const (
	// Key sizes
	KeySize   = 32 // AES-256
	SaltSize  = 16 // per-file random salt
	NonceSize = 12 // GCM standard
	TagSize   = 16 // GCM tag

	// PBKDF2 parameters
	DefaultIterations = 100000
)

// Errors
var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	ErrInvalidKey        = errors.New("invalid key size")
	ErrInvalidSalt       = errors.New("invalid salt size")
)

// AESProvider handles key derivation and authenticated encryption.
type AESProvider struct {
	iterations int
}

// NewProvider creates a crypto provider with the default iteration count.
func NewProvider() Provider {
	return &AESProvider{iterations: DefaultIterations}
}

// NewProviderWithIterations creates a provider with a custom PBKDF2
// cost. Counts below the default are refused; decryption of existing
// blobs depends on the count staying stable.
func NewProviderWithIterations(iterations int) (Provider, error) {
	if iterations < DefaultIterations {
		return nil, fmt.Errorf("iteration count %d below minimum %d", iterations, DefaultIterations)
	}
	return &AESProvider{iterations: iterations}, nil
}

// DeriveKey derives a 32-byte key via PBKDF2-HMAC-SHA256. Passwords are
// NFKC-normalized first so visually identical inputs derive the same
// key. Deterministic for a fixed (password, salt) pair.
func (p *AESProvider) DeriveKey(password string, salt []byte) ([]byte, []byte, error) {
	if password == "" {
		return nil, nil, models.ErrInvalidPassword
	}

	if salt == nil {
		salt = make([]byte, SaltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("generate salt: %w", err)
		}
	}

	if len(salt) != SaltSize {
		return nil, nil, ErrInvalidSalt
	}

	normalized := norm.NFKC.String(password)
	key := pbkdf2.Key([]byte(normalized), salt, p.iterations, KeySize, sha256.New)

	return key, salt, nil
}

// Encrypt seals plaintext with AES-GCM under a random nonce. Output is
// nonce || ciphertext+tag, a self-contained token.
func (p *AESProvider) Encrypt(plaintext, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a token produced by Encrypt. A wrong key, truncation,
// or any tampering yields ErrDecryptionFailed.
func (p *AESProvider) Decrypt(ciphertext, key []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}

	nonce := ciphertext[:NonceSize]
	token := ciphertext[NonceSize:]

	plaintext, err := aead.Open(nil, nonce, token, nil)
	if err != nil {
		return nil, models.ErrDecryptionFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return aead, nil
}
