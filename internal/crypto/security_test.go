package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosmicvault/locker/internal/crypto"
)

// Encrypting the same plaintext twice must never reuse a nonce, so the
// tokens differ in full.
func TestSecurity_NonceUniqueness(t *testing.T) {
	provider := crypto.NewProvider()

	key, _, err := provider.DeriveKey("password", nil)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := provider.Encrypt([]byte("identical plaintext"), key)
		require.NoError(t, err)

		nonce := string(token[:crypto.NonceSize])
		assert.False(t, seen[nonce], "nonce reused")
		seen[nonce] = true
	}
}

// Flipping any single byte of the token must break authentication.
func TestSecurity_EveryBytePositionAuthenticated(t *testing.T) {
	provider := crypto.NewProvider()

	key, _, err := provider.DeriveKey("password", nil)
	require.NoError(t, err)

	token, err := provider.Encrypt([]byte("short secret"), key)
	require.NoError(t, err)

	for i := range token {
		tampered := append([]byte(nil), token...)
		tampered[i] ^= 0xFF

		_, err := provider.Decrypt(tampered, key)
		assert.Error(t, err, "byte %d not authenticated", i)
	}
}

// A blob's salt prefix is not secret, but swapping it between files must
// not let one file's password open another.
func TestSecurity_SaltBindsKey(t *testing.T) {
	provider := crypto.NewProvider()

	keyA, saltA, err := provider.DeriveKey("password", nil)
	require.NoError(t, err)
	_, saltB, err := provider.DeriveKey("password", nil)
	require.NoError(t, err)
	require.NotEqual(t, saltA, saltB)

	token, err := provider.Encrypt([]byte("data"), keyA)
	require.NoError(t, err)

	keyFromB, _, err := provider.DeriveKey("password", saltB)
	require.NoError(t, err)

	_, err = provider.Decrypt(token, keyFromB)
	assert.Error(t, err)
}
