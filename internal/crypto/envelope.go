package crypto

// On-disk blob format: salt (16 bytes) || AES-GCM token. The salt is
// duplicated in the metadata record; both copies must agree.

// SealEnvelope prepends the salt to an encrypted token.
func SealEnvelope(salt, token []byte) []byte {
	blob := make([]byte, 0, len(salt)+len(token))
	blob = append(blob, salt...)
	return append(blob, token...)
}

// OpenEnvelope splits a stored blob into its salt prefix and token.
func OpenEnvelope(blob []byte) (salt, token []byte, err error) {
	if len(blob) < SaltSize+NonceSize+TagSize {
		return nil, nil, ErrInvalidCiphertext
	}
	return blob[:SaltSize], blob[SaltSize:], nil
}
