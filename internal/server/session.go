package server

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionIssuer = "locker"

// SessionSigner issues and validates the bearer tokens that stand in
// for a session cookie. Keys are generated per process; restarting the
// server invalidates all sessions.
type SessionSigner struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
	ttl  time.Duration
}

// NewSessionSigner creates a signer with a fresh Ed25519 key pair.
func NewSessionSigner(ttl time.Duration) (*SessionSigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}

	return &SessionSigner{priv: priv, pub: pub, ttl: ttl}, nil
}

// Issue creates a session token for a user.
func (s *SessionSigner) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"iss": sessionIssuer,
		"sub": userID,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(s.priv)
	return signed, exp, err
}

// Verify validates a token and returns the user ID it names.
func (s *SessionSigner) Verify(tokenStr string) (string, error) {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodEdDSA {
			return nil, errors.New("unexpected signing method")
		}
		return s.pub, nil
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		jwt.MapClaims{},
		keyFunc,
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", errors.New("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid session claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("session token missing subject")
	}

	return sub, nil
}
