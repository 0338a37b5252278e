// internal/app/system/auth/token.go
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Claims carried by a crushnote token. The subject is the user's
// lower-cased email.
type Claims struct {
	jwt.RegisteredClaims
}

// Email returns the subject.
func (c *Claims) Email() string { return c.Subject }

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer derives the signing key from secret. An empty issuer skips
// the issuer check on verify; a non-positive ttl means DefaultTokenTTL.
func NewTokenIssuer(secret, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("auth: token secret is empty")
	}
	key, err := DeriveKey(secret, "crushnote token signing", 32)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{key: key, issuer: issuer, ttl: ttl, now: time.Now}, nil
}

// TTL returns the lifetime of issued tokens.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

// Issue returns a signed token for email.
func (t *TokenIssuer) Issue(email string) (string, error) {
	now := t.now().UTC()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    t.issuer,
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		ID:        uuid.NewString(),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns its email. Every failure is Unauthorized.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.Unauthorized("Missing token.")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	var claims Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperr.Unauthorized("Token expired.")
		}
		return "", apperr.Unauthorized("Invalid token.")
	}
	if claims.Email() == "" {
		return "", apperr.Unauthorized("Invalid token.")
	}
	return claims.Email(), nil
}

// DeriveKey expands secret into an n-byte key bound to purpose, so one
// configured secret can feed several independent keys.
func DeriveKey(secret, purpose string, n int) ([]byte, error) {
	key := make([]byte, n)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("auth: derive key: %w", err)
	}
	return key, nil
}
