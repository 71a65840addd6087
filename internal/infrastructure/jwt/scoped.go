package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/fiscus-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinScopedSecretLen is the shortest HMAC secret NewScopedIssuer accepts.
const MinScopedSecretLen = 32

// ErrWeakSecret is returned by NewScopedIssuer for an empty or short secret.
var ErrWeakSecret = errors.New("scoped token secret too short")

// ScopedClaims is the payload of a capability token bound to one purpose.
type ScopedClaims struct {
	Purpose domain.Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// ScopedIssuer mints and checks short-lived HS256 capability tokens.
// Tokens are stateless and cannot be revoked before they expire.
type ScopedIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewScopedIssuer(secret string) (*ScopedIssuer, error) {
	if len(secret) < MinScopedSecretLen {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrWeakSecret, MinScopedSecretLen, len(secret))
	}
	return &ScopedIssuer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for uid restricted to purpose and valid for ttl.
func (s *ScopedIssuer) Issue(uid string, purpose domain.Purpose, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := ScopedClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign scoped token: %w", err)
	}
	return signed, exp, nil
}

// Authorize validates token and returns its subject when it carries expected.
func (s *ScopedIssuer) Authorize(token string, expected domain.Purpose) (string, error) {
	var claims ScopedClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("scoped token: %w", domain.ErrExpired)
	case err != nil:
		return "", fmt.Errorf("scoped token: %w: %v", domain.ErrMalformed, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("scoped token: no subject: %w", domain.ErrMalformed)
	}
	if claims.Purpose != expected {
		return "", fmt.Errorf("scoped token for %q: %w", claims.Purpose, domain.ErrWrongPurpose)
	}
	return claims.Subject, nil
}
