package hash

import (
	"errors"
	"fmt"

	"github.com/fiscus-api/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes secrets (passwords, PINs, OTP codes) with bcrypt. Callers
// must not log or persist the plaintext.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with cost clamped to bcrypt's valid range.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns a salted bcrypt hash of secret.
func (h *Hasher) Hash(secret string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(b), nil
}

// Compare checks secret against hash in constant time. A wrong secret
// returns domain.ErrMismatch; an unreadable hash returns domain.ErrMalformed.
func (h *Hasher) Compare(hash, secret string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return domain.ErrMismatch
	default:
		return fmt.Errorf("compare hash: %v: %w", err, domain.ErrMalformed)
	}
}
