package http

import (
	"context"
	"io"
	"time"

	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/infrastructure/google"
	jwtinfra "github.com/fiscus-api/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

// SecurityRepository is the minimal interface the router requires from the
// per-user security store.
type SecurityRepository interface {
	Get(ctx context.Context, userID string) (*domain.SecurityRecord, error)
	PutOTP(ctx context.Context, userID string, p domain.Purpose, rec domain.OTPRecord) error
	DeleteOTP(ctx context.Context, userID string, p domain.Purpose) error
	MarkEmailVerified(ctx context.Context, userID string) error
	SetPinHash(ctx context.Context, userID, hash string) error
}

// TransactionRepository is the minimal interface the router requires from a
// transaction store. Put and Modify assign the record's sync sequence.
type TransactionRepository interface {
	Put(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	Modify(ctx context.Context, userID, id string, set map[string]interface{}) (*domain.Transaction, error)
	ListActive(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListChanged(ctx context.Context, userID string, after int64) ([]domain.Transaction, error)
}

// ObjectStore is the minimal interface the router requires from an object storage backend.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MailDispatcher delivers one message to one address.
type MailDispatcher interface {
	Send(ctx context.Context, address string, msg domain.Message) error
}

// TokenProvider signs and verifies login bearer tokens.
type TokenProvider interface {
	Sign(userID, email string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

// ScopedTokens issues and checks single-purpose capability tokens.
type ScopedTokens interface {
	Issue(uid string, purpose domain.Purpose, ttl time.Duration) (string, time.Time, error)
	Authorize(token string, expected domain.Purpose) (string, error)
}

// GoogleVerifier validates Google ID tokens.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

// SecretHasher hashes and compares passwords, PINs and OTP codes.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}
