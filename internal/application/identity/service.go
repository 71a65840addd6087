package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/infrastructure/google"
	jwtinfra "github.com/fiscus-api/internal/infrastructure/jwt"
	"github.com/fiscus-api/internal/pkg/id"
	"github.com/fiscus-api/internal/pkg/validate"
)

// Service owns accounts and login credentials. Everything else in the API
// learns who the caller is through VerifyLoginCredential.
type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, string, error)
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error)
	VerifyLoginCredential(ctx context.Context, credential string) (*domain.Principal, error)
	Get(ctx context.Context, uid string) (*domain.User, error)
	SetPassword(ctx context.Context, uid, password string) error
	FindUIDByEmail(ctx context.Context, email string) (string, error)
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	SetPasswordHash(ctx context.Context, userID, hash string) error
}

type tokenProvider interface {
	Sign(userID, email string) (string, error)
	Verify(token string) (*jwtinfra.Claims, error)
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type secretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}

type service struct {
	repo   userStore
	tokens tokenProvider
	google googleVerifier
	hasher secretHasher
	now    func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Tokens   tokenProvider
	// Google is optional; when nil only bearer tokens are accepted.
	Google googleVerifier
	Hasher secretHasher
	Now    func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:   deps.UserRepo,
		tokens: deps.Tokens,
		google: deps.Google,
		hasher: deps.Hasher,
		now:    now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, "", err
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, "", err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.NewAt(now),
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		AuthProvider: domain.AuthProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, "", err
	}
	bearer, err := s.tokens.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, "", fmt.Errorf("sign bearer: %w", err)
	}
	return u, bearer, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, "", err
	}
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("invalid email or password: %w", domain.ErrInvalidCredential)
	}
	if err != nil {
		return nil, "", err
	}
	if u.PasswordHash == "" {
		return nil, "", fmt.Errorf("account has no password: %w", domain.ErrInvalidCredential)
	}
	if err := s.hasher.Compare(u.PasswordHash, req.Password); err != nil {
		return nil, "", fmt.Errorf("invalid email or password: %w", domain.ErrInvalidCredential)
	}
	bearer, err := s.tokens.Sign(u.UserID, u.Email)
	if err != nil {
		return nil, "", fmt.Errorf("sign bearer: %w", err)
	}
	return u, bearer, nil
}

// VerifyLoginCredential resolves a bearer token to a principal. When a Google
// verifier is configured a Google ID token is accepted too, and a first-time
// Google user is provisioned on the spot.
func (s *service) VerifyLoginCredential(ctx context.Context, credential string) (*domain.Principal, error) {
	if credential == "" {
		return nil, fmt.Errorf("missing credential: %w", domain.ErrInvalidCredential)
	}
	claims, err := s.tokens.Verify(credential)
	if err == nil {
		return &domain.Principal{UID: claims.UserID, Email: claims.Email}, nil
	}
	if s.google == nil {
		return nil, fmt.Errorf("invalid credential: %w", domain.ErrInvalidCredential)
	}
	payload, gerr := s.google.Verify(ctx, credential)
	if gerr != nil {
		return nil, fmt.Errorf("invalid credential: %w", domain.ErrInvalidCredential)
	}
	u, err := s.findOrProvision(ctx, payload)
	if err != nil {
		return nil, err
	}
	return &domain.Principal{UID: u.UserID, Email: u.Email}, nil
}

func (s *service) findOrProvision(ctx context.Context, p *google.Payload) (*domain.User, error) {
	email := normalizeEmail(p.Email)
	u, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC()
	u = &domain.User{
		UserID:       id.NewAt(now),
		Email:        email,
		Name:         p.Name,
		AuthProvider: domain.AuthProviderGoogle,
		GoogleSub:    p.Sub,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Put(ctx, u); err != nil {
		return nil, err
	}
	slog.Info("provisioned google user", "user_id", u.UserID)
	return u, nil
}

func (s *service) Get(ctx context.Context, uid string) (*domain.User, error) {
	return s.repo.Get(ctx, uid)
}

func (s *service) SetPassword(ctx context.Context, uid, password string) error {
	if n := len(password); n < 8 || n > 72 {
		return fmt.Errorf("password must be 8 to 72 bytes: %w", domain.ErrMalformed)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.repo.SetPasswordHash(ctx, uid, hash)
}

func (s *service) FindUIDByEmail(ctx context.Context, email string) (string, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	return u.UserID, nil
}
