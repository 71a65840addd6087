package verification

import (
	"context"
	"fmt"

	"github.com/fiscus-api/internal/application/otp"
	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/pkg/validate"
)

// Service covers the signed-in user's own security settings: proving the
// email address and managing the app PIN.
type Service interface {
	SendEmailCode(ctx context.Context, p domain.Principal) error
	VerifyEmailCode(ctx context.Context, uid, code string) error
	SetPin(ctx context.Context, uid, pin string) error
	VerifyPin(ctx context.Context, uid, pin string) error
	Status(ctx context.Context, uid string) (*domain.SecurityStatus, error)
}

type securityStore interface {
	Get(ctx context.Context, userID string) (*domain.SecurityRecord, error)
	SetPinHash(ctx context.Context, userID, hash string) error
}

type secretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}

type service struct {
	store  securityStore
	otp    otp.Service
	hasher secretHasher
}

type ServiceDeps struct {
	Store  securityStore
	OTP    otp.Service
	Hasher secretHasher
}

func NewService(deps ServiceDeps) Service {
	return &service{store: deps.Store, otp: deps.OTP, hasher: deps.Hasher}
}

func (s *service) SendEmailCode(ctx context.Context, p domain.Principal) error {
	if p.Email == "" {
		return fmt.Errorf("principal has no email: %w", domain.ErrMissingField)
	}
	return s.otp.Send(ctx, p.UID, p.Email, domain.PurposeEmailVerify)
}

func (s *service) VerifyEmailCode(ctx context.Context, uid, code string) error {
	if err := validate.Struct(domain.VerifyCodeRequest{Code: code}); err != nil {
		return err
	}
	return s.otp.Verify(ctx, uid, domain.PurposeEmailVerify, code)
}

func (s *service) SetPin(ctx context.Context, uid, pin string) error {
	if err := validate.Struct(domain.PinRequest{Pin: pin}); err != nil {
		return err
	}
	h, err := s.hasher.Hash(pin)
	if err != nil {
		return err
	}
	return s.store.SetPinHash(ctx, uid, h)
}

func (s *service) VerifyPin(ctx context.Context, uid, pin string) error {
	rec, err := s.store.Get(ctx, uid)
	if err != nil {
		return err
	}
	if rec.PinHash == nil {
		return fmt.Errorf("pin not set: %w", domain.ErrNotFound)
	}
	if err := s.hasher.Compare(*rec.PinHash, pin); err != nil {
		return fmt.Errorf("pin: %w", err)
	}
	return nil
}

func (s *service) Status(ctx context.Context, uid string) (*domain.SecurityStatus, error) {
	rec, err := s.store.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &domain.SecurityStatus{EmailVerified: rec.EmailVerified, PinSet: rec.PinHash != nil}, nil
}
