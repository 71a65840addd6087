package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fiscus-api/internal/application/otp"
	"github.com/fiscus-api/internal/domain"
)

// Service drives the password reset flow: a code is mailed, the code is
// exchanged for a short-lived reset token, and the token authorizes exactly
// one kind of write, a new password.
type Service interface {
	Request(ctx context.Context, email string) error
	VerifyCode(ctx context.Context, email, code string) (*domain.ResetGrant, error)
	Reset(ctx context.Context, resetToken, newPassword string) error
}

type identity interface {
	FindUIDByEmail(ctx context.Context, email string) (string, error)
	SetPassword(ctx context.Context, uid, password string) error
}

type scopedIssuer interface {
	Issue(uid string, purpose domain.Purpose, ttl time.Duration) (string, time.Time, error)
	Authorize(token string, expected domain.Purpose) (string, error)
}

type service struct {
	identity identity
	otp      otp.Service
	tokens   scopedIssuer
}

type ServiceDeps struct {
	Identity identity
	OTP      otp.Service
	Tokens   scopedIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{identity: deps.Identity, otp: deps.OTP, tokens: deps.Tokens}
}

// Request mails a reset code. An unknown address succeeds silently so the
// answer does not reveal which addresses have accounts.
func (s *service) Request(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	uid, err := s.identity.FindUIDByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		slog.DebugContext(ctx, "password reset requested for unknown address")
		return nil
	}
	if err != nil {
		return err
	}
	return s.otp.Send(ctx, uid, email, domain.PurposePasswordReset)
}

// VerifyCode checks the mailed code and, on success, trades it for a reset
// token. The code is only consumed once the token exists. An unknown address,
// a missing code and a wrong code all report ErrMismatch.
func (s *service) VerifyCode(ctx context.Context, email, code string) (*domain.ResetGrant, error) {
	uid, err := s.identity.FindUIDByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("reset code: %w", domain.ErrMismatch)
	}
	if err != nil {
		return nil, err
	}
	if err := s.otp.Verify(ctx, uid, domain.PurposePasswordReset, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("reset code: %w", domain.ErrMismatch)
		}
		return nil, err
	}
	token, exp, err := s.tokens.Issue(uid, domain.PurposePasswordReset, domain.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.otp.Consume(ctx, uid, domain.PurposePasswordReset); err != nil {
		// The token is already minted; a stale code only lingers until it expires.
		slog.Warn("failed to consume reset code", "user_id", uid, "err", err)
	}
	return &domain.ResetGrant{ResetToken: token, ExpiresAt: exp}, nil
}

func (s *service) Reset(ctx context.Context, resetToken, newPassword string) error {
	uid, err := s.tokens.Authorize(resetToken, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	return s.identity.SetPassword(ctx, uid, newPassword)
}
