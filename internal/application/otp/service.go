package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/fiscus-api/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/fiscus-api/internal/application/otp")

// Service issues and checks six-digit one-time codes. Only a bcrypt hash of
// a code is stored; the plaintext leaves the process through the dispatcher.
type Service interface {
	Send(ctx context.Context, uid, address string, purpose domain.Purpose) error
	Verify(ctx context.Context, uid string, purpose domain.Purpose, code string) error
	Consume(ctx context.Context, uid string, purpose domain.Purpose) error
}

type securityStore interface {
	Get(ctx context.Context, userID string) (*domain.SecurityRecord, error)
	PutOTP(ctx context.Context, userID string, p domain.Purpose, rec domain.OTPRecord) error
	DeleteOTP(ctx context.Context, userID string, p domain.Purpose) error
	MarkEmailVerified(ctx context.Context, userID string) error
}

type dispatcher interface {
	Send(ctx context.Context, address string, msg domain.Message) error
}

type secretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash, secret string) error
}

type service struct {
	store    securityStore
	mail     dispatcher
	hasher   secretHasher
	now      func() time.Time
	generate func() (string, error)
}

type ServiceDeps struct {
	Store  securityStore
	Mail   dispatcher
	Hasher secretHasher
	Now    func() time.Time
	// Generate overrides the code source; defaults to NewCode.
	Generate func() (string, error)
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:    deps.Store,
		mail:     deps.Mail,
		hasher:   deps.Hasher,
		now:      deps.Now,
		generate: deps.Generate,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.generate == nil {
		s.generate = NewCode
	}
	return s
}

var codeSpan = big.NewInt(900000)

// NewCode returns a uniformly random code in [100000, 999999].
func NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func message(p domain.Purpose, code string) domain.Message {
	mins := int(domain.OTPTTL / time.Minute)
	switch p {
	case domain.PurposePasswordReset:
		return domain.Message{
			Subject: "Your password reset code",
			Body:    fmt.Sprintf("Use %s to reset your password. The code expires in %d minutes.", code, mins),
		}
	default:
		return domain.Message{
			Subject: "Verify your email",
			Body:    fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, mins),
		}
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.Kind(err))
	return err
}

// Send stores a fresh code for purpose, replacing any previous one, and then
// dispatches it. A dispatch failure leaves the stored code in place.
func (s *service) Send(ctx context.Context, uid, address string, purpose domain.Purpose) error {
	ctx, span := tracer.Start(ctx, "otp.Send", trace.WithAttributes(attribute.String("purpose", string(purpose))))
	defer span.End()

	if !purpose.Valid() {
		return fail(span, fmt.Errorf("purpose %q: %w", purpose, domain.ErrMalformed))
	}
	code, err := s.generate()
	if err != nil {
		return fail(span, err)
	}
	h, err := s.hasher.Hash(code)
	if err != nil {
		return fail(span, err)
	}
	rec := domain.OTPRecord{CodeHash: h, ExpiresAt: s.now().UTC().Add(domain.OTPTTL)}
	if err := s.store.PutOTP(ctx, uid, purpose, rec); err != nil {
		return fail(span, err)
	}
	if err := s.mail.Send(ctx, address, message(purpose, code)); err != nil {
		return fail(span, fmt.Errorf("dispatch code: %w", err))
	}
	return nil
}

// Verify checks code against the stored record for purpose. Checks run in
// order: presence, expiry, match. An expired record is left for the next
// Send to overwrite. A verified email code is consumed here; a reset code
// stays until Consume so that token issuance can fail without losing it.
func (s *service) Verify(ctx context.Context, uid string, purpose domain.Purpose, code string) error {
	ctx, span := tracer.Start(ctx, "otp.Verify", trace.WithAttributes(attribute.String("purpose", string(purpose))))
	defer span.End()

	rec, err := s.store.Get(ctx, uid)
	if err != nil {
		return fail(span, err)
	}
	otp := rec.OTP(purpose)
	if otp == nil {
		return fail(span, fmt.Errorf("no %s code: %w", purpose, domain.ErrNotFound))
	}
	if otp.Expired(s.now()) {
		return fail(span, fmt.Errorf("%s code: %w", purpose, domain.ErrExpired))
	}
	if err := s.hasher.Compare(otp.CodeHash, code); err != nil {
		return fail(span, fmt.Errorf("%s code: %w", purpose, err))
	}
	if purpose == domain.PurposeEmailVerify {
		if err := s.store.MarkEmailVerified(ctx, uid); err != nil {
			return fail(span, err)
		}
	}
	return nil
}

func (s *service) Consume(ctx context.Context, uid string, purpose domain.Purpose) error {
	ctx, span := tracer.Start(ctx, "otp.Consume", trace.WithAttributes(attribute.String("purpose", string(purpose))))
	defer span.End()

	if err := s.store.DeleteOTP(ctx, uid, purpose); err != nil {
		return fail(span, err)
	}
	return nil
}
