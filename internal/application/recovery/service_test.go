package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/fiscus-api/internal/domain"
	jwtinfra "github.com/fiscus-api/internal/infrastructure/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) FindUIDByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
func (m *mockIdentity) SetPassword(ctx context.Context, uid, password string) error {
	return m.Called(ctx, uid, password).Error(0)
}

type mockOTP struct{ mock.Mock }

func (m *mockOTP) Send(ctx context.Context, uid, address string, p domain.Purpose) error {
	return m.Called(ctx, uid, address, p).Error(0)
}
func (m *mockOTP) Verify(ctx context.Context, uid string, p domain.Purpose, code string) error {
	return m.Called(ctx, uid, p, code).Error(0)
}
func (m *mockOTP) Consume(ctx context.Context, uid string, p domain.Purpose) error {
	return m.Called(ctx, uid, p).Error(0)
}

// --- helpers ---

func newIssuer(t *testing.T) *jwtinfra.ScopedIssuer {
	t.Helper()
	iss, err := jwtinfra.NewScopedIssuer("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	return iss
}

func newService(t *testing.T, id *mockIdentity, o *mockOTP) (Service, *jwtinfra.ScopedIssuer) {
	iss := newIssuer(t)
	return NewService(ServiceDeps{Identity: id, OTP: o, Tokens: iss}), iss
}

// --- Request ---

func TestRequest_SendsResetCode(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("u1", nil)
	o.On("Send", mock.Anything, "u1", "ana@fiscus.app", domain.PurposePasswordReset).Return(nil)

	svc, _ := newService(t, id, o)
	require.NoError(t, svc.Request(context.Background(), " Ana@Fiscus.app"))
	o.AssertExpectations(t)
}

func TestRequest_UnknownEmail(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ghost@fiscus.app").Return("", domain.ErrNotFound)

	svc, _ := newService(t, id, o)
	require.NoError(t, svc.Request(context.Background(), "ghost@fiscus.app"))
	o.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequest_LookupFailureSurfaces(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("", domain.ErrStoreFailure)

	svc, _ := newService(t, id, o)
	err := svc.Request(context.Background(), "ana@fiscus.app")
	assert.True(t, errors.Is(err, domain.ErrStoreFailure))
}

// --- VerifyCode ---

func TestVerifyCode_IssuesTokenThenConsumes(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("u1", nil)
	o.On("Verify", mock.Anything, "u1", domain.PurposePasswordReset, "482913").Return(nil)
	o.On("Consume", mock.Anything, "u1", domain.PurposePasswordReset).Return(nil)

	svc, iss := newService(t, id, o)
	grant, err := svc.VerifyCode(context.Background(), "ana@fiscus.app", "482913")
	require.NoError(t, err)
	assert.False(t, grant.ExpiresAt.IsZero())

	uid, err := iss.Authorize(grant.ResetToken, domain.PurposePasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)
	o.AssertExpectations(t)
}

func TestVerifyCode_TokenRejectedForEmailVerify(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("u1", nil)
	o.On("Verify", mock.Anything, "u1", domain.PurposePasswordReset, "482913").Return(nil)
	o.On("Consume", mock.Anything, "u1", domain.PurposePasswordReset).Return(nil)

	svc, iss := newService(t, id, o)
	grant, err := svc.VerifyCode(context.Background(), "ana@fiscus.app", "482913")
	require.NoError(t, err)

	_, err = iss.Authorize(grant.ResetToken, domain.PurposeEmailVerify)
	assert.True(t, errors.Is(err, domain.ErrWrongPurpose))
}

func TestVerifyCode_BadCodeIssuesNothing(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("u1", nil)
	o.On("Verify", mock.Anything, "u1", domain.PurposePasswordReset, "000000").Return(domain.ErrMismatch)

	svc, _ := newService(t, id, o)
	grant, err := svc.VerifyCode(context.Background(), "ana@fiscus.app", "000000")
	assert.Nil(t, grant)
	assert.True(t, errors.Is(err, domain.ErrMismatch))
	o.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyCode_UnknownEmailLooksLikeBadCode(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ghost@fiscus.app").Return("", domain.ErrNotFound)
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("u1", nil)
	o.On("Verify", mock.Anything, "u1", domain.PurposePasswordReset, "000000").Return(domain.ErrNotFound)

	svc, _ := newService(t, id, o)
	_, unknown := svc.VerifyCode(context.Background(), "ghost@fiscus.app", "000000")
	_, noCode := svc.VerifyCode(context.Background(), "ana@fiscus.app", "000000")

	assert.True(t, errors.Is(unknown, domain.ErrMismatch))
	assert.True(t, errors.Is(noCode, domain.ErrMismatch))
	assert.Equal(t, domain.Kind(unknown), domain.Kind(noCode))
}

func TestVerifyCode_ConsumeFailureStillGrants(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("FindUIDByEmail", mock.Anything, "ana@fiscus.app").Return("u1", nil)
	o.On("Verify", mock.Anything, "u1", domain.PurposePasswordReset, "482913").Return(nil)
	o.On("Consume", mock.Anything, "u1", domain.PurposePasswordReset).Return(domain.ErrStoreFailure)

	svc, _ := newService(t, id, o)
	grant, err := svc.VerifyCode(context.Background(), "ana@fiscus.app", "482913")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.ResetToken)
}

// --- Reset ---

func TestReset_SetsPassword(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	id.On("SetPassword", mock.Anything, "u1", "brand-new-pass").Return(nil)

	svc, iss := newService(t, id, o)
	tok, _, err := iss.Issue("u1", domain.PurposePasswordReset, domain.ResetTokenTTL)
	require.NoError(t, err)

	require.NoError(t, svc.Reset(context.Background(), tok, "brand-new-pass"))
	id.AssertExpectations(t)
}

func TestReset_WrongPurposeToken(t *testing.T) {
	id, o := &mockIdentity{}, &mockOTP{}
	svc, iss := newService(t, id, o)
	tok, _, err := iss.Issue("u1", domain.PurposeEmailVerify, domain.ResetTokenTTL)
	require.NoError(t, err)

	err = svc.Reset(context.Background(), tok, "brand-new-pass")
	assert.True(t, errors.Is(err, domain.ErrWrongPurpose))
	id.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestReset_MalformedToken(t *testing.T) {
	svc, _ := newService(t, &mockIdentity{}, &mockOTP{})
	err := svc.Reset(context.Background(), "garbage", "brand-new-pass")
	assert.True(t, errors.Is(err, domain.ErrMalformed))
}
