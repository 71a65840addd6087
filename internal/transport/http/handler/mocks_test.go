package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fiscus-api/internal/application/export"
	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockIdentity struct{ mock.Mock }

func (m *mockIdentity) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, string, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.String(1), args.Error(2)
	}
	return nil, "", args.Error(2)
}
func (m *mockIdentity) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, string, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.String(1), args.Error(2)
	}
	return nil, "", args.Error(2)
}
func (m *mockIdentity) VerifyLoginCredential(ctx context.Context, credential string) (*domain.Principal, error) {
	args := m.Called(ctx, credential)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentity) Get(ctx context.Context, uid string) (*domain.User, error) {
	args := m.Called(ctx, uid)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockIdentity) SetPassword(ctx context.Context, uid, password string) error {
	return m.Called(ctx, uid, password).Error(0)
}
func (m *mockIdentity) FindUIDByEmail(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type mockRecovery struct{ mock.Mock }

func (m *mockRecovery) Request(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockRecovery) VerifyCode(ctx context.Context, email, code string) (*domain.ResetGrant, error) {
	args := m.Called(ctx, email, code)
	if g, _ := args.Get(0).(*domain.ResetGrant); g != nil {
		return g, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRecovery) Reset(ctx context.Context, resetToken, newPassword string) error {
	return m.Called(ctx, resetToken, newPassword).Error(0)
}

type mockVerification struct{ mock.Mock }

func (m *mockVerification) SendEmailCode(ctx context.Context, p domain.Principal) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockVerification) VerifyEmailCode(ctx context.Context, uid, code string) error {
	return m.Called(ctx, uid, code).Error(0)
}
func (m *mockVerification) SetPin(ctx context.Context, uid, pin string) error {
	return m.Called(ctx, uid, pin).Error(0)
}
func (m *mockVerification) VerifyPin(ctx context.Context, uid, pin string) error {
	return m.Called(ctx, uid, pin).Error(0)
}
func (m *mockVerification) Status(ctx context.Context, uid string) (*domain.SecurityStatus, error) {
	args := m.Called(ctx, uid)
	if s, _ := args.Get(0).(*domain.SecurityStatus); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTransactions struct{ mock.Mock }

func (m *mockTransactions) Create(ctx context.Context, uid string, in domain.TransactionInput) (*domain.Transaction, error) {
	args := m.Called(ctx, uid, in)
	if tx, _ := args.Get(0).(*domain.Transaction); tx != nil {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTransactions) Update(ctx context.Context, uid string, in domain.TransactionInput) (*domain.Transaction, error) {
	args := m.Called(ctx, uid, in)
	if tx, _ := args.Get(0).(*domain.Transaction); tx != nil {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTransactions) SoftDelete(ctx context.Context, uid, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, uid, id)
	if tx, _ := args.Get(0).(*domain.Transaction); tx != nil {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTransactions) ListActive(ctx context.Context, uid string) ([]domain.Transaction, error) {
	args := m.Called(ctx, uid)
	txs, _ := args.Get(0).([]domain.Transaction)
	return txs, args.Error(1)
}
func (m *mockTransactions) ListSince(ctx context.Context, uid string, watermark int64) (*domain.ChangeSet, error) {
	args := m.Called(ctx, uid, watermark)
	if cs, _ := args.Get(0).(*domain.ChangeSet); cs != nil {
		return cs, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockExport struct{ mock.Mock }

func (m *mockExport) Export(ctx context.Context, uid string) (*export.Result, error) {
	args := m.Called(ctx, uid)
	if r, _ := args.Get(0).(*export.Result); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

var ana = domain.Principal{UID: "u1", Email: "ana@fiscus.app"}

// newReq builds a request whose body is v encoded as JSON; a string is sent
// as-is.
func newReq(t *testing.T, method, target string, v interface{}) *http.Request {
	t.Helper()
	var body []byte
	switch b := v.(type) {
	case nil:
	case string:
		body = []byte(b)
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return httptest.NewRequest(method, target, bytes.NewReader(body))
}

// asPrincipal attaches p to the request as the auth middleware would.
func asPrincipal(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), p))
}

// withURLParam injects a chi URL param into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeEnvelope decodes the response and re-decodes its data into out when
// out is non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Envelope {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *ErrorBody      `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return Envelope{Success: raw.Success, Error: raw.Error}
}
