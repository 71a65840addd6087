package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fiscus-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockVerifier struct{ mock.Mock }

func (m *mockVerifier) VerifyLoginCredential(ctx context.Context, credential string) (*domain.Principal, error) {
	args := m.Called(ctx, credential)
	if p, _ := args.Get(0).(*domain.Principal); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func decodeKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.False(t, body.Success)
	return body.Error.Kind
}

func TestAuth_MissingHeader(t *testing.T) {
	v := &mockVerifier{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	Auth(v)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, domain.KindInvalidCredential, decodeKind(t, rr))
	v.AssertNotCalled(t, "VerifyLoginCredential", mock.Anything, mock.Anything)
}

func TestAuth_BasicSchemeRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rr := httptest.NewRecorder()
	Auth(&mockVerifier{})(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuth_BadToken(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyLoginCredential", mock.Anything, "not-a-real-token").Return(nil, domain.ErrInvalidCredential)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rr := httptest.NewRecorder()
	Auth(v)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	v.AssertExpectations(t)
}

func TestAuth_StoreFailureIsNotUnauthorized(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyLoginCredential", mock.Anything, "google-token").Return(nil, domain.ErrStoreFailure)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer google-token")
	rr := httptest.NewRecorder()
	Auth(v)(http.HandlerFunc(okHandler)).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, domain.KindStoreFailure, decodeKind(t, rr))
}

func TestAuth_ValidToken_InjectsPrincipal(t *testing.T) {
	v := &mockVerifier{}
	v.On("VerifyLoginCredential", mock.Anything, "good").Return(&domain.Principal{UID: "u1", Email: "ana@fiscus.app"}, nil)

	var got domain.Principal
	var ok bool
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	Auth(v)(capture).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, ok)
	assert.Equal(t, "u1", got.UID)
	assert.Equal(t, "ana@fiscus.app", got.Email)
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
