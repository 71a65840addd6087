package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fiscus-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError_StatusByKind(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrExpired, http.StatusBadRequest},
		{domain.ErrMismatch, http.StatusBadRequest},
		{domain.ErrMalformed, http.StatusBadRequest},
		{domain.ErrMissingID, http.StatusUnprocessableEntity},
		{domain.ErrMissingField, http.StatusUnprocessableEntity},
		{domain.ErrWrongPurpose, http.StatusForbidden},
		{domain.ErrUnauthorized, http.StatusForbidden},
		{domain.ErrInvalidCredential, http.StatusUnauthorized},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrTooLarge, http.StatusRequestEntityTooLarge},
		{domain.ErrStoreFailure, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		httpError(rr, fmt.Errorf("op: %w", tc.err))
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())

		env := decodeEnvelope(t, rr, nil)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, domain.Kind(tc.err), env.Error.Kind)
	}
}

func TestHTTPError_HidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, fmt.Errorf("put item: %w: %w", domain.ErrStoreFailure, errors.New("table arn:aws:dynamodb:secret")))

	env := decodeEnvelope(t, rr, nil)
	assert.Equal(t, "internal error", env.Error.Message)
}

func TestWriteData_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	writeData(rr, http.StatusOK, MessageData{Message: "hi"})

	var got MessageData
	env := decodeEnvelope(t, rr, &got)
	assert.True(t, env.Success)
	assert.Nil(t, env.Error)
	assert.Equal(t, "hi", got.Message)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestDecode_BodyOverLimit(t *testing.T) {
	body := `{"message":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var got MessageData
	err := decode(rr, req, &got)
	assert.True(t, errors.Is(err, domain.ErrTooLarge))
	assert.Equal(t, domain.KindTooLarge, domain.Kind(err))
}

func TestDecode_MalformedBody(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":`))

	var got MessageData
	err := decode(rr, req, &got)
	assert.True(t, errors.Is(err, domain.ErrMalformed))
}

func TestDecode_WithinLimit(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))

	var got MessageData
	require.NoError(t, decode(rr, req, &got))
	assert.Equal(t, "hi", got.Message)
}

func TestPrincipal_MissingContext(t *testing.T) {
	rr := httptest.NewRecorder()
	_, ok := principal(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
