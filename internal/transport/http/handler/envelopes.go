package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/transport/http/middleware"
)

// Envelope is the wrapper around every response body.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the stable error kind and a human-readable message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// AuthData is returned by register and login.
type AuthData struct {
	Bearer string       `json:"bearer"`
	User   *domain.User `json:"user"`
}

// MessageData is returned by operations with nothing else to report.
type MessageData struct {
	Message string `json:"message"`
}

var statusByKind = map[string]int{
	domain.KindNotFound:          http.StatusNotFound,
	domain.KindExpired:           http.StatusBadRequest,
	domain.KindMismatch:          http.StatusBadRequest,
	domain.KindMalformed:         http.StatusBadRequest,
	domain.KindMissingID:         http.StatusUnprocessableEntity,
	domain.KindMissingField:      http.StatusUnprocessableEntity,
	domain.KindWrongPurpose:      http.StatusForbidden,
	domain.KindUnauthorized:      http.StatusForbidden,
	domain.KindInvalidCredential: http.StatusUnauthorized,
	domain.KindConflict:          http.StatusConflict,
	domain.KindTooLarge:          http.StatusRequestEntityTooLarge,
	domain.KindStoreFailure:      http.StatusInternalServerError,
}

func statusFor(kind string) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, Envelope{Error: &ErrorBody{Kind: kind, Message: msg}})
}

// httpError maps err to a status code through its domain kind. Server-side
// failures are logged and answered with a generic message.
func httpError(w http.ResponseWriter, err error) {
	kind := domain.Kind(err)
	status := statusFor(kind)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "kind", kind, "err", err)
		msg = "internal error"
	}
	writeError(w, status, kind, msg)
}

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body over %d bytes: %w", tooLarge.Limit, domain.ErrTooLarge)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrMalformed)
	}
	return nil
}

// principal returns the authenticated caller, answering 401 when the route
// was mounted without the auth middleware.
func principal(w http.ResponseWriter, r *http.Request) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, domain.KindInvalidCredential, "unauthorized")
	}
	return p, ok
}
