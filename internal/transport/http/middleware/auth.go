package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/fiscus-api/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// CredentialVerifier resolves a login credential to the caller's identity.
type CredentialVerifier interface {
	VerifyLoginCredential(ctx context.Context, credential string) (*domain.Principal, error)
}

// Auth returns middleware that resolves the Bearer credential and injects the
// principal into the request context.
func Auth(verifier CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, domain.KindInvalidCredential, "missing or invalid authorization header")
				return
			}
			p, err := verifier.VerifyLoginCredential(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				if errors.Is(err, domain.ErrInvalidCredential) {
					writeJSONError(w, http.StatusUnauthorized, domain.KindInvalidCredential, "invalid or expired credential")
					return
				}
				writeJSONError(w, http.StatusInternalServerError, domain.Kind(err), "could not verify credential")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *p)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated caller from the request context.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}
