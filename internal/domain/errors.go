package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound          = errors.New("not found")
	ErrExpired           = errors.New("expired")
	ErrMismatch          = errors.New("mismatch")
	ErrWrongPurpose      = errors.New("wrong purpose")
	ErrMissingID         = errors.New("missing id")
	ErrMissingField      = errors.New("missing field")
	ErrMalformed         = errors.New("malformed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrConflict          = errors.New("conflict")
	ErrTooLarge          = errors.New("too large")
	ErrStoreFailure      = errors.New("store failure")
)

// Error kinds as exposed in response envelopes.
const (
	KindNotFound          = "not_found"
	KindExpired           = "expired"
	KindMismatch          = "mismatch"
	KindWrongPurpose      = "wrong_purpose"
	KindMissingID         = "missing_id"
	KindMissingField      = "missing_field"
	KindMalformed         = "malformed"
	KindUnauthorized      = "unauthorized"
	KindInvalidCredential = "invalid_credential"
	KindConflict          = "conflict"
	KindTooLarge          = "too_large"
	KindStoreFailure      = "store_failure"
	KindInternal          = "internal"
)

// Order matters: an error wrapping both a store failure and a more specific
// sentinel reports the specific one.
var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, KindNotFound},
	{ErrExpired, KindExpired},
	{ErrMismatch, KindMismatch},
	{ErrWrongPurpose, KindWrongPurpose},
	{ErrMissingID, KindMissingID},
	{ErrMissingField, KindMissingField},
	{ErrMalformed, KindMalformed},
	{ErrUnauthorized, KindUnauthorized},
	{ErrInvalidCredential, KindInvalidCredential},
	{ErrConflict, KindConflict},
	{ErrTooLarge, KindTooLarge},
	{ErrStoreFailure, KindStoreFailure},
}

// Kind returns the stable kind string for err, or KindInternal when err does
// not wrap any domain sentinel.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
