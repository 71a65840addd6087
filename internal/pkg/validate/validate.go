package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/fiscus-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := NormalizeDate(fl.Field().String())
		return ok
	})
}

// Struct validates the given struct using its validate tags.
// A failed "required" rule wraps domain.ErrMissingField; any other failure
// wraps domain.ErrMalformed.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrMalformed)
	}
	kind := domain.ErrMalformed
	var msgs []string
	for _, fe := range ve {
		if fe.Tag() == "required" {
			kind = domain.ErrMissingField
		}
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), kind)
}

// NormalizeDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date in YYYY-MM-DD form.
func NormalizeDate(s string) (string, bool) {
	if t, err := time.Parse(domain.DateLayout, s); err == nil {
		return t.Format(domain.DateLayout), true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Format(domain.DateLayout), true
	}
	return "", false
}
