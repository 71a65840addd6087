package domain

import "time"

// Purpose scopes an OTP or a capability token to one operation.
type Purpose string

const (
	PurposeEmailVerify   Purpose = "email_verify"
	PurposePasswordReset Purpose = "password_reset"
)

// Lifetimes of the time-boxed artifacts.
const (
	OTPTTL        = 10 * time.Minute
	ResetTokenTTL = 15 * time.Minute
)

// Valid reports whether p is one of the known purposes.
func (p Purpose) Valid() bool {
	return p == PurposeEmailVerify || p == PurposePasswordReset
}

// OTPRecord is a hashed one-time code and its expiry.
type OTPRecord struct {
	CodeHash  string    `json:"-" dynamodbav:"code_hash"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
}

// Expired reports whether the code is past its validity at now.
func (r *OTPRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// SecurityRecord holds the per-user security fields.
// PK: user_id. OTP slots are removed, never flagged, once consumed.
type SecurityRecord struct {
	UserID           string     `json:"user_id" dynamodbav:"user_id"`
	VerificationCode *OTPRecord `json:"-" dynamodbav:"verification_code,omitempty"`
	ResetCode        *OTPRecord `json:"-" dynamodbav:"reset_code,omitempty"`
	PinHash          *string    `json:"-" dynamodbav:"pin_hash,omitempty"`
	EmailVerified    bool       `json:"email_verified" dynamodbav:"email_verified"`
	UpdatedAt        time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// OTP returns the slot for purpose, or nil when absent.
func (r *SecurityRecord) OTP(p Purpose) *OTPRecord {
	switch p {
	case PurposeEmailVerify:
		return r.VerificationCode
	case PurposePasswordReset:
		return r.ResetCode
	}
	return nil
}

// SecurityStatus is the caller-visible summary of a SecurityRecord.
type SecurityStatus struct {
	EmailVerified bool `json:"email_verified"`
	PinSet        bool `json:"pin_set"`
}

type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,numeric,len=6"`
}

type PinRequest struct {
	Pin string `json:"pin" validate:"required,numeric,min=4,max=6"`
}

type PasswordRecoveryRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ValidateResetCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

type ResetPasswordRequest struct {
	ResetToken  string `json:"reset_token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

// ResetGrant is returned once a reset code has been verified.
type ResetGrant struct {
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}
