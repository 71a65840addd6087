package dynamo

import "github.com/fiscus-api/internal/domain"

// DynamoDB attribute names used in update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID           = "user_id"
	fieldEmail            = "email"
	fieldPasswordHash     = "password_hash"
	fieldUpdatedAt        = "updated_at"
	fieldVerificationCode = "verification_code"
	fieldResetCode        = "reset_code"
	fieldPinHash          = "pin_hash"
	fieldEmailVerified    = "email_verified"
	fieldTransactionID    = "transaction_id"
	fieldUID              = "uid"
	fieldType             = "type"
	fieldAmount           = "amount"
	fieldCategory         = "category"
	fieldDate             = "date"
	fieldDescription      = "description"
	fieldDeletedAt        = "deleted_at"
	fieldSyncSeq          = "sync_seq"
	fieldLast             = "last"
)

const (
	indexEmail      = "email-index"
	indexUIDSyncSeq = "uid-sync_seq-index"
)

// otpField maps a purpose to its slot on the security record.
func otpField(p domain.Purpose) (string, bool) {
	switch p {
	case domain.PurposeEmailVerify:
		return fieldVerificationCode, true
	case domain.PurposePasswordReset:
		return fieldResetCode, true
	}
	return "", false
}
