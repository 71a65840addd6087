package domain

import "time"

type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// DateLayout is the ISO calendar date format stored on transactions.
const DateLayout = "2006-01-02"

// Transaction is a user-owned ledger entry.
// PK: transaction_id (client-supplied). GSI uid-sync_seq-index drives listing and sync.
// A tombstone keeps its row with DeletedAt set.
type Transaction struct {
	ID          string          `json:"id" dynamodbav:"transaction_id"`
	UserID      string          `json:"uid" dynamodbav:"uid"`
	Type        TransactionType `json:"type" dynamodbav:"type"`
	Amount      float64         `json:"amount" dynamodbav:"amount"`
	Category    string          `json:"category" dynamodbav:"category"`
	Date        string          `json:"date" dynamodbav:"date"`
	Description string          `json:"description" dynamodbav:"description"`
	CreatedAt   time.Time       `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" dynamodbav:"updated_at"`
	DeletedAt   *time.Time      `json:"deleted_at" dynamodbav:"deleted_at,omitempty"`
	SyncSeq     int64           `json:"sync_seq" dynamodbav:"sync_seq"`
}

// Deleted reports whether the transaction is a tombstone.
func (t *Transaction) Deleted() bool { return t.DeletedAt != nil }

// TransactionInput carries the client-controlled fields for create and update.
type TransactionInput struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type" validate:"required,oneof=expense income"`
	Amount      float64         `json:"amount" validate:"gt=0"`
	Category    string          `json:"category" validate:"required"`
	Date        string          `json:"date" validate:"required,isodate"`
	Description string          `json:"description" validate:"max=500"`
}

// ChangeSet is the result of an incremental sync: every record of the user
// whose SyncSeq is above the requested watermark, tombstones included.
type ChangeSet struct {
	Transactions []Transaction `json:"transactions"`
	Watermark    int64         `json:"watermark"`
}
