package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/fiscus-api/internal/domain"
)

// SecurityRepo stores OTP slots, the PIN hash and the email-verified flag.
// PK: user_id. Every write is an UpdateItem so the row is created on first use
// and unrelated attributes are never clobbered.
type SecurityRepo struct {
	client    API
	tableName string
}

func NewSecurityRepo(client API, tableName string) *SecurityRepo {
	return &SecurityRepo{client: client, tableName: tableName}
}

// Get returns the security record for userID. A user without a row yet gets
// an empty record, not an error.
func (r *SecurityRepo) Get(ctx context.Context, userID string) (*domain.SecurityRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storeErr("get security record", err)
	}
	rec := domain.SecurityRecord{UserID: userID}
	if out.Item == nil {
		return &rec, nil
	}
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal security record: %w", err)
	}
	return &rec, nil
}

// PutOTP writes rec into the slot for purpose, replacing any previous code.
func (r *SecurityRepo) PutOTP(ctx context.Context, userID string, p domain.Purpose, rec domain.OTPRecord) error {
	field, ok := otpField(p)
	if !ok {
		return fmt.Errorf("purpose %q: %w", p, domain.ErrMalformed)
	}
	return r.update(ctx, userID, "put otp", map[string]interface{}{field: rec})
}

// DeleteOTP removes the slot for purpose. Removing an absent slot is a no-op.
func (r *SecurityRepo) DeleteOTP(ctx context.Context, userID string, p domain.Purpose) error {
	field, ok := otpField(p)
	if !ok {
		return fmt.Errorf("purpose %q: %w", p, domain.ErrMalformed)
	}
	return r.update(ctx, userID, "delete otp", nil, field)
}

// MarkEmailVerified sets email_verified and drops the verification code in a
// single write.
func (r *SecurityRepo) MarkEmailVerified(ctx context.Context, userID string) error {
	return r.update(ctx, userID, "mark email verified",
		map[string]interface{}{fieldEmailVerified: true}, fieldVerificationCode)
}

func (r *SecurityRepo) SetPinHash(ctx context.Context, userID, hash string) error {
	return r.update(ctx, userID, "set pin", map[string]interface{}{fieldPinHash: hash})
}

func (r *SecurityRepo) update(ctx context.Context, userID, op string, set map[string]interface{}, remove ...string) error {
	if set == nil {
		set = make(map[string]interface{}, 1)
	}
	set[fieldUpdatedAt] = time.Now().UTC()
	ue, err := buildUpdateExpr(set, remove...)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if err != nil {
		return storeErr(op, err)
	}
	return nil
}
