package transaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/pkg/validate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldType        = "type"
	fieldAmount      = "amount"
	fieldCategory    = "category"
	fieldDate        = "date"
	fieldDescription = "description"
	fieldUpdatedAt   = "updated_at"
	fieldDeletedAt   = "deleted_at"
)

var tracer = otel.Tracer("github.com/fiscus-api/internal/application/transaction")

// Service keeps a user's ledger and lets offline clients catch up on it.
// Every write stamps the record with the next value of the user's sync
// sequence; clients hold the highest value they have seen as a watermark and
// ask for everything above it. Deletes are tombstones so they sync too.
//
// The store allocates the sequence in the same commit as the write, so
// sequences become visible in order and a watermark never passes a write that
// has not landed yet.
type Service interface {
	Create(ctx context.Context, uid string, in domain.TransactionInput) (*domain.Transaction, error)
	Update(ctx context.Context, uid string, in domain.TransactionInput) (*domain.Transaction, error)
	SoftDelete(ctx context.Context, uid, id string) (*domain.Transaction, error)
	ListActive(ctx context.Context, uid string) ([]domain.Transaction, error)
	ListSince(ctx context.Context, uid string, watermark int64) (*domain.ChangeSet, error)
}

// transactionStore assigns SyncSeq on every Put and Modify.
type transactionStore interface {
	Put(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error)
	Modify(ctx context.Context, userID, id string, set map[string]interface{}) (*domain.Transaction, error)
	ListActive(ctx context.Context, userID string) ([]domain.Transaction, error)
	ListChanged(ctx context.Context, userID string, after int64) ([]domain.Transaction, error)
}

type service struct {
	repo transactionStore
	now  func() time.Time
}

type ServiceDeps struct {
	TransactionRepo transactionStore
	Now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: deps.TransactionRepo, now: now}
}

func startSpan(ctx context.Context, name, uid string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user_id", uid)))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, domain.Kind(err))
	return err
}

// prepare checks an input and returns it with the id trimmed and the date
// normalized to YYYY-MM-DD.
func prepare(in domain.TransactionInput) (domain.TransactionInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	if in.ID == "" {
		return in, fmt.Errorf("transaction id: %w", domain.ErrMissingID)
	}
	in.Category = strings.TrimSpace(in.Category)
	if err := validate.Struct(in); err != nil {
		return in, err
	}
	in.Date, _ = validate.NormalizeDate(in.Date)
	return in, nil
}

// Create stores a new transaction, or replaces one with the same id owned by
// uid. The replacement starts a fresh history: both timestamps are reset.
func (s *service) Create(ctx context.Context, uid string, in domain.TransactionInput) (*domain.Transaction, error) {
	ctx, span := startSpan(ctx, "transaction.Create", uid)
	defer span.End()

	in, err := prepare(in)
	if err != nil {
		return nil, fail(span, err)
	}
	now := s.now().UTC()
	tx, err := s.repo.Put(ctx, &domain.Transaction{
		ID:          in.ID,
		UserID:      uid,
		Type:        in.Type,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return tx, nil
}

// Update overwrites the client-controlled fields. created_at and deleted_at
// are left alone, so editing a tombstone does not resurrect it.
func (s *service) Update(ctx context.Context, uid string, in domain.TransactionInput) (*domain.Transaction, error) {
	ctx, span := startSpan(ctx, "transaction.Update", uid)
	defer span.End()

	in, err := prepare(in)
	if err != nil {
		return nil, fail(span, err)
	}
	tx, err := s.repo.Modify(ctx, uid, in.ID, map[string]interface{}{
		fieldType:        in.Type,
		fieldAmount:      in.Amount,
		fieldCategory:    in.Category,
		fieldDate:        in.Date,
		fieldDescription: in.Description,
		fieldUpdatedAt:   s.now().UTC(),
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return tx, nil
}

// SoftDelete marks the transaction deleted. The row stays so that clients
// syncing from an older watermark learn about the delete.
func (s *service) SoftDelete(ctx context.Context, uid, id string) (*domain.Transaction, error) {
	ctx, span := startSpan(ctx, "transaction.SoftDelete", uid)
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fail(span, fmt.Errorf("transaction id: %w", domain.ErrMissingID))
	}
	now := s.now().UTC()
	tx, err := s.repo.Modify(ctx, uid, id, map[string]interface{}{
		fieldDeletedAt: now,
		fieldUpdatedAt: now,
	})
	if err != nil {
		return nil, fail(span, err)
	}
	return tx, nil
}

func (s *service) ListActive(ctx context.Context, uid string) ([]domain.Transaction, error) {
	ctx, span := startSpan(ctx, "transaction.ListActive", uid)
	defer span.End()

	txs, err := s.repo.ListActive(ctx, uid)
	if err != nil {
		return nil, fail(span, err)
	}
	return txs, nil
}

// ListSince returns every record of uid changed after watermark, tombstones
// included, along with the watermark the client should send next time.
func (s *service) ListSince(ctx context.Context, uid string, watermark int64) (*domain.ChangeSet, error) {
	ctx, span := startSpan(ctx, "transaction.ListSince", uid)
	defer span.End()
	span.SetAttributes(attribute.Int64("watermark", watermark))

	if watermark < 0 {
		return nil, fail(span, fmt.Errorf("watermark %d: %w", watermark, domain.ErrMalformed))
	}
	txs, err := s.repo.ListChanged(ctx, uid, watermark)
	if err != nil {
		return nil, fail(span, err)
	}
	next := watermark
	for _, tx := range txs {
		if tx.SyncSeq > next {
			next = tx.SyncSeq
		}
	}
	return &domain.ChangeSet{Transactions: txs, Watermark: next}, nil
}
