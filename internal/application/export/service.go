package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fiscus-api/internal/domain"
	"github.com/fiscus-api/internal/pkg/id"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/fiscus-api/internal/application/export")

// Result points at a finished export.
type Result struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service interface {
	Export(ctx context.Context, uid string) (*Result, error)
}

type ledger interface {
	ListActive(ctx context.Context, uid string) ([]domain.Transaction, error)
}

type objectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type service struct {
	ledger ledger
	store  objectStore
	urlTTL time.Duration
	now    func() time.Time
}

type ServiceDeps struct {
	Ledger ledger
	Store  objectStore
	URLTTL time.Duration
	Now    func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{ledger: deps.Ledger, store: deps.Store, urlTTL: deps.URLTTL, now: deps.Now}
	if s.urlTTL <= 0 {
		s.urlTTL = 15 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type document struct {
	UserID       string               `json:"uid"`
	ExportedAt   time.Time            `json:"exported_at"`
	Transactions []domain.Transaction `json:"transactions"`
}

// Export writes the user's active transactions to object storage as a JSON
// document and returns a short-lived download link.
func (s *service) Export(ctx context.Context, uid string) (*Result, error) {
	ctx, span := tracer.Start(ctx, "export.Export")
	defer span.End()

	txs, err := s.ledger.ListActive(ctx, uid)
	if err != nil {
		span.SetStatus(codes.Error, domain.Kind(err))
		return nil, err
	}
	now := s.now().UTC()
	body, err := json.Marshal(document{UserID: uid, ExportedAt: now, Transactions: txs})
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	key := fmt.Sprintf("exports/%s/%s.json", uid, id.NewAt(now))
	span.SetAttributes(attribute.String("key", key), attribute.Int("count", len(txs)))

	if _, err := s.store.Upload(ctx, key, bytes.NewReader(body), "application/json"); err != nil {
		span.SetStatus(codes.Error, "upload")
		return nil, fmt.Errorf("upload export: %w: %w", domain.ErrStoreFailure, err)
	}
	url, err := s.store.PresignedURL(ctx, key, s.urlTTL)
	if err != nil {
		span.SetStatus(codes.Error, "presign")
		return nil, fmt.Errorf("presign export: %w: %w", domain.ErrStoreFailure, err)
	}
	return &Result{Key: key, URL: url, Count: len(txs), ExpiresAt: now.Add(s.urlTTL)}, nil
}
