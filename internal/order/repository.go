package order

import (
	"context"
	"errors"
	"time"

	"github.com/bahaaabdelrahman/noon-app-sub000/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrDuplicateOrder signals the unique idempotency-key or order-number
	// constraint fired: another request already created this order.
	ErrDuplicateOrder = errors.New("order already exists")
)

// OutboxEvent is a pending integration event persisted in the same
// transaction as the order change it describes.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	Processed   bool
	CreatedAt   time.Time
}

// Repository persists orders. Orders are permanent records: there is no
// delete, and creation-time snapshots are never rewritten, only the
// status/payment/refund/tracking surface changes.
type Repository interface {
	// Create inserts the order and, when event is non-nil, its outbox row in
	// one transaction.
	Create(ctx context.Context, o *domain.Order, event *OutboxEvent) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Order, error)

	// Update rewrites the mutable surface of the order and, when event is
	// non-nil, appends an outbox row in the same transaction.
	Update(ctx context.Context, o *domain.Order, event *OutboxEvent) error

	UnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventProcessed(ctx context.Context, id int64) error

	Close() error
}
