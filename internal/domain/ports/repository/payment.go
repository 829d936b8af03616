package repository

import (
	"context"
	"time"

	"github.com/itzhord/onecard-sub000/internal/domain/model"
)

// Tx is an opaque transaction handle; repositories accept nil for the
// non-transactional path. The concrete type is infra-defined (pgx.Tx for
// Postgres).
type Tx interface{}

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Payment, error)

	// CompleteIfPending atomically marks the payment completed with merged
	// metadata, method and paidAt, but only when the current status is still
	// pending. Returns false with nil error when another call already
	// completed it; that zero-row case is the idempotent path.
	CompleteIfPending(ctx context.Context, tx Tx, reference string, amount int64, method *string, paidAt time.Time, metadata map[string]interface{}) (bool, error)

	UpdateStatus(ctx context.Context, tx Tx, reference string, status model.PaymentStatus) error
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
