package postgres

import (
	"errors"
	"time"

	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/model"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, reference, user_id, amount, currency, status, intent, method, metadata, paid_at, created_at, updated_at, description`

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (
  id, reference, user_id, amount, currency, status, intent, method, metadata, paid_at, created_at, updated_at, description
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  amount=$4, currency=$5, status=$6, intent=$7, method=$8, metadata=$9, paid_at=$10, updated_at=$12, description=$13;`

	_, err := pick(r.pool, tx).Exec(ctx, q, p.ID, p.Reference, p.UserID, p.Amount, p.Currency, p.Status, p.Intent, p.Method, p.Metadata, p.PaidAt, p.CreatedAt, p.UpdatedAt, p.Description)
	if err != nil {
		if isUniqueViolation(err) {
			// payments.reference carries a unique constraint
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE reference=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"

	row := pick(r.pool, tx).QueryRow(ctx, q, reference)
	p := &model.Payment{}
	var method, description *string
	if err := row.Scan(&p.ID, &p.Reference, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.Intent, &method, &p.Metadata, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt, &description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Method = method
	if description != nil {
		p.Description = *description
	}
	return p, nil
}

// CompleteIfPending is the race-free half of the idempotency contract: the
// conditional update only fires while the row is still pending, so two
// concurrent verifications cannot both provision downstream records.
func (r *paymentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, reference string, amount int64, method *string, paidAt time.Time, metadata map[string]interface{}) (bool, error) {
	const q = `
UPDATE payments
   SET status = 'completed',
       amount = $2,
       method = COALESCE($3, method),
       paid_at = $4,
       metadata = $5,
       updated_at = NOW()
 WHERE reference = $1
   AND status = 'pending';`

	tag, err := pick(r.pool, tx).Exec(ctx, q, reference, amount, method, paidAt, metadata)
	if err != nil {
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() >= 1, nil
}

func (r *paymentRepo) UpdateStatus(ctx context.Context, tx repository.Tx, reference string, status model.PaymentStatus) error {
	// completed is terminal; never step back down from it
	const q = `UPDATE payments SET status=$2, updated_at=NOW() WHERE reference=$1 AND status <> 'completed';`
	_, err := pick(r.pool, tx).Exec(ctx, q, reference, status)
	if err != nil {
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := pick(r.pool, tx).Query(ctx, q, olderThan, limit)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p := new(model.Payment)
		var method, description *string
		if err := rows.Scan(&p.ID, &p.Reference, &p.UserID, &p.Amount, &p.Currency, &p.Status, &p.Intent, &method, &p.Metadata, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt, &description); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		p.Method = method
		if description != nil {
			p.Description = *description
		}
		out = append(out, p)
	}
	return out, nil
}
