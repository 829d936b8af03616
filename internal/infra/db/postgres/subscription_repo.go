package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/model"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, status, subscription_code, start_date, next_billing_date, expiry_date, created_at, updated_at`

func (r *subscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"

	row := pick(r.pool, tx).QueryRow(ctx, q, userID)
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &s.Status, &s.SubscriptionCode, &s.StartDate, &s.NextBillingDate, &s.ExpiryDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) Insert(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (
  id, user_id, plan_id, plan_name, status, subscription_code, start_date, next_billing_date, expiry_date, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11);`

	_, err := pick(r.pool, tx).Exec(ctx, q, s.ID, s.UserID, s.PlanID, s.PlanName, s.Status, s.SubscriptionCode, s.StartDate, s.NextBillingDate, s.ExpiryDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// subscriptions.user_id is unique; a concurrent insert won
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) UpdateByUser(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
UPDATE subscriptions
   SET plan_id=$2, plan_name=$3, status=$4, subscription_code=$5,
       start_date=$6, next_billing_date=$7, expiry_date=$8, updated_at=NOW()
 WHERE user_id=$1;`

	tag, err := pick(r.pool, tx).Exec(ctx, q, s.UserID, s.PlanID, s.PlanName, s.Status, s.SubscriptionCode, s.StartDate, s.NextBillingDate, s.ExpiryDate)
	if err != nil {
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
