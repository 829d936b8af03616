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

var _ repository.CardRepository = (*cardRepo)(nil)

type cardRepo struct{ pool *pgxpool.Pool }

func NewCardRepo(pool *pgxpool.Pool) *cardRepo {
	return &cardRepo{pool: pool}
}

func (r *cardRepo) Exists(ctx context.Context, tx repository.Tx, cardID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM cards WHERE card_id=$1);`
	var exists bool
	if err := pick(r.pool, tx).QueryRow(ctx, q, cardID).Scan(&exists); err != nil {
		return false, domain.ErrReadDatabaseRow
	}
	return exists, nil
}

func (r *cardRepo) Insert(ctx context.Context, tx repository.Tx, c *model.Card) error {
	const q = `INSERT INTO cards (card_id, user_id, card_name, card_type, created_at) VALUES ($1,$2,$3,$4,$5);`
	_, err := pick(r.pool, tx).Exec(ctx, q, c.CardID, c.UserID, c.CardName, c.CardType, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *cardRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Card, error) {
	const q = `SELECT card_id, user_id, card_name, card_type, created_at FROM cards WHERE user_id=$1 ORDER BY created_at ASC;`
	rows, err := pick(r.pool, tx).Query(ctx, q, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Card
	for rows.Next() {
		c := new(model.Card)
		if err := rows.Scan(&c.CardID, &c.UserID, &c.CardName, &c.CardType, &c.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	return out, nil
}
