package repository

import (
	"context"

	"github.com/itzhord/onecard-sub000/internal/domain/model"
)

// -----------------------------
// Cards
// -----------------------------

type CardRepository interface {
	Exists(ctx context.Context, tx Tx, cardID string) (bool, error)
	// Insert persists a new card; returns domain.ErrAlreadyExists on a card id
	// collision so the caller can regenerate.
	Insert(ctx context.Context, tx Tx, c *model.Card) error
	FindByUser(ctx context.Context, tx Tx, userID string) ([]*model.Card, error)
}
