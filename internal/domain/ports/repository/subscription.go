package repository

import (
	"context"

	"github.com/itzhord/onecard-sub000/internal/domain/model"
)

// -----------------------------
// Subscriptions
// -----------------------------

type SubscriptionRepository interface {
	// FindByUser returns domain.ErrNotFound when the user has no subscription
	// row yet (unique on user id).
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.Subscription, error)
	Insert(ctx context.Context, tx Tx, s *model.Subscription) error
	UpdateByUser(ctx context.Context, tx Tx, s *model.Subscription) error
}
