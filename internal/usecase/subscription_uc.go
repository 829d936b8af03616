// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/model"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/adapter"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
	"github.com/itzhord/onecard-sub000/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionReconciler = (*subscriptionUC)(nil)

// SubscriptionReconciler decides create-vs-update for a user's subscription
// row after a qualifying payment and computes the billing dates.
type SubscriptionReconciler interface {
	ReconcileSubscription(ctx context.Context, userID string, meta map[string]interface{}, gw *adapter.VerifyResult, reference string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
	now  func() time.Time
}

func NewSubscriptionReconciler(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, log: logger, now: time.Now}
}

const defaultPlanName = "Premium"

// ReconcileSubscription upserts the user's single subscription row.
// Renewals update in place: the term is reset to the new payment's paid-at
// and the billing boundary advances one cycle from there. StartDate,
// NextBillingDate and ExpiryDate are kept synchronized
// (ExpiryDate == NextBillingDate).
func (u *subscriptionUC) ReconcileSubscription(ctx context.Context, userID string, meta map[string]interface{}, gw *adapter.VerifyResult, reference string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Reconcile")()

	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}

	planName, ok := model.MetaString(meta, "plan_type")
	if !ok && gw != nil && gw.PlanName != "" {
		planName = gw.PlanName
	}
	if planName == "" {
		planName = defaultPlanName
	}
	planID, ok := model.MetaString(meta, "plan_id")
	if !ok {
		planID = model.PlanSlug(planName)
	}

	cycle := model.BillingCycleMonthly
	if raw, ok := model.MetaString(meta, "billing_cycle"); ok {
		cycle = model.ParseBillingCycle(raw)
	}

	start := u.now()
	if gw != nil && gw.PaidAt != nil {
		start = *gw.PaidAt
	}
	next := model.NextBilling(start, cycle)

	code := ""
	if gw != nil {
		code = gw.SubscriptionCode
	}

	existing, err := u.subs.FindByUser(ctx, nil, userID)
	switch {
	case err == nil:
		// renewal: update in place, never a second row
		existing.Status = model.SubscriptionStatusActive
		existing.PlanID = planID
		existing.PlanName = planName
		if code != "" {
			existing.SubscriptionCode = code
		} else if existing.SubscriptionCode == "" {
			existing.SubscriptionCode = reference
		}
		existing.StartDate = start
		existing.NextBillingDate = next
		existing.ExpiryDate = next
		existing.UpdatedAt = u.now()
		if err := u.subs.UpdateByUser(ctx, nil, existing); err != nil {
			return nil, err
		}
		u.log.Info().Str("user_id", userID).Str("plan_id", planID).Time("next_billing", next).Msg("subscription renewed")
		return existing, nil

	case errors.Is(err, domain.ErrNotFound):
		if code == "" {
			code = reference
		}
		now := u.now()
		sub := &model.Subscription{
			ID:               uuid.NewString(),
			UserID:           userID,
			PlanID:           planID,
			PlanName:         planName,
			Status:           model.SubscriptionStatusActive,
			SubscriptionCode: code,
			StartDate:        start,
			NextBillingDate:  next,
			ExpiryDate:       next,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := u.subs.Insert(ctx, nil, sub); err != nil {
			return nil, err
		}
		u.log.Info().Str("user_id", userID).Str("plan_id", planID).Time("next_billing", next).Msg("subscription created")
		return sub, nil

	default:
		return nil, err
	}
}
