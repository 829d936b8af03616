// File: internal/usecase/initiate_uc.go
package usecase

import (
	"context"
	"strings"
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
var _ InitiationUseCase = (*initiateUC)(nil)

// InitiationUseCase starts a checkout: it decides the payment intent once,
// creates the pending payment row and returns the gateway's hosted checkout
// handle.
type InitiationUseCase interface {
	Initiate(ctx context.Context, userID, email string, amount int64, currency, intent string, meta map[string]interface{}) (*model.Payment, string, error)
	// FindForUser is the owner-scoped payment lookup.
	FindForUser(ctx context.Context, reference, callerUserID string) (*model.Payment, error)
}

type initiateUC struct {
	payments repository.PaymentRepository
	gateway  adapter.PaymentGateway
	log      *zerolog.Logger
	now      func() time.Time
}

func NewInitiationUseCase(payments repository.PaymentRepository, gateway adapter.PaymentGateway, logger *zerolog.Logger) *initiateUC {
	return &initiateUC{payments: payments, gateway: gateway, log: logger, now: time.Now}
}

func (u *initiateUC) Initiate(ctx context.Context, userID, email string, amount int64, currency, intent string, meta map[string]interface{}) (*model.Payment, string, error) {
	defer logging.TraceDuration(u.log, "InitiateUC.Initiate")()

	if userID == "" || amount <= 0 {
		return nil, "", domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "NGN"
	}

	// the intent is fixed here, never re-inferred from metadata at verify time
	in, err := model.ParseIntent(strings.TrimSpace(intent))
	if err != nil {
		var ok bool
		if in, ok = model.IntentFromMetadata(meta); !ok {
			return nil, "", domain.ErrInvalidArgument
		}
	}

	res, err := u.gateway.Initialize(ctx, email, amount, currency, "", meta)
	if err != nil {
		return nil, "", err
	}
	if !model.ValidReference(res.Reference) {
		return nil, "", domain.ErrInvalidReference
	}

	now := u.now()
	p := &model.Payment{
		ID:        uuid.NewString(),
		Reference: res.Reference,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Status:    model.PaymentStatusPending,
		Intent:    in,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.payments.Save(ctx, nil, p); err != nil {
		return nil, "", err
	}
	u.log.Info().Str("reference", p.Reference).Str("user_id", userID).Str("intent", string(in)).Int64("amount", amount).Msg("payment initiated")
	return p, res.AuthorizationURL, nil
}

func (u *initiateUC) FindForUser(ctx context.Context, reference, callerUserID string) (*model.Payment, error) {
	if !model.ValidReference(reference) {
		return nil, domain.ErrInvalidReference
	}
	p, err := u.payments.FindByReference(ctx, nil, reference)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if p.UserID != callerUserID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}
