// File: internal/usecase/verify_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/itzhord/onecard-sub000/internal/domain"
	"github.com/itzhord/onecard-sub000/internal/domain/model"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/adapter"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
	"github.com/itzhord/onecard-sub000/internal/infra/logging"
)

// Compile-time check
var _ VerificationUseCase = (*verifyUC)(nil)

// Locker serializes concurrent verifications of the same reference. A nil
// locker disables locking (unit tests, single-instance deployments that rely
// on the conditional update alone).
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// PaymentView is the caller-facing projection of a payment. All dates are
// RFC 3339 strings or null.
type PaymentView struct {
	Reference     string                 `json:"reference"`
	Amount        string                 `json:"amount"` // major units, two decimals
	Currency      string                 `json:"currency"`
	Status        string                 `json:"status"`
	PaymentType   string                 `json:"paymentType"` // card | subscription
	PaymentMethod *string                `json:"paymentMethod"`
	PaidAt        *string                `json:"paidAt"`
	CreatedAt     string                 `json:"createdAt"`
	UpdatedAt     string                 `json:"updatedAt"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// VerifyOutcome is what the orchestrator hands back to the transport layer.
// Warning is set on degraded success (payment completed but the refresh read
// failed); the provisioning errors are reported for logging/metrics only and
// never fail the call.
type VerifyOutcome struct {
	Payment         *PaymentView
	AlreadyVerified bool
	Warning         string
	CardErr         error
	SubscriptionErr error
}

type VerificationUseCase interface {
	// Verify confirms the charge with the gateway and reconciles the payment,
	// card and subscription records on behalf of callerUserID.
	Verify(ctx context.Context, reference, callerUserID string) (*VerifyOutcome, error)
	// VerifyAsSystem is the ownership-exempt path used by the stale-payment
	// reconciler; it is never exposed over HTTP.
	VerifyAsSystem(ctx context.Context, reference string) (*VerifyOutcome, error)
}

type verifyUC struct {
	payments repository.PaymentRepository
	cards    CardProvisioner
	subs     SubscriptionReconciler
	gateway  adapter.PaymentGateway
	locker   Locker
	log      *zerolog.Logger
	now      func() time.Time
	lockTTL  time.Duration
}

func NewVerificationUseCase(
	payments repository.PaymentRepository,
	cards CardProvisioner,
	subs SubscriptionReconciler,
	gateway adapter.PaymentGateway,
	locker Locker,
	logger *zerolog.Logger,
) *verifyUC {
	return &verifyUC{
		payments: payments,
		cards:    cards,
		subs:     subs,
		gateway:  gateway,
		locker:   locker,
		log:      logger,
		now:      time.Now,
		lockTTL:  30 * time.Second,
	}
}

func (u *verifyUC) Verify(ctx context.Context, reference, callerUserID string) (*VerifyOutcome, error) {
	return u.verify(ctx, reference, callerUserID, true)
}

func (u *verifyUC) VerifyAsSystem(ctx context.Context, reference string) (*VerifyOutcome, error) {
	return u.verify(ctx, reference, "", false)
}

func (u *verifyUC) verify(ctx context.Context, reference, callerUserID string, checkOwner bool) (*VerifyOutcome, error) {
	defer logging.TraceDuration(u.log, "VerifyUC.Verify")()

	// reject malformed input before any I/O
	if !model.ValidReference(reference) {
		return nil, domain.ErrInvalidReference
	}

	log := u.log.With().Str("reference", reference).Str("caller", callerUserID).Logger()

	if u.locker != nil {
		token, err := u.locker.TryLock(ctx, "verify:"+reference, u.lockTTL)
		if err != nil {
			log.Warn().Err(err).Msg("verification lock not acquired")
			return nil, domain.ErrLockNotAcquired
		}
		defer func() {
			if err := u.locker.Unlock(ctx, "verify:"+reference, token); err != nil {
				log.Warn().Err(err).Msg("verification unlock failed")
			}
		}()
	}

	// Always re-confirm with the gateway, even for an already-completed local
	// record; the audit trail at the provider is worth the round-trip.
	gw, err := u.gateway.Verify(ctx, reference)
	if err != nil {
		log.Warn().Err(err).Msg("gateway verification failed")
		if errors.Is(err, domain.ErrGatewayCredentials) {
			return nil, err
		}
		return nil, domain.NewGatewayRejected(err.Error())
	}
	if !gw.Confirmed {
		log.Info().Str("gateway_status", gw.Status).Str("gateway_message", gw.Message).Msg("gateway did not confirm transaction")
		return nil, domain.NewGatewayRejected(gw.Message)
	}

	p, err := u.payments.FindByReference(ctx, nil, reference)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if checkOwner && p.UserID != callerUserID {
		// no data about the actual owner leaks past this point
		log.Warn().Msg("ownership mismatch on verification")
		return nil, domain.ErrForbidden
	}

	// idempotency short-circuit: already completed, nothing to write
	if p.Status == model.PaymentStatusCompleted {
		return &VerifyOutcome{Payment: ViewOf(p), AlreadyVerified: true}, nil
	}

	paidAt := u.now()
	switch {
	case gw.PaidAt != nil:
		paidAt = *gw.PaidAt
	case !p.CreatedAt.IsZero():
		paidAt = p.CreatedAt
	}

	amount := p.Amount
	if gw.Amount > 0 {
		amount = gw.Amount
	}

	gwFields := map[string]interface{}{
		"amount_major":      model.AmountMajor(amount),
		"gateway_reference": gw.Reference,
		"gateway_status":    gw.Status,
	}
	if gw.Channel != "" {
		gwFields["gateway_channel"] = gw.Channel
	}
	if gw.PaidAt != nil {
		gwFields["gateway_paid_at"] = gw.PaidAt.UTC().Format(time.RFC3339)
	}
	merged := model.MergeMetadata(p.Metadata, gwFields)

	var method *string
	if gw.Channel != "" {
		ch := gw.Channel
		method = &ch
	}

	updated, err := u.payments.CompleteIfPending(ctx, nil, reference, amount, method, paidAt, merged)
	if err != nil {
		return nil, fmt.Errorf("complete payment %s: %w", reference, err)
	}
	if !updated {
		// a concurrent call won the conditional update; treat as idempotent
		if fresh, err := u.payments.FindByReference(ctx, nil, reference); err == nil && fresh != nil {
			return &VerifyOutcome{Payment: ViewOf(fresh), AlreadyVerified: true}, nil
		}
		p.Status = model.PaymentStatusCompleted
		return &VerifyOutcome{Payment: ViewOf(p), AlreadyVerified: true}, nil
	}

	// local copy reflects the write for the degraded-refresh path
	p.Status = model.PaymentStatusCompleted
	p.Amount = amount
	p.Method = method
	p.PaidAt = &paidAt
	p.Metadata = merged
	p.UpdatedAt = u.now()

	log.Info().Str("user_id", p.UserID).Str("intent", string(p.Intent)).Msg("payment completed")

	outcome := &VerifyOutcome{}
	u.provision(ctx, p, gw, outcome, &log)

	refreshed, err := u.payments.FindByReference(ctx, nil, reference)
	if err != nil || refreshed == nil {
		// the payment is already durably completed; degrade instead of failing
		log.Warn().Err(err).Msg("post-write refresh failed; returning pre-refresh view")
		outcome.Payment = ViewOf(p)
		outcome.Warning = "payment verified but the latest record could not be re-read"
		return outcome, nil
	}
	outcome.Payment = ViewOf(refreshed)
	return outcome, nil
}

// provision runs card provisioning and subscription reconciliation
// concurrently, both strictly after the payment write. Each branch is
// best-effort: a failure is logged and counted, never propagated, and never
// rolls back the other branch or the completed payment.
func (u *verifyUC) provision(ctx context.Context, p *model.Payment, gw *adapter.VerifyResult, out *VerifyOutcome, log *zerolog.Logger) {
	var wg sync.WaitGroup

	if p.Intent.ProvisionsCard() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := u.cards.ProvisionCard(ctx, p.UserID, p.Metadata); err != nil {
				log.Error().Err(err).Str("stage", "card_provisioning").Str("user_id", p.UserID).Msg("card provisioning failed")
				out.CardErr = err
			}
		}()
	}

	if p.Intent.ProvisionsSubscription() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := u.subs.ReconcileSubscription(ctx, p.UserID, p.Metadata, gw, p.Reference); err != nil {
				log.Error().Err(err).Str("stage", "subscription_reconciliation").Str("user_id", p.UserID).Msg("subscription reconciliation failed")
				out.SubscriptionErr = err
			}
		}()
	}

	wg.Wait()
}

// ViewOf projects a payment row into its caller-facing view.
func ViewOf(p *model.Payment) *PaymentView {
	v := &PaymentView{
		Reference:     p.Reference,
		Amount:        model.AmountMajor(p.Amount),
		Currency:      p.Currency,
		Status:        string(p.Status),
		PaymentType:   paymentType(p.Intent),
		PaymentMethod: p.Method,
		CreatedAt:     p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     p.UpdatedAt.UTC().Format(time.RFC3339),
		Metadata:      p.Metadata,
	}
	if p.PaidAt != nil {
		s := p.PaidAt.UTC().Format(time.RFC3339)
		v.PaidAt = &s
	}
	return v
}

func paymentType(i model.PaymentIntent) string {
	if i.ProvisionsCard() {
		return "card"
	}
	return "subscription"
}
