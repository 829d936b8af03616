package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/itzhord/onecard-sub000/internal/domain/ports/repository"
	"github.com/itzhord/onecard-sub000/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payments and tries
// to finalize them through the system verification path. This covers clients
// that paid but never called verify, or a process crash mid-verification.
type PaymentReconciler struct {
	uc         usecase.VerificationUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending payment must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.VerificationUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	return &PaymentReconciler{uc: uc, payments: payments, interval: interval, staleAfter: staleAfter, log: logger}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("payment-reconciler: list pending failed")
		return
	}
	for _, p := range pending {
		outcome, err := w.uc.VerifyAsSystem(ctx, p.Reference)
		if err != nil {
			// gateway rejections are expected for abandoned checkouts
			w.log.Debug().Err(err).Str("reference", p.Reference).Msg("payment-reconciler: verification not finalized")
			continue
		}
		w.log.Info().Str("reference", p.Reference).Bool("already_verified", outcome.AlreadyVerified).Msg("payment-reconciler: reconciled payment")
	}
}
