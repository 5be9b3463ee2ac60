package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"course-payments/internal/domain/ports/repository"
	"course-payments/internal/usecase"
)

// CheckoutReconciler periodically sweeps stale pending checkout sessions and
// re-runs reconciliation for them. This covers buyers who paid but closed the
// browser before the redirect, and webhook deliveries lost for good.
type CheckoutReconciler struct {
	uc         usecase.ReconcileUseCase
	sessions   repository.CheckoutSessionRepository
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	log        *zerolog.Logger
}

func NewCheckoutReconciler(
	uc usecase.ReconcileUseCase,
	sessions repository.CheckoutSessionRepository,
	interval, staleAfter time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *CheckoutReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	swLog := logger.With().Str("component", "CheckoutReconciler").Logger()
	return &CheckoutReconciler{
		uc:         uc,
		sessions:   sessions,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		log:        &swLog,
	}
}

func (w *CheckoutReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting checkout reconciler")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping checkout reconciler")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CheckoutReconciler) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.sessions.ListPendingOlderThan(ctx, nil, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale sessions failed")
		return
	}
	for _, s := range pending {
		res, err := w.uc.HandleProviderEvent(ctx, s.ProviderSessionID)
		if err != nil {
			// Unsettled sessions stay pending; anything else is logged and
			// retried next sweep.
			w.log.Debug().
				Str("provider_session_id", s.ProviderSessionID).
				Err(err).
				Msg("stale session not reconciled")
			continue
		}
		if res.PaymentCreated {
			w.log.Info().
				Str("provider_session_id", s.ProviderSessionID).
				Msg("stale session reconciled by sweep")
		}
	}
}
