package sched

import (
	"context"
	"time"

	red "github.com/abdulbosit19980204/journal/internal/infra/redis"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/rs/zerolog"
)

const reconcileBatch = 200

// PaymentReconciler periodically asks gateways about invoices that stayed
// PENDING longer than staleAfter. This covers callbacks that never arrived
// or a process that crashed mid-settlement.
type PaymentReconciler struct {
	uc         usecase.PaymentUseCase
	locker     red.Locker
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending invoice must be to retry
	log        *zerolog.Logger
}

// NewPaymentReconciler accepts a nil locker.
func NewPaymentReconciler(uc usecase.PaymentUseCase, locker red.Locker, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, locker: locker, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	sweep(ctx, "reconcile", w.locker, w.interval, w.log, func(ctx context.Context) (int, error) {
		return w.uc.ReconcilePending(ctx, time.Now().Add(-w.staleAfter), reconcileBatch)
	})
}
