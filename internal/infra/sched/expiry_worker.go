package sched

import (
	"context"
	"time"

	red "github.com/abdulbosit19980204/journal/internal/infra/redis"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/rs/zerolog"
)

const expiryBatch = 500

// ExpiryWorker periodically clears the active flag of lapsed subscriptions.
// Reads already treat them as inactive; this keeps the flag and the
// history honest.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	locker   red.Locker
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		subUC:    subUC,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	sweep(ctx, "expiry", w.locker, w.interval, w.log, func(ctx context.Context) (int, error) {
		return w.subUC.ExpireLapsed(ctx, expiryBatch)
	})
}
