package sched

import (
	"context"
	"errors"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"
	red "github.com/abdulbosit19980204/journal/internal/infra/redis"

	"github.com/rs/zerolog"
)

// sweep runs fn under an optional cross-instance lock. With a nil locker
// every instance sweeps; the use cases stay idempotent either way.
func sweep(ctx context.Context, job string, locker red.Locker, ttl time.Duration, log *zerolog.Logger, fn func(ctx context.Context) (int, error)) {
	if locker != nil {
		key := "sweep:" + job
		token, err := locker.TryLock(ctx, key, ttl)
		if err != nil {
			if errors.Is(err, domain.ErrLockNotAcquired) {
				metrics.IncSweep(job, "skipped")
				log.Debug().Msg("another instance holds the sweep lock")
				return
			}
			metrics.IncSweep(job, "error")
			log.Warn().Err(err).Msg("sweep lock failed")
			return
		}
		defer func() {
			if err := locker.Unlock(context.Background(), key, token); err != nil {
				log.Warn().Err(err).Msg("sweep unlock failed")
			}
		}()
	}

	n, err := fn(ctx)
	if err != nil {
		metrics.IncSweep(job, "error")
		log.Error().Err(err).Int("count", n).Msg("sweep failed")
		return
	}
	metrics.IncSweep(job, "ok")
	if n > 0 {
		log.Info().Int("count", n).Msg("sweep finished")
	}
}
