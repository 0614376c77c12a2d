package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"
	red "github.com/abdulbosit19980204/journal/internal/infra/redis"

	"github.com/rs/zerolog"
)

var _ repository.SubscriptionPlanRepository = (*planRepoCacheDecorator)(nil)

const planListKey = "plans:all"

// planRepoCacheDecorator serves plan reads from Redis. Reads inside a
// transaction bypass the cache so that callers see committed rows.
type planRepoCacheDecorator struct {
	inner repository.SubscriptionPlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.SubscriptionPlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.SubscriptionPlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger,
	}
}

func planKey(id string) string { return fmt.Sprintf("plan:%s", id) }

func (d *planRepoCacheDecorator) miss(ctx context.Context, name string, err error) {
	if err != nil && !errors.Is(err, red.ErrCacheMiss) {
		metrics.IncCacheError(name)
		d.log.Warn().Err(err).Str("cache", name).Msg("redis read failed")
	}
	metrics.IncCacheRequest(name, "miss")
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	if tx != nil {
		return d.inner.FindByID(ctx, tx, id)
	}
	key := planKey(id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.SubscriptionPlan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	}
	d.miss(ctx, "plan", err)

	plan, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(plan); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			metrics.IncCacheError("plan")
		}
	}
	return plan, nil
}

// Save invalidates the plan and the list before writing.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	if err := d.cache.Del(ctx, planKey(plan.ID), planListKey); err != nil {
		metrics.IncCacheError("plan")
		d.log.Warn().Err(err).Str("plan_id", plan.ID).Msg("plan cache invalidation failed")
	}
	return d.inner.Save(ctx, tx, plan)
}

func (d *planRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	if tx != nil {
		return d.inner.ListAll(ctx, tx)
	}
	val, err := d.cache.Get(ctx, planListKey)
	if err == nil {
		var plans []*model.SubscriptionPlan
		if json.Unmarshal([]byte(val), &plans) == nil {
			metrics.IncCacheRequest("plan_list", "hit")
			return plans, nil
		}
	}
	d.miss(ctx, "plan_list", err)

	plans, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		if b, err := json.Marshal(plans); err == nil {
			if err := d.cache.Set(ctx, planListKey, b, d.ttl); err != nil {
				metrics.IncCacheError("plan_list")
			}
		}
	}
	return plans, nil
}
