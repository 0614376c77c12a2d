//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	red "github.com/abdulbosit19980204/journal/internal/infra/redis"

	"github.com/shopspring/decimal"
)

func TestPlanRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	plan := &model.SubscriptionPlan{ID: "plan-123", Name: "Pro", Price: decimal.RequireFromString("9.99")}
	planJSON, _ := json.Marshal(plan)

	t.Run("FindByID should return from cache on hit", func(t *testing.T) {
		// Arrange
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(planJSON), nil // Simulate cache hit
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
				innerRepoCalled = true // This should not be called
				return nil, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, nil)

		// Act
		result, err := decorator.FindByID(ctx, nil, "plan-123")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerRepoCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if result == nil || result.ID != "plan-123" || !result.Price.Equal(plan.Price) {
			t.Errorf("did not return the correct plan from cache: %+v", result)
		}
	})

	t.Run("FindByID should load and populate the cache on miss", func(t *testing.T) {
		var setKey string
		var setTTL time.Duration
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return "", red.ErrCacheMiss
			},
			SetFunc: func(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
				setKey, setTTL = key, expiration
				return nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
				return plan, nil
			},
		}

		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, nil)
		result, err := decorator.FindByID(ctx, nil, "plan-123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.ID != "plan-123" {
			t.Errorf("unexpected plan %+v", result)
		}
		if setKey != "plan:plan-123" || setTTL != time.Minute {
			t.Errorf("expected plan:plan-123 cached for 1m, got %q %s", setKey, setTTL)
		}
	})

	t.Run("FindByID should fall through when redis fails", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return "", errors.New("connection refused")
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
				return plan, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, 0, nil)
		if _, err := decorator.FindByID(ctx, nil, "plan-123"); err != nil {
			t.Fatalf("redis failure must not surface, got %v", err)
		}
	})

	t.Run("reads inside a transaction bypass the cache", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				t.Fatal("cache must not be read inside a transaction")
				return "", nil
			},
		}
		innerCalls := 0
		mockInnerRepo := &mockInnerPlanRepo{
			FindByIDFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
				innerCalls++
				return plan, nil
			},
			ListAllFunc: func(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
				innerCalls++
				return []*model.SubscriptionPlan{plan}, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, nil)
		tx := struct{}{}
		if _, err := decorator.FindByID(ctx, tx, "plan-123"); err != nil {
			t.Fatal(err)
		}
		if _, err := decorator.ListAll(ctx, tx); err != nil {
			t.Fatal(err)
		}
		if innerCalls != 2 {
			t.Errorf("expected 2 inner calls, got %d", innerCalls)
		}
	})

	t.Run("ListAll should serve the cached list", func(t *testing.T) {
		listJSON, _ := json.Marshal([]*model.SubscriptionPlan{plan})
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "plans:all" {
					t.Errorf("unexpected key %q", key)
				}
				return string(listJSON), nil
			},
		}
		mockInnerRepo := &mockInnerPlanRepo{
			ListAllFunc: func(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
				t.Fatal("inner ListAll must not be called on a hit")
				return nil, nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, nil)
		plans, err := decorator.ListAll(ctx, nil)
		if err != nil || len(plans) != 1 || plans[0].ID != "plan-123" {
			t.Fatalf("unexpected list %v %v", plans, err)
		}
	})

	t.Run("Save should invalidate the plan and the list", func(t *testing.T) {
		// Arrange
		var delCalls int
		var deletedKeys []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				delCalls++
				deletedKeys = append(deletedKeys, keys...)
				return nil
			},
		}
		saved := false
		mockInnerRepo := &mockInnerPlanRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
				saved = true
				return nil
			},
		}
		decorator := NewPlanRepoCacheDecorator(mockInnerRepo, mockRedis, time.Minute, nil)

		// Act
		if err := decorator.Save(ctx, nil, plan); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		// Assert
		if !saved {
			t.Error("inner Save was not called")
		}
		if delCalls != 1 || len(deletedKeys) != 2 {
			t.Fatalf("expected one Del of 2 keys, got %d calls %v", delCalls, deletedKeys)
		}
		if deletedKeys[0] != "plan:plan-123" || deletedKeys[1] != "plans:all" {
			t.Errorf("unexpected keys %v", deletedKeys)
		}
	})
}
