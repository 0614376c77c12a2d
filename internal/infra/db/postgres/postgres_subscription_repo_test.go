//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestSubscriptionRepo_Integration(t *testing.T) {
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	sub := func(userID, planID string, end time.Time, active bool) *model.UserSubscription {
		return &model.UserSubscription{
			ID:        uuid.NewString(),
			UserID:    userID,
			PlanID:    planID,
			StartDate: end.Add(-model.SubscriptionPeriod),
			EndDate:   end,
			Active:    active,
			UpdatedAt: now,
		}
	}

	t.Run("Save upserts by user", func(t *testing.T) {
		cleanup(t)
		seedUser(t, "u-1", "0")
		seedPlan(t, "basic", "Basic", "9.99", 5)
		seedPlan(t, "pro", "Pro", "19.99", 20)

		if err := repo.Save(ctx, nil, sub("u-1", "basic", now.Add(time.Hour), true)); err != nil {
			t.Fatalf("Save: %v", err)
		}
		next := sub("u-1", "pro", now.Add(48*time.Hour), true)
		next.ArticlesUsedThisMonth = 0
		if err := repo.Save(ctx, nil, next); err != nil {
			t.Fatalf("second Save: %v", err)
		}

		found, err := repo.FindByUser(ctx, nil, "u-1")
		if err != nil {
			t.Fatalf("FindByUser: %v", err)
		}
		if found.PlanID != "pro" || !found.EndDate.Equal(next.EndDate) {
			t.Errorf("upsert did not replace the row: %+v", found)
		}
	})

	t.Run("FindByUser reports ErrNotFound", func(t *testing.T) {
		cleanup(t)
		if _, err := repo.FindByUser(ctx, nil, "u-1"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("lapsed rows are listed, deactivated once and not counted", func(t *testing.T) {
		cleanup(t)
		seedUser(t, "u-1", "0")
		seedUser(t, "u-2", "0")
		seedUser(t, "u-3", "0")
		seedPlan(t, "basic", "Basic", "9.99", 5)
		_ = repo.Save(ctx, nil, sub("u-1", "basic", now.Add(-time.Hour), true))
		_ = repo.Save(ctx, nil, sub("u-2", "basic", now.Add(time.Hour), true))
		_ = repo.Save(ctx, nil, sub("u-3", "basic", now.Add(-time.Hour), false))

		lapsed, err := repo.ListLapsed(ctx, nil, now, 0)
		if err != nil {
			t.Fatalf("ListLapsed: %v", err)
		}
		if len(lapsed) != 1 || lapsed[0].UserID != "u-1" {
			t.Fatalf("expected only u-1 lapsed, got %+v", lapsed)
		}

		n, err := repo.CountActive(ctx, nil, now)
		if err != nil || n != 1 {
			t.Fatalf("expected 1 active, got %d %v", n, err)
		}

		ok, err := repo.DeactivateIfActive(ctx, nil, "u-1")
		if err != nil || !ok {
			t.Fatalf("first deactivate: %v %v", ok, err)
		}
		ok, err = repo.DeactivateIfActive(ctx, nil, "u-1")
		if err != nil || ok {
			t.Fatalf("second deactivate must be a no-op: %v %v", ok, err)
		}
	})

	t.Run("history is listed newest first", func(t *testing.T) {
		cleanup(t)
		seedUser(t, "u-1", "0")
		seedPlan(t, "basic", "Basic", "9.99", 5)
		hist := NewHistoryRepo(testPool)
		for i, action := range []model.SubscriptionAction{model.SubscriptionActionSubscribed, model.SubscriptionActionRenewed} {
			err := hist.Append(ctx, nil, &model.SubscriptionHistory{
				ID:         uuid.NewString(),
				UserID:     "u-1",
				PlanID:     "basic",
				Action:     action,
				AmountPaid: decimal.RequireFromString("9.99"),
				CreatedAt:  now.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		rows, err := hist.ListByUser(ctx, nil, "u-1")
		if err != nil || len(rows) != 2 {
			t.Fatalf("ListByUser: %v %d", err, len(rows))
		}
		if rows[0].Action != model.SubscriptionActionRenewed || rows[0].InvoiceID != nil {
			t.Errorf("unexpected order %+v", rows[0])
		}
	})
}
