//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
)

func TestPlanUC_ListHidesInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	basic, _ := model.NewSubscriptionPlan("p-basic", "Basic Researcher", dec("0"), 1, "")
	pro, _ := model.NewSubscriptionPlan("p-pro", "Professional Author", dec("9.99"), 5, "")
	legacy, _ := model.NewSubscriptionPlan("p-legacy", "Legacy", dec("4.99"), 3, "")
	legacy.IsActive = false
	for _, p := range []*model.SubscriptionPlan{basic, pro, legacy} {
		if err := f.plan.Create(ctx, p); err != nil {
			t.Fatalf("Create %s: %v", p.ID, err)
		}
	}

	active, err := f.plan.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active plans, got %d", len(active))
	}
	for _, p := range active {
		if p.ID == "p-legacy" {
			t.Fatal("inactive plan listed")
		}
	}

	all, err := f.plan.ListAll(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListAll: %d plans, %v", len(all), err)
	}

	got, err := f.plan.Get(ctx, "p-pro")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Slug != "professional-author" || !got.Price.Equal(dec("9.99")) {
		t.Errorf("unexpected plan %+v", got)
	}
	if _, err := f.plan.Get(ctx, "missing"); !errors.Is(err, domain.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}
