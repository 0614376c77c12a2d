package usecase

import (
	"context"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

// PlanUseCase exposes the subscription plan catalogue.
type PlanUseCase interface {
	Create(ctx context.Context, plan *model.SubscriptionPlan) error
	Get(ctx context.Context, id string) (*model.SubscriptionPlan, error)
	// List returns active plans only.
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
	ListAll(ctx context.Context) ([]*model.SubscriptionPlan, error)
}

type planUC struct {
	plans repository.SubscriptionPlanRepository
	log   *zerolog.Logger
}

func NewPlanUseCase(plans repository.SubscriptionPlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{plans: plans, log: logger}
}

func (u *planUC) Create(ctx context.Context, plan *model.SubscriptionPlan) error {
	defer logging.TraceDuration(u.log, "PlanUC.Create")()
	return u.plans.Save(ctx, repository.NoTX, plan)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.Get")()
	return u.plans.FindByID(ctx, repository.NoTX, id)
}

func (u *planUC) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.List")()

	all, err := u.plans.ListAll(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	active := make([]*model.SubscriptionPlan, 0, len(all))
	for _, p := range all {
		if p.IsActive {
			active = append(active, p)
		}
	}
	return active, nil
}

func (u *planUC) ListAll(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	defer logging.TraceDuration(u.log, "PlanUC.ListAll")()
	return u.plans.ListAll(ctx, repository.NoTX)
}
