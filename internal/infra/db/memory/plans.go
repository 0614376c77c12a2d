package memory

import (
	"context"
	"sort"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var _ repository.SubscriptionPlanRepository = (*PlanRepo)(nil)

type PlanRepo struct{ s *Store }

func NewPlanRepo(s *Store) *PlanRepo { return &PlanRepo{s: s} }

func (r *PlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.SubscriptionPlan) error {
	cp := *p
	return r.s.write(tx, func() func() {
		prev, existed := r.s.plans[p.ID]
		r.s.plans[p.ID] = &cp
		return func() {
			if existed {
				r.s.plans[p.ID] = prev
			} else {
				delete(r.s.plans, p.ID)
			}
		}
	})
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	var out *model.SubscriptionPlan
	if err := r.s.read(tx, func() {
		if p, ok := r.s.plans[id]; ok {
			cp := *p
			out = &cp
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.ErrPlanNotFound
	}
	return out, nil
}

// ListAll returns plans ordered by price, cheapest first.
func (r *PlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	var out []*model.SubscriptionPlan
	err := r.s.read(tx, func() {
		for _, p := range r.s.plans {
			cp := *p
			out = append(out, &cp)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Price.Cmp(out[j].Price); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
