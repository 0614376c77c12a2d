package memory

import (
	"context"
	"sort"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var (
	_ repository.SubscriptionRepository        = (*SubscriptionRepo)(nil)
	_ repository.SubscriptionHistoryRepository = (*HistoryRepo)(nil)
)

type SubscriptionRepo struct{ s *Store }

func NewSubscriptionRepo(s *Store) *SubscriptionRepo { return &SubscriptionRepo{s: s} }

func (r *SubscriptionRepo) Save(ctx context.Context, tx repository.Tx, sub *model.UserSubscription) error {
	cp := *sub
	return r.s.write(tx, func() func() {
		prev, existed := r.s.subs[sub.UserID]
		r.s.subs[sub.UserID] = &cp
		return func() {
			if existed {
				r.s.subs[sub.UserID] = prev
			} else {
				delete(r.s.subs, sub.UserID)
			}
		}
	})
}

func (r *SubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserSubscription, error) {
	var out *model.UserSubscription
	if err := r.s.read(tx, func() {
		if sub, ok := r.s.subs[userID]; ok {
			cp := *sub
			out = &cp
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *SubscriptionRepo) ListLapsed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.UserSubscription, error) {
	var out []*model.UserSubscription
	err := r.s.read(tx, func() {
		for _, sub := range r.s.subs {
			if sub.IsLapsed(now) {
				cp := *sub
				out = append(out, &cp)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SubscriptionRepo) DeactivateIfActive(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	updated := false
	err := r.s.write(tx, func() func() {
		sub, ok := r.s.subs[userID]
		if !ok || !sub.Active {
			return nil
		}
		prev := sub
		cp := *sub
		cp.Active = false
		cp.UpdatedAt = time.Now()
		r.s.subs[userID] = &cp
		updated = true
		return func() { r.s.subs[userID] = prev }
	})
	return updated, err
}

func (r *SubscriptionRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	n := 0
	err := r.s.read(tx, func() {
		for _, sub := range r.s.subs {
			if sub.IsActive(now) {
				n++
			}
		}
	})
	return n, err
}

type HistoryRepo struct{ s *Store }

func NewHistoryRepo(s *Store) *HistoryRepo { return &HistoryRepo{s: s} }

func (r *HistoryRepo) Append(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error {
	cp := *h
	cp.InvoiceID = strPtr(h.InvoiceID)
	return r.s.write(tx, func() func() {
		r.s.history = append(r.s.history, &cp)
		return func() {
			for i, x := range r.s.history {
				if x.ID == cp.ID {
					r.s.history = append(r.s.history[:i], r.s.history[i+1:]...)
					return
				}
			}
		}
	})
}

// ListByUser returns the user's history newest first.
func (r *HistoryRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionHistory, error) {
	var out []*model.SubscriptionHistory
	err := r.s.read(tx, func() {
		for i := len(r.s.history) - 1; i >= 0; i-- {
			if h := r.s.history[i]; h.UserID == userID {
				cp := *h
				out = append(out, &cp)
			}
		}
	})
	return out, err
}
