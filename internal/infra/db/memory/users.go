package memory

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"

	"github.com/shopspring/decimal"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct{ s *Store }

func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	cp := *u
	return r.s.write(tx, func() func() {
		prev, existed := r.s.users[u.ID]
		r.s.users[u.ID] = &cp
		return func() {
			if existed {
				r.s.users[u.ID] = prev
			} else {
				delete(r.s.users, u.ID)
			}
		}
	})
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	var out *model.User
	if err := r.s.read(tx, func() {
		if u, ok := r.s.users[id]; ok {
			cp := *u
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

func (r *UserRepo) LockForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	mt, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, domain.ErrInvalidExecContext
	}
	if err := r.s.lockRow(ctx, mt, "user:"+id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, tx, id)
}

func (r *UserRepo) UpdateBalance(ctx context.Context, tx repository.Tx, id string, balance decimal.Decimal) error {
	var missing bool
	err := r.s.write(tx, func() func() {
		u, ok := r.s.users[id]
		if !ok {
			missing = true
			return nil
		}
		prev := *u
		cp := *u
		cp.Balance = balance
		cp.UpdatedAt = time.Now()
		r.s.users[id] = &cp
		return func() { r.s.users[id] = &prev }
	})
	if err != nil {
		return err
	}
	if missing {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) CountWithPositiveBalance(ctx context.Context, tx repository.Tx) (int, error) {
	n := 0
	err := r.s.read(tx, func() {
		for _, u := range r.s.users {
			if u.Balance.IsPositive() {
				n++
			}
		}
	})
	return n, err
}
