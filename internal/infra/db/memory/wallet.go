package memory

import (
	"context"
	"sort"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"

	"github.com/shopspring/decimal"
)

var _ repository.WalletTransactionRepository = (*WalletRepo)(nil)

type WalletRepo struct{ s *Store }

func NewWalletRepo(s *Store) *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Append(ctx context.Context, tx repository.Tx, t *model.WalletTransaction) error {
	cp := *t
	cp.ReceiptID = strPtr(t.ReceiptID)
	cp.InvoiceID = strPtr(t.InvoiceID)
	return r.s.write(tx, func() func() {
		r.s.wallet = append(r.s.wallet, &cp)
		return func() {
			for i, w := range r.s.wallet {
				if w.ID == cp.ID {
					r.s.wallet = append(r.s.wallet[:i], r.s.wallet[i+1:]...)
					return
				}
			}
		}
	})
}

func (r *WalletRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.WalletTransaction, error) {
	return r.list(tx, limit, func(w *model.WalletTransaction) bool { return w.UserID == userID })
}

func (r *WalletRepo) ListSince(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.WalletTransaction, error) {
	return r.list(tx, limit, func(w *model.WalletTransaction) bool { return !w.CreatedAt.Before(since) })
}

// list returns matches newest first.
func (r *WalletRepo) list(tx repository.Tx, limit int, match func(*model.WalletTransaction) bool) ([]*model.WalletTransaction, error) {
	var out []*model.WalletTransaction
	err := r.s.read(tx, func() {
		for _, w := range r.s.wallet {
			if match(w) {
				cp := *w
				out = append(out, &cp)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *WalletRepo) SumByUser(ctx context.Context, tx repository.Tx, userID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.s.read(tx, func() {
		for _, w := range r.s.wallet {
			if w.UserID == userID {
				sum = sum.Add(w.Amount)
			}
		}
	})
	return sum, err
}

func (r *WalletRepo) SumCreditsByKindSince(ctx context.Context, tx repository.Tx, kind model.TransactionKind, since time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.s.read(tx, func() {
		for _, w := range r.s.wallet {
			if w.Kind == kind && w.Amount.IsPositive() && !w.CreatedAt.Before(since) {
				sum = sum.Add(w.Amount)
			}
		}
	})
	return sum, err
}
