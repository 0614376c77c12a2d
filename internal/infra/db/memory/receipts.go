package memory

import (
	"context"
	"sort"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"

	"github.com/shopspring/decimal"
)

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

type ReceiptRepo struct{ s *Store }

func NewReceiptRepo(s *Store) *ReceiptRepo { return &ReceiptRepo{s: s} }

func copyReceipt(r *model.PaymentReceipt) *model.PaymentReceipt {
	cp := *r
	cp.ProcessedBy = strPtr(r.ProcessedBy)
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		cp.ProcessedAt = &t
	}
	return &cp
}

func (r *ReceiptRepo) Save(ctx context.Context, tx repository.Tx, rc *model.PaymentReceipt) error {
	cp := copyReceipt(rc)
	return r.s.write(tx, func() func() {
		prev, existed := r.s.receipts[rc.ID]
		r.s.receipts[rc.ID] = cp
		return func() {
			if existed {
				r.s.receipts[rc.ID] = prev
			} else {
				delete(r.s.receipts, rc.ID)
			}
		}
	})
}

func (r *ReceiptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentReceipt, error) {
	var out *model.PaymentReceipt
	if err := r.s.read(tx, func() {
		if rc, ok := r.s.receipts[id]; ok {
			out = copyReceipt(rc)
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *ReceiptRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.ReceiptStatus, notes string, processedBy string, processedAt time.Time) (bool, error) {
	updated := false
	err := r.s.write(tx, func() func() {
		rc, ok := r.s.receipts[id]
		if !ok || rc.Status != model.ReceiptStatusPending {
			return nil
		}
		prev := rc
		cp := copyReceipt(rc)
		cp.Status = status
		cp.AdminNotes = notes
		by := processedBy
		at := processedAt
		cp.ProcessedBy = &by
		cp.ProcessedAt = &at
		r.s.receipts[id] = cp
		updated = true
		return func() { r.s.receipts[id] = prev }
	})
	return updated, err
}

func (r *ReceiptRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PaymentReceipt, error) {
	return r.list(tx, 0, func(rc *model.PaymentReceipt) bool { return rc.UserID == userID })
}

func (r *ReceiptRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.ReceiptStatus, limit int) ([]*model.PaymentReceipt, error) {
	return r.list(tx, limit, func(rc *model.PaymentReceipt) bool { return status == "" || rc.Status == status })
}

func (r *ReceiptRepo) list(tx repository.Tx, limit int, match func(*model.PaymentReceipt) bool) ([]*model.PaymentReceipt, error) {
	var out []*model.PaymentReceipt
	err := r.s.read(tx, func() {
		for _, rc := range r.s.receipts {
			if match(rc) {
				out = append(out, copyReceipt(rc))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ReceiptRepo) PendingTotals(ctx context.Context, tx repository.Tx) (int, decimal.Decimal, error) {
	n, sum := 0, decimal.Zero
	err := r.s.read(tx, func() {
		for _, rc := range r.s.receipts {
			if rc.Status == model.ReceiptStatusPending {
				n++
				sum = sum.Add(rc.Amount)
			}
		}
	})
	return n, sum, err
}
