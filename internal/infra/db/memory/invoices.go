package memory

import (
	"context"
	"sort"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

type InvoiceRepo struct{ s *Store }

func NewInvoiceRepo(s *Store) *InvoiceRepo { return &InvoiceRepo{s: s} }

func copyInvoice(inv *model.Invoice) *model.Invoice {
	cp := *inv
	cp.PlanID = strPtr(inv.PlanID)
	if inv.PaidAt != nil {
		t := *inv.PaidAt
		cp.PaidAt = &t
	}
	return &cp
}

func (r *InvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	cp := copyInvoice(inv)
	return r.s.write(tx, func() func() {
		prev, existed := r.s.invoices[inv.ID]
		r.s.invoices[inv.ID] = cp
		return func() {
			if existed {
				r.s.invoices[inv.ID] = prev
			} else {
				delete(r.s.invoices, inv.ID)
			}
		}
	})
}

func (r *InvoiceRepo) find(tx repository.Tx, match func(*model.Invoice) bool) (*model.Invoice, error) {
	var out *model.Invoice
	if err := r.s.read(tx, func() {
		for _, inv := range r.s.invoices {
			if match(inv) {
				out = copyInvoice(inv)
				return
			}
		}
	}); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (r *InvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	return r.find(tx, func(inv *model.Invoice) bool { return inv.ID == id })
}

func (r *InvoiceRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Invoice, error) {
	if transactionID == "" {
		return nil, domain.ErrNotFound
	}
	return r.find(tx, func(inv *model.Invoice) bool { return inv.TransactionID == transactionID })
}

func (r *InvoiceRepo) FindByProviderTxnID(ctx context.Context, tx repository.Tx, provider, providerTxnID string) (*model.Invoice, error) {
	if providerTxnID == "" {
		return nil, domain.ErrNotFound
	}
	return r.find(tx, func(inv *model.Invoice) bool {
		return inv.Provider == provider && inv.ProviderTxnID == providerTxnID
	})
}

func (r *InvoiceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Invoice, error) {
	return r.list(tx, 0, func(inv *model.Invoice) bool { return inv.UserID == userID })
}

func (r *InvoiceRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Invoice, error) {
	out, err := r.list(tx, 0, func(inv *model.Invoice) bool {
		return inv.Status == model.InvoiceStatusPending && inv.Provider != "" &&
			inv.Provider != model.ProviderBalance && inv.CreatedAt.Before(olderThan)
	})
	if err != nil {
		return nil, err
	}
	// oldest first
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InvoiceRepo) list(tx repository.Tx, limit int, match func(*model.Invoice) bool) ([]*model.Invoice, error) {
	var out []*model.Invoice
	err := r.s.read(tx, func() {
		for _, inv := range r.s.invoices {
			if match(inv) {
				out = append(out, copyInvoice(inv))
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

func (r *InvoiceRepo) BindProvider(ctx context.Context, tx repository.Tx, id, provider, transactionID, providerTxnID string) error {
	found := false
	err := r.s.write(tx, func() func() {
		inv, ok := r.s.invoices[id]
		if !ok {
			return nil
		}
		found = true
		prev := inv
		cp := copyInvoice(inv)
		if provider != "" && provider != cp.Provider {
			cp.Provider = provider
			cp.ProviderTxnID = ""
		}
		if transactionID != "" {
			cp.TransactionID = transactionID
		}
		if providerTxnID != "" {
			cp.ProviderTxnID = providerTxnID
		}
		r.s.invoices[id] = cp
		return func() { r.s.invoices[id] = prev }
	})
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, providerTxnID string, paidAt time.Time) (bool, error) {
	return r.transition(tx, id, func(cp *model.Invoice) {
		cp.Status = model.InvoiceStatusPaid
		at := paidAt
		cp.PaidAt = &at
		if providerTxnID != "" {
			cp.ProviderTxnID = providerTxnID
		}
	})
}

func (r *InvoiceRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	return r.transition(tx, id, func(cp *model.Invoice) { cp.Status = model.InvoiceStatusFailed })
}

func (r *InvoiceRepo) transition(tx repository.Tx, id string, mutate func(*model.Invoice)) (bool, error) {
	updated := false
	err := r.s.write(tx, func() func() {
		inv, ok := r.s.invoices[id]
		if !ok || inv.Status != model.InvoiceStatusPending {
			return nil
		}
		prev := inv
		cp := copyInvoice(inv)
		mutate(cp)
		r.s.invoices[id] = cp
		updated = true
		return func() { r.s.invoices[id] = prev }
	})
	return updated, err
}
