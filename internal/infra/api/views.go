package api

import (
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/shopspring/decimal"
)

// Money leaves the API as fixed two-decimal strings.
func money(d decimal.Decimal) string { return d.StringFixed(2) }

type planView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Price        string `json:"price"`
	ArticleLimit int    `json:"article_limit"`
	Unlimited    bool   `json:"unlimited"`
	Description  string `json:"description,omitempty"`
	IsActive     bool   `json:"is_active"`
}

func toPlanView(p *model.SubscriptionPlan) planView {
	return planView{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Price:        money(p.Price),
		ArticleLimit: p.ArticleLimit,
		Unlimited:    p.IsUnlimited(),
		Description:  p.Description,
		IsActive:     p.IsActive,
	}
}

type subscriptionView struct {
	ID                    string    `json:"id"`
	PlanID                string    `json:"plan_id"`
	StartDate             time.Time `json:"start_date"`
	EndDate               time.Time `json:"end_date"`
	Active                bool      `json:"active"`
	ArticlesUsedThisMonth int       `json:"articles_used_this_month"`
}

func toSubscriptionView(s *model.UserSubscription, now time.Time) subscriptionView {
	return subscriptionView{
		ID:                    s.ID,
		PlanID:                s.PlanID,
		StartDate:             s.StartDate,
		EndDate:               s.EndDate,
		Active:                s.IsActive(now),
		ArticlesUsedThisMonth: s.ArticlesUsedThisMonth,
	}
}

type historyView struct {
	ID         string    `json:"id"`
	PlanID     string    `json:"plan_id"`
	Action     string    `json:"action"`
	AmountPaid string    `json:"amount_paid"`
	InvoiceID  *string   `json:"invoice_id,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toHistoryView(h *model.SubscriptionHistory) historyView {
	return historyView{
		ID:         h.ID,
		PlanID:     h.PlanID,
		Action:     string(h.Action),
		AmountPaid: money(h.AmountPaid),
		InvoiceID:  h.InvoiceID,
		Notes:      h.Notes,
		CreatedAt:  h.CreatedAt,
	}
}

type invoiceView struct {
	ID            string     `json:"id"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	Purpose       string     `json:"purpose"`
	PlanID        *string    `json:"plan_id,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

func toInvoiceView(i *model.Invoice) invoiceView {
	return invoiceView{
		ID:            i.ID,
		Amount:        money(i.Amount),
		Currency:      i.Currency,
		Description:   i.Description,
		Status:        string(i.Status),
		Purpose:       string(i.Purpose),
		PlanID:        i.PlanID,
		Provider:      i.Provider,
		TransactionID: i.TransactionID,
		CreatedAt:     i.CreatedAt,
		PaidAt:        i.PaidAt,
	}
}

type receiptView struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Amount      string     `json:"amount"`
	ImageRef    string     `json:"image_ref"`
	Status      string     `json:"status"`
	AdminNotes  string     `json:"admin_notes,omitempty"`
	ProcessedBy *string    `json:"processed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

func toReceiptView(r *model.PaymentReceipt) receiptView {
	return receiptView{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      money(r.Amount),
		ImageRef:    r.ImageRef,
		Status:      string(r.Status),
		AdminNotes:  r.AdminNotes,
		ProcessedBy: r.ProcessedBy,
		CreatedAt:   r.CreatedAt,
		ProcessedAt: r.ProcessedAt,
	}
}

type transactionView struct {
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toTransactionView(t usecase.TransactionView) transactionView {
	return transactionView{
		ID:          t.ID,
		Amount:      money(t.Amount),
		Type:        t.Type,
		Description: t.Description,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
	}
}

func mapSlice[T, V any](in []T, fn func(T) V) []V {
	out := make([]V, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
