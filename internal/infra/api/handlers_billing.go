package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func (s *Server) logger(r *http.Request) *zerolog.Logger {
	return logging.With(r.Context(), s.log)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.PlanID) == "" {
		badRequest(w, "plan_id is required")
		return
	}
	user := UserFrom(r.Context())
	res, err := s.deps.Subs.Subscribe(r.Context(), user.ID, req.PlanID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	body := map[string]any{
		"status":       "ok",
		"action":       string(res.Action),
		"new_balance":  money(res.NewBalance),
		"subscription": toSubscriptionView(res.Subscription, time.Now()),
	}
	if res.Invoice != nil {
		body["invoice_id"] = res.Invoice.ID
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.deps.Plans.List(r.Context())
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(plans, toPlanView))
}

func (s *Server) handleMySubscription(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	sub, plan, err := s.deps.Subs.GetActive(r.Context(), user.ID)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "No active subscription"})
		return
	}
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subscription": toSubscriptionView(sub, time.Now()),
		"plan":         toPlanView(plan),
	})
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	sub, err := s.deps.Subs.Cancel(r.Context(), user.ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "cancelled",
		"subscription": toSubscriptionView(sub, time.Now()),
	})
}

func (s *Server) handleSubscriptionHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Subs.History(r.Context(), UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, toHistoryView))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.deps.Ledger.Balance(r.Context(), UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": money(bal)})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Transactions.List(r.Context(), UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, toTransactionView))
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	inv, err := s.deps.Payments.CreateInvoice(r.Context(), UserFrom(r.Context()).ID, req.Amount, req.Description)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceView(inv))
}

func (s *Server) handleCreateSubscriptionInvoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.PlanID) == "" {
		badRequest(w, "plan_id is required")
		return
	}
	inv, err := s.deps.Payments.CreateSubscriptionInvoice(r.Context(), UserFrom(r.Context()).ID, req.PlanID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceView(inv))
}

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invs, err := s.deps.Payments.ListInvoices(r.Context(), UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(invs, toInvoiceView))
}

func (s *Server) handleListGateways(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Payments.ListGateways())
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceID string `json:"invoice_id"`
		Provider  string `json:"provider"`
		ReturnURL string `json:"return_url"`
	}
	if err := decodeJSON(r, &req); err != nil || req.InvoiceID == "" || req.Provider == "" {
		badRequest(w, "invoice_id and provider are required")
		return
	}
	if req.ReturnURL == "" {
		req.ReturnURL = s.opts.DefaultReturnURL
	}
	sess, err := s.deps.Payments.CreatePayment(r.Context(), UserFrom(r.Context()).ID, req.InvoiceID, req.Provider, req.ReturnURL)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"redirect_url":   sess.RedirectURL,
		"transaction_id": sess.TransactionID,
		"provider":       sess.Provider,
	})
}

func (s *Server) handleMeteringSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JournalName  string          `json:"journal_name"`
		PricePerPage decimal.Decimal `json:"price_per_page"`
		PageCount    int             `json:"page_count"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	charge, err := s.deps.Metering.ChargeSubmission(r.Context(), usecase.Submission{
		UserID:       UserFrom(r.Context()).ID,
		JournalName:  req.JournalName,
		PricePerPage: req.PricePerPage,
		PageCount:    req.PageCount,
	})
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":        string(charge.Mode),
		"charged":     charge.Charged,
		"cost":        money(charge.Cost),
		"new_balance": money(charge.NewBalance),
		"quota_used":  charge.QuotaUsed,
		"quota_limit": charge.QuotaLimit,
	})
}
