package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/infra/export"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const exportLimit = 50000

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string          `json:"user_id"`
		Amount decimal.Decimal `json:"amount"`
		Notes  string          `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil || req.UserID == "" || req.Amount.IsZero() {
		badRequest(w, "user_id and a non-zero amount are required")
		return
	}
	bal, err := s.deps.Ledger.Adjust(r.Context(), UserFrom(r.Context()).ID, req.UserID, req.Amount, req.Notes)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"user_id":     req.UserID,
		"new_balance": money(bal),
	})
}

func (s *Server) handleLedgerAudit(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Ledger.Audit(r.Context(), UserFrom(r.Context()).ID, chi.URLParam(r, "user_id"))
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    a.UserID,
		"balance":    money(a.Balance),
		"ledger_sum": money(a.LedgerSum),
		"consistent": a.Consistent,
	})
}

func (s *Server) handleSetRoles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsAdmin        bool `json:"is_admin"`
		IsFinanceAdmin bool `json:"is_finance_admin"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	u, err := s.deps.Users.SetRoles(r.Context(), UserFrom(r.Context()).ID, chi.URLParam(r, "user_id"), req.IsAdmin, req.IsFinanceAdmin)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":          u.ID,
		"is_admin":         u.IsAdmin,
		"is_finance_admin": u.IsFinanceAdmin,
	})
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string          `json:"name"`
		Price        decimal.Decimal `json:"price"`
		ArticleLimit int             `json:"article_limit"`
		Description  string          `json:"description"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	plan, err := model.NewSubscriptionPlan(uuid.NewString(), req.Name, req.Price, req.ArticleLimit, req.Description)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	if err := s.deps.Plans.Create(r.Context(), plan); err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlanView(plan))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Stats.Dashboard(r.Context(), UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_revenue":         money(d.TotalRevenue),
		"monthly_revenue":       money(d.MonthlyRevenue),
		"yearly_revenue":        money(d.YearlyRevenue),
		"pending_topups_count":  d.PendingTopUpsCount,
		"pending_topups_amount": money(d.PendingTopUpsAmount),
		"users_with_balance":    d.UsersWithBalance,
	})
}

// parseSince accepts RFC3339, a plain date or a unix timestamp. Empty means
// the last 30 days.
func parseSince(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Now().AddDate(0, 0, -30), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return t, nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse since %q", v)
}

func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rows, err := s.deps.Stats.ExportTransactions(r.Context(), UserFrom(r.Context()).ID, since, exportLimit)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}

	// buffer first so a failed write still yields a proper error status
	var buf bytes.Buffer
	if err := export.WriteTransactions(&buf, rows); err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	name := fmt.Sprintf("ledger-%s.xlsx", since.UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
