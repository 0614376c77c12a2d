package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	red "github.com/abdulbosit19980204/journal/internal/infra/redis"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const receiptFormMemory = 1 << 20

// allowUpload fails open when the limiter itself is unavailable.
func (s *Server) allowUpload(r *http.Request, userID string) bool {
	if s.deps.Limiter == nil || s.opts.ReceiptsPerHour <= 0 {
		return true
	}
	ok, err := s.deps.Limiter.Allow(r.Context(), red.UserActionKey(userID, "receipt"), s.opts.ReceiptsPerHour, time.Hour)
	if err != nil {
		s.logger(r).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}

// handleSubmitReceipt takes a multipart form with "amount" and an "image" file.
func (s *Server) handleSubmitReceipt(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	if !s.allowUpload(r, user.ID) {
		writeError(w, s.logger(r), domain.ErrRateLimited)
		return
	}
	if s.deps.Files == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "UNAVAILABLE", Message: "receipt uploads are disabled"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.opts.ReceiptMaxBytes+receiptFormMemory)
	if err := r.ParseMultipartForm(receiptFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "PAYLOAD_TOO_LARGE"})
			return
		}
		badRequest(w, "multipart form expected")
		return
	}
	defer r.MultipartForm.RemoveAll()

	amount, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("amount")))
	if err != nil || !amount.IsPositive() {
		badRequest(w, "amount must be a positive number")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		badRequest(w, "image file is required")
		return
	}
	defer file.Close()

	ref, err := s.deps.Files.Save(r.Context(), user.ID, file)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	rec, err := s.deps.Receipts.Submit(r.Context(), user.ID, amount, ref)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptView(rec))
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	rows, err := s.deps.Receipts.ListMine(r.Context(), UserFrom(r.Context()).ID)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, toReceiptView))
}

func (s *Server) handleReceiptQueue(w http.ResponseWriter, r *http.Request) {
	status := model.ReceiptStatus(strings.ToUpper(r.URL.Query().Get("status")))
	switch status {
	case "", model.ReceiptStatusPending, model.ReceiptStatusApproved, model.ReceiptStatusRejected:
	default:
		badRequest(w, "unknown status")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.deps.Receipts.ListQueue(r.Context(), UserFrom(r.Context()).ID, status, limit)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(rows, toReceiptView))
}

type receiptDecision struct {
	Notes string `json:"notes"`
}

// decodeOptional accepts an empty body.
func decodeOptional(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return decodeJSON(r, v)
}

func (s *Server) handleApproveReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptDecision
	if err := decodeOptional(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	actor := UserFrom(r.Context())
	rec, bal, err := s.deps.Receipts.Approve(r.Context(), actor.ID, chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"receipt":     toReceiptView(rec),
		"new_balance": money(bal),
	})
}

func (s *Server) handleRejectReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptDecision
	if err := decodeOptional(r, &req); err != nil {
		badRequest(w, "invalid body")
		return
	}
	actor := UserFrom(r.Context())
	rec, err := s.deps.Receipts.Reject(r.Context(), actor.ID, chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		writeError(w, s.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipt": toReceiptView(rec)})
}
