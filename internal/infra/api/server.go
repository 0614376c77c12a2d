package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abdulbosit19980204/journal/internal/infra/metrics"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ReceiptStore persists uploaded receipt images and returns a reference.
type ReceiptStore interface {
	Save(ctx context.Context, userID string, r io.Reader) (string, error)
}

// Limiter is a fixed-window counter; see redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Deps struct {
	Users        usecase.UserUseCase
	Ledger       usecase.LedgerUseCase
	Receipts     usecase.ReceiptUseCase
	Subs         usecase.SubscriptionUseCase
	Plans        usecase.PlanUseCase
	Payments     usecase.PaymentUseCase
	Metering     usecase.MeteringUseCase
	Transactions usecase.TransactionsUseCase
	Stats        usecase.StatsUseCase
	Files        ReceiptStore
	// Limiter is optional; without it receipt uploads are not throttled.
	Limiter Limiter
}

type Options struct {
	Port             int
	JWTSecret        string
	Issuer           string
	RequestTimeout   time.Duration
	ReceiptMaxBytes  int64
	ReceiptsPerHour  int
	DefaultReturnURL string
}

const maxCallbackBytes = 1 << 20

type Server struct {
	deps   Deps
	opts   Options
	auth   *Authenticator
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.ReceiptMaxBytes <= 0 {
		opts.ReceiptMaxBytes = 10 << 20
	}
	return &Server{
		deps: deps,
		opts: opts,
		auth: NewAuthenticator(opts.JWTSecret, opts.Issuer, deps.Users, logger),
		log:  logger,
	}
}

// Authenticator exposes the token helper, e.g. for minting dev tokens.
func (s *Server) Authenticator() *Authenticator { return s.auth }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		TraceID(),
		RequestLog(s.log),
		Recover(s.log),
		Timeout(s.opts.RequestTimeout),
	)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	// Providers authenticate with their own signatures; the raw body must
	// reach the gateway untouched.
	r.Post("/billing/payment/{provider}/callback", s.handleCallback)

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Authenticate, SanitizeInput())

		r.Route("/billing", func(r chi.Router) {
			r.Post("/subscribe", s.handleSubscribe)
			r.Get("/plans", s.handleListPlans)
			r.Get("/my-subscription", s.handleMySubscription)
			r.Post("/subscription/cancel", s.handleCancelSubscription)
			r.Get("/subscription/history", s.handleSubscriptionHistory)
			r.Get("/balance", s.handleBalance)
			r.Get("/transactions", s.handleTransactions)

			r.Post("/invoices", s.handleCreateInvoice)
			r.Get("/invoices", s.handleListInvoices)
			r.Post("/invoices/subscription", s.handleCreateSubscriptionInvoice)
			r.Get("/payment/gateways", s.handleListGateways)
			r.Post("/payment/create", s.handleCreatePayment)

			r.Post("/metering/submission", s.handleMeteringSubmission)
		})

		r.Post("/receipts", s.handleSubmitReceipt)
		r.Get("/receipts", s.handleListReceipts)

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/admin-receipts", s.handleReceiptQueue)
			r.Post("/admin-receipts/{id}/approve", s.handleApproveReceipt)
			r.Post("/admin-receipts/{id}/reject", s.handleRejectReceipt)
			r.Post("/admin-receipts/adjust-balance", s.handleAdjustBalance)
			r.Get("/admin/ledger/{user_id}/audit", s.handleLedgerAudit)
			r.Post("/admin/users/{user_id}/roles", s.handleSetRoles)
			r.Post("/admin/plans", s.handleCreatePlan)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireFinance)
			r.Get("/finance/dashboard", s.handleDashboard)
			r.Get("/finance/transactions/export", s.handleExportTransactions)
		})
	})

	return r
}

func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.opts.Port).Msg("http server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
