package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ PaymentUseCase = (*paymentUC)(nil)

// PaymentSession is what the client needs to continue at the provider.
type PaymentSession struct {
	RedirectURL   string
	TransactionID string
	Provider      string
}

// PaymentUseCase owns invoices and reconciles gateway confirmations with them.
type PaymentUseCase interface {
	CreateInvoice(ctx context.Context, userID string, amount decimal.Decimal, description string) (*model.Invoice, error)
	CreateSubscriptionInvoice(ctx context.Context, userID, planID string) (*model.Invoice, error)
	ListInvoices(ctx context.Context, userID string) ([]*model.Invoice, error)
	ListGateways() []adapter.GatewayInfo
	// CreatePayment hands a PENDING invoice to a provider. It never mutates
	// balances.
	CreatePayment(ctx context.Context, userID, invoiceID, provider, returnURL string) (*PaymentSession, error)
	// HandleCallback authenticates and applies a webhook exactly once and
	// returns the provider-native acknowledgement. Only storage failures are
	// returned as errors; everything the provider sent is answered in its
	// own format.
	HandleCallback(ctx context.Context, provider string, req adapter.CallbackRequest) (adapter.Acknowledgement, error)
	// ReconcilePending asks providers about gateway invoices still PENDING
	// after olderThan and settles the ones that reached a final state.
	ReconcilePending(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

type paymentUC struct {
	invoices repository.InvoiceRepository
	users    repository.UserRepository
	plans    repository.SubscriptionPlanRepository
	ledger   LedgerUseCase
	subs     SubscriptionUseCase
	gateways adapter.GatewayRegistry
	notifier adapter.AdminNotifier
	currency string
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewPaymentUseCase(
	invoices repository.InvoiceRepository,
	users repository.UserRepository,
	plans repository.SubscriptionPlanRepository,
	ledger LedgerUseCase,
	subs SubscriptionUseCase,
	gateways adapter.GatewayRegistry,
	notifier adapter.AdminNotifier,
	currency string,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		invoices: invoices,
		users:    users,
		plans:    plans,
		ledger:   ledger,
		subs:     subs,
		gateways: gateways,
		notifier: notifier,
		currency: currency,
		tm:       tm,
		log:      logger,
	}
}

func (u *paymentUC) newInvoice(userID string, amount decimal.Decimal, description string, purpose model.InvoicePurpose) *model.Invoice {
	inv := &model.Invoice{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount.Round(2),
		Currency:    u.currency,
		Description: description,
		Status:      model.InvoiceStatusPending,
		Purpose:     purpose,
		CreatedAt:   time.Now(),
	}
	inv.TransactionID = inv.OrderID()
	return inv
}

func (u *paymentUC) CreateInvoice(ctx context.Context, userID string, amount decimal.Decimal, description string) (*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateInvoice")()

	if !amount.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(description) == "" {
		description = "Balance top-up"
	}
	inv := u.newInvoice(userID, amount, description, model.InvoicePurposeTopUp)
	if err := u.invoices.Save(ctx, repository.NoTX, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (u *paymentUC) CreateSubscriptionInvoice(ctx context.Context, userID, planID string) (*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreateSubscriptionInvoice")()

	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanNotFound
	}
	// free plans are activated through Subscribe; there is nothing to pay
	if !plan.Price.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}
	inv := u.newInvoice(userID, plan.Price, fmt.Sprintf("Subscription to %s", plan.Name), model.InvoicePurposeSubscription)
	inv.PlanID = &plan.ID
	if err := u.invoices.Save(ctx, repository.NoTX, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (u *paymentUC) ListInvoices(ctx context.Context, userID string) ([]*model.Invoice, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.ListInvoices")()
	return u.invoices.ListByUser(ctx, repository.NoTX, userID)
}

func (u *paymentUC) ListGateways() []adapter.GatewayInfo {
	return u.gateways.ListAvailable()
}

func (u *paymentUC) CreatePayment(ctx context.Context, userID, invoiceID, provider, returnURL string) (*PaymentSession, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.CreatePayment")()

	gw, err := u.gateways.Resolve(provider)
	if err != nil {
		return nil, err
	}
	inv, err := u.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if !inv.IsPending() {
		return nil, domain.ErrAlreadyProcessed
	}
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	res, err := gw.CreatePayment(ctx, adapter.PaymentRequest{
		Amount:        inv.Amount,
		Currency:      inv.Currency,
		OrderID:       inv.OrderID(),
		Description:   inv.Description,
		ReturnURL:     returnURL,
		CustomerEmail: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	if !res.Success {
		metrics.IncPayment("create_failed")
		return nil, fmt.Errorf("%w: %s", domain.ErrGatewayUnavailable, res.Message)
	}

	if err := u.invoices.BindProvider(ctx, repository.NoTX, inv.ID, gw.ID(), inv.OrderID(), res.ProviderRef); err != nil {
		return nil, err
	}
	metrics.IncPayment("created")
	logging.With(ctx, u.log).Info().
		Str("invoice_id", inv.ID).
		Str("provider", gw.ID()).
		Msg("payment created")

	return &PaymentSession{
		RedirectURL:   res.RedirectURL,
		TransactionID: inv.OrderID(),
		Provider:      gw.ID(),
	}, nil
}

func (u *paymentUC) HandleCallback(ctx context.Context, provider string, req adapter.CallbackRequest) (adapter.Acknowledgement, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.HandleCallback")()

	gw, err := u.gateways.Resolve(provider)
	if err != nil {
		return adapter.Acknowledgement{}, err
	}
	log := logging.With(ctx, u.log).With().Str("provider", gw.ID()).Logger()

	res := gw.ProcessCallback(ctx, req)
	if !res.Success {
		log.Warn().Str("message", res.Message).Msg("callback rejected")
		metrics.IncPaymentCallback(gw.ID(), adapter.OutcomeInvalid.String())
		return gw.Acknowledge(res, adapter.CallbackOutcome{Kind: adapter.OutcomeInvalid}), nil
	}

	outcome, err := u.settle(ctx, gw.ID(), res)
	if err != nil {
		log.Error().Err(err).Str("transaction_id", res.TransactionID).Msg("callback settlement failed")
		return adapter.Acknowledgement{}, err
	}
	metrics.IncPaymentCallback(gw.ID(), outcome.Kind.String())
	log.Info().
		Str("transaction_id", res.TransactionID).
		Str("status", string(res.Status)).
		Str("outcome", outcome.Kind.String()).
		Msg("callback processed")
	return gw.Acknowledge(res, outcome), nil
}

// settle applies a provider result to its invoice. The invoice status is the
// idempotency guard: only the call that moves it out of PENDING has effects.
func (u *paymentUC) settle(ctx context.Context, provider string, res adapter.PaymentResult) (adapter.CallbackOutcome, error) {
	if res.TransactionID == "" && res.ProviderRef == "" {
		return adapter.CallbackOutcome{Kind: adapter.OutcomeAccepted}, nil
	}

	var (
		out  adapter.CallbackOutcome
		paid *model.Invoice
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		inv, err := u.lookup(ctx, tx, provider, res)
		if errors.Is(err, domain.ErrNotFound) {
			out = adapter.CallbackOutcome{Kind: adapter.OutcomeNotFound}
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := u.users.LockForUpdate(ctx, tx, inv.UserID); err != nil {
			return err
		}
		// re-read under the user's lock; a concurrent delivery may have won
		if inv, err = u.invoices.FindByID(ctx, tx, inv.ID); err != nil {
			return err
		}
		out.Invoice = inv

		if res.Amount != nil && !res.Amount.Equal(inv.Amount) {
			out.Kind = adapter.OutcomeAmountMismatch
			return nil
		}

		now := time.Now()
		switch res.Status {
		case adapter.PaymentStatusCompleted:
			switch {
			case inv.IsPaid():
				out.Kind = adapter.OutcomeDuplicate
				return nil
			case !inv.IsPending():
				out.Kind = adapter.OutcomeRejected
				return nil
			}
			ok, err := u.invoices.MarkPaidIfPending(ctx, tx, inv.ID, res.ProviderRef, now)
			if err != nil {
				return err
			}
			if !ok {
				out.Kind = adapter.OutcomeDuplicate
				return nil
			}
			if err := u.applyPaid(ctx, tx, inv); err != nil {
				return err
			}
			inv.Status = model.InvoiceStatusPaid
			inv.PaidAt = &now
			if res.ProviderRef != "" {
				inv.ProviderTxnID = res.ProviderRef
			}
			paid = inv
			out.Kind = adapter.OutcomeAccepted

		case adapter.PaymentStatusCancelled, adapter.PaymentStatusFailed:
			switch {
			case inv.IsPaid():
				out.Kind = adapter.OutcomeRejected
				return nil
			case inv.Status == model.InvoiceStatusFailed:
				out.Kind = adapter.OutcomeDuplicate
				return nil
			}
			if _, err := u.invoices.MarkFailedIfPending(ctx, tx, inv.ID); err != nil {
				return err
			}
			inv.Status = model.InvoiceStatusFailed
			out.Kind = adapter.OutcomeAccepted

		case adapter.PaymentStatusProcessing:
			if !inv.IsPending() {
				out.Kind = adapter.OutcomeRejected
				return nil
			}
			if res.Exclusive && inv.Provider == provider && inv.ProviderTxnID != "" &&
				res.ProviderRef != "" && res.ProviderRef != inv.ProviderTxnID {
				logging.With(ctx, u.log).Warn().
					Str("invoice_id", inv.ID).
					Str("bound_ref", inv.ProviderTxnID).
					Str("provider_ref", res.ProviderRef).
					Msg("order already held by another provider transaction")
				out.Kind = adapter.OutcomeBusy
				return nil
			}
			if res.ProviderRef != "" && res.ProviderRef != inv.ProviderTxnID {
				if err := u.invoices.BindProvider(ctx, tx, inv.ID, provider, "", res.ProviderRef); err != nil {
					return err
				}
				inv.Provider = provider
				inv.ProviderTxnID = res.ProviderRef
			}
			out.Kind = adapter.OutcomeAccepted

		default:
			if !inv.IsPending() {
				out.Kind = adapter.OutcomeRejected
				return nil
			}
			out.Kind = adapter.OutcomeAccepted
		}
		return nil
	})
	if err != nil {
		return adapter.CallbackOutcome{}, err
	}

	if paid != nil {
		metrics.IncPayment("paid")
		metrics.AddPaymentRevenue(paid.Currency, paid.Amount)
		if u.notifier != nil {
			if err := u.notifier.InvoicePaid(ctx, paid); err != nil {
				u.log.Warn().Err(err).Str("invoice_id", paid.ID).Msg("admin notification failed")
			}
		}
	}
	return out, nil
}

// lookup finds the invoice by our order id first and by the provider's own
// reference second.
func (u *paymentUC) lookup(ctx context.Context, tx repository.Tx, provider string, res adapter.PaymentResult) (*model.Invoice, error) {
	if res.TransactionID != "" {
		var (
			inv *model.Invoice
			err error
		)
		if id, ok := model.InvoiceIDFromOrderID(res.TransactionID); ok {
			inv, err = u.invoices.FindByID(ctx, tx, id)
		} else {
			inv, err = u.invoices.FindByTransactionID(ctx, tx, res.TransactionID)
		}
		if err == nil || !errors.Is(err, domain.ErrNotFound) {
			return inv, err
		}
	}
	if res.ProviderRef != "" {
		return u.invoices.FindByProviderTxnID(ctx, tx, provider, res.ProviderRef)
	}
	return nil, domain.ErrNotFound
}

func (u *paymentUC) applyPaid(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	switch inv.Purpose {
	case model.InvoicePurposeSubscription:
		_, err := u.subs.ActivateFromInvoice(ctx, tx, inv)
		return err
	default:
		_, err := u.ledger.Apply(ctx, tx, LedgerEntry{
			UserID:      inv.UserID,
			Amount:      inv.Amount,
			Kind:        model.TransactionKindTopUp,
			Description: fmt.Sprintf("Invoice %s paid via %s", inv.OrderID(), inv.Provider),
			InvoiceID:   &inv.ID,
		})
		return err
	}
}

func (u *paymentUC) ReconcilePending(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "PaymentUC.ReconcilePending")()

	pending, err := u.invoices.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, inv := range pending {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		gw, err := u.gateways.Resolve(inv.Provider)
		if err != nil {
			continue
		}
		ref := inv.ProviderTxnID
		if ref == "" {
			ref = inv.TransactionID
		}
		res, err := gw.VerifyPayment(ctx, ref)
		if err != nil || !res.Success {
			continue
		}
		switch res.Status {
		case adapter.PaymentStatusCompleted, adapter.PaymentStatusCancelled, adapter.PaymentStatusFailed:
		default:
			continue
		}
		res.TransactionID = inv.TransactionID
		out, err := u.settle(ctx, gw.ID(), res)
		if err != nil {
			u.log.Warn().Err(err).Str("invoice_id", inv.ID).Msg("reconcile invoice failed")
			continue
		}
		if out.Kind == adapter.OutcomeAccepted {
			settled++
		}
	}
	return settled, nil
}
