package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// SubscribeResult is what a balance-paid subscribe produced.
type SubscribeResult struct {
	Action       model.SubscriptionAction
	NewBalance   decimal.Decimal
	Subscription *model.UserSubscription
	Invoice      *model.Invoice
}

// SubscriptionUseCase drives the subscription state machine.
type SubscriptionUseCase interface {
	// Subscribe pays for planID from the balance and replaces the user's
	// subscription. Debit, invoice, subscription and history commit together.
	Subscribe(ctx context.Context, userID, planID string) (*SubscribeResult, error)
	// ActivateFromInvoice applies a PAID subscription invoice inside tx
	// without touching the balance.
	ActivateFromInvoice(ctx context.Context, tx repository.Tx, inv *model.Invoice) (model.SubscriptionAction, error)
	Cancel(ctx context.Context, userID string) (*model.UserSubscription, error)
	// GetActive returns the subscription in force and its plan, or ErrNotFound.
	GetActive(ctx context.Context, userID string) (*model.UserSubscription, *model.SubscriptionPlan, error)
	History(ctx context.Context, userID string) ([]*model.SubscriptionHistory, error)
	// ExpireLapsed flips lapsed subscriptions off and records EXPIRED rows.
	ExpireLapsed(ctx context.Context, limit int) (int, error)
}

type subscriptionUC struct {
	users    repository.UserRepository
	plans    repository.SubscriptionPlanRepository
	subs     repository.SubscriptionRepository
	history  repository.SubscriptionHistoryRepository
	invoices repository.InvoiceRepository
	ledger   LedgerUseCase
	currency string
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	users repository.UserRepository,
	plans repository.SubscriptionPlanRepository,
	subs repository.SubscriptionRepository,
	history repository.SubscriptionHistoryRepository,
	invoices repository.InvoiceRepository,
	ledger LedgerUseCase,
	currency string,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		users:    users,
		plans:    plans,
		subs:     subs,
		history:  history,
		invoices: invoices,
		ledger:   ledger,
		currency: currency,
		tm:       tm,
		log:      logger,
	}
}

func (u *subscriptionUC) activePlan(ctx context.Context, planID string) (*model.SubscriptionPlan, error) {
	plan, err := u.plans.FindByID(ctx, repository.NoTX, planID)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrPlanNotFound) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func (u *subscriptionUC) Subscribe(ctx context.Context, userID, planID string) (*SubscribeResult, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Subscribe")()

	plan, err := u.activePlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	var res *SubscribeResult
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		now := time.Now()
		action, err := u.classify(ctx, tx, userID, plan.Price, now)
		if err != nil {
			return err
		}
		if user.Balance.LessThan(plan.Price) {
			metrics.IncInsufficientBalance(string(model.TransactionKindSubscription))
			return &domain.InsufficientBalanceError{Cost: plan.Price, Balance: user.Balance}
		}

		inv := &model.Invoice{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      plan.Price,
			Currency:    u.currency,
			Description: fmt.Sprintf("Subscription to %s", plan.Name),
			Status:      model.InvoiceStatusPaid,
			Purpose:     model.InvoicePurposeSubscription,
			PlanID:      &plan.ID,
			Provider:    model.ProviderBalance,
			CreatedAt:   now,
			PaidAt:      &now,
		}
		inv.TransactionID = inv.OrderID()
		if err := u.invoices.Save(ctx, tx, inv); err != nil {
			return err
		}

		balance := user.Balance
		// free plans leave no wallet row
		if plan.Price.IsPositive() {
			balance, err = u.ledger.Apply(ctx, tx, LedgerEntry{
				UserID:      userID,
				Amount:      plan.Price.Neg(),
				Kind:        model.TransactionKindSubscription,
				Description: fmt.Sprintf("Subscription to %s (%s)", plan.Name, strings.ToLower(string(action))),
				InvoiceID:   &inv.ID,
			})
			if err != nil {
				return err
			}
		}

		sub, err := u.replace(ctx, tx, userID, plan, action, plan.Price, &inv.ID, "", now)
		if err != nil {
			return err
		}
		res = &SubscribeResult{Action: action, NewBalance: balance, Subscription: sub, Invoice: inv}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncSubscriptionTransition(string(res.Action))
	logging.With(ctx, u.log).Info().
		Str("user_id", userID).
		Str("plan_id", plan.ID).
		Str("action", string(res.Action)).
		Msg("subscription changed")
	return res, nil
}

func (u *subscriptionUC) ActivateFromInvoice(ctx context.Context, tx repository.Tx, inv *model.Invoice) (model.SubscriptionAction, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ActivateFromInvoice")()

	if inv.PlanID == nil || *inv.PlanID == "" {
		return "", domain.ErrInvalidArgument
	}
	// a paid plan is honored even if it was retired after the invoice was issued
	plan, err := u.plans.FindByID(ctx, tx, *inv.PlanID)
	if err != nil {
		return "", err
	}
	if _, err := u.users.LockForUpdate(ctx, tx, inv.UserID); err != nil {
		return "", err
	}
	now := time.Now()
	action, err := u.classify(ctx, tx, inv.UserID, plan.Price, now)
	if err != nil {
		return "", err
	}
	if _, err := u.replace(ctx, tx, inv.UserID, plan, action, inv.Amount, &inv.ID, "Paid via "+inv.Provider, now); err != nil {
		return "", err
	}
	metrics.IncSubscriptionTransition(string(action))
	return action, nil
}

// classify compares the active plan's price with the requested one.
func (u *subscriptionUC) classify(ctx context.Context, tx repository.Tx, userID string, price decimal.Decimal, now time.Time) (model.SubscriptionAction, error) {
	current, err := u.subs.FindByUser(ctx, tx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return model.ClassifyChange(nil, price), nil
	}
	if err != nil {
		return "", err
	}
	if !current.IsActive(now) {
		return model.ClassifyChange(nil, price), nil
	}
	plan, err := u.plans.FindByID(ctx, tx, current.PlanID)
	if errors.Is(err, domain.ErrPlanNotFound) || errors.Is(err, domain.ErrNotFound) {
		return model.ClassifyChange(nil, price), nil
	}
	if err != nil {
		return "", err
	}
	return model.ClassifyChange(&plan.Price, price), nil
}

// replace resets the user's subscription to plan for a fresh period and
// appends the history row.
func (u *subscriptionUC) replace(ctx context.Context, tx repository.Tx, userID string, plan *model.SubscriptionPlan, action model.SubscriptionAction, paid decimal.Decimal, invoiceID *string, notes string, now time.Time) (*model.UserSubscription, error) {
	id := uuid.NewString()
	if existing, err := u.subs.FindByUser(ctx, tx, userID); err == nil {
		id = existing.ID
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	sub := &model.UserSubscription{
		ID:        id,
		UserID:    userID,
		PlanID:    plan.ID,
		StartDate: now,
		EndDate:   now.Add(model.SubscriptionPeriod),
		Active:    true,
		UpdatedAt: now,
	}
	if err := u.subs.Save(ctx, tx, sub); err != nil {
		return nil, err
	}
	if err := u.history.Append(ctx, tx, &model.SubscriptionHistory{
		ID:         uuid.NewString(),
		UserID:     userID,
		PlanID:     plan.ID,
		Action:     action,
		AmountPaid: paid,
		InvoiceID:  invoiceID,
		Notes:      notes,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}
	return sub, nil
}

func (u *subscriptionUC) Cancel(ctx context.Context, userID string) (*model.UserSubscription, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Cancel")()

	var sub *model.UserSubscription
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.users.LockForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		now := time.Now()
		s, err := u.subs.FindByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !s.IsActive(now) {
			return domain.ErrNotFound
		}
		if _, err := u.subs.DeactivateIfActive(ctx, tx, userID); err != nil {
			return err
		}
		if err := u.history.Append(ctx, tx, &model.SubscriptionHistory{
			ID:         uuid.NewString(),
			UserID:     userID,
			PlanID:     s.PlanID,
			Action:     model.SubscriptionActionCancelled,
			AmountPaid: decimal.Zero,
			Notes:      "Cancelled by user",
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		s.Active = false
		s.UpdatedAt = now
		sub = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionActionCancelled))
	return sub, nil
}

func (u *subscriptionUC) GetActive(ctx context.Context, userID string) (*model.UserSubscription, *model.SubscriptionPlan, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.GetActive")()

	sub, err := u.subs.FindByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now()
	if sub.IsLapsed(now) {
		if _, err := u.expire(ctx, userID, now); err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("lazy expiry failed")
		}
	}
	if !sub.IsActive(now) {
		return nil, nil, domain.ErrNotFound
	}
	plan, err := u.plans.FindByID(ctx, repository.NoTX, sub.PlanID)
	if err != nil {
		return nil, nil, err
	}
	return sub, plan, nil
}

func (u *subscriptionUC) History(ctx context.Context, userID string) ([]*model.SubscriptionHistory, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.History")()
	return u.history.ListByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) ExpireLapsed(ctx context.Context, limit int) (int, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.ExpireLapsed")()

	now := time.Now()
	lapsed, err := u.subs.ListLapsed(ctx, repository.NoTX, now, limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, s := range lapsed {
		ok, err := u.expire(ctx, s.UserID, now)
		if err != nil {
			u.log.Warn().Err(err).Str("user_id", s.UserID).Msg("expire subscription failed")
			continue
		}
		if ok {
			expired++
		}
	}
	metrics.IncSubscriptionsExpired(expired)
	if n, err := u.subs.CountActive(ctx, repository.NoTX, now); err == nil {
		metrics.SetSubscriptionsActive(n)
	}
	return expired, nil
}

// expire re-checks the subscription under the user's lock so that a renewal
// racing with the sweep is never switched off.
func (u *subscriptionUC) expire(ctx context.Context, userID string, now time.Time) (bool, error) {
	expired := false
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if _, err := u.users.LockForUpdate(ctx, tx, userID); err != nil {
			return err
		}
		s, err := u.subs.FindByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !s.IsLapsed(now) {
			return nil
		}
		ok, err := u.subs.DeactivateIfActive(ctx, tx, userID)
		if err != nil || !ok {
			return err
		}
		expired = true
		return u.history.Append(ctx, tx, &model.SubscriptionHistory{
			ID:         uuid.NewString(),
			UserID:     userID,
			PlanID:     s.PlanID,
			Action:     model.SubscriptionActionExpired,
			AmountPaid: decimal.Zero,
			Notes:      "Period ended " + s.EndDate.UTC().Format(time.RFC3339),
			CreatedAt:  now,
		})
	})
	if err != nil {
		return false, err
	}
	if expired {
		metrics.IncSubscriptionTransition(string(model.SubscriptionActionExpired))
	}
	return expired, nil
}
