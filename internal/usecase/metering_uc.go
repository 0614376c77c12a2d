package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ MeteringUseCase = (*meteringUC)(nil)

// MeteringMode says how a submission was paid for.
type MeteringMode string

const (
	MeteringModeUnlimited MeteringMode = "unlimited"
	MeteringModeQuota     MeteringMode = "quota"
	MeteringModeFee       MeteringMode = "fee"
	MeteringModeFree      MeteringMode = "free"
)

// Submission is a billable content submission.
type Submission struct {
	UserID       string
	JournalName  string
	PricePerPage decimal.Decimal
	PageCount    int
}

type SubmissionCharge struct {
	Mode       MeteringMode
	Charged    bool
	Cost       decimal.Decimal
	NewBalance decimal.Decimal
	QuotaUsed  int
	QuotaLimit int
}

type MeteringUseCase interface {
	// ChargeSubmission consumes a quota slot or debits the publication fee.
	// Quota check and debit run under the user's row lock.
	ChargeSubmission(ctx context.Context, s Submission) (*SubmissionCharge, error)
}

type meteringUC struct {
	users  repository.UserRepository
	plans  repository.SubscriptionPlanRepository
	subs   repository.SubscriptionRepository
	ledger LedgerUseCase
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewMeteringUseCase(users repository.UserRepository, plans repository.SubscriptionPlanRepository, subs repository.SubscriptionRepository, ledger LedgerUseCase, tm repository.TransactionManager, logger *zerolog.Logger) *meteringUC {
	return &meteringUC{
		users:  users,
		plans:  plans,
		subs:   subs,
		ledger: ledger,
		tm:     tm,
		log:    logger,
	}
}

func (u *meteringUC) ChargeSubmission(ctx context.Context, s Submission) (*SubmissionCharge, error) {
	defer logging.TraceDuration(u.log, "MeteringUC.ChargeSubmission")()

	if s.UserID == "" || s.PricePerPage.IsNegative() || s.PageCount < 0 {
		return nil, domain.ErrInvalidArgument
	}

	var charge *SubmissionCharge
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.LockForUpdate(ctx, tx, s.UserID)
		if err != nil {
			return err
		}
		charge = &SubmissionCharge{Cost: decimal.Zero, NewBalance: user.Balance}

		now := time.Now()
		sub, err := u.subs.FindByUser(ctx, tx, s.UserID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if sub.IsActive(now) {
			plan, err := u.plans.FindByID(ctx, tx, sub.PlanID)
			if err != nil {
				return err
			}
			charge.QuotaUsed = sub.ArticlesUsedThisMonth
			charge.QuotaLimit = plan.ArticleLimit
			if plan.IsUnlimited() {
				charge.Mode = MeteringModeUnlimited
				return nil
			}
			if sub.ArticlesUsedThisMonth < plan.ArticleLimit {
				sub.ArticlesUsedThisMonth++
				sub.UpdatedAt = now
				if err := u.subs.Save(ctx, tx, sub); err != nil {
					return err
				}
				charge.Mode = MeteringModeQuota
				charge.QuotaUsed = sub.ArticlesUsedThisMonth
				return nil
			}
		}

		cost := s.PricePerPage.Mul(decimal.NewFromInt(int64(s.PageCount)))
		charge.Cost = cost
		if !cost.IsPositive() {
			charge.Mode = MeteringModeFree
			return nil
		}
		balance, err := u.ledger.Apply(ctx, tx, LedgerEntry{
			UserID:      s.UserID,
			Amount:      cost.Neg(),
			Kind:        model.TransactionKindPublishFee,
			Description: fmt.Sprintf("Publication fee: %s (%d pages)", s.JournalName, s.PageCount),
		})
		if err != nil {
			return err
		}
		charge.Mode = MeteringModeFee
		charge.Charged = true
		charge.NewBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncMeteringEvent(string(charge.Mode))
	return charge, nil
}
