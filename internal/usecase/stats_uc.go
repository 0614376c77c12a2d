package usecase

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// FinanceDashboard aggregates revenue and the manual top-up backlog.
// Revenue is the sum of TOP_UP credits.
type FinanceDashboard struct {
	TotalRevenue        decimal.Decimal
	MonthlyRevenue      decimal.Decimal
	YearlyRevenue       decimal.Decimal
	PendingTopUpsCount  int
	PendingTopUpsAmount decimal.Decimal
	UsersWithBalance    int
}

// StatsUseCase serves the finance admin reports.
type StatsUseCase interface {
	Dashboard(ctx context.Context, actorID string) (*FinanceDashboard, error)
	// ExportTransactions returns ledger rows created at or after since.
	ExportTransactions(ctx context.Context, actorID string, since time.Time, limit int) ([]*model.WalletTransaction, error)
}

type statsUC struct {
	users    repository.UserRepository
	wallet   repository.WalletTransactionRepository
	receipts repository.ReceiptRepository
	log      *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, wallet repository.WalletTransactionRepository, receipts repository.ReceiptRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, wallet: wallet, receipts: receipts, log: logger}
}

func (u *statsUC) Dashboard(ctx context.Context, actorID string) (*FinanceDashboard, error) {
	defer logging.TraceDuration(u.log, "StatsUC.Dashboard")()

	if _, err := requireFinance(ctx, u.users, actorID); err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	var (
		d   FinanceDashboard
		err error
	)
	if d.TotalRevenue, err = u.wallet.SumCreditsByKindSince(ctx, repository.NoTX, model.TransactionKindTopUp, time.Time{}); err != nil {
		return nil, err
	}
	if d.MonthlyRevenue, err = u.wallet.SumCreditsByKindSince(ctx, repository.NoTX, model.TransactionKindTopUp, monthStart); err != nil {
		return nil, err
	}
	if d.YearlyRevenue, err = u.wallet.SumCreditsByKindSince(ctx, repository.NoTX, model.TransactionKindTopUp, yearStart); err != nil {
		return nil, err
	}
	if d.PendingTopUpsCount, d.PendingTopUpsAmount, err = u.receipts.PendingTotals(ctx, repository.NoTX); err != nil {
		return nil, err
	}
	if d.UsersWithBalance, err = u.users.CountWithPositiveBalance(ctx, repository.NoTX); err != nil {
		return nil, err
	}
	return &d, nil
}

func (u *statsUC) ExportTransactions(ctx context.Context, actorID string, since time.Time, limit int) ([]*model.WalletTransaction, error) {
	defer logging.TraceDuration(u.log, "StatsUC.ExportTransactions")()

	if _, err := requireFinance(ctx, u.users, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10000
	}
	return u.wallet.ListSince(ctx, repository.NoTX, since, limit)
}
