package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ TransactionsUseCase = (*transactionsUC)(nil)

const (
	TransactionTypeReceipt = "RECEIPT"
	TransactionCompleted   = "COMPLETED"
)

// TransactionView is one row of the user's money history.
type TransactionView struct {
	ID          string
	Amount      decimal.Decimal
	Type        string
	Description string
	Status      string
	CreatedAt   time.Time
}

type TransactionsUseCase interface {
	// List merges ledger rows with receipts that did not (yet) reach the
	// ledger, newest first.
	List(ctx context.Context, userID string) ([]TransactionView, error)
}

type transactionsUC struct {
	wallet   repository.WalletTransactionRepository
	receipts repository.ReceiptRepository
	log      *zerolog.Logger
}

func NewTransactionsUseCase(wallet repository.WalletTransactionRepository, receipts repository.ReceiptRepository, logger *zerolog.Logger) *transactionsUC {
	return &transactionsUC{wallet: wallet, receipts: receipts, log: logger}
}

func (u *transactionsUC) List(ctx context.Context, userID string) ([]TransactionView, error) {
	defer logging.TraceDuration(u.log, "TransactionsUC.List")()

	rows, err := u.wallet.ListByUser(ctx, repository.NoTX, userID, 0)
	if err != nil {
		return nil, err
	}
	receipts, err := u.receipts.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	out := make([]TransactionView, 0, len(rows)+len(receipts))
	for _, t := range rows {
		out = append(out, TransactionView{
			ID:          t.ID,
			Amount:      t.Amount,
			Type:        string(t.Kind),
			Description: t.Description,
			Status:      TransactionCompleted,
			CreatedAt:   t.CreatedAt,
		})
	}
	// approved receipts already appear as their TOP_UP row
	for _, r := range receipts {
		if r.Status == model.ReceiptStatusApproved {
			continue
		}
		desc := "Payment receipt"
		if r.AdminNotes != "" {
			desc += ": " + r.AdminNotes
		}
		out = append(out, TransactionView{
			ID:          r.ID,
			Amount:      r.Amount,
			Type:        TransactionTypeReceipt,
			Description: desc,
			Status:      string(r.Status),
			CreatedAt:   r.CreatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
