package repository

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/shopspring/decimal"
)

// WalletTransactionRepository is append-only: rows are never updated or deleted.
type WalletTransactionRepository interface {
	Append(ctx context.Context, tx Tx, t *model.WalletTransaction) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.WalletTransaction, error)
	ListSince(ctx context.Context, tx Tx, since time.Time, limit int) ([]*model.WalletTransaction, error)
	SumByUser(ctx context.Context, tx Tx, userID string) (decimal.Decimal, error)
	// SumCreditsByKindSince sums positive amounts of kind created at or after since.
	SumCreditsByKindSince(ctx context.Context, tx Tx, kind model.TransactionKind, since time.Time) (decimal.Decimal, error)
}
