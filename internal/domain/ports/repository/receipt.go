package repository

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/shopspring/decimal"
)

type ReceiptRepository interface {
	Save(ctx context.Context, tx Tx, r *model.PaymentReceipt) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentReceipt, error)
	// UpdateStatusIfPending moves a PENDING receipt to status and reports
	// whether this call performed the transition.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.ReceiptStatus, notes string, processedBy string, processedAt time.Time) (bool, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PaymentReceipt, error)
	ListByStatus(ctx context.Context, tx Tx, status model.ReceiptStatus, limit int) ([]*model.PaymentReceipt, error)
	PendingTotals(ctx context.Context, tx Tx) (count int, amount decimal.Decimal, err error)
}
