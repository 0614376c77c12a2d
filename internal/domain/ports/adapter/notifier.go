package adapter

import (
	"context"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
)

// AdminNotifier delivers best-effort operator notifications.
type AdminNotifier interface {
	ReceiptSubmitted(ctx context.Context, r *model.PaymentReceipt) error
	InvoicePaid(ctx context.Context, inv *model.Invoice) error
}
