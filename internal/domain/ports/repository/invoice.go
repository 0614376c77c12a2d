package repository

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
)

type InvoiceRepository interface {
	Save(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Invoice, error)
	FindByProviderTxnID(ctx context.Context, tx Tx, provider, providerTxnID string) (*model.Invoice, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Invoice, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Invoice, error)
	// BindProvider records the provider and its references on a PENDING invoice.
	// Empty arguments keep the stored value, except that switching provider
	// always replaces providerTxnID since the old reference belongs to the old
	// provider.
	BindProvider(ctx context.Context, tx Tx, id, provider, transactionID, providerTxnID string) error
	// MarkPaidIfPending and MarkFailedIfPending are the idempotency guards:
	// they report false when the invoice already left PENDING.
	MarkPaidIfPending(ctx context.Context, tx Tx, id string, providerTxnID string, paidAt time.Time) (bool, error)
	MarkFailedIfPending(ctx context.Context, tx Tx, id string) (bool, error)
}
