package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	TransactionKindTopUp        TransactionKind = "TOP_UP"
	TransactionKindSubscription TransactionKind = "SUBSCRIPTION"
	TransactionKindAdjustment   TransactionKind = "ADJUSTMENT"
	TransactionKindPublishFee   TransactionKind = "PUBLISH_FEE"
)

func (k TransactionKind) Valid() bool {
	switch k {
	case TransactionKindTopUp, TransactionKindSubscription, TransactionKindAdjustment, TransactionKindPublishFee:
		return true
	}
	return false
}

// IsDebit reports kinds that may never drive a balance below zero.
func (k TransactionKind) IsDebit() bool {
	return k == TransactionKindSubscription || k == TransactionKindPublishFee
}

// WalletTransaction is an immutable ledger row. Amount is signed:
// positive for credits, negative for debits.
type WalletTransaction struct {
	ID          string // ULID, sortable by creation time
	UserID      string
	Amount      decimal.Decimal
	Kind        TransactionKind
	Description string
	ReceiptID   *string
	InvoiceID   *string
	CreatedAt   time.Time
}
