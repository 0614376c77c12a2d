package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReceiptStatus string

const (
	ReceiptStatusPending  ReceiptStatus = "PENDING"
	ReceiptStatusApproved ReceiptStatus = "APPROVED"
	ReceiptStatusRejected ReceiptStatus = "REJECTED"
)

// PaymentReceipt is a user-submitted proof of an out-of-band payment,
// e.g. a bank transfer slip. It leaves PENDING exactly once.
type PaymentReceipt struct {
	ID          string
	UserID      string
	Amount      decimal.Decimal
	ImageRef    string
	Status      ReceiptStatus
	AdminNotes  string
	ProcessedBy *string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

func (r *PaymentReceipt) IsPending() bool { return r != nil && r.Status == ReceiptStatusPending }
