package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusFailed  InvoiceStatus = "FAILED"
)

// InvoicePurpose decides what a PAID transition does.
type InvoicePurpose string

const (
	// InvoicePurposeTopUp credits the paid amount to the balance.
	InvoicePurposeTopUp InvoicePurpose = "TOP_UP"
	// InvoicePurposeSubscription activates PlanID once paid.
	InvoicePurposeSubscription InvoicePurpose = "SUBSCRIPTION"
)

// ProviderBalance marks invoices settled from the internal balance.
const ProviderBalance = "balance"

const orderIDPrefix = "INV-"

type Invoice struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Currency      string
	Description   string
	Status        InvoiceStatus
	Purpose       InvoicePurpose
	PlanID        *string
	Provider      string
	TransactionID string // order id handed to the provider
	ProviderTxnID string // provider-side transaction id, when the provider has one
	CreatedAt     time.Time
	PaidAt        *time.Time
}

func (i *Invoice) IsPaid() bool    { return i != nil && i.Status == InvoiceStatusPaid }
func (i *Invoice) IsPending() bool { return i != nil && i.Status == InvoiceStatusPending }

// OrderID is the merchant order reference sent to gateways.
func (i *Invoice) OrderID() string { return orderIDPrefix + i.ID }

// InvoiceIDFromOrderID reverses OrderID. ok is false for foreign references.
func InvoiceIDFromOrderID(orderID string) (string, bool) {
	if !strings.HasPrefix(orderID, orderIDPrefix) || len(orderID) == len(orderIDPrefix) {
		return "", false
	}
	return strings.TrimPrefix(orderID, orderIDPrefix), true
}
