package adapter

import (
	"context"
	"net/http"

	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the provider-neutral state reported by a gateway.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentRequest is what a gateway needs to hand the user off for payment.
type PaymentRequest struct {
	Amount        decimal.Decimal
	Currency      string
	OrderID       string
	Description   string
	ReturnURL     string
	CustomerEmail string
}

// PaymentResult is the provider-neutral outcome of any gateway call.
type PaymentResult struct {
	Success bool
	// TransactionID is our order id as echoed by the provider, when present.
	TransactionID string
	// ProviderRef is the provider's own transaction/session id, when present.
	ProviderRef string
	Status      PaymentStatus
	Message     string
	RedirectURL string
	// Amount is the amount the provider reports, if it reports one.
	Amount *decimal.Decimal
	// Exclusive marks a provider transaction that claims the order: while the
	// invoice is pending, a different reference from the same provider is busy.
	Exclusive bool
	// RawResponse is the provider-native acknowledgement body for webhooks.
	RawResponse any
}

// Failed builds an unsuccessful result.
func Failed(transactionID, msg string) PaymentResult {
	return PaymentResult{Success: false, TransactionID: transactionID, Status: PaymentStatusFailed, Message: msg}
}

// CallbackRequest is an inbound webhook as received by the HTTP layer.
type CallbackRequest struct {
	Header http.Header
	Body   []byte
}

// CallbackOutcomeKind is what the reconciler did with a processed callback.
type CallbackOutcomeKind int

const (
	// OutcomeAccepted: the callback was applied (or needed no state change).
	OutcomeAccepted CallbackOutcomeKind = iota
	// OutcomeDuplicate: the invoice already reflects this callback.
	OutcomeDuplicate
	// OutcomeNotFound: no invoice matches the callback's references.
	OutcomeNotFound
	// OutcomeAmountMismatch: provider amount differs from the invoice amount.
	OutcomeAmountMismatch
	// OutcomeRejected: the invoice is in a state that forbids the operation.
	OutcomeRejected
	// OutcomeInvalid: authenticity or shape validation failed.
	OutcomeInvalid
	// OutcomeBusy: another provider transaction already holds the order.
	OutcomeBusy
)

func (k CallbackOutcomeKind) String() string {
	switch k {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAmountMismatch:
		return "amount_mismatch"
	case OutcomeRejected:
		return "rejected"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeBusy:
		return "busy"
	}
	return "unknown"
}

// CallbackOutcome is passed back to the gateway to render its acknowledgement.
// Invoice is the matched invoice after the reconciler's changes, if any.
type CallbackOutcome struct {
	Kind    CallbackOutcomeKind
	Invoice *model.Invoice
}

// Acknowledgement is the HTTP response a provider expects for its webhook.
type Acknowledgement struct {
	HTTPStatus int
	Body       any
}

// PaymentGateway is the hex port for payment providers. Adapters never touch
// balances or invoices; they translate between the provider and PaymentResult.
type PaymentGateway interface {
	ID() string
	Name() string

	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentResult, error)
	VerifyPayment(ctx context.Context, transactionID string) (PaymentResult, error)
	CancelPayment(ctx context.Context, transactionID string) (PaymentResult, error)
	// RefundPayment may answer with an unsuccessful result when the provider
	// only supports refunds out of band; that is not an error.
	RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (PaymentResult, error)
	// ProcessCallback authenticates and parses a webhook. A failed check yields
	// Success=false and a RawResponse in the provider's rejection shape.
	ProcessCallback(ctx context.Context, req CallbackRequest) PaymentResult
	// Acknowledge renders the provider-native reply for a processed callback.
	Acknowledge(res PaymentResult, outcome CallbackOutcome) Acknowledgement
}

type GatewayInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type GatewayRegistry interface {
	Resolve(providerID string) (PaymentGateway, error)
	ListAvailable() []GatewayInfo
}
