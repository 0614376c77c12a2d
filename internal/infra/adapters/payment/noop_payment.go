package payment

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	"github.com/shopspring/decimal"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is an in-memory gateway for local development and tests.
// Its callback is a JSON body {"transaction_id","status","amount"} guarded by
// the X-Noop-Token header.
type NoopPaymentGateway struct {
	token string

	mu      sync.Mutex
	seq     int64
	intents map[string]noopIntent // order id -> intent
}

type noopIntent struct {
	ref    string
	amount decimal.Decimal
	status adapter.PaymentStatus
}

func NewNoopPaymentGateway(token string) *NoopPaymentGateway {
	return &NoopPaymentGateway{
		token:   token,
		intents: make(map[string]noopIntent),
	}
}

func (g *NoopPaymentGateway) ID() string   { return "noop" }
func (g *NoopPaymentGateway) Name() string { return "Test gateway" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ref := g.next()
	g.intents[req.OrderID] = noopIntent{ref: ref, amount: req.Amount, status: adapter.PaymentStatusPending}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: req.OrderID,
		ProviderRef:   ref,
		Status:        adapter.PaymentStatusPending,
		RedirectURL:   "https://example.test/pay/" + ref,
	}, nil
}

// lookup accepts either our order id or the gateway reference.
func (g *NoopPaymentGateway) lookup(id string) (string, noopIntent, bool) {
	if in, ok := g.intents[id]; ok {
		return id, in, true
	}
	for order, in := range g.intents {
		if in.ref == id {
			return order, in, true
		}
	}
	return "", noopIntent{}, false
}

func (g *NoopPaymentGateway) VerifyPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, in, ok := g.lookup(transactionID)
	if !ok {
		return adapter.Failed(transactionID, "noop: unknown transaction"), nil
	}
	amount := in.amount
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: order,
		ProviderRef:   in.ref,
		Status:        in.status,
		Amount:        &amount,
	}, nil
}

// Complete marks an intent paid so that VerifyPayment reports it.
func (g *NoopPaymentGateway) Complete(orderID string) {
	g.setStatus(orderID, adapter.PaymentStatusCompleted)
}

func (g *NoopPaymentGateway) setStatus(id string, st adapter.PaymentStatus) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	order, in, ok := g.lookup(id)
	if !ok {
		return false
	}
	in.status = st
	g.intents[order] = in
	return true
}

func (g *NoopPaymentGateway) CancelPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	if !g.setStatus(transactionID, adapter.PaymentStatusCancelled) {
		return adapter.Failed(transactionID, "noop: unknown transaction"), nil
	}
	return adapter.PaymentResult{Success: true, TransactionID: transactionID, Status: adapter.PaymentStatusCancelled}, nil
}

func (g *NoopPaymentGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (adapter.PaymentResult, error) {
	if !g.setStatus(transactionID, adapter.PaymentStatusRefunded) {
		return adapter.Failed(transactionID, "noop: unknown transaction"), nil
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: transactionID,
		ProviderRef:   "refund-" + transactionID,
		Status:        adapter.PaymentStatusRefunded,
		Amount:        amount,
	}, nil
}

func (g *NoopPaymentGateway) ProcessCallback(ctx context.Context, req adapter.CallbackRequest) adapter.PaymentResult {
	if g.token == "" || subtle.ConstantTimeCompare([]byte(req.Header.Get("X-Noop-Token")), []byte(g.token)) != 1 {
		return adapter.Failed("", "noop: bad token")
	}
	var body struct {
		TransactionID string                `json:"transaction_id"`
		ProviderRef   string                `json:"provider_ref"`
		Status        adapter.PaymentStatus `json:"status"`
		Amount        *decimal.Decimal      `json:"amount"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return adapter.Failed("", "noop: malformed body")
	}
	if body.Status == "" {
		body.Status = adapter.PaymentStatusCompleted
	}
	if body.TransactionID != "" {
		g.setStatus(body.TransactionID, body.Status)
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: body.TransactionID,
		ProviderRef:   body.ProviderRef,
		Status:        body.Status,
		Amount:        body.Amount,
	}
}

func (g *NoopPaymentGateway) Acknowledge(res adapter.PaymentResult, outcome adapter.CallbackOutcome) adapter.Acknowledgement {
	if outcome.Kind == adapter.OutcomeInvalid {
		return adapter.Acknowledgement{HTTPStatus: http.StatusUnauthorized, Body: map[string]string{"error": res.Message}}
	}
	return adapter.Acknowledgement{HTTPStatus: http.StatusOK, Body: map[string]string{"outcome": outcome.Kind.String()}}
}
