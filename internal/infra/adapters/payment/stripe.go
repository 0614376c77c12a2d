// File: internal/infra/adapters/payment/stripe.go
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75"
	checkoutsession "github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/refund"
	"github.com/stripe/stripe-go/v75/webhook"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway uses hosted Checkout Sessions in payment mode. The session id
// is the provider reference, our order id travels as client_reference_id.
type StripeGateway struct {
	sessions      *checkoutsession.Client
	refunds       *refund.Client
	webhookSecret string
	currency      string
	cancelURL     string
}

func NewStripeGateway(cfg config.StripeConfig) (*StripeGateway, error) {
	if cfg.SecretKey == "" || cfg.WebhookSecret == "" {
		return nil, errors.New("stripe: secret_key and webhook_secret are required")
	}
	backend := stripe.GetBackend(stripe.APIBackend)
	return &StripeGateway{
		sessions:      &checkoutsession.Client{B: backend, Key: cfg.SecretKey},
		refunds:       &refund.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		currency:      strings.ToLower(cfg.Currency),
		cancelURL:     cfg.CancelURL,
	}, nil
}

func (s *StripeGateway) ID() string   { return "stripe" }
func (s *StripeGateway) Name() string { return "Stripe" }

func toMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinor(v int64) *decimal.Decimal {
	d := decimal.New(v, -2)
	return &d
}

func (s *StripeGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error) {
	if req.OrderID == "" || !req.Amount.IsPositive() {
		return adapter.Failed(req.OrderID, "order id and positive amount are required"), nil
	}
	// amounts are never converted; a checkout in another currency would misprice the order
	if req.Currency != "" && !strings.EqualFold(req.Currency, s.currency) {
		return adapter.Failed(req.OrderID, "stripe charges in "+strings.ToUpper(s.currency)+", invoice is in "+strings.ToUpper(req.Currency)), nil
	}
	cancelURL := s.cancelURL
	if cancelURL == "" {
		cancelURL = req.ReturnURL
	}
	desc := req.Description
	if desc == "" {
		desc = req.OrderID
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(s.currency),
					UnitAmount: stripe.Int64(toMinor(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(desc),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata("order_id", req.OrderID)
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: req.OrderID,
		ProviderRef:   sess.ID,
		Status:        adapter.PaymentStatusPending,
		RedirectURL:   sess.URL,
	}, nil
}

// VerifyPayment reads the checkout session. Only session ids can be verified.
func (s *StripeGateway) VerifyPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	if !strings.HasPrefix(transactionID, "cs_") {
		return adapter.PaymentResult{Success: true, TransactionID: transactionID, Status: adapter.PaymentStatusPending}, nil
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(transactionID, params)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	return sessionResult(sess, statusOfSession(sess)), nil
}

func (s *StripeGateway) CancelPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	if !strings.HasPrefix(transactionID, "cs_") {
		return adapter.Failed(transactionID, "not a checkout session id"), nil
	}
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	sess, err := s.sessions.Expire(transactionID, params)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	return sessionResult(sess, adapter.PaymentStatusCancelled), nil
}

// RefundPayment refunds the payment intent behind a paid checkout session.
// A nil amount refunds in full.
func (s *StripeGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (adapter.PaymentResult, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(transactionID, params)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return adapter.Failed(transactionID, "session has no payment to refund"), nil
	}

	rp := &stripe.RefundParams{PaymentIntent: stripe.String(sess.PaymentIntent.ID)}
	if amount != nil {
		rp.Amount = stripe.Int64(toMinor(*amount))
	}
	rp.Context = ctx
	r, err := s.refunds.New(rp)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: sess.ClientReferenceID,
		ProviderRef:   r.ID,
		Status:        adapter.PaymentStatusRefunded,
		Amount:        fromMinor(r.Amount),
	}, nil
}

func statusOfSession(sess *stripe.CheckoutSession) adapter.PaymentStatus {
	switch {
	case sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		return adapter.PaymentStatusCompleted
	case sess.Status == stripe.CheckoutSessionStatusExpired:
		return adapter.PaymentStatusCancelled
	default:
		return adapter.PaymentStatusPending
	}
}

func sessionResult(sess *stripe.CheckoutSession, status adapter.PaymentStatus) adapter.PaymentResult {
	orderID := sess.ClientReferenceID
	if orderID == "" {
		orderID = sess.Metadata["order_id"]
	}
	res := adapter.PaymentResult{
		Success:       true,
		TransactionID: orderID,
		ProviderRef:   sess.ID,
		Status:        status,
	}
	if sess.AmountTotal > 0 {
		res.Amount = fromMinor(sess.AmountTotal)
	}
	return res
}

func (s *StripeGateway) ProcessCallback(ctx context.Context, req adapter.CallbackRequest) adapter.PaymentResult {
	event, err := webhook.ConstructEventWithOptions(
		req.Body,
		req.Header.Get("Stripe-Signature"),
		s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		return adapter.Failed("", "signature verification failed")
	}

	var status adapter.PaymentStatus
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		status = adapter.PaymentStatusCompleted
	case "checkout.session.async_payment_failed":
		status = adapter.PaymentStatusFailed
	case "checkout.session.expired":
		status = adapter.PaymentStatusCancelled
	default:
		// acknowledged and ignored
		return adapter.PaymentResult{Success: true, Message: string(event.Type)}
	}

	var sess stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &sess) != nil {
		return adapter.Failed("", "failed to parse session")
	}
	// completed with a delayed payment method is not paid yet
	if status == adapter.PaymentStatusCompleted && sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		status = adapter.PaymentStatusPending
	}
	res := sessionResult(&sess, status)
	res.Message = string(event.Type)
	return res
}

func (s *StripeGateway) Acknowledge(res adapter.PaymentResult, outcome adapter.CallbackOutcome) adapter.Acknowledgement {
	switch outcome.Kind {
	case adapter.OutcomeInvalid:
		return adapter.Acknowledgement{
			HTTPStatus: http.StatusBadRequest,
			Body:       map[string]string{"error": res.Message},
		}
	case adapter.OutcomeNotFound:
		return adapter.Acknowledgement{HTTPStatus: http.StatusOK, Body: map[string]string{"status": "ignored"}}
	}
	return adapter.Acknowledgement{HTTPStatus: http.StatusOK, Body: map[string]string{"status": "received"}}
}
