//go:build !integration

package payment

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v75/webhook"
)

const testWebhookSecret = "whsec_test"

func newTestStripe(t *testing.T) *StripeGateway {
	t.Helper()
	g, err := NewStripeGateway(config.StripeConfig{SecretKey: "sk_test_x", WebhookSecret: testWebhookSecret, Currency: "USD"})
	if err != nil {
		t.Fatalf("NewStripeGateway: %v", err)
	}
	return g
}

func signedStripeRequest(payload string) adapter.CallbackRequest {
	now := time.Now()
	sig := webhook.ComputeSignature(now, []byte(payload), testWebhookSecret)
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig)))
	return adapter.CallbackRequest{Header: h, Body: []byte(payload)}
}

func stripeEvent(typ, session string) string {
	return fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`, typ, session)
}

func TestStripe_RequiresSecrets(t *testing.T) {
	if _, err := NewStripeGateway(config.StripeConfig{SecretKey: "sk"}); err == nil {
		t.Fatal("expected error without webhook secret")
	}
}

func TestStripe_CheckoutCompleted(t *testing.T) {
	g := newTestStripe(t)
	payload := stripeEvent("checkout.session.completed",
		`{"id":"cs_test_1","object":"checkout.session","client_reference_id":"INV-abc","payment_status":"paid","status":"complete","amount_total":125000}`)

	res := g.ProcessCallback(context.Background(), signedStripeRequest(payload))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Message)
	}
	if res.Status != adapter.PaymentStatusCompleted || res.TransactionID != "INV-abc" || res.ProviderRef != "cs_test_1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Amount == nil || !res.Amount.Equal(dec("1250")) {
		t.Fatalf("expected 1250, got %v", res.Amount)
	}
	ack := g.Acknowledge(res, adapter.CallbackOutcome{Kind: adapter.OutcomeAccepted})
	if ack.HTTPStatus != http.StatusOK || ackBody(t, ack)["status"] != "received" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestStripe_OrderIDFromMetadata(t *testing.T) {
	g := newTestStripe(t)
	payload := stripeEvent("checkout.session.expired",
		`{"id":"cs_test_2","object":"checkout.session","metadata":{"order_id":"INV-xyz"},"status":"expired"}`)
	res := g.ProcessCallback(context.Background(), signedStripeRequest(payload))
	if res.Status != adapter.PaymentStatusCancelled || res.TransactionID != "INV-xyz" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestStripe_UnpaidCompletionStaysPending(t *testing.T) {
	g := newTestStripe(t)
	payload := stripeEvent("checkout.session.completed",
		`{"id":"cs_test_3","object":"checkout.session","client_reference_id":"INV-abc","payment_status":"unpaid","status":"complete"}`)
	res := g.ProcessCallback(context.Background(), signedStripeRequest(payload))
	if res.Status != adapter.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", res.Status)
	}
}

func TestStripe_InvalidSignature(t *testing.T) {
	g := newTestStripe(t)
	req := signedStripeRequest(stripeEvent("checkout.session.completed", `{"id":"cs_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	res := g.ProcessCallback(context.Background(), req)
	if res.Success {
		t.Fatal("expected signature failure")
	}
	if ack := g.Acknowledge(res, adapter.CallbackOutcome{Kind: adapter.OutcomeInvalid}); ack.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", ack.HTTPStatus)
	}
}

func TestStripe_IgnoresOtherEvents(t *testing.T) {
	g := newTestStripe(t)
	res := g.ProcessCallback(context.Background(), signedStripeRequest(stripeEvent("customer.created", `{"id":"cus_1"}`)))
	if !res.Success || res.TransactionID != "" || res.ProviderRef != "" {
		t.Fatalf("expected an ignorable success, got %+v", res)
	}
}

func TestStripe_VerifyNonSessionIsPending(t *testing.T) {
	g := newTestStripe(t)
	res, err := g.VerifyPayment(context.Background(), "INV-abc")
	if err != nil || res.Status != adapter.PaymentStatusPending {
		t.Fatalf("expected pending, got %+v %v", res, err)
	}
}

func TestStripe_RejectsForeignCurrency(t *testing.T) {
	g := newTestStripe(t)
	res, err := g.CreatePayment(context.Background(), adapter.PaymentRequest{
		Amount:   decimal.NewFromInt(10000),
		Currency: "UZS",
		OrderID:  "INV-1",
	})
	if err != nil {
		t.Fatalf("CreatePayment: %v", err)
	}
	if res.Success || res.Status != adapter.PaymentStatusFailed {
		t.Fatalf("expected a failed result, got %+v", res)
	}
	if !strings.Contains(res.Message, "USD") || !strings.Contains(res.Message, "UZS") {
		t.Errorf("message should name both currencies: %q", res.Message)
	}
}
