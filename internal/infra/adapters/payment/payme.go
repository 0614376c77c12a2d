// File: internal/infra/adapters/payment/payme.go
package payment

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	"github.com/shopspring/decimal"
)

var _ adapter.PaymentGateway = (*PaymeGateway)(nil)

const paymeCheckoutURL = "https://checkout.paycom.uz"

// Payme Merchant API methods.
const (
	paymeCheckPerform = "CheckPerformTransaction"
	paymeCreate       = "CreateTransaction"
	paymePerform      = "PerformTransaction"
	paymeCancel       = "CancelTransaction"
	paymeCheck        = "CheckTransaction"
	paymeStatement    = "GetStatement"
)

// Payme JSON-RPC error codes.
const (
	paymeErrParse         = -32700
	paymeErrMethod        = -32601
	paymeErrAuth          = -32504
	paymeErrAmount        = -31001
	paymeErrTxnMissing    = -31003
	paymeErrCannotCancel  = -31007
	paymeErrCannotPerform = -31008
	paymeErrOrderMissing  = -31050
	paymeErrOrderBusy     = -31099
)

// Payme transaction states.
const (
	paymeStateCreated   = 1
	paymeStatePerformed = 2
	paymeStateCancelled = -1
)

var paymeErrorMessages = map[int]string{
	paymeErrParse:         "Parse error",
	paymeErrMethod:        "Method not found",
	paymeErrAuth:          "Insufficient privilege",
	paymeErrAmount:        "Incorrect amount",
	paymeErrTxnMissing:    "Transaction not found",
	paymeErrCannotCancel:  "Unable to cancel transaction",
	paymeErrCannotPerform: "Unable to perform operation",
	paymeErrOrderMissing:  "Order not found",
	paymeErrOrderBusy:     "Order is awaiting another transaction",
}

// paymeCall is the parsed JSON-RPC request carried to Acknowledge.
type paymeCall struct {
	ID     json.RawMessage
	Method string
	TxnID  string
	Code   int
}

type paymeRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params struct {
		ID      string `json:"id"`
		Amount  int64  `json:"amount"`
		Time    int64  `json:"time"`
		Reason  *int   `json:"reason"`
		Account struct {
			OrderID string `json:"order_id"`
		} `json:"account"`
	} `json:"params"`
}

// PaymeGateway implements the Payme Merchant API: Payme drives the whole
// flow through JSON-RPC calls authenticated with Basic auth.
type PaymeGateway struct {
	merchantID  string
	key         string
	checkoutURL string
	now         func() time.Time
}

func NewPaymeGateway(cfg config.PaymeConfig) (*PaymeGateway, error) {
	if cfg.MerchantID == "" || cfg.SecretKey == "" {
		return nil, errors.New("payme: merchant_id and secret_key are required")
	}
	return &PaymeGateway{
		merchantID:  cfg.MerchantID,
		key:         cfg.SecretKey,
		checkoutURL: paymeCheckoutURL,
		now:         time.Now,
	}, nil
}

func (p *PaymeGateway) ID() string   { return "payme" }
func (p *PaymeGateway) Name() string { return "Payme" }

func toTiyin(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CreatePayment builds the checkout link: base64 of "m=..;ac.order_id=..;a=..;c=..".
func (p *PaymeGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error) {
	if req.OrderID == "" || !req.Amount.IsPositive() {
		return adapter.Failed(req.OrderID, "order id and positive amount are required"), nil
	}
	params := fmt.Sprintf("m=%s;ac.order_id=%s;a=%d", p.merchantID, req.OrderID, toTiyin(req.Amount))
	if req.ReturnURL != "" {
		params += ";c=" + req.ReturnURL
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: req.OrderID,
		Status:        adapter.PaymentStatusPending,
		RedirectURL:   p.checkoutURL + "/" + base64.StdEncoding.EncodeToString([]byte(params)),
	}, nil
}

// VerifyPayment has nothing to ask: Payme pushes every state change to us.
func (p *PaymeGateway) VerifyPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: transactionID,
		Status:        adapter.PaymentStatusPending,
	}, nil
}

func (p *PaymeGateway) CancelPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: transactionID,
		Status:        adapter.PaymentStatusCancelled,
	}, nil
}

func (p *PaymeGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (adapter.PaymentResult, error) {
	return adapter.Failed(transactionID, "payme refunds are issued from the merchant cabinet"), nil
}

func (p *PaymeGateway) authorized(h http.Header) bool {
	auth := h.Get("Authorization")
	const prefix = "Basic "
	if !strings.HasPrefix(auth, prefix) {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, prefix))
	if err != nil {
		return false
	}
	login, key, ok := strings.Cut(string(raw), ":")
	if !ok || login != "Paycom" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(p.key)) == 1
}

func (p *PaymeGateway) ProcessCallback(ctx context.Context, req adapter.CallbackRequest) adapter.PaymentResult {
	var rpc paymeRequest
	if err := json.Unmarshal(req.Body, &rpc); err != nil {
		return p.invalid(&paymeCall{Code: paymeErrParse}, "malformed json-rpc body")
	}
	call := &paymeCall{ID: rpc.ID, Method: rpc.Method, TxnID: rpc.Params.ID}
	if !p.authorized(req.Header) {
		call.Code = paymeErrAuth
		return p.invalid(call, "authorization failed")
	}

	res := adapter.PaymentResult{Success: true, RawResponse: call}
	switch rpc.Method {
	case paymeCheckPerform, paymeCreate:
		if rpc.Params.Account.OrderID == "" {
			call.Code = paymeErrOrderMissing
			return p.invalid(call, "missing account.order_id")
		}
		amount := decimal.New(rpc.Params.Amount, -2)
		res.TransactionID = rpc.Params.Account.OrderID
		res.Amount = &amount
		res.Status = adapter.PaymentStatusPending
		if rpc.Method == paymeCreate {
			if rpc.Params.ID == "" {
				call.Code = paymeErrTxnMissing
				return p.invalid(call, "missing params.id")
			}
			res.ProviderRef = rpc.Params.ID
			res.Exclusive = true
			res.Status = adapter.PaymentStatusProcessing
		}
	case paymePerform, paymeCancel, paymeCheck:
		if rpc.Params.ID == "" {
			call.Code = paymeErrTxnMissing
			return p.invalid(call, "missing params.id")
		}
		res.ProviderRef = rpc.Params.ID
		switch rpc.Method {
		case paymePerform:
			res.Status = adapter.PaymentStatusCompleted
		case paymeCancel:
			res.Status = adapter.PaymentStatusCancelled
		default:
			res.Status = adapter.PaymentStatusPending
		}
	case paymeStatement:
		// nothing to settle; answered with an empty statement
	default:
		call.Code = paymeErrMethod
		return p.invalid(call, "unknown method "+rpc.Method)
	}
	return res
}

func (p *PaymeGateway) invalid(call *paymeCall, msg string) adapter.PaymentResult {
	return adapter.PaymentResult{
		Success:     false,
		Status:      adapter.PaymentStatusFailed,
		Message:     msg,
		RawResponse: call,
	}
}

func (p *PaymeGateway) Acknowledge(res adapter.PaymentResult, outcome adapter.CallbackOutcome) adapter.Acknowledgement {
	call, _ := res.RawResponse.(*paymeCall)
	if call == nil {
		call = &paymeCall{Code: paymeErrParse}
	}
	inv := outcome.Invoice

	switch outcome.Kind {
	case adapter.OutcomeInvalid:
		code := call.Code
		if code == 0 {
			code = paymeErrParse
		}
		return p.fail(call, code)
	case adapter.OutcomeNotFound:
		if call.Method == paymeCheckPerform || call.Method == paymeCreate {
			return p.fail(call, paymeErrOrderMissing)
		}
		return p.fail(call, paymeErrTxnMissing)
	case adapter.OutcomeAmountMismatch:
		return p.fail(call, paymeErrAmount)
	case adapter.OutcomeBusy:
		return p.fail(call, paymeErrOrderBusy)
	}

	rejected := outcome.Kind == adapter.OutcomeRejected
	switch call.Method {
	case paymeCheckPerform:
		if rejected {
			return p.fail(call, paymeErrCannotPerform)
		}
		return p.ok(call, map[string]any{"allow": true})
	case paymeCreate:
		if rejected {
			return p.fail(call, paymeErrCannotPerform)
		}
		return p.ok(call, map[string]any{
			"create_time": inv.CreatedAt.UnixMilli(),
			"transaction": inv.ID,
			"state":       paymeStateCreated,
		})
	case paymePerform:
		if rejected {
			return p.fail(call, paymeErrCannotPerform)
		}
		return p.ok(call, map[string]any{
			"perform_time": millis(inv.PaidAt, p.now()),
			"transaction":  inv.ID,
			"state":        paymeStatePerformed,
		})
	case paymeCancel:
		if rejected {
			return p.fail(call, paymeErrCannotCancel)
		}
		return p.ok(call, map[string]any{
			"cancel_time": p.now().UnixMilli(),
			"transaction": inv.ID,
			"state":       paymeStateCancelled,
		})
	case paymeCheck:
		return p.ok(call, p.describe(inv))
	default:
		return p.ok(call, map[string]any{"transactions": []any{}})
	}
}

// describe renders CheckTransaction from the invoice as it is stored now.
func (p *PaymeGateway) describe(inv *model.Invoice) map[string]any {
	out := map[string]any{
		"create_time":  inv.CreatedAt.UnixMilli(),
		"perform_time": int64(0),
		"cancel_time":  int64(0),
		"transaction":  inv.ID,
		"state":        paymeStateCreated,
		"reason":       nil,
	}
	switch inv.Status {
	case model.InvoiceStatusPaid:
		out["state"] = paymeStatePerformed
		out["perform_time"] = millis(inv.PaidAt, p.now())
	case model.InvoiceStatusFailed:
		out["state"] = paymeStateCancelled
		out["cancel_time"] = p.now().UnixMilli()
	}
	return out
}

func millis(t *time.Time, fallback time.Time) int64 {
	if t == nil {
		return fallback.UnixMilli()
	}
	return t.UnixMilli()
}

func (p *PaymeGateway) ok(call *paymeCall, result any) adapter.Acknowledgement {
	return adapter.Acknowledgement{
		HTTPStatus: http.StatusOK,
		Body: map[string]any{
			"jsonrpc": "2.0",
			"id":      rawID(call.ID),
			"result":  result,
		},
	}
}

func (p *PaymeGateway) fail(call *paymeCall, code int) adapter.Acknowledgement {
	msg := paymeErrorMessages[code]
	return adapter.Acknowledgement{
		HTTPStatus: http.StatusOK,
		Body: map[string]any{
			"jsonrpc": "2.0",
			"id":      rawID(call.ID),
			"error": map[string]any{
				"code":    code,
				"message": map[string]string{"ru": msg, "uz": msg, "en": msg},
			},
		},
	}
}

func rawID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
