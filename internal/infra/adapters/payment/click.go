// File: internal/infra/adapters/payment/click.go
package payment

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/config"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"

	"github.com/shopspring/decimal"
)

var _ adapter.PaymentGateway = (*ClickGateway)(nil)

const (
	clickCheckoutURL = "https://my.click.uz/services/pay"
	clickAPIURL      = "https://api.click.uz/v2/merchant"

	clickActionPrepare  = 0
	clickActionComplete = 1
)

// Click SHOP-API error codes.
const (
	clickOK              = 0
	clickErrSign         = -1
	clickErrAmount       = -2
	clickErrAction       = -3
	clickErrAlreadyPaid  = -4
	clickErrOrderMissing = -5
	clickErrBadRequest   = -8
	clickErrCancelled    = -9
)

var clickErrorNotes = map[int]string{
	clickOK:              "Success",
	clickErrSign:         "SIGN CHECK FAILED!",
	clickErrAmount:       "Incorrect parameter amount",
	clickErrAction:       "Action not found",
	clickErrAlreadyPaid:  "Already paid",
	clickErrOrderMissing: "User does not exist",
	clickErrBadRequest:   "Error in request from click",
	clickErrCancelled:    "Transaction cancelled",
}

// clickCall is the parsed Prepare/Complete request carried to Acknowledge.
type clickCall struct {
	ClickTransID    string
	MerchantTransID string
	Action          int
	// Error is the error field Click itself sent on Complete.
	Error int
	// Code is set when ProcessCallback already decided the reply.
	Code int
}

// ClickGateway implements the Click SHOP-API: a redirect to the checkout page
// followed by signed Prepare/Complete form callbacks.
type ClickGateway struct {
	merchantID     string
	serviceID      string
	merchantUserID string
	secret         string
	client         *http.Client
	apiURL         string
	now            func() time.Time
}

func NewClickGateway(cfg config.ClickConfig) (*ClickGateway, error) {
	if cfg.ServiceID == "" || cfg.MerchantID == "" || cfg.SecretKey == "" {
		return nil, errors.New("click: merchant_id, service_id and secret_key are required")
	}
	return &ClickGateway{
		merchantID:     cfg.MerchantID,
		serviceID:      cfg.ServiceID,
		merchantUserID: cfg.MerchantUserID,
		secret:         cfg.SecretKey,
		client:         &http.Client{Timeout: 15 * time.Second},
		apiURL:         clickAPIURL,
		now:            time.Now,
	}, nil
}

func (c *ClickGateway) ID() string   { return "click" }
func (c *ClickGateway) Name() string { return "Click" }

// CreatePayment builds the checkout redirect; Click has no server-side create.
func (c *ClickGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error) {
	if req.OrderID == "" || !req.Amount.IsPositive() {
		return adapter.Failed(req.OrderID, "order id and positive amount are required"), nil
	}
	q := url.Values{}
	q.Set("service_id", c.serviceID)
	q.Set("merchant_id", c.merchantID)
	q.Set("amount", req.Amount.StringFixed(2))
	q.Set("transaction_param", req.OrderID)
	if req.ReturnURL != "" {
		q.Set("return_url", req.ReturnURL)
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: req.OrderID,
		Status:        adapter.PaymentStatusPending,
		RedirectURL:   clickCheckoutURL + "?" + q.Encode(),
	}, nil
}

// VerifyPayment asks the merchant API for the payment status. Order ids are
// looked up by merchant_trans_id, anything else is treated as a Click payment id.
func (c *ClickGateway) VerifyPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	if c.merchantUserID == "" {
		return adapter.PaymentResult{
			Success:       true,
			TransactionID: transactionID,
			Status:        adapter.PaymentStatusPending,
			Message:       "status api not configured",
		}, nil
	}

	var (
		endpoint string
		res      = adapter.PaymentResult{Success: true}
	)
	if _, ok := model.InvoiceIDFromOrderID(transactionID); ok {
		endpoint = fmt.Sprintf("%s/payment/status_by_mti/%s/%s/%s",
			c.apiURL, c.serviceID, url.PathEscape(transactionID), c.now().Format("2006-01-02"))
		res.TransactionID = transactionID
	} else {
		endpoint = fmt.Sprintf("%s/payment/status/%s/%s", c.apiURL, c.serviceID, url.PathEscape(transactionID))
		res.ProviderRef = transactionID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Auth", c.authHeader())
	resp, err := c.client.Do(req)
	if err != nil {
		return adapter.PaymentResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapter.PaymentResult{}, fmt.Errorf("click status http %d", resp.StatusCode)
	}

	var out struct {
		ErrorCode     int         `json:"error_code"`
		ErrorNote     string      `json:"error_note"`
		PaymentID     json.Number `json:"payment_id"`
		PaymentStatus int         `json:"payment_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.PaymentResult{}, err
	}
	if out.ErrorCode < 0 {
		return adapter.Failed(transactionID, out.ErrorNote), nil
	}
	if out.PaymentID != "" {
		res.ProviderRef = out.PaymentID.String()
	}
	switch {
	case out.PaymentStatus == 2:
		res.Status = adapter.PaymentStatusCompleted
	case out.PaymentStatus < 0:
		res.Status = adapter.PaymentStatusCancelled
	default:
		res.Status = adapter.PaymentStatusPending
	}
	res.Message = out.ErrorNote
	return res, nil
}

// CancelPayment only reports the intent; Click cancels through its own callback.
func (c *ClickGateway) CancelPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: transactionID,
		Status:        adapter.PaymentStatusCancelled,
	}, nil
}

func (c *ClickGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (adapter.PaymentResult, error) {
	return adapter.Failed(transactionID, "click refunds are handled in the merchant cabinet"), nil
}

// authHeader is merchant_user_id:sha1(timestamp+secret):timestamp.
func (c *ClickGateway) authHeader() string {
	ts := strconv.FormatInt(c.now().Unix(), 10)
	sum := sha1.Sum([]byte(ts + c.secret))
	return c.merchantUserID + ":" + hex.EncodeToString(sum[:]) + ":" + ts
}

// sign is md5(click_trans_id service_id secret merchant_trans_id
// [merchant_prepare_id] amount action sign_time); the prepare id only takes
// part on Complete.
func (c *ClickGateway) sign(form url.Values, action int) string {
	var b strings.Builder
	b.WriteString(form.Get("click_trans_id"))
	b.WriteString(form.Get("service_id"))
	b.WriteString(c.secret)
	b.WriteString(form.Get("merchant_trans_id"))
	if action == clickActionComplete {
		b.WriteString(form.Get("merchant_prepare_id"))
	}
	b.WriteString(form.Get("amount"))
	b.WriteString(form.Get("action"))
	b.WriteString(form.Get("sign_time"))
	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (c *ClickGateway) ProcessCallback(ctx context.Context, req adapter.CallbackRequest) adapter.PaymentResult {
	form, err := url.ParseQuery(string(req.Body))
	if err != nil {
		return c.invalid(&clickCall{Code: clickErrBadRequest}, "malformed form body")
	}
	call := &clickCall{
		ClickTransID:    form.Get("click_trans_id"),
		MerchantTransID: form.Get("merchant_trans_id"),
	}
	for _, k := range []string{"click_trans_id", "service_id", "merchant_trans_id", "amount", "action", "sign_time", "sign_string"} {
		if form.Get(k) == "" {
			call.Code = clickErrBadRequest
			return c.invalid(call, "missing "+k)
		}
	}
	action, err := strconv.Atoi(form.Get("action"))
	if err != nil || (action != clickActionPrepare && action != clickActionComplete) {
		call.Code = clickErrAction
		return c.invalid(call, "unknown action")
	}
	call.Action = action

	expected := c.sign(form, action)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(form.Get("sign_string"))), []byte(expected)) != 1 {
		call.Code = clickErrSign
		return c.invalid(call, "signature mismatch")
	}
	if form.Get("service_id") != c.serviceID {
		call.Code = clickErrBadRequest
		return c.invalid(call, "service id mismatch")
	}
	amount, err := decimal.NewFromString(form.Get("amount"))
	if err != nil {
		call.Code = clickErrAmount
		return c.invalid(call, "malformed amount")
	}
	if v := form.Get("error"); v != "" {
		call.Error, _ = strconv.Atoi(v)
	}

	res := adapter.PaymentResult{
		Success:       true,
		TransactionID: call.MerchantTransID,
		ProviderRef:   call.ClickTransID,
		Amount:        &amount,
		RawResponse:   call,
	}
	switch {
	case action == clickActionPrepare:
		res.Status = adapter.PaymentStatusProcessing
	case call.Error < 0:
		res.Status = adapter.PaymentStatusCancelled
		res.Message = form.Get("error_note")
	default:
		res.Status = adapter.PaymentStatusCompleted
	}
	return res
}

func (c *ClickGateway) invalid(call *clickCall, msg string) adapter.PaymentResult {
	return adapter.PaymentResult{
		Success:       false,
		TransactionID: call.MerchantTransID,
		Status:        adapter.PaymentStatusFailed,
		Message:       msg,
		RawResponse:   call,
	}
}

// Acknowledge answers Click with HTTP 200 and an error code in the body.
func (c *ClickGateway) Acknowledge(res adapter.PaymentResult, outcome adapter.CallbackOutcome) adapter.Acknowledgement {
	call, _ := res.RawResponse.(*clickCall)
	if call == nil {
		call = &clickCall{Code: clickErrBadRequest}
	}

	code := clickOK
	switch outcome.Kind {
	case adapter.OutcomeInvalid:
		code = call.Code
		if code == clickOK {
			code = clickErrBadRequest
		}
	case adapter.OutcomeNotFound:
		code = clickErrOrderMissing
	case adapter.OutcomeAmountMismatch:
		code = clickErrAmount
	case adapter.OutcomeRejected:
		if outcome.Invoice.IsPaid() {
			code = clickErrAlreadyPaid
		} else {
			code = clickErrCancelled
		}
	default:
		if call.Action == clickActionComplete && call.Error < 0 {
			code = clickErrCancelled
		}
	}

	var invoiceID string
	if outcome.Invoice != nil {
		invoiceID = outcome.Invoice.ID
	}
	body := map[string]any{
		"click_trans_id":    call.ClickTransID,
		"merchant_trans_id": call.MerchantTransID,
		"error":             code,
		"error_note":        clickErrorNotes[code],
	}
	if call.Action == clickActionComplete {
		body["merchant_confirm_id"] = invoiceID
	} else {
		body["merchant_prepare_id"] = invoiceID
	}
	return adapter.Acknowledgement{HTTPStatus: http.StatusOK, Body: body}
}
