//go:build !integration

package usecase_test

import (
	"context"
	"sync"
	"testing"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/db/memory"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	IDValue string

	CreatePaymentFunc   func(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error)
	VerifyPaymentFunc   func(ctx context.Context, transactionID string) (adapter.PaymentResult, error)
	ProcessCallbackFunc func(ctx context.Context, req adapter.CallbackRequest) adapter.PaymentResult

	mu       sync.Mutex
	Outcomes []adapter.CallbackOutcomeKind
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) ID() string   { return m.IDValue }
func (m *MockPaymentGateway) Name() string { return "Mock " + m.IDValue }

func (m *MockPaymentGateway) CreatePayment(ctx context.Context, req adapter.PaymentRequest) (adapter.PaymentResult, error) {
	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, req)
	}
	return adapter.PaymentResult{
		Success:       true,
		TransactionID: req.OrderID,
		Status:        adapter.PaymentStatusPending,
		RedirectURL:   "https://pay.example.com/" + req.OrderID,
	}, nil
}

func (m *MockPaymentGateway) VerifyPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	if m.VerifyPaymentFunc != nil {
		return m.VerifyPaymentFunc(ctx, transactionID)
	}
	return adapter.PaymentResult{Success: true, TransactionID: transactionID, Status: adapter.PaymentStatusPending}, nil
}

func (m *MockPaymentGateway) CancelPayment(ctx context.Context, transactionID string) (adapter.PaymentResult, error) {
	return adapter.PaymentResult{Success: true, TransactionID: transactionID, Status: adapter.PaymentStatusCancelled}, nil
}

func (m *MockPaymentGateway) RefundPayment(ctx context.Context, transactionID string, amount *decimal.Decimal) (adapter.PaymentResult, error) {
	return adapter.Failed(transactionID, "refund out of band"), nil
}

func (m *MockPaymentGateway) ProcessCallback(ctx context.Context, req adapter.CallbackRequest) adapter.PaymentResult {
	if m.ProcessCallbackFunc != nil {
		return m.ProcessCallbackFunc(ctx, req)
	}
	return adapter.Failed("", "no callback configured")
}

func (m *MockPaymentGateway) Acknowledge(res adapter.PaymentResult, outcome adapter.CallbackOutcome) adapter.Acknowledgement {
	m.mu.Lock()
	m.Outcomes = append(m.Outcomes, outcome.Kind)
	m.mu.Unlock()
	return adapter.Acknowledgement{HTTPStatus: 200, Body: map[string]string{"outcome": outcome.Kind.String()}}
}

// ---- Mock GatewayRegistry ----

type MockRegistry struct {
	gateways map[string]adapter.PaymentGateway
}

var _ adapter.GatewayRegistry = (*MockRegistry)(nil)

func NewMockRegistry(gws ...adapter.PaymentGateway) *MockRegistry {
	r := &MockRegistry{gateways: make(map[string]adapter.PaymentGateway)}
	for _, g := range gws {
		r.gateways[g.ID()] = g
	}
	return r
}

func (r *MockRegistry) Resolve(id string) (adapter.PaymentGateway, error) {
	if g, ok := r.gateways[id]; ok {
		return g, nil
	}
	return nil, domain.ErrUnknownProvider
}

func (r *MockRegistry) ListAvailable() []adapter.GatewayInfo {
	out := make([]adapter.GatewayInfo, 0, len(r.gateways))
	for _, g := range r.gateways {
		out = append(out, adapter.GatewayInfo{ID: g.ID(), Name: g.Name()})
	}
	return out
}

// ---- Mock AdminNotifier ----

type MockNotifier struct {
	mu       sync.Mutex
	Receipts []string
	Invoices []string

	InvoicePaidFunc func(ctx context.Context, inv *model.Invoice) error
}

var _ adapter.AdminNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) ReceiptSubmitted(ctx context.Context, r *model.PaymentReceipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Receipts = append(m.Receipts, r.ID)
	return nil
}

func (m *MockNotifier) InvoicePaid(ctx context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	m.Invoices = append(m.Invoices, inv.ID)
	m.mu.Unlock()
	if m.InvoicePaidFunc != nil {
		return m.InvoicePaidFunc(ctx, inv)
	}
	return nil
}

// =============================
// Repositories
// =============================

// MockWalletRepo wraps the in-memory repository so single calls can fail.
type MockWalletRepo struct {
	*memory.WalletRepo
	AppendFunc func(ctx context.Context, tx repository.Tx, t *model.WalletTransaction) error
}

func (m *MockWalletRepo) Append(ctx context.Context, tx repository.Tx, t *model.WalletTransaction) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, tx, t)
	}
	return m.WalletRepo.Append(ctx, tx, t)
}

// =============================
// Fixture
// =============================

type fixture struct {
	store    *memory.Store
	users    *memory.UserRepo
	wallet   *MockWalletRepo
	receipts *memory.ReceiptRepo
	invoices *memory.InvoiceRepo
	plans    *memory.PlanRepo
	subs     *memory.SubscriptionRepo
	history  *memory.HistoryRepo
	tm       *memory.TxManager

	gateway  *MockPaymentGateway
	notifier *MockNotifier

	ledger   usecase.LedgerUseCase
	receipt  usecase.ReceiptUseCase
	sub      usecase.SubscriptionUseCase
	payment  usecase.PaymentUseCase
	metering usecase.MeteringUseCase
	txs      usecase.TransactionsUseCase
	stats    usecase.StatsUseCase
	plan     usecase.PlanUseCase
	user     usecase.UserUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	f := &fixture{
		store:    s,
		users:    memory.NewUserRepo(s),
		wallet:   &MockWalletRepo{WalletRepo: memory.NewWalletRepo(s)},
		receipts: memory.NewReceiptRepo(s),
		invoices: memory.NewInvoiceRepo(s),
		plans:    memory.NewPlanRepo(s),
		subs:     memory.NewSubscriptionRepo(s),
		history:  memory.NewHistoryRepo(s),
		tm:       memory.NewTxManager(s),
		gateway:  &MockPaymentGateway{IDValue: "mock"},
		notifier: &MockNotifier{},
	}
	log := newTestLogger()
	f.ledger = usecase.NewLedgerUseCase(f.users, f.wallet, f.tm, log)
	f.receipt = usecase.NewReceiptUseCase(f.receipts, f.users, f.ledger, f.notifier, f.tm, log)
	f.sub = usecase.NewSubscriptionUseCase(f.users, f.plans, f.subs, f.history, f.invoices, f.ledger, "UZS", f.tm, log)
	f.payment = usecase.NewPaymentUseCase(f.invoices, f.users, f.plans, f.ledger, f.sub, NewMockRegistry(f.gateway), f.notifier, "UZS", f.tm, log)
	f.metering = usecase.NewMeteringUseCase(f.users, f.plans, f.subs, f.ledger, f.tm, log)
	f.txs = usecase.NewTransactionsUseCase(f.wallet, f.receipts, log)
	f.stats = usecase.NewStatsUseCase(f.users, f.wallet, f.receipts, log)
	f.plan = usecase.NewPlanUseCase(f.plans, log)
	f.user = usecase.NewUserUseCase(f.users, f.tm, log)
	return f
}

// addUser creates a user and funds it through the ledger so that the
// balance always matches the wallet rows.
func (f *fixture) addUser(t *testing.T, id, balance string) *model.User {
	t.Helper()
	ctx := context.Background()
	u, err := model.NewUser(id, id+"@example.com")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := f.users.Save(ctx, repository.NoTX, u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	if b := dec(balance); b.IsPositive() {
		if _, err := f.ledger.ApplyTransaction(ctx, usecase.LedgerEntry{
			UserID: id, Amount: b, Kind: model.TransactionKindTopUp, Description: "seed",
		}); err != nil {
			t.Fatalf("fund user: %v", err)
		}
	}
	return u
}

func (f *fixture) addAdmin(t *testing.T, id string, finance bool) {
	t.Helper()
	u := f.addUser(t, id, "0")
	u.IsAdmin = !finance
	u.IsFinanceAdmin = finance
	if err := f.users.Save(context.Background(), repository.NoTX, u); err != nil {
		t.Fatalf("save admin: %v", err)
	}
}

func (f *fixture) addPlan(t *testing.T, id, price string, limit int) *model.SubscriptionPlan {
	t.Helper()
	p, err := model.NewSubscriptionPlan(id, "Plan "+id, dec(price), limit, "")
	if err != nil {
		t.Fatalf("new plan: %v", err)
	}
	if err := f.plans.Save(context.Background(), repository.NoTX, p); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	return p
}

func (f *fixture) balance(t *testing.T, id string) decimal.Decimal {
	t.Helper()
	u, err := f.users.FindByID(context.Background(), repository.NoTX, id)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	return u.Balance
}

// assertLedgerInvariant checks balance == sum(wallet rows).
func (f *fixture) assertLedgerInvariant(t *testing.T, id string) {
	t.Helper()
	sum, err := f.wallet.SumByUser(context.Background(), repository.NoTX, id)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if b := f.balance(t, id); !b.Equal(sum) {
		t.Fatalf("ledger invariant broken for %s: balance %s, rows %s", id, b, sum)
	}
}
