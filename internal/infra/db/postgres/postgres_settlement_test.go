//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Runs the subscription state machine against the real schema so column
// constraints are exercised together with the use case.
func TestSubscribe_Integration(t *testing.T) {
	ctx := context.Background()
	cleanup(t)

	nop := zerolog.Nop()
	users := NewUserRepo(testPool)
	wallet := NewWalletRepo(testPool)
	invoices := NewInvoiceRepo(testPool)
	history := NewHistoryRepo(testPool)
	tm := NewTxManager(testPool)
	ledger := usecase.NewLedgerUseCase(users, wallet, tm, &nop)
	subs := usecase.NewSubscriptionUseCase(users, NewPlanRepo(testPool), NewSubscriptionRepo(testPool), history, invoices, ledger, "UZS", tm, &nop)

	seedUser(t, "u-1", "0")
	seedPlan(t, "basic", "Basic Researcher", "0.00", 1)
	seedPlan(t, "pro", "Professional Author", "9.99", 5)
	if _, err := ledger.ApplyTransaction(ctx, usecase.LedgerEntry{
		UserID: "u-1", Amount: decimal.RequireFromString("20"), Kind: model.TransactionKindTopUp, Description: "seed",
	}); err != nil {
		t.Fatalf("fund: %v", err)
	}

	steps := []struct {
		plan    string
		action  model.SubscriptionAction
		balance string
	}{
		{"pro", model.SubscriptionActionSubscribed, "10.01"},
		{"basic", model.SubscriptionActionDowngraded, "10.01"},
		{"basic", model.SubscriptionActionRenewed, "10.01"},
	}
	for _, s := range steps {
		res, err := subs.Subscribe(ctx, "u-1", s.plan)
		if err != nil {
			t.Fatalf("Subscribe %s: %v", s.plan, err)
		}
		if res.Action != s.action || res.NewBalance.StringFixed(2) != s.balance {
			t.Fatalf("Subscribe %s: got %s / %s, want %s / %s", s.plan, res.Action, res.NewBalance.StringFixed(2), s.action, s.balance)
		}
	}

	invs, err := invoices.ListByUser(ctx, nil, "u-1")
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	free := 0
	for _, inv := range invs {
		if !inv.IsPaid() {
			t.Errorf("subscription invoices are settled immediately: %+v", inv)
		}
		if inv.Amount.IsZero() {
			free++
		}
	}
	if len(invs) != 3 || free != 2 {
		t.Fatalf("expected 3 invoices with 2 free ones, got %d / %d", len(invs), free)
	}

	hist, err := history.ListByUser(ctx, nil, "u-1")
	if err != nil || len(hist) != 3 {
		t.Fatalf("history: %d rows, %v", len(hist), err)
	}

	sum, err := wallet.SumByUser(ctx, nil, "u-1")
	if err != nil {
		t.Fatalf("SumByUser: %v", err)
	}
	u, _ := users.FindByID(ctx, nil, "u-1")
	if !u.Balance.Equal(sum) {
		t.Fatalf("balance %s does not match ledger sum %s", u.Balance, sum)
	}
}
