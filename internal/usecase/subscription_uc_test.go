//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

func TestSubscriptionUseCase_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "10.00")
	f.addPlan(t, "pro", "25.00", 5)

	_, err := f.sub.Subscribe(ctx, "u1", "pro")
	var ib *domain.InsufficientBalanceError
	if !errors.As(err, &ib) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if !ib.Shortfall().Equal(dec("15")) {
		t.Errorf("expected shortfall 15, got %s", ib.Shortfall())
	}
	if b := f.balance(t, "u1"); !b.Equal(dec("10")) {
		t.Errorf("balance changed: %s", b)
	}
	hist, _ := f.sub.History(ctx, "u1")
	if len(hist) != 0 {
		t.Errorf("expected no history rows, got %d", len(hist))
	}
	invs, _ := f.invoices.ListByUser(ctx, repository.NoTX, "u1")
	if len(invs) != 0 {
		t.Errorf("expected no invoices, got %d", len(invs))
	}
}

func TestSubscriptionUseCase_Classification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "200")
	f.addPlan(t, "pro", "9.99", 5)
	f.addPlan(t, "inst", "49.99", 0)
	f.addPlan(t, "basic", "0.00", 1)

	steps := []struct {
		plan    string
		action  model.SubscriptionAction
		balance string
	}{
		{"pro", model.SubscriptionActionSubscribed, "190.01"},
		{"inst", model.SubscriptionActionUpgraded, "140.02"},
		{"inst", model.SubscriptionActionRenewed, "90.03"},
		{"basic", model.SubscriptionActionDowngraded, "90.03"},
	}
	for _, st := range steps {
		res, err := f.sub.Subscribe(ctx, "u1", st.plan)
		if err != nil {
			t.Fatalf("subscribe %s: %v", st.plan, err)
		}
		if res.Action != st.action {
			t.Errorf("plan %s: expected %s, got %s", st.plan, st.action, res.Action)
		}
		if !res.NewBalance.Equal(dec(st.balance)) {
			t.Errorf("plan %s: expected balance %s, got %s", st.plan, st.balance, res.NewBalance)
		}
		if res.Subscription.ArticlesUsedThisMonth != 0 || !res.Subscription.Active || res.Subscription.PlanID != st.plan {
			t.Errorf("subscription not replaced: %+v", res.Subscription)
		}
		if !res.Invoice.IsPaid() || res.Invoice.Provider != model.ProviderBalance {
			t.Errorf("expected a PAID balance invoice, got %+v", res.Invoice)
		}
	}

	hist, _ := f.sub.History(ctx, "u1")
	if len(hist) != 4 {
		t.Fatalf("expected 4 history rows, got %d", len(hist))
	}
	if hist[0].Action != model.SubscriptionActionDowngraded || hist[3].Action != model.SubscriptionActionSubscribed {
		t.Errorf("history not newest first: %s ... %s", hist[0].Action, hist[3].Action)
	}
	if hist[3].InvoiceID == nil {
		t.Error("history row should reference its invoice")
	}
	f.assertLedgerInvariant(t, "u1")
}

func TestSubscriptionUseCase_FreePlanLeavesNoWalletRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "0")
	f.addPlan(t, "basic", "0.00", 1)

	res, err := f.sub.Subscribe(ctx, "u1", "basic")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if res.Action != model.SubscriptionActionSubscribed || !res.NewBalance.IsZero() {
		t.Errorf("unexpected result %+v", res)
	}
	rows, _ := f.wallet.ListByUser(ctx, repository.NoTX, "u1", 0)
	if len(rows) != 0 {
		t.Errorf("expected no wallet rows, got %d", len(rows))
	}
}

func TestSubscriptionUseCase_PlanNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "100")
	p := f.addPlan(t, "old", "1.00", 1)
	p.IsActive = false
	_ = f.plans.Save(ctx, repository.NoTX, p)

	for _, id := range []string{"missing", "old"} {
		if _, err := f.sub.Subscribe(ctx, "u1", id); !errors.Is(err, domain.ErrPlanNotFound) {
			t.Errorf("plan %s: expected ErrPlanNotFound, got %v", id, err)
		}
	}
}

func TestSubscriptionUseCase_ConcurrentDebitRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "9.99")
	f.addPlan(t, "pro", "9.99", 5)

	const callers = 2
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, declined int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.sub.Subscribe(ctx, "u1", "pro")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientBalance):
				declined++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 1 || declined != 1 {
		t.Fatalf("expected one success and one decline, got %d/%d", ok, declined)
	}
	if b := f.balance(t, "u1"); !b.IsZero() {
		t.Fatalf("expected a single deduction, balance %s", b)
	}
	hist, _ := f.sub.History(ctx, "u1")
	if len(hist) != 1 {
		t.Errorf("expected one history row, got %d", len(hist))
	}
	f.assertLedgerInvariant(t, "u1")
}

func TestSubscriptionUseCase_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "0")
	f.addPlan(t, "basic", "0.00", 1)

	now := time.Now()
	_ = f.subs.Save(ctx, repository.NoTX, &model.UserSubscription{
		ID: "s1", UserID: "u1", PlanID: "basic", Active: true,
		StartDate: now.Add(-31 * 24 * time.Hour), EndDate: now.Add(-time.Hour),
	})

	if _, _, err := f.sub.GetActive(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("lapsed subscription must read as inactive, got %v", err)
	}
	stored, _ := f.subs.FindByUser(ctx, repository.NoTX, "u1")
	if stored.Active {
		t.Error("expected the flag to be flipped lazily")
	}
	hist, _ := f.sub.History(ctx, "u1")
	if len(hist) != 1 || hist[0].Action != model.SubscriptionActionExpired {
		t.Fatalf("expected one EXPIRED row, got %+v", hist)
	}

	// a second read does not write another row
	_, _, _ = f.sub.GetActive(ctx, "u1")
	if n, _ := f.sub.ExpireLapsed(ctx, 10); n != 0 {
		t.Errorf("nothing left to expire, got %d", n)
	}
	hist, _ = f.sub.History(ctx, "u1")
	if len(hist) != 1 {
		t.Errorf("expected history to stay at 1 row, got %d", len(hist))
	}
}

func TestSubscriptionUseCase_ExpireLapsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now()
	for _, id := range []string{"u1", "u2", "u3"} {
		f.addUser(t, id, "0")
	}
	f.addPlan(t, "basic", "0.00", 1)
	_ = f.subs.Save(ctx, repository.NoTX, &model.UserSubscription{ID: "s1", UserID: "u1", PlanID: "basic", Active: true, EndDate: now.Add(-time.Minute)})
	_ = f.subs.Save(ctx, repository.NoTX, &model.UserSubscription{ID: "s2", UserID: "u2", PlanID: "basic", Active: true, EndDate: now.Add(-time.Hour)})
	_ = f.subs.Save(ctx, repository.NoTX, &model.UserSubscription{ID: "s3", UserID: "u3", PlanID: "basic", Active: true, EndDate: now.Add(time.Hour)})

	n, err := f.sub.ExpireLapsed(ctx, 10)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 expirations, got %d", n)
	}
	if _, _, err := f.sub.GetActive(ctx, "u3"); err != nil {
		t.Errorf("u3 should still be active: %v", err)
	}
}

func TestSubscriptionUseCase_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "20")
	f.addPlan(t, "pro", "9.99", 5)

	if _, err := f.sub.Cancel(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("cancel without subscription: expected ErrNotFound, got %v", err)
	}
	if _, err := f.sub.Subscribe(ctx, "u1", "pro"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub, err := f.sub.Cancel(ctx, "u1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sub.Active {
		t.Error("expected inactive subscription")
	}
	if _, _, err := f.sub.GetActive(ctx, "u1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected no active subscription, got %v", err)
	}
	hist, _ := f.sub.History(ctx, "u1")
	if hist[0].Action != model.SubscriptionActionCancelled {
		t.Errorf("expected CANCELLED on top, got %s", hist[0].Action)
	}
	// no refund
	if b := f.balance(t, "u1"); !b.Equal(dec("10.01")) {
		t.Errorf("expected 10.01, got %s", b)
	}

	// re-subscribing after cancel starts over
	res, err := f.sub.Subscribe(ctx, "u1", "pro")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if res.Action != model.SubscriptionActionSubscribed {
		t.Errorf("expected SUBSCRIBED, got %s", res.Action)
	}
}
