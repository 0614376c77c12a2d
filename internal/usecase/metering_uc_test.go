//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/usecase"
)

func submission(user, price string, pages int) usecase.Submission {
	return usecase.Submission{UserID: user, JournalName: "Physics Letters", PricePerPage: dec(price), PageCount: pages}
}

func TestMeteringUseCase_QuotaThenFee(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "20000")
	f.addPlan(t, "pro", "9.99", 5)
	if _, err := f.sub.Subscribe(ctx, "u1", "pro"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	afterSubscribe := f.balance(t, "u1")

	for i := 1; i <= 5; i++ {
		c, err := f.metering.ChargeSubmission(ctx, submission("u1", "1000", 10))
		if err != nil {
			t.Fatalf("submission %d: %v", i, err)
		}
		if c.Mode != usecase.MeteringModeQuota || c.Charged || c.QuotaUsed != i || c.QuotaLimit != 5 {
			t.Fatalf("submission %d: unexpected charge %+v", i, c)
		}
	}
	if b := f.balance(t, "u1"); !b.Equal(afterSubscribe) {
		t.Fatalf("quota submissions charged: %s", b)
	}

	c, err := f.metering.ChargeSubmission(ctx, submission("u1", "1000", 10))
	if err != nil {
		t.Fatalf("6th submission: %v", err)
	}
	if c.Mode != usecase.MeteringModeFee || !c.Charged || !c.Cost.Equal(dec("10000")) || c.QuotaUsed != 5 {
		t.Fatalf("unexpected 6th charge %+v", c)
	}
	if want := afterSubscribe.Sub(dec("10000")); !c.NewBalance.Equal(want) {
		t.Errorf("expected balance %s, got %s", want, c.NewBalance)
	}
	sub, _ := f.subs.FindByUser(ctx, repository.NoTX, "u1")
	if sub.ArticlesUsedThisMonth != 5 {
		t.Errorf("counter moved past the limit: %d", sub.ArticlesUsedThisMonth)
	}
	f.assertLedgerInvariant(t, "u1")
}

func TestMeteringUseCase_Modes(t *testing.T) {
	ctx := context.Background()

	t.Run("unlimited plan never charges", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "u1", "100")
		f.addPlan(t, "inst", "49.99", 0)
		_, _ = f.sub.Subscribe(ctx, "u1", "inst")
		c, err := f.metering.ChargeSubmission(ctx, submission("u1", "1000", 10))
		if err != nil || c.Mode != usecase.MeteringModeUnlimited || c.Charged {
			t.Fatalf("unexpected %+v %v", c, err)
		}
		sub, _ := f.subs.FindByUser(ctx, repository.NoTX, "u1")
		if sub.ArticlesUsedThisMonth != 0 {
			t.Errorf("unlimited plan must not count usage")
		}
	})

	t.Run("free journal without subscription", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "u1", "0")
		c, err := f.metering.ChargeSubmission(ctx, submission("u1", "0", 12))
		if err != nil || c.Mode != usecase.MeteringModeFree || c.Charged {
			t.Fatalf("unexpected %+v %v", c, err)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "u1", "50")
		_, err := f.metering.ChargeSubmission(ctx, submission("u1", "10", 6))
		var ib *domain.InsufficientBalanceError
		if !errors.As(err, &ib) || !ib.Cost.Equal(dec("60")) || !ib.Balance.Equal(dec("50")) {
			t.Fatalf("expected insufficient balance 60/50, got %v", err)
		}
		if b := f.balance(t, "u1"); !b.Equal(dec("50")) {
			t.Errorf("balance changed: %s", b)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)
		f.addUser(t, "u1", "50")
		if _, err := f.metering.ChargeSubmission(ctx, submission("u1", "-1", 1)); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := f.metering.ChargeSubmission(ctx, submission("u1", "1", -1)); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestMeteringUseCase_ConcurrentSubmissionsShareQuota(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "u1", "1000")
	f.addPlan(t, "basic", "0.00", 1)
	if _, err := f.sub.Subscribe(ctx, "u1", "basic"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		modes = map[usecase.MeteringMode]int{}
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := f.metering.ChargeSubmission(ctx, submission("u1", "10", 1))
			if err != nil {
				t.Errorf("charge: %v", err)
				return
			}
			mu.Lock()
			modes[c.Mode]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if modes[usecase.MeteringModeQuota] != 1 || modes[usecase.MeteringModeFee] != 3 {
		t.Fatalf("expected 1 quota and 3 fee submissions, got %v", modes)
	}
	if b := f.balance(t, "u1"); !b.Equal(dec("970")) {
		t.Errorf("expected 970, got %s", b)
	}
	rows, _ := f.wallet.ListByUser(ctx, repository.NoTX, "u1", 0)
	fees := 0
	for _, r := range rows {
		if r.Kind == model.TransactionKindPublishFee {
			fees++
		}
	}
	if fees != 3 {
		t.Errorf("expected 3 fee rows, got %d", fees)
	}
}
