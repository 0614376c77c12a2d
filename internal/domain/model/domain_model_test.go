//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"

	"github.com/shopspring/decimal"
)

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	t.Run("should create a new user with zero balance", func(t *testing.T) {
		user, err := NewUser("", "author@example.com")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user.ID == "" {
			t.Error("expected user ID to be non-empty")
		}
		if !user.Balance.IsZero() {
			t.Errorf("expected zero balance, got %s", user.Balance)
		}
		if user.IsAdmin || user.IsFinanceAdmin {
			t.Error("new users must not be admins")
		}
	})

	t.Run("should fail with empty email", func(t *testing.T) {
		user, err := NewUser("", "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if user != nil {
			t.Error("expected user to be nil on error")
		}
	})
}

// --- Plan Model Tests ---

func TestNewSubscriptionPlan(t *testing.T) {
	t.Run("should build an active plan with a slug", func(t *testing.T) {
		p, err := NewSubscriptionPlan("p1", "Professional Author", decimal.RequireFromString("9.99"), 5, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Slug != "professional-author" {
			t.Errorf("expected slug 'professional-author', got %q", p.Slug)
		}
		if !p.IsActive {
			t.Error("expected plan to be active")
		}
		if p.IsUnlimited() {
			t.Error("limit 5 must not be unlimited")
		}
	})

	t.Run("zero price and zero limit are valid", func(t *testing.T) {
		p, err := NewSubscriptionPlan("p0", "Free", decimal.Zero, 0, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !p.IsUnlimited() {
			t.Error("limit 0 means unlimited")
		}
	})

	t.Run("should reject negative price", func(t *testing.T) {
		_, err := NewSubscriptionPlan("p1", "Bad", decimal.NewFromInt(-1), 0, "")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Basic Researcher":          "basic-researcher",
		"  Institution  Unlimited ": "institution-unlimited",
		"Pro+ (2024)":               "pro-2024",
		"":                          "",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

// --- Subscription Model Tests ---

func TestUserSubscription_IsActive(t *testing.T) {
	now := time.Now()

	t.Run("nil subscription is inactive", func(t *testing.T) {
		var s *UserSubscription
		if s.IsActive(now) {
			t.Error("nil must be inactive")
		}
	})

	t.Run("flag set and end in the future is active", func(t *testing.T) {
		s := &UserSubscription{Active: true, EndDate: now.Add(time.Hour)}
		if !s.IsActive(now) {
			t.Error("expected active")
		}
		if s.IsLapsed(now) {
			t.Error("expected not lapsed")
		}
	})

	t.Run("end date equal to now is inactive even with flag set", func(t *testing.T) {
		s := &UserSubscription{Active: true, EndDate: now}
		if s.IsActive(now) {
			t.Error("end_date <= now must be inactive")
		}
		if !s.IsLapsed(now) {
			t.Error("expected lapsed")
		}
	})

	t.Run("cleared flag is inactive", func(t *testing.T) {
		s := &UserSubscription{Active: false, EndDate: now.Add(time.Hour)}
		if s.IsActive(now) {
			t.Error("expected inactive")
		}
	})
}

func TestClassifyChange(t *testing.T) {
	d := decimal.RequireFromString
	p999 := d("9.99")

	tests := []struct {
		name      string
		current   *decimal.Decimal
		requested decimal.Decimal
		want      SubscriptionAction
	}{
		{"no prior subscription", nil, d("9.99"), SubscriptionActionSubscribed},
		{"higher price upgrades", &p999, d("49.99"), SubscriptionActionUpgraded},
		{"same price renews", &p999, d("9.990"), SubscriptionActionRenewed},
		{"lower price downgrades", &p999, d("0.00"), SubscriptionActionDowngraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyChange(tt.current, tt.requested); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

// --- Ledger Model Tests ---

func TestTransactionKind(t *testing.T) {
	if !TransactionKindSubscription.IsDebit() || !TransactionKindPublishFee.IsDebit() {
		t.Error("SUBSCRIPTION and PUBLISH_FEE are debit kinds")
	}
	if TransactionKindAdjustment.IsDebit() || TransactionKindTopUp.IsDebit() {
		t.Error("ADJUSTMENT and TOP_UP are not debit kinds")
	}
	if TransactionKind("BONUS").Valid() {
		t.Error("unknown kind must be invalid")
	}
}

func TestInvoiceOrderID(t *testing.T) {
	inv := &Invoice{ID: "abc"}
	if inv.OrderID() != "INV-abc" {
		t.Fatalf("unexpected order id %q", inv.OrderID())
	}
	id, ok := InvoiceIDFromOrderID("INV-abc")
	if !ok || id != "abc" {
		t.Fatalf("round trip failed: %q %v", id, ok)
	}
	if _, ok := InvoiceIDFromOrderID("INV-"); ok {
		t.Error("empty id must be rejected")
	}
	if _, ok := InvoiceIDFromOrderID("ORD-1"); ok {
		t.Error("foreign prefix must be rejected")
	}
}

func TestInsufficientBalanceError(t *testing.T) {
	err := error(&domain.InsufficientBalanceError{Cost: decimal.NewFromInt(25), Balance: decimal.NewFromInt(10)})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatal("expected errors.Is to match ErrInsufficientBalance")
	}
	var ibe *domain.InsufficientBalanceError
	if !errors.As(err, &ibe) {
		t.Fatal("expected errors.As to succeed")
	}
	if !ibe.Shortfall().Equal(decimal.NewFromInt(15)) {
		t.Errorf("expected shortfall 15, got %s", ibe.Shortfall())
	}
}
