package model

import (
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the billing view of an account. Identity and profile live in the
// accounts service; here we only keep the balance and the admin roles.
// Balance is mutated exclusively through the ledger.
type User struct {
	ID             string
	Email          string
	Balance        decimal.Decimal
	IsAdmin        bool
	IsFinanceAdmin bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewUser(id, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:        id,
		Email:     email,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// CanManageFinance reports whether the user may see finance reports.
func (u *User) CanManageFinance() bool { return u != nil && (u.IsAdmin || u.IsFinanceAdmin) }
