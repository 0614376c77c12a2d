package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAlreadyProcessed    = errors.New("already processed")
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrInvalidCallback     = errors.New("invalid payment callback")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrLockNotAcquired     = errors.New("lock not acquired")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
	ErrRateLimited         = errors.New("rate limit exceeded")

	// Storage errors
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)

// InsufficientBalanceError carries the amounts behind a failed balance check.
// errors.Is(err, ErrInsufficientBalance) reports true for it.
type InsufficientBalanceError struct {
	Cost    decimal.Decimal
	Balance decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: cost %s, balance %s", e.Cost.StringFixed(2), e.Balance.StringFixed(2))
}

func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }

// Shortfall is how much more the user needs.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	s := e.Cost.Sub(e.Balance)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}
