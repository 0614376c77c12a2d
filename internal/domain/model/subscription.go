package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionPeriod is the length of one paid cycle.
const SubscriptionPeriod = 30 * 24 * time.Hour

// UserSubscription is the single subscription record of a user. It is
// replaced on every subscribe/renew/upgrade/downgrade.
type UserSubscription struct {
	ID                    string
	UserID                string
	PlanID                string
	StartDate             time.Time
	EndDate               time.Time
	Active                bool
	ArticlesUsedThisMonth int
	UpdatedAt             time.Time
}

// IsActive is the only place deciding whether a subscription is in force.
// A stale Active flag is ignored once EndDate has passed.
func (s *UserSubscription) IsActive(now time.Time) bool {
	return s != nil && s.Active && s.EndDate.After(now)
}

// IsLapsed reports a subscription whose flag is still set but whose period is over.
func (s *UserSubscription) IsLapsed(now time.Time) bool {
	return s != nil && s.Active && !s.EndDate.After(now)
}

type SubscriptionAction string

const (
	SubscriptionActionSubscribed SubscriptionAction = "SUBSCRIBED"
	SubscriptionActionRenewed    SubscriptionAction = "RENEWED"
	SubscriptionActionUpgraded   SubscriptionAction = "UPGRADED"
	SubscriptionActionDowngraded SubscriptionAction = "DOWNGRADED"
	SubscriptionActionCancelled  SubscriptionAction = "CANCELLED"
	SubscriptionActionExpired    SubscriptionAction = "EXPIRED"
)

// ClassifyChange decides the action for moving from the current plan price
// to the requested one. Equal prices always renew.
func ClassifyChange(current *decimal.Decimal, requested decimal.Decimal) SubscriptionAction {
	if current == nil {
		return SubscriptionActionSubscribed
	}
	switch requested.Cmp(*current) {
	case 1:
		return SubscriptionActionUpgraded
	case -1:
		return SubscriptionActionDowngraded
	default:
		return SubscriptionActionRenewed
	}
}

// SubscriptionHistory is an append-only audit row, one per transition.
type SubscriptionHistory struct {
	ID         string
	UserID     string
	PlanID     string
	Action     SubscriptionAction
	AmountPaid decimal.Decimal
	InvoiceID  *string
	Notes      string
	CreatedAt  time.Time
}
