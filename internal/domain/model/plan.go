package model

import (
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"

	"github.com/shopspring/decimal"
)

// SubscriptionPlan is reference data managed by the admin surface.
// ArticleLimit of zero means unlimited submissions.
type SubscriptionPlan struct {
	ID           string
	Name         string
	Slug         string
	Price        decimal.Decimal
	ArticleLimit int
	Description  string
	IsActive     bool
	CreatedAt    time.Time
}

func (p *SubscriptionPlan) IsZero() bool     { return p == nil || p.ID == "" }
func (p *SubscriptionPlan) IsUnlimited() bool { return p.ArticleLimit == 0 }

// NewSubscriptionPlan validates and constructs an active plan.
func NewSubscriptionPlan(id, name string, price decimal.Decimal, articleLimit int, description string) (*SubscriptionPlan, error) {
	if id == "" || strings.TrimSpace(name) == "" || price.IsNegative() || articleLimit < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &SubscriptionPlan{
		ID:           id,
		Name:         name,
		Slug:         Slugify(name),
		Price:        price,
		ArticleLimit: articleLimit,
		Description:  description,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}, nil
}

// Slugify lowercases s and joins alphanumeric runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
