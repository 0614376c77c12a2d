package repository

import (
	"context"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain/model"
)

type SubscriptionRepository interface {
	// Save upserts by user id; a user owns at most one subscription row.
	Save(ctx context.Context, tx Tx, s *model.UserSubscription) error
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.UserSubscription, error)
	// ListLapsed returns rows whose flag is still set but whose end date passed.
	ListLapsed(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.UserSubscription, error)
	// DeactivateIfActive clears the flag and reports whether it was set.
	DeactivateIfActive(ctx context.Context, tx Tx, userID string) (bool, error)
	CountActive(ctx context.Context, tx Tx, now time.Time) (int, error)
}

type SubscriptionHistoryRepository interface {
	Append(ctx context.Context, tx Tx, h *model.SubscriptionHistory) error
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.SubscriptionHistory, error)
}
