package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var (
	_ repository.SubscriptionRepository        = (*SubscriptionRepo)(nil)
	_ repository.SubscriptionHistoryRepository = (*HistoryRepo)(nil)
)

type SubscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *SubscriptionRepo {
	return &SubscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, start_date, end_date, is_active, articles_used_this_month, updated_at`

func scanSubscription(row rowScanner) (*model.UserSubscription, error) {
	var s model.UserSubscription
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.StartDate, &s.EndDate, &s.Active, &s.ArticlesUsedThisMonth, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save upserts on user_id: a user owns one subscription row.
func (r *SubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.UserSubscription) error {
	const q = `
INSERT INTO user_subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (user_id) DO UPDATE SET
  plan_id=EXCLUDED.plan_id, start_date=EXCLUDED.start_date, end_date=EXCLUDED.end_date,
  is_active=EXCLUDED.is_active, articles_used_this_month=EXCLUDED.articles_used_this_month,
  updated_at=EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.PlanID, s.StartDate, s.EndDate, s.Active, s.ArticlesUsedThisMonth, s.UpdatedAt)
	return opErr(err)
}

func (r *SubscriptionRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserSubscription, error) {
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT `+subscriptionColumns+` FROM user_subscriptions WHERE user_id=$1`, tx), userID)
	if err != nil {
		return nil, err
	}
	s, err := scanSubscription(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return s, nil
}

func (r *SubscriptionRepo) ListLapsed(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.UserSubscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+subscriptionColumns+` FROM user_subscriptions
WHERE is_active AND end_date <= $1 ORDER BY end_date ASC LIMIT $2;`, now, limitArg(limit))
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()
	var out []*model.UserSubscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}

func (r *SubscriptionRepo) DeactivateIfActive(ctx context.Context, tx repository.Tx, userID string) (bool, error) {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE user_subscriptions SET is_active=FALSE, updated_at=NOW() WHERE user_id=$1 AND is_active;`, userID)
	if err != nil {
		return false, opErr(err)
	}
	return ct.RowsAffected() >= 1, nil
}

func (r *SubscriptionRepo) CountActive(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM user_subscriptions WHERE is_active AND end_date > $1;`, now)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

func (r *HistoryRepo) Append(ctx context.Context, tx repository.Tx, h *model.SubscriptionHistory) error {
	const q = `
INSERT INTO subscription_history (id, user_id, plan_id, action, amount_paid, invoice_id, notes, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, h.ID, h.UserID, h.PlanID, string(h.Action), h.AmountPaid, h.InvoiceID, h.Notes, h.CreatedAt)
	return opErr(err)
}

func (r *HistoryRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.SubscriptionHistory, error) {
	const q = `
SELECT id, user_id, plan_id, action, amount_paid, invoice_id, notes, created_at
  FROM subscription_history
 WHERE user_id=$1
 ORDER BY created_at DESC, id DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()
	var out []*model.SubscriptionHistory
	for rows.Next() {
		var (
			h      model.SubscriptionHistory
			action string
		)
		if err := rows.Scan(&h.ID, &h.UserID, &h.PlanID, &action, &h.AmountPaid, &h.InvoiceID, &h.Notes, &h.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		h.Action = model.SubscriptionAction(action)
		out = append(out, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}
