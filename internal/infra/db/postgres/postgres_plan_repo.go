package postgres

import (
	"context"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure interface compliance
var _ repository.SubscriptionPlanRepository = (*PlanRepo)(nil)

type PlanRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

const planColumns = `id, name, slug, price, article_limit, description, is_active, created_at`

func scanPlan(row rowScanner) (*model.SubscriptionPlan, error) {
	var p model.SubscriptionPlan
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.ArticleLimit, &p.Description, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepo) Save(ctx context.Context, tx repository.Tx, plan *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE
  SET name          = EXCLUDED.name,
      slug          = EXCLUDED.slug,
      price         = EXCLUDED.price,
      article_limit = EXCLUDED.article_limit,
      description   = EXCLUDED.description,
      is_active     = EXCLUDED.is_active;`
	_, err := execSQL(ctx, r.pool, tx, q,
		plan.ID, plan.Name, plan.Slug, plan.Price, plan.ArticleLimit, plan.Description, plan.IsActive, plan.CreatedAt,
	)
	return opErr(err)
}

func (r *PlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+planColumns+` FROM subscription_plans WHERE id = $1;`, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPlanNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

// ListAll includes inactive plans, cheapest first.
func (r *PlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT `+planColumns+` FROM subscription_plans ORDER BY price ASC, name ASC;`)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()
	var out []*model.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}
