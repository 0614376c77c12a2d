package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, balance, is_admin, is_finance_admin, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.Balance, &u.IsAdmin, &u.IsFinanceAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &u, nil
}

// Save upserts profile and role fields. The balance is only written on
// insert; afterwards it changes through UpdateBalance alone.
func (r *UserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, email, balance, is_admin, is_finance_admin, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  email=EXCLUDED.email, is_admin=EXCLUDED.is_admin,
  is_finance_admin=EXCLUDED.is_finance_admin, updated_at=EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.Email, u.Balance, u.IsAdmin, u.IsFinanceAdmin, u.CreatedAt, u.UpdatedAt)
	return opErr(err)
}

func (r *UserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *UserRepo) LockForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	if _, ok := tx.(pgx.Tx); !ok {
		return nil, domain.ErrInvalidExecContext
	}
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT `+userColumns+` FROM users WHERE id=$1`, tx), id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *UserRepo) UpdateBalance(ctx context.Context, tx repository.Tx, id string, balance decimal.Decimal) error {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE users SET balance=$2, updated_at=NOW() WHERE id=$1;`, id, balance)
	if err != nil {
		return opErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) CountWithPositiveBalance(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users WHERE balance > 0;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
