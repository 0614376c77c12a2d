package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var _ repository.WalletTransactionRepository = (*WalletRepo)(nil)

// WalletRepo is append-only; there is no UPDATE or DELETE on wallet_transactions.
type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, amount, kind, description, receipt_id, invoice_id, created_at`

func (r *WalletRepo) Append(ctx context.Context, tx repository.Tx, t *model.WalletTransaction) error {
	const q = `
INSERT INTO wallet_transactions (` + walletColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.Amount, string(t.Kind), t.Description, t.ReceiptID, t.InvoiceID, t.CreatedAt)
	return opErr(err)
}

func (r *WalletRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.WalletTransaction, error) {
	const q = `SELECT ` + walletColumns + ` FROM wallet_transactions
WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	return r.list(ctx, tx, q, userID, limitArg(limit))
}

func (r *WalletRepo) ListSince(ctx context.Context, tx repository.Tx, since time.Time, limit int) ([]*model.WalletTransaction, error) {
	const q = `SELECT ` + walletColumns + ` FROM wallet_transactions
WHERE created_at >= $1 ORDER BY created_at DESC, id DESC LIMIT $2;`
	return r.list(ctx, tx, q, since, limitArg(limit))
}

func (r *WalletRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.WalletTransaction, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.WalletTransaction
	for rows.Next() {
		var (
			w    model.WalletTransaction
			kind string
		)
		if err := rows.Scan(&w.ID, &w.UserID, &w.Amount, &kind, &w.Description, &w.ReceiptID, &w.InvoiceID, &w.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		w.Kind = model.TransactionKind(kind)
		out = append(out, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}

func (r *WalletRepo) sum(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (decimal.Decimal, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return decimal.Zero, err
	}
	var s decimal.Decimal
	if err := row.Scan(&s); err != nil {
		if err == pgx.ErrNoRows {
			return decimal.Zero, nil
		}
		return decimal.Zero, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *WalletRepo) SumByUser(ctx context.Context, tx repository.Tx, userID string) (decimal.Decimal, error) {
	return r.sum(ctx, tx, `SELECT COALESCE(SUM(amount),0) FROM wallet_transactions WHERE user_id=$1;`, userID)
}

func (r *WalletRepo) SumCreditsByKindSince(ctx context.Context, tx repository.Tx, kind model.TransactionKind, since time.Time) (decimal.Decimal, error) {
	return r.sum(ctx, tx, `SELECT COALESCE(SUM(amount),0) FROM wallet_transactions
WHERE kind=$1 AND amount > 0 AND created_at >= $2;`, string(kind), since)
}
