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

var _ repository.ReceiptRepository = (*ReceiptRepo)(nil)

type ReceiptRepo struct {
	pool *pgxpool.Pool
}

func NewReceiptRepo(pool *pgxpool.Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

const receiptColumns = `id, user_id, amount, image_ref, status, admin_notes, processed_by, created_at, processed_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row rowScanner) (*model.PaymentReceipt, error) {
	var (
		rc     model.PaymentReceipt
		status string
	)
	if err := row.Scan(&rc.ID, &rc.UserID, &rc.Amount, &rc.ImageRef, &status, &rc.AdminNotes, &rc.ProcessedBy, &rc.CreatedAt, &rc.ProcessedAt); err != nil {
		return nil, err
	}
	rc.Status = model.ReceiptStatus(status)
	return &rc, nil
}

func (r *ReceiptRepo) Save(ctx context.Context, tx repository.Tx, rc *model.PaymentReceipt) error {
	const q = `
INSERT INTO payment_receipts (` + receiptColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET
  amount=EXCLUDED.amount, image_ref=EXCLUDED.image_ref;`
	_, err := execSQL(ctx, r.pool, tx, q, rc.ID, rc.UserID, rc.Amount, rc.ImageRef, string(rc.Status), rc.AdminNotes, rc.ProcessedBy, rc.CreatedAt, rc.ProcessedAt)
	return opErr(err)
}

func (r *ReceiptRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentReceipt, error) {
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT `+receiptColumns+` FROM payment_receipts WHERE id=$1`, tx), id)
	if err != nil {
		return nil, err
	}
	rc, err := scanReceipt(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return rc, nil
}

func (r *ReceiptRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.ReceiptStatus, notes string, processedBy string, processedAt time.Time) (bool, error) {
	const q = `
UPDATE payment_receipts
   SET status=$2, admin_notes=$3, processed_by=$4, processed_at=$5
 WHERE id=$1 AND status='PENDING';`
	ct, err := execSQL(ctx, r.pool, tx, q, id, string(status), notes, processedBy, processedAt)
	if err != nil {
		return false, opErr(err)
	}
	return ct.RowsAffected() >= 1, nil
}

func (r *ReceiptRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.PaymentReceipt, error) {
	return r.list(ctx, tx, `SELECT `+receiptColumns+` FROM payment_receipts
WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
}

// ListByStatus lists every status when status is empty.
func (r *ReceiptRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.ReceiptStatus, limit int) ([]*model.PaymentReceipt, error) {
	return r.list(ctx, tx, `SELECT `+receiptColumns+` FROM payment_receipts
WHERE ($1 = '' OR status=$1) ORDER BY created_at DESC LIMIT $2;`, string(status), limitArg(limit))
}

func (r *ReceiptRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.PaymentReceipt, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.PaymentReceipt
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}

func (r *ReceiptRepo) PendingTotals(ctx context.Context, tx repository.Tx) (int, decimal.Decimal, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*), COALESCE(SUM(amount),0) FROM payment_receipts WHERE status='PENDING';`)
	if err != nil {
		return 0, decimal.Zero, err
	}
	var (
		n   int
		sum decimal.Decimal
	)
	if err := row.Scan(&n, &sum); err != nil {
		if err == pgx.ErrNoRows {
			return 0, decimal.Zero, nil
		}
		return 0, decimal.Zero, domain.ErrReadDatabaseRow
	}
	return n, sum, nil
}
