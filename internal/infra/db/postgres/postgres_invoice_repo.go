package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

const invoiceColumns = `id, user_id, amount, currency, description, status, purpose, plan_id,
provider, transaction_id, provider_txn_id, created_at, paid_at`

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var (
		inv             model.Invoice
		status, purpose string
	)
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.Amount, &inv.Currency, &inv.Description, &status, &purpose, &inv.PlanID,
		&inv.Provider, &inv.TransactionID, &inv.ProviderTxnID, &inv.CreatedAt, &inv.PaidAt); err != nil {
		return nil, err
	}
	inv.Status = model.InvoiceStatus(status)
	inv.Purpose = model.InvoicePurpose(purpose)
	return &inv, nil
}

func (r *InvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	const q = `
INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
  description=EXCLUDED.description, provider=EXCLUDED.provider,
  transaction_id=EXCLUDED.transaction_id, provider_txn_id=EXCLUDED.provider_txn_id;`
	_, err := execSQL(ctx, r.pool, tx, q, inv.ID, inv.UserID, inv.Amount, inv.Currency, inv.Description,
		string(inv.Status), string(inv.Purpose), inv.PlanID, inv.Provider, inv.TransactionID, inv.ProviderTxnID,
		inv.CreatedAt, inv.PaidAt)
	return opErr(err)
}

func (r *InvoiceRepo) findOne(ctx context.Context, tx repository.Tx, where string, args ...interface{}) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, tx, forUpdate(`SELECT `+invoiceColumns+` FROM invoices WHERE `+where+` LIMIT 1`, tx), args...)
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return inv, nil
}

func (r *InvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *InvoiceRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Invoice, error) {
	if transactionID == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, `transaction_id=$1`, transactionID)
}

func (r *InvoiceRepo) FindByProviderTxnID(ctx context.Context, tx repository.Tx, provider, providerTxnID string) (*model.Invoice, error) {
	if providerTxnID == "" {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, tx, `provider=$1 AND provider_txn_id=$2`, provider, providerTxnID)
}

func (r *InvoiceRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Invoice, error) {
	return r.list(ctx, tx, `SELECT `+invoiceColumns+` FROM invoices WHERE user_id=$1 ORDER BY created_at DESC;`, userID)
}

// ListPendingOlderThan returns gateway invoices still PENDING, oldest first.
func (r *InvoiceRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Invoice, error) {
	return r.list(ctx, tx, `SELECT `+invoiceColumns+` FROM invoices
WHERE status='PENDING' AND provider <> '' AND provider <> $2 AND created_at < $1
ORDER BY created_at ASC LIMIT $3;`, olderThan, model.ProviderBalance, limitArg(limit))
}

func (r *InvoiceRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Invoice, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, opErr(err)
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(err)
	}
	return out, nil
}

// BindProvider leaves a column unchanged when its argument is empty.
func (r *InvoiceRepo) BindProvider(ctx context.Context, tx repository.Tx, id, provider, transactionID, providerTxnID string) error {
	const q = `
UPDATE invoices SET
  provider_txn_id = CASE WHEN $2::text IS DISTINCT FROM provider AND $2::text IS NOT NULL
                         THEN $4::text ELSE COALESCE($4::text, provider_txn_id) END,
  provider        = COALESCE($2::text, provider),
  transaction_id  = COALESCE($3::text, transaction_id)
WHERE id=$1;`
	ct, err := execSQL(ctx, r.pool, tx, q, id, nullIfEmpty(provider), nullIfEmpty(transactionID), nullIfEmpty(providerTxnID))
	if err != nil {
		return opErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InvoiceRepo) MarkPaidIfPending(ctx context.Context, tx repository.Tx, id string, providerTxnID string, paidAt time.Time) (bool, error) {
	const q = `
UPDATE invoices SET
  status='PAID', paid_at=$2,
  provider_txn_id = COALESCE($3, provider_txn_id)
WHERE id=$1 AND status='PENDING';`
	ct, err := execSQL(ctx, r.pool, tx, q, id, paidAt, nullIfEmpty(providerTxnID))
	if err != nil {
		return false, opErr(err)
	}
	return ct.RowsAffected() >= 1, nil
}

func (r *InvoiceRepo) MarkFailedIfPending(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	ct, err := execSQL(ctx, r.pool, tx, `UPDATE invoices SET status='FAILED' WHERE id=$1 AND status='PENDING';`, id)
	if err != nil {
		return false, opErr(err)
	}
	return ct.RowsAffected() >= 1, nil
}
