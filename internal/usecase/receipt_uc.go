package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/adapter"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ ReceiptUseCase = (*receiptUC)(nil)

// ReceiptUseCase handles manual top-ups backed by an uploaded payment slip.
type ReceiptUseCase interface {
	Submit(ctx context.Context, userID string, amount decimal.Decimal, imageRef string) (*model.PaymentReceipt, error)
	// Approve moves a PENDING receipt to APPROVED and credits its amount in
	// the same transaction. A second call fails with ErrAlreadyProcessed.
	Approve(ctx context.Context, actorID, receiptID, notes string) (*model.PaymentReceipt, decimal.Decimal, error)
	Reject(ctx context.Context, actorID, receiptID, notes string) (*model.PaymentReceipt, error)
	ListMine(ctx context.Context, userID string) ([]*model.PaymentReceipt, error)
	ListQueue(ctx context.Context, actorID string, status model.ReceiptStatus, limit int) ([]*model.PaymentReceipt, error)
}

type receiptUC struct {
	receipts repository.ReceiptRepository
	users    repository.UserRepository
	ledger   LedgerUseCase
	notifier adapter.AdminNotifier
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewReceiptUseCase(receipts repository.ReceiptRepository, users repository.UserRepository, ledger LedgerUseCase, notifier adapter.AdminNotifier, tm repository.TransactionManager, logger *zerolog.Logger) *receiptUC {
	return &receiptUC{
		receipts: receipts,
		users:    users,
		ledger:   ledger,
		notifier: notifier,
		tm:       tm,
		log:      logger,
	}
}

func (u *receiptUC) Submit(ctx context.Context, userID string, amount decimal.Decimal, imageRef string) (*model.PaymentReceipt, error) {
	defer logging.TraceDuration(u.log, "ReceiptUC.Submit")()

	if !amount.IsPositive() || strings.TrimSpace(imageRef) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := u.users.FindByID(ctx, repository.NoTX, userID); err != nil {
		return nil, err
	}

	r := &model.PaymentReceipt{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount.Round(2),
		ImageRef:  imageRef,
		Status:    model.ReceiptStatusPending,
		CreatedAt: time.Now(),
	}
	if err := u.receipts.Save(ctx, repository.NoTX, r); err != nil {
		return nil, err
	}
	metrics.IncReceipt(string(r.Status))

	if u.notifier != nil {
		if err := u.notifier.ReceiptSubmitted(ctx, r); err != nil {
			u.log.Warn().Err(err).Str("receipt_id", r.ID).Msg("admin notification failed")
		}
	}
	return r, nil
}

func (u *receiptUC) Approve(ctx context.Context, actorID, receiptID, notes string) (*model.PaymentReceipt, decimal.Decimal, error) {
	defer logging.TraceDuration(u.log, "ReceiptUC.Approve")()

	if _, err := requireAdmin(ctx, u.users, actorID); err != nil {
		return nil, decimal.Zero, err
	}

	var (
		receipt *model.PaymentReceipt
		balance decimal.Decimal
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.receipts.FindByID(ctx, tx, receiptID)
		if err != nil {
			return err
		}
		if !r.IsPending() {
			return domain.ErrAlreadyProcessed
		}
		// user row first, same order as every other balance mutation
		if _, err := u.users.LockForUpdate(ctx, tx, r.UserID); err != nil {
			return err
		}
		now := time.Now()
		ok, err := u.receipts.UpdateStatusIfPending(ctx, tx, r.ID, model.ReceiptStatusApproved, notes, actorID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyProcessed
		}

		balance, err = u.ledger.Apply(ctx, tx, LedgerEntry{
			UserID:      r.UserID,
			Amount:      r.Amount,
			Kind:        model.TransactionKindTopUp,
			Description: fmt.Sprintf("Receipt %s approved", r.ID),
			ReceiptID:   &r.ID,
		})
		if err != nil {
			return err
		}

		r.Status = model.ReceiptStatusApproved
		r.AdminNotes = notes
		r.ProcessedBy = &actorID
		r.ProcessedAt = &now
		receipt = r
		return nil
	})
	if err != nil {
		return nil, decimal.Zero, err
	}

	metrics.IncReceipt(string(model.ReceiptStatusApproved))
	metrics.IncAdminAction("approve_receipt", "ok")
	logging.With(ctx, u.log).Info().
		Str("receipt_id", receipt.ID).
		Str("actor_id", actorID).
		Str("amount", receipt.Amount.StringFixed(2)).
		Msg("receipt approved")
	return receipt, balance, nil
}

func (u *receiptUC) Reject(ctx context.Context, actorID, receiptID, notes string) (*model.PaymentReceipt, error) {
	defer logging.TraceDuration(u.log, "ReceiptUC.Reject")()

	if _, err := requireAdmin(ctx, u.users, actorID); err != nil {
		return nil, err
	}

	var receipt *model.PaymentReceipt
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		r, err := u.receipts.FindByID(ctx, tx, receiptID)
		if err != nil {
			return err
		}
		now := time.Now()
		ok, err := u.receipts.UpdateStatusIfPending(ctx, tx, r.ID, model.ReceiptStatusRejected, notes, actorID, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAlreadyProcessed
		}
		r.Status = model.ReceiptStatusRejected
		r.AdminNotes = notes
		r.ProcessedBy = &actorID
		r.ProcessedAt = &now
		receipt = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncReceipt(string(model.ReceiptStatusRejected))
	metrics.IncAdminAction("reject_receipt", "ok")
	return receipt, nil
}

func (u *receiptUC) ListMine(ctx context.Context, userID string) ([]*model.PaymentReceipt, error) {
	defer logging.TraceDuration(u.log, "ReceiptUC.ListMine")()
	return u.receipts.ListByUser(ctx, repository.NoTX, userID)
}

func (u *receiptUC) ListQueue(ctx context.Context, actorID string, status model.ReceiptStatus, limit int) ([]*model.PaymentReceipt, error) {
	defer logging.TraceDuration(u.log, "ReceiptUC.ListQueue")()

	if _, err := requireAdmin(ctx, u.users, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	return u.receipts.ListByStatus(ctx, repository.NoTX, status, limit)
}
