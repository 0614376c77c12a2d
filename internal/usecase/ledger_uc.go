package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"
	"github.com/abdulbosit19980204/journal/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerEntry describes one balance change. Amount is signed: credits are
// positive, debits negative.
type LedgerEntry struct {
	UserID      string
	Amount      decimal.Decimal
	Kind        model.TransactionKind
	Description string
	ReceiptID   *string
	InvoiceID   *string
}

// LedgerAudit compares the stored balance with the sum of the user's rows.
type LedgerAudit struct {
	UserID     string
	Balance    decimal.Decimal
	LedgerSum  decimal.Decimal
	Consistent bool
}

// LedgerUseCase is the only writer of balances and wallet transactions.
type LedgerUseCase interface {
	// Apply records entry inside tx, which must be a transaction handle, and
	// returns the new balance. It takes the user's row lock before reading
	// the balance, so callers may run it after their own LockForUpdate.
	Apply(ctx context.Context, tx repository.Tx, entry LedgerEntry) (decimal.Decimal, error)
	// ApplyTransaction runs Apply in its own transaction.
	ApplyTransaction(ctx context.Context, entry LedgerEntry) (decimal.Decimal, error)
	// Adjust is the administrative override; it skips the non-negative check.
	Adjust(ctx context.Context, actorID, userID string, amount decimal.Decimal, notes string) (decimal.Decimal, error)
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	History(ctx context.Context, userID string, limit int) ([]*model.WalletTransaction, error)
	Audit(ctx context.Context, actorID, userID string) (*LedgerAudit, error)
}

type ledgerUC struct {
	users  repository.UserRepository
	wallet repository.WalletTransactionRepository
	tm     repository.TransactionManager
	log    *zerolog.Logger
}

func NewLedgerUseCase(users repository.UserRepository, wallet repository.WalletTransactionRepository, tm repository.TransactionManager, logger *zerolog.Logger) *ledgerUC {
	return &ledgerUC{
		users:  users,
		wallet: wallet,
		tm:     tm,
		log:    logger,
	}
}

func validateEntry(e LedgerEntry) error {
	if e.UserID == "" || !e.Kind.Valid() || e.Amount.IsZero() {
		return domain.ErrInvalidArgument
	}
	switch {
	case e.Kind == model.TransactionKindTopUp && !e.Amount.IsPositive():
		return domain.ErrInvalidArgument
	case e.Kind.IsDebit() && !e.Amount.IsNegative():
		return domain.ErrInvalidArgument
	}
	return nil
}

func (u *ledgerUC) Apply(ctx context.Context, tx repository.Tx, e LedgerEntry) (decimal.Decimal, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.Apply")()

	if err := validateEntry(e); err != nil {
		return decimal.Zero, err
	}
	user, err := u.users.LockForUpdate(ctx, tx, e.UserID)
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := user.Balance.Add(e.Amount)
	if e.Kind.IsDebit() && newBalance.IsNegative() {
		metrics.IncInsufficientBalance(string(e.Kind))
		return decimal.Zero, &domain.InsufficientBalanceError{Cost: e.Amount.Neg(), Balance: user.Balance}
	}

	if err := u.users.UpdateBalance(ctx, tx, user.ID, newBalance); err != nil {
		return decimal.Zero, err
	}
	row := &model.WalletTransaction{
		ID:          ulid.Make().String(),
		UserID:      user.ID,
		Amount:      e.Amount,
		Kind:        e.Kind,
		Description: e.Description,
		ReceiptID:   e.ReceiptID,
		InvoiceID:   e.InvoiceID,
		CreatedAt:   time.Now(),
	}
	if err := u.wallet.Append(ctx, tx, row); err != nil {
		return decimal.Zero, err
	}

	metrics.ObserveLedgerTransaction(string(e.Kind), e.Amount)
	logging.With(ctx, u.log).Info().
		Str("user_id", user.ID).
		Str("kind", string(e.Kind)).
		Str("amount", e.Amount.StringFixed(2)).
		Str("balance", newBalance.StringFixed(2)).
		Msg("ledger transaction applied")
	return newBalance, nil
}

func (u *ledgerUC) ApplyTransaction(ctx context.Context, e LedgerEntry) (decimal.Decimal, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.ApplyTransaction")()

	var balance decimal.Decimal
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		b, err := u.Apply(ctx, tx, e)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	return balance, err
}

func (u *ledgerUC) Adjust(ctx context.Context, actorID, userID string, amount decimal.Decimal, notes string) (decimal.Decimal, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.Adjust")()

	if _, err := requireAdmin(ctx, u.users, actorID); err != nil {
		metrics.IncAdminAction("adjust_balance", "denied")
		return decimal.Zero, err
	}
	desc := "Manual adjustment"
	if notes != "" {
		desc += ": " + notes
	}
	balance, err := u.ApplyTransaction(ctx, LedgerEntry{
		UserID:      userID,
		Amount:      amount,
		Kind:        model.TransactionKindAdjustment,
		Description: desc,
	})
	if err != nil {
		metrics.IncAdminAction("adjust_balance", "error")
		return decimal.Zero, err
	}
	metrics.IncAdminAction("adjust_balance", "ok")
	logging.With(ctx, u.log).Warn().
		Str("actor_id", actorID).
		Str("user_id", userID).
		Str("amount", amount.StringFixed(2)).
		Msg("balance adjusted by admin")
	return balance, nil
}

func (u *ledgerUC) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.Balance")()

	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

func (u *ledgerUC) History(ctx context.Context, userID string, limit int) ([]*model.WalletTransaction, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.History")()
	return u.wallet.ListByUser(ctx, repository.NoTX, userID, limit)
}

func (u *ledgerUC) Audit(ctx context.Context, actorID, userID string) (*LedgerAudit, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.Audit")()

	if _, err := requireFinance(ctx, u.users, actorID); err != nil {
		return nil, err
	}

	var audit *LedgerAudit
	// The row lock keeps balance and rows from moving between the two reads.
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		sum, err := u.wallet.SumByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		audit = &LedgerAudit{
			UserID:     userID,
			Balance:    user.Balance,
			LedgerSum:  sum,
			Consistent: user.Balance.Equal(sum),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !audit.Consistent {
		u.log.Error().
			Str("user_id", userID).
			Str("balance", audit.Balance.StringFixed(2)).
			Str("ledger_sum", audit.LedgerSum.StringFixed(2)).
			Msg("ledger invariant violated")
	}
	return audit, nil
}

// requireAdmin loads the actor and checks the admin role. An unknown actor
// is reported as unauthorized rather than not found.
func requireAdmin(ctx context.Context, users repository.UserRepository, actorID string) (*model.User, error) {
	actor, err := loadActor(ctx, users, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, domain.ErrUnauthorized
	}
	return actor, nil
}

func requireFinance(ctx context.Context, users repository.UserRepository, actorID string) (*model.User, error) {
	actor, err := loadActor(ctx, users, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManageFinance() {
		return nil, domain.ErrUnauthorized
	}
	return actor, nil
}

func loadActor(ctx context.Context, users repository.UserRepository, actorID string) (*model.User, error) {
	if actorID == "" {
		return nil, domain.ErrUnauthorized
	}
	actor, err := users.FindByID(ctx, repository.NoTX, actorID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	return actor, err
}
