package usecase

import (
	"context"
	"errors"

	"github.com/abdulbosit19980204/journal/internal/domain"
	"github.com/abdulbosit19980204/journal/internal/domain/model"
	"github.com/abdulbosit19980204/journal/internal/domain/ports/repository"
	"github.com/abdulbosit19980204/journal/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// UserUseCase keeps the billing copy of accounts in sync with the identities
// presented by the auth layer.
type UserUseCase interface {
	// RegisterOrFetch returns the billing user for id, creating it with a
	// zero balance on first sight.
	RegisterOrFetch(ctx context.Context, id, email string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// SetRoles grants or revokes the admin roles. Only admins may call it.
	SetRoles(ctx context.Context, actorID, userID string, isAdmin, isFinanceAdmin bool) (*model.User, error)
}

type userUC struct {
	users repository.UserRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, tm repository.TransactionManager, logger *zerolog.Logger) *userUC {
	return &userUC{
		users: users,
		tm:    tm,
		log:   logger,
	}
}

func (u *userUC) RegisterOrFetch(ctx context.Context, id, email string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.RegisterOrFetch")()

	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	if usr, err := u.users.FindByID(ctx, repository.NoTX, id); err == nil {
		return usr, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.Serializable}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByID(ctx, tx, id)
		if err == nil {
			user = usr
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		nu, err := model.NewUser(id, email)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			u.log.Error().Err(err).Msg("failed to create billing user")
			return err
		}
		user = nu
		return nil
	})
	return user, err
}

func (u *userUC) Get(ctx context.Context, id string) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.Get")()
	return u.users.FindByID(ctx, repository.NoTX, id)
}

func (u *userUC) SetRoles(ctx context.Context, actorID, userID string, isAdmin, isFinanceAdmin bool) (*model.User, error) {
	defer logging.TraceDuration(u.log, "UserUC.SetRoles")()

	if _, err := requireAdmin(ctx, u.users, actorID); err != nil {
		return nil, err
	}
	var user *model.User
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.LockForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		usr.IsAdmin = isAdmin
		usr.IsFinanceAdmin = isFinanceAdmin
		if err := u.users.Save(ctx, tx, usr); err != nil {
			return err
		}
		user = usr
		return nil
	})
	return user, err
}
