package repository

import (
	"context"

	"github.com/abdulbosit19980204/journal/internal/domain/model"

	"github.com/shopspring/decimal"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// LockForUpdate loads the user and holds its row lock until tx ends.
	// tx must be a transaction handle.
	LockForUpdate(ctx context.Context, tx Tx, id string) (*model.User, error)
	UpdateBalance(ctx context.Context, tx Tx, id string, balance decimal.Decimal) error
	CountWithPositiveBalance(ctx context.Context, tx Tx) (int, error)
}
