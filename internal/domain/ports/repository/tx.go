package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager runs fn inside one storage transaction and hands the
// backend-specific handle to fn as tx. Repositories receiving a non-nil tx
// must run on it and take row locks where they promise to; repositories
// receiving NoTX run on the shared pool.
//
// fn's error rolls the transaction back; a nil return commits it.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
