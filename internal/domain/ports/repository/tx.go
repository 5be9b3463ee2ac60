package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// The concrete type is infra-defined (pgx.Tx for Postgres); repositories
// must gracefully accept NoTX for the non-transactional path.
type Tx interface{}

// NoTX is passed where a repository call should run outside a transaction.
var NoTX Tx

// TransactionManager executes a function within a database transaction,
// passing the underlying handle via tx. Keeping the handle opaque means
// use-case interfaces never leak storage types, while repository
// implementations can still detect a live transaction and bind their
// statements to it. The reconciler depends on this: the session update,
// the enrollment insert, and the payment upsert must commit or roll back
// as one unit.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
