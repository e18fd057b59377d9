package services

import (
	"context"

	"github.com/femto-apps/authz/repositories"
)

// WithTransaction executes fn inside a transaction of txMgr.
// Commits on success, rolls back on error. A transaction already carried by
// ctx is joined.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return txMgr.InTransaction(ctx, fn)
}
