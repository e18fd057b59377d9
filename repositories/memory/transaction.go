package memory

import (
	"context"
	"sync"

	"github.com/femto-apps/authz/repositories"
)

// TransactionManager serialises write transactions against the memory store.
// Individual repository writes are atomic, so commit and rollback have
// nothing to undo.
type TransactionManager struct {
	mu sync.Mutex
}

// NewTransactionManager creates a new in-memory transaction manager
func NewTransactionManager() *TransactionManager {
	return &TransactionManager{}
}

type txContextKey struct{}

// Begin starts a new transaction, blocking until no other is open
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	tm.mu.Lock()
	return &Transaction{ctx: ctx, release: tm.mu.Unlock}, nil
}

// InTransaction executes fn while holding the write lock.
// A transaction already carried by ctx is joined instead of nested.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if existing, ok := ctx.Value(txContextKey{}).(repositories.Transaction); ok {
		return fn(ctx, existing)
	}

	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txContextKey{}, tx), tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Transaction implements repositories.Transaction for the memory store
type Transaction struct {
	ctx     context.Context
	once    sync.Once
	release func()
}

// Commit ends the transaction
func (t *Transaction) Commit() error {
	t.once.Do(t.release)
	return nil
}

// Rollback ends the transaction; calling it after Commit is a no-op
func (t *Transaction) Rollback() error {
	t.once.Do(t.release)
	return nil
}

// Context returns the transaction context
func (t *Transaction) Context() context.Context {
	return t.ctx
}
