package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/femto-apps/authz/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// Executor runs statement store queries on either the pool or an open transaction
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxManager groups statement and audit writes into one database transaction
type TxManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager returns a TxManager over db
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TxManager{db: db, logger: logger}
}

// Begin opens a transaction bound to ctx
func (m *TxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	m.logger.Debug("statement store transaction opened")
	return &Tx{sql: sqlTx, ctx: ctx, logger: m.logger}, nil
}

// InTransaction runs fn in a transaction, committing when it returns nil.
// A call nested inside another InTransaction joins the outer transaction.
func (m *TxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if outer, ok := txFromContext(ctx); ok {
		return fn(ctx, outer)
	}

	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.logger.Error("statement store rollback failed",
				zap.Error(rbErr),
				zap.NamedError("cause", err),
			)
		}
		return err
	}
	return tx.Commit()
}

// Tx is an open statement store transaction
type Tx struct {
	sql    *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

func (t *Tx) Commit() error {
	if err := t.sql.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("statement store transaction committed")
	return nil
}

// Rollback is a no-op on a transaction that already finished
func (t *Tx) Rollback() error {
	err := t.sql.Rollback()
	switch {
	case errors.Is(err, sql.ErrTxDone):
		return nil
	case err != nil:
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("statement store transaction rolled back")
	return nil
}

func (t *Tx) Context() context.Context {
	return t.ctx
}

func txFromContext(ctx context.Context) (repositories.Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(repositories.Transaction)
	return tx, ok
}

// executorFor returns the transaction carried by ctx, or the pool
func executorFor(ctx context.Context, db *DB) Executor {
	if tx, ok := txFromContext(ctx); ok {
		if pg, ok := tx.(*Tx); ok {
			return pg.sql
		}
	}
	return db.DB
}
