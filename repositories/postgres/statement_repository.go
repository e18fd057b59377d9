package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL SQLSTATE for duplicate keys
const uniqueViolation = "23505"

const statementColumns = `id, effect, actions, resource, condition, created_at`

// StatementRepository implements the repositories.StatementRepository interface
type StatementRepository struct {
	db     *DB
	tx     *Tx
	txMgr  repositories.TransactionManager
	logger *zap.Logger
}

// NewStatementRepository creates a new statement repository
func NewStatementRepository(db *DB, logger *zap.Logger) repositories.StatementRepository {
	return &StatementRepository{
		db:     db,
		txMgr:  NewTransactionManager(db, logger),
		logger: logger,
	}
}

// WithTx returns a new repository instance bound to the transaction
func (r *StatementRepository) WithTx(tx repositories.Transaction) repositories.StatementRepository {
	pgTx, ok := tx.(*Tx)
	if !ok {
		return r
	}
	return &StatementRepository{db: r.db, tx: pgTx, txMgr: r.txMgr, logger: r.logger}
}

func (r *StatementRepository) executor(ctx context.Context) Executor {
	if r.tx != nil {
		return r.tx.sql
	}
	return executorFor(ctx, r.db)
}

// CreateBatch inserts all statements inside one transaction
func (r *StatementRepository) CreateBatch(ctx context.Context, statements []*models.Statement) error {
	query := `
		INSERT INTO statements (id, effect, actions, resource, condition, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	insert := func(ctx context.Context, exec Executor) error {
		for _, stmt := range statements {
			condition, err := encodeCondition(stmt.Condition)
			if err != nil {
				return err
			}
			if stmt.CreatedAt.IsZero() {
				stmt.CreatedAt = time.Now().UTC()
			}

			_, err = exec.ExecContext(ctx, query,
				stmt.ID,
				stmt.Effect,
				pq.Array([]string(stmt.Action)),
				stmt.Resource,
				condition,
				stmt.CreatedAt,
			)
			if err != nil {
				var pqErr *pq.Error
				if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
					return fmt.Errorf("statement %q: %w", stmt.ID, repositories.ErrDuplicate)
				}
				return fmt.Errorf("failed to create statement: %w", err)
			}
		}
		return nil
	}

	if r.tx != nil {
		if err := insert(ctx, r.tx.sql); err != nil {
			return err
		}
	} else {
		err := r.txMgr.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
			return insert(ctx, executorFor(ctx, r.db))
		})
		if err != nil {
			return err
		}
	}

	r.logger.Debug("statements created", zap.Int("count", len(statements)))
	return nil
}

// GetByID retrieves a statement by ID
func (r *StatementRepository) GetByID(ctx context.Context, id string) (*models.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements WHERE id = $1`

	stmt, err := scanStatement(r.executor(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("statement %q: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get statement: %w", err)
	}
	return stmt, nil
}

// List retrieves every statement in registration order
func (r *StatementRepository) List(ctx context.Context) ([]*models.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements ORDER BY seq`
	return r.queryStatements(ctx, query)
}

// ListByAction retrieves the statements whose action set contains action
func (r *StatementRepository) ListByAction(ctx context.Context, action string) ([]*models.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements WHERE $1 = ANY(actions) ORDER BY seq`
	return r.queryStatements(ctx, query, action)
}

// ExistingIDs returns the subset of ids that are already stored
func (r *StatementRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id FROM statements WHERE id = ANY($1)`
	rows, err := r.executor(ctx).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to check statement ids: %w", err)
	}
	defer rows.Close()

	var existing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan statement id: %w", err)
		}
		existing = append(existing, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statement ids: %w", err)
	}
	return existing, nil
}

// Delete deletes a statement
func (r *StatementRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM statements WHERE id = $1`

	result, err := r.executor(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete statement: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("statement %q: %w", id, repositories.ErrNotFound)
	}

	r.logger.Debug("statement deleted", zap.String("id", id))
	return nil
}

// Count returns the number of stored statements
func (r *StatementRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.executor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM statements`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count statements: %w", err)
	}
	return count, nil
}

func (r *StatementRepository) queryStatements(ctx context.Context, query string, args ...interface{}) ([]*models.Statement, error) {
	rows, err := r.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query statements: %w", err)
	}
	defer rows.Close()

	var statements []*models.Statement
	for rows.Next() {
		stmt, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, stmt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statements: %w", err)
	}

	return statements, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanStatement(row rowScanner) (*models.Statement, error) {
	var (
		stmt      models.Statement
		actions   []string
		condition []byte
	)
	err := row.Scan(
		&stmt.ID,
		&stmt.Effect,
		pq.Array(&actions),
		&stmt.Resource,
		&condition,
		&stmt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	stmt.Action = models.ActionList(actions)

	if len(condition) > 0 {
		if err := json.Unmarshal(condition, &stmt.Condition); err != nil {
			return nil, fmt.Errorf("failed to decode condition of %q: %w", stmt.ID, err)
		}
	}
	return &stmt, nil
}

// encodeCondition returns nil for statements without a condition so the
// column stores SQL NULL
func encodeCondition(condition models.Condition) (interface{}, error) {
	if len(condition) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(condition)
	if err != nil {
		return nil, fmt.Errorf("failed to encode condition: %w", err)
	}
	return data, nil
}
