package repositories

import (
	"context"
	"errors"

	"github.com/femto-apps/authz/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a record with the same key already exists
	ErrDuplicate = errors.New("record already exists")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// StatementRepository handles statement storage.
// Statements are always returned in registration order.
type StatementRepository interface {
	// CreateBatch stores all statements or none of them.
	// Returns ErrDuplicate when any id is already taken.
	CreateBatch(ctx context.Context, statements []*models.Statement) error

	// GetByID retrieves a statement by ID
	GetByID(ctx context.Context, id string) (*models.Statement, error)

	// List retrieves every statement
	List(ctx context.Context) ([]*models.Statement, error)

	// ListByAction retrieves the statements whose action set contains action
	ListByAction(ctx context.Context, action string) ([]*models.Statement, error)

	// ExistingIDs returns the subset of ids that are already stored
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)

	// Delete deletes a statement
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored statements
	Count(ctx context.Context) (int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) StatementRepository
}

// AuditFilter narrows an audit log listing
type AuditFilter struct {
	Action      models.AuditAction
	StatementID string
	RequestID   string
	Limit       int
	Offset      int
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// List retrieves audit logs newest first
	List(ctx context.Context, filter AuditFilter) ([]*models.AuditLog, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Statements StatementRepository
	AuditLogs  AuditRepository
}
