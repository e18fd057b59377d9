package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
)

// StatementRepository keeps statements in process memory.
// Reads return copies so callers cannot mutate stored statements.
type StatementRepository struct {
	mu    sync.RWMutex
	byID  map[string]*models.Statement
	order []string
}

// NewStatementRepository creates an empty in-memory statement store
func NewStatementRepository() *StatementRepository {
	return &StatementRepository{
		byID: make(map[string]*models.Statement),
	}
}

// WithTx returns the repository itself; CreateBatch is already atomic
func (r *StatementRepository) WithTx(repositories.Transaction) repositories.StatementRepository {
	return r
}

// CreateBatch stores all statements or none of them
func (r *StatementRepository) CreateBatch(_ context.Context, statements []*models.Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(statements))
	for _, stmt := range statements {
		if _, ok := r.byID[stmt.ID]; ok {
			return fmt.Errorf("statement %q: %w", stmt.ID, repositories.ErrDuplicate)
		}
		if _, ok := seen[stmt.ID]; ok {
			return fmt.Errorf("statement %q: %w", stmt.ID, repositories.ErrDuplicate)
		}
		seen[stmt.ID] = struct{}{}
	}

	now := time.Now().UTC()
	for _, stmt := range statements {
		if stmt.CreatedAt.IsZero() {
			stmt.CreatedAt = now
		}
		r.byID[stmt.ID] = clone(stmt)
		r.order = append(r.order, stmt.ID)
	}
	return nil
}

// GetByID retrieves a statement by ID
func (r *StatementRepository) GetByID(_ context.Context, id string) (*models.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stmt, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("statement %q: %w", id, repositories.ErrNotFound)
	}
	return clone(stmt), nil
}

// List retrieves every statement in registration order
func (r *StatementRepository) List(_ context.Context) ([]*models.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statements := make([]*models.Statement, 0, len(r.order))
	for _, id := range r.order {
		statements = append(statements, clone(r.byID[id]))
	}
	return statements, nil
}

// ListByAction retrieves the statements whose action set contains action
func (r *StatementRepository) ListByAction(_ context.Context, action string) ([]*models.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var statements []*models.Statement
	for _, id := range r.order {
		stmt := r.byID[id]
		if stmt.Action.Contains(action) {
			statements = append(statements, clone(stmt))
		}
	}
	return statements, nil
}

// ExistingIDs returns the subset of ids that are already stored
func (r *StatementRepository) ExistingIDs(_ context.Context, ids []string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var existing []string
	for _, id := range ids {
		if _, ok := r.byID[id]; ok {
			existing = append(existing, id)
		}
	}
	return existing, nil
}

// Delete deletes a statement
func (r *StatementRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("statement %q: %w", id, repositories.ErrNotFound)
	}
	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored statements
func (r *StatementRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

func clone(stmt *models.Statement) *models.Statement {
	c := *stmt
	c.Action = append(models.ActionList(nil), stmt.Action...)
	if stmt.Condition != nil {
		c.Condition = make(models.Condition, len(stmt.Condition))
		for label, predicate := range stmt.Condition {
			p := make(models.Predicate, len(predicate))
			for op, expr := range predicate {
				p[op] = expr
			}
			c.Condition[label] = p
		}
	}
	return &c
}
