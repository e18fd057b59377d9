package statement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/femto-apps/authz/internal/observability"
	"github.com/femto-apps/authz/internal/policy"
	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/femto-apps/authz/services"
	"github.com/femto-apps/authz/services/audit"
	"github.com/femto-apps/authz/utils"
	"go.uber.org/zap"
)

// CacheInvalidator is notified after every successful write to the store
type CacheInvalidator interface {
	InvalidateCache()
}

// Service registers, lists and removes statements
type Service struct {
	statementRepo repositories.StatementRepository
	txManager     repositories.TransactionManager
	invalidator   CacheInvalidator
	audit         *audit.AuditService
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewService creates a new statement Service.
// invalidator, auditService and metrics may be nil.
func NewService(
	statementRepo repositories.StatementRepository,
	txManager repositories.TransactionManager,
	invalidator CacheInvalidator,
	auditService *audit.AuditService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		statementRepo: statementRepo,
		txManager:     txManager,
		invalidator:   invalidator,
		audit:         auditService,
		metrics:       metrics,
		logger:        logger,
	}
}

// Register validates and stores statements as one batch, in order.
// Nothing is stored unless every statement is valid and every id is free.
func (s *Service) Register(ctx context.Context, statements []models.Statement) (*models.RegistrationResult, error) {
	if len(statements) == 0 {
		return nil, services.ErrEmptyStatements
	}

	batch := make([]*models.Statement, len(statements))
	ids := make([]string, len(statements))
	seen := make(map[string]struct{}, len(statements))

	for i := range statements {
		stmt := statements[i]
		stmt.ID = strings.TrimSpace(stmt.ID)
		stmt.CreatedAt = time.Time{}

		if err := validateStatement(&stmt); err != nil {
			return nil, err.WithDetail("index", i)
		}

		stmt.EnsureID()
		if _, dup := seen[stmt.ID]; dup {
			return nil, services.NewConflictError(stmt.ID).WithDetail("index", i)
		}
		seen[stmt.ID] = struct{}{}

		batch[i] = &stmt
		ids[i] = stmt.ID
	}

	err := services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		repo := s.statementRepo.WithTx(tx)

		existing, err := repo.ExistingIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to check statement ids: %w", err)
		}
		if len(existing) > 0 {
			return services.NewConflictError(existing[0])
		}

		return repo.CreateBatch(ctx, batch)
	})
	if err != nil {
		if services.IsConflictError(err) {
			return nil, err
		}
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateStatement.Derive(err)
		}
		s.logger.Error("failed to register statements",
			zap.Error(err),
			zap.Int("count", len(batch)))
		return nil, services.WrapInternal("failed to store statements", err)
	}

	s.afterWrite()
	s.metrics.RecordRegistered(len(batch))
	for _, stmt := range batch {
		if err := s.audit.LogStatementRegistered(ctx, stmt); err != nil && !errors.Is(err, audit.ErrBufferFull) {
			s.logger.Debug("registration not audited", zap.Error(err), zap.String("statement_id", stmt.ID))
		}
	}

	s.logger.Info("statements registered",
		zap.Int("count", len(batch)),
		zap.Strings("ids", ids))

	return &models.RegistrationResult{Registered: len(batch), IDs: ids}, nil
}

// Get returns the statement with the given id
func (s *Service) Get(ctx context.Context, id string) (*models.Statement, error) {
	stmt, err := s.statementRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewNotFoundError(id)
		}
		return nil, services.WrapInternal("failed to load statement", err)
	}
	return stmt, nil
}

// List returns every statement in registration order
func (s *Service) List(ctx context.Context) ([]*models.Statement, error) {
	statements, err := s.statementRepo.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list statements", err)
	}
	if statements == nil {
		statements = []*models.Statement{}
	}
	return statements, nil
}

// Remove deletes the statement with the given id
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.statementRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.NewNotFoundError(id)
		}
		s.logger.Error("failed to remove statement",
			zap.Error(err),
			zap.String("statement_id", id))
		return services.WrapInternal("failed to remove statement", err)
	}

	s.afterWrite()
	s.metrics.RecordRemoved()
	if err := s.audit.LogStatementRemoved(ctx, id); err != nil && !errors.Is(err, audit.ErrBufferFull) {
		s.logger.Debug("removal not audited", zap.Error(err), zap.String("statement_id", id))
	}

	s.logger.Info("statement removed", zap.String("statement_id", id))
	return nil
}

// Count returns the number of stored statements
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.statementRepo.Count(ctx)
	if err != nil {
		return 0, services.WrapInternal("failed to count statements", err)
	}
	return n, nil
}

func (s *Service) afterWrite() {
	if s.invalidator != nil {
		s.invalidator.InvalidateCache()
	}
}

// validateStatement checks the statement's shape and the glob syntax of its
// resource pattern. Condition expressions are not parsed here; a malformed
// one only fails at decision time.
func validateStatement(stmt *models.Statement) *services.DomainError {
	if err := utils.ValidateStruct(stmt); err != nil {
		fields := utils.GetValidationFields(err)
		if fields == nil {
			fields = map[string]string{"statement": err.Error()}
		}
		return services.ErrInvalidStatement.Derive(nil).WithFields(fields)
	}
	if err := utils.ValidateRequired(stmt.Resource, "resource"); err != nil {
		return services.ErrInvalidStatement.Derive(nil).WithFields(map[string]string{"resource": err.Error()})
	}
	if err := policy.ValidatePattern(stmt.Resource); err != nil {
		return services.ErrInvalidStatement.Derive(nil).WithFields(map[string]string{"resource": err.Error()})
	}
	for _, action := range stmt.Action {
		if err := utils.ValidateRequired(action, "action"); err != nil {
			return services.ErrInvalidStatement.Derive(nil).WithFields(map[string]string{"action": err.Error()})
		}
	}
	return nil
}
