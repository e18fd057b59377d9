package decision

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/femto-apps/authz/internal/condition"
	"github.com/femto-apps/authz/internal/observability"
	"github.com/femto-apps/authz/internal/policy"
	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/femto-apps/authz/services"
	"github.com/femto-apps/authz/services/audit"
	"go.uber.org/zap"
)

// Service decides authorisation requests against the stored statements.
//
// Resolution order: a matching deny statement wins, then the first matching
// allow statement in registration order, otherwise the request is denied.
// Conditions that cannot be evaluated make their statement non-matching.
type Service struct {
	statementRepo repositories.StatementRepository
	cache         *StatementCache
	evaluator     *condition.Evaluator
	audit         *audit.AuditService
	metrics       *observability.Metrics
	logger        *zap.Logger
}

// NewService creates a new decision Service. auditService and metrics may be nil.
func NewService(
	statementRepo repositories.StatementRepository,
	cache *StatementCache,
	evaluator *condition.Evaluator,
	auditService *audit.AuditService,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if evaluator == nil {
		evaluator = condition.NewEvaluator()
	}
	return &Service{
		statementRepo: statementRepo,
		cache:         cache,
		evaluator:     evaluator,
		audit:         auditService,
		metrics:       metrics,
		logger:        logger,
	}
}

// Authorise decides whether the user may perform the action on the resource.
// Only storage failures are returned as errors.
func (s *Service) Authorise(ctx context.Context, req *models.AuthorizationRequest) (models.AuthorizationDecision, error) {
	start := time.Now()

	if req == nil || strings.TrimSpace(req.Action) == "" {
		return models.AuthorizationDecision{}, services.ErrInvalidRequest.Derive(nil).WithFields(map[string]string{
			"action": "action is required",
		})
	}

	candidates, err := s.candidates(ctx, req.Action)
	if err != nil {
		s.logger.Error("failed to load statements",
			zap.Error(err),
			zap.String("action", req.Action))
		return models.AuthorizationDecision{}, services.WrapInternal("failed to load statements", err)
	}

	res := policy.ParseResource(req.Resource)
	resourcePath := res.Path()
	evalCtx := condition.Context{
		Resource: req.Resource,
		User:     req.User,
		Action:   req.Action,
	}

	decision := s.decide(candidates, req.Action, res, evalCtx)

	s.metrics.RecordDecision(string(decision.Reason), time.Since(start))
	if err := s.audit.LogDecision(ctx, resourcePath, policy.Subject(req.User), req.Action, decision); err != nil && !errors.Is(err, audit.ErrBufferFull) {
		s.logger.Debug("decision not audited", zap.Error(err))
	}

	s.logger.Debug("authorisation decided",
		zap.String("action", req.Action),
		zap.String("resource", resourcePath),
		zap.Bool("allowed", decision.Allowed),
		zap.String("reason", string(decision.Reason)),
		zap.String("statement_id", decision.StatementID))

	return decision, nil
}

// decide applies deny precedence over the candidates, which are in registration order
func (s *Service) decide(candidates []*models.Statement, action string, res *policy.Resource, evalCtx condition.Context) models.AuthorizationDecision {
	var allow *models.Statement
	for _, stmt := range candidates {
		if !policy.Matches(stmt, action, res) {
			continue
		}
		if !s.conditionHolds(stmt, evalCtx) {
			continue
		}

		switch stmt.Effect {
		case models.EffectDeny:
			return models.AuthorizationDecision{
				Allowed:     false,
				StatementID: stmt.ID,
				Reason:      models.ReasonExplicitDeny,
			}
		case models.EffectAllow:
			if allow == nil {
				allow = stmt
			}
		}
	}

	if allow != nil {
		return models.AuthorizationDecision{
			Allowed:     true,
			StatementID: allow.ID,
			Reason:      models.ReasonAllow,
		}
	}
	return models.AuthorizationDecision{Allowed: false, Reason: models.ReasonDefaultDeny}
}

func (s *Service) conditionHolds(stmt *models.Statement, evalCtx condition.Context) bool {
	if !stmt.HasCondition() {
		return true
	}

	ok, label, err := s.evaluator.EvaluateCondition(stmt.Condition, evalCtx)
	if err != nil {
		s.metrics.RecordConditionError()
		s.logger.Warn("condition evaluation failed, statement skipped",
			zap.String("statement_id", stmt.ID),
			zap.String("label", label),
			zap.Error(err))
		return false
	}
	return ok
}

// candidates returns the statements registered for action, cached
func (s *Service) candidates(ctx context.Context, action string) ([]*models.Statement, error) {
	if s.cache == nil {
		return s.statementRepo.ListByAction(ctx, action)
	}

	if cached, ok := s.cache.Get(action); ok {
		s.metrics.RecordCacheLookup(true)
		return cached, nil
	}
	s.metrics.RecordCacheLookup(false)

	generation := s.cache.Generation()
	statements, err := s.statementRepo.ListByAction(ctx, action)
	if err != nil {
		return nil, err
	}
	s.cache.Set(action, statements, generation)

	return statements, nil
}

// InvalidateCache drops every cached statement list.
// It must be called after each write to the statement store.
func (s *Service) InvalidateCache() {
	if s.cache == nil {
		return
	}
	s.cache.Clear()
	s.logger.Debug("invalidated statement cache")
}

// GetCacheStats returns cache statistics
func (s *Service) GetCacheStats() CacheStats {
	if s.cache == nil {
		return CacheStats{}
	}
	return s.cache.Stats()
}

// StartCacheCleanup runs the cache cleanup worker until stopCh is closed
func (s *Service) StartCacheCleanup(interval time.Duration, stopCh <-chan struct{}) {
	if s.cache == nil {
		return
	}
	s.logger.Info("started cache cleanup worker",
		zap.Duration("interval", interval))
	s.cache.StartCleanupWorker(interval, stopCh)
}
