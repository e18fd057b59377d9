package handlers

import (
	"context"
	"net/http"

	"github.com/femto-apps/authz/middleware"
	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StatementService defines the statement operations used by the handler
type StatementService interface {
	// Register stores statements as one batch
	Register(ctx context.Context, statements []models.Statement) (*models.RegistrationResult, error)

	// Get retrieves a statement by ID
	Get(ctx context.Context, id string) (*models.Statement, error)

	// List retrieves every statement in registration order
	List(ctx context.Context) ([]*models.Statement, error)

	// Remove deletes a statement
	Remove(ctx context.Context, id string) error
}

// StatementHandler handles statement-related HTTP requests
type StatementHandler struct {
	service StatementService
	logger  *zap.Logger
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(service StatementService, logger *zap.Logger) *StatementHandler {
	return &StatementHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRegister handles POST /api/v1/statement.
// The body is a single statement or an array; the response is the bare
// RegistrationResult.
func (h *StatementHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var set models.StatementSet
	if err := utils.DecodeJSON(w, r, &set); err != nil {
		h.logger.Warn("failed to parse statements",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleDecodeError(w, err, h.logger)
		return
	}

	result, err := h.service.Register(ctx, set)
	if err != nil {
		h.logger.Warn("failed to register statements",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusCreated, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleList handles GET /api/v1/statements
func (h *StatementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statements, err := h.service.List(ctx)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, statements); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/statements/{id}
func (h *StatementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	stmt, err := h.service.Get(ctx, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, stmt); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/statements/{id}
func (h *StatementHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Remove(ctx, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("statement removed",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("statement_id", id))
	utils.WriteNoContent(w)
}
