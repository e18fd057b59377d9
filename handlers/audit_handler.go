package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/femto-apps/authz/middleware"
	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/femto-apps/authz/utils"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditReader reads stored audit logs
type AuditReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)
	List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error)
}

// AuditHandler serves the audit trail
type AuditHandler struct {
	auditRepo AuditReader
	logger    *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditRepo AuditReader, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// HandleListAuditLogs handles GET /api/v1/audit/logs.
// Query parameters: limit, offset, action, statement_id, request_id.
func (h *AuditHandler) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	query := r.URL.Query()

	limit, err := queryInt(query.Get("limit"))
	if err != nil || limit < 0 {
		_ = utils.WriteBadRequest(w, "Invalid limit", nil)
		return
	}
	offset, err := queryInt(query.Get("offset"))
	if err != nil || offset < 0 {
		_ = utils.WriteBadRequest(w, "Invalid offset", nil)
		return
	}

	filter := repositories.AuditFilter{
		Action:      models.AuditAction(query.Get("action")),
		StatementID: query.Get("statement_id"),
		RequestID:   query.Get("request_id"),
		Limit:       limit,
		Offset:      offset,
	}

	logs, err := h.auditRepo.List(ctx, filter)
	if err != nil {
		h.logger.Error("failed to list audit logs",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve audit logs")
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	if err := utils.WriteOK(w, logs); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}

// HandleGetAuditLog handles GET /api/v1/audit/logs/{id}
func (h *AuditHandler) HandleGetAuditLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid audit log ID format", nil)
		return
	}

	log, err := h.auditRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = utils.WriteNotFound(w, "Audit log not found")
			return
		}
		h.logger.Error("failed to get audit log",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve audit log")
		return
	}

	_ = utils.WriteOK(w, log)
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
