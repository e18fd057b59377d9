package handlers

import (
	"context"
	"net/http"

	"github.com/femto-apps/authz/middleware"
	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/utils"
	"go.uber.org/zap"
)

// Authoriser decides authorisation requests
type Authoriser interface {
	Authorise(ctx context.Context, req *models.AuthorizationRequest) (models.AuthorizationDecision, error)
}

// AuthoriseHandler handles authorisation decisions
type AuthoriseHandler struct {
	authoriser Authoriser
	logger     *zap.Logger
}

// NewAuthoriseHandler creates a new AuthoriseHandler
func NewAuthoriseHandler(authoriser Authoriser, logger *zap.Logger) *AuthoriseHandler {
	return &AuthoriseHandler{
		authoriser: authoriser,
		logger:     logger,
	}
}

// HandleAuthorised handles POST /api/v1/authorised and answers with the bare decision
func (h *AuthoriseHandler) HandleAuthorised(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req models.AuthorizationRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleDecodeError(w, err, h.logger)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	decision, err := h.authoriser.Authorise(ctx, &req)
	if err != nil {
		h.logger.Error("failed to decide authorisation request",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, decision); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
