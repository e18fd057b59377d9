package handlers

import (
	"errors"
	"net/http"

	"github.com/femto-apps/authz/services"
	"github.com/femto-apps/authz/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := errorMessage(err)

	switch {
	case services.IsNotFoundError(err):
		if err := utils.WriteError(w, http.StatusNotFound, message, details); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, message, details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsConflictError(err):
		if err := utils.WriteConflict(w, message, details); err != nil {
			logger.Error("failed to write conflict response", zap.Error(err))
		}

	case services.IsEvaluationError(err):
		// Evaluation errors are resolved inside the decision engine; one
		// reaching a handler is a server bug.
		logger.Error("evaluation error escaped the decision engine", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// HandleDecodeError answers a request whose body could not be decoded
func HandleDecodeError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
	case errors.Is(err, utils.ErrEmptyBody):
		_ = utils.WriteBadRequest(w, "Request body is required", nil)
	default:
		_ = utils.WriteBadRequest(w, "Invalid request body", map[string]interface{}{"cause": err.Error()})
	}
	logger.Debug("request body rejected", zap.Error(err))
}

// errorMessage returns the client facing message of err
func errorMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
