package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/femto-apps/authz/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Checks     map[string]string `json:"checks,omitempty"`
	Statements *int              `json:"statements,omitempty"`
}

// StatementCounter reports the size of the statement store
type StatementCounter interface {
	Count(ctx context.Context) (int, error)
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	store  StatementCounter
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
// db is nil when statements are kept in memory; store may be nil.
func NewHealthHandler(db *sql.DB, store StatementCounter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		store:  store,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.db == nil {
		checks["database"] = "not_configured"
	} else if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	var statements *int
	if h.store != nil {
		if n, err := h.store.Count(ctx); err != nil {
			h.logger.Warn("statement store health check failed", zap.Error(err))
			checks["statement_store"] = "unhealthy"
			allHealthy = false
		} else {
			checks["statement_store"] = "healthy"
			statements = &n
		}
	}

	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Checks:     checks,
		Statements: statements,
	}

	var err error
	if allHealthy {
		err = utils.WriteOK(w, response)
	} else {
		response.Status = "unhealthy"
		err = utils.WriteServiceUnavailable(w, utils.SuccessResponse{Data: response})
	}
	if err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
