package routes

import (
	"net/http"

	"github.com/femto-apps/authz/app"
	"github.com/femto-apps/authz/credential"
	"github.com/femto-apps/authz/handlers"
	"github.com/femto-apps/authz/middleware"
	"github.com/femto-apps/authz/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestMeta)
	r.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))
	r.Use(chimw.Recoverer)
	if timeout := deps.Config.Server.RequestTimeout; timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	health := handlers.NewHealthHandler(deps.SQLDB(), deps.Statements, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	statements := handlers.NewStatementHandler(deps.StatementService, deps.Logger)
	authorise := handlers.NewAuthoriseHandler(deps.DecisionService, deps.Logger)
	auditLogs := handlers.NewAuditHandler(deps.AuditLogs, deps.Logger)
	auth := deps.AuthMiddleware

	// API v1 routes, all authenticated
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.With(auth.RequireScope(credential.ScopeStatementsWrite)).Post("/statement", statements.HandleRegister)

		r.Route("/statements", func(r chi.Router) {
			r.With(auth.RequireScope(credential.ScopeStatementsRead)).Get("/", statements.HandleList)
			r.With(auth.RequireScope(credential.ScopeStatementsRead)).Get("/{id}", statements.HandleGet)
			r.With(auth.RequireScope(credential.ScopeStatementsWrite)).Delete("/{id}", statements.HandleDelete)
		})

		r.With(auth.RequireScope(credential.ScopeAuthorise)).Post("/authorised", authorise.HandleAuthorised)

		r.Route("/audit", func(r chi.Router) {
			r.Use(auth.RequireScope(credential.ScopeAuditRead))
			r.Get("/logs", auditLogs.HandleListAuditLogs)
			r.Get("/logs/{id}", auditLogs.HandleGetAuditLog)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
