package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/femto-apps/authz/config"
	"github.com/femto-apps/authz/credential"
	"github.com/femto-apps/authz/internal/observability"
	"github.com/femto-apps/authz/middleware"
	"github.com/femto-apps/authz/repositories"
	"github.com/femto-apps/authz/repositories/memory"
	"github.com/femto-apps/authz/repositories/postgres"
	"github.com/femto-apps/authz/services/audit"
	"github.com/femto-apps/authz/services/decision"
	"github.com/femto-apps/authz/services/statement"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued audit events
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil with the memory driver
	Logger *zap.Logger

	// Repository Factory, set with the postgres driver
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Statements repositories.StatementRepository
	AuditLogs  repositories.AuditRepository
	TxManager  repositories.TransactionManager

	// Observability
	Registry *prometheus.Registry
	Metrics  *observability.Metrics

	// Services
	AuditService     *audit.AuditService
	DecisionService  *decision.Service
	StatementService *statement.Service

	// Auth
	Credentials    *credential.Validator
	AuthMiddleware *middleware.AuthMiddleware

	stopCleanup chan struct{}
	closed      bool
}

// openRepositoryFactory connects to PostgreSQL; tests swap it for a sqlmock pool
var openRepositoryFactory = postgres.NewRepositoryFactory

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	// Initialize the statement store
	if err := deps.initStorage(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initMetrics(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	if err := deps.initServices(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("audit_enabled", deps.AuditService != nil),
		zap.Bool("metrics_enabled", deps.Metrics != nil))
	return deps, nil
}

// initStorage selects the statement store backend
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesPostgres() {
		d.Statements = memory.NewStatementRepository()
		d.AuditLogs = memory.NewAuditRepository(cfg.Audit.MemoryLimit)
		d.TxManager = memory.NewTransactionManager()
		d.Logger.Info("using in-memory statement store")
		return nil
	}

	factory, err := openRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return d.useDatabase(ctx, factory)
}

// useDatabase wires the repositories of an opened PostgreSQL pool
func (d *Dependencies) useDatabase(ctx context.Context, factory *postgres.RepositoryFactory) error {
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	repos := factory.NewRepositories()
	d.Statements = repos.Statements
	d.AuditLogs = repos.AuditLogs
	d.TxManager = factory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
	return nil
}

// initMetrics builds a private registry so tests can create many instances
func (d *Dependencies) initMetrics(cfg *config.Config) error {
	if !cfg.Observability.MetricsEnabled {
		return nil
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		return err
	}
	d.Registry = registry
	d.Metrics = metrics
	return nil
}

func (d *Dependencies) initServices(cfg *config.Config) error {
	if cfg.Audit.Enabled {
		d.AuditService = audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
			BufferSize:  cfg.Audit.BufferSize,
			WorkerCount: cfg.Audit.WorkerCount,
		})
		if err := d.AuditService.Start(); err != nil {
			return fmt.Errorf("failed to start audit service: %w", err)
		}
	}

	cache := decision.NewStatementCache(cfg.Engine.CacheSize, cfg.Engine.CacheTTL)
	d.DecisionService = decision.NewService(d.Statements, cache, nil, d.AuditService, d.Metrics, d.Logger)
	d.StatementService = statement.NewService(d.Statements, d.TxManager, d.DecisionService, d.AuditService, d.Metrics, d.Logger)

	if cfg.Engine.CleanupInterval > 0 {
		d.stopCleanup = make(chan struct{})
		go d.DecisionService.StartCacheCleanup(cfg.Engine.CleanupInterval, d.stopCleanup)
	}
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	d.Credentials = credential.NewValidator(credential.Config{
		SharedKey: cfg.Auth.Credential,
		JWTSecret: cfg.Auth.JWTSecret,
		JWTIssuer: cfg.Auth.JWTIssuer,
	})
	if !d.Credentials.Configured() {
		// Every protected route answers 401 until a credential is set
		d.Logger.Warn("no credential configured, protected endpoints will reject all requests")
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Credentials, d.Logger)
}

// SQLDB returns the raw pool for health checks, or nil with the memory driver
func (d *Dependencies) SQLDB() *sql.DB {
	if d.DB == nil {
		return nil
	}
	return d.DB.DB
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.stopCleanup != nil {
		close(d.stopCleanup)
	}

	// Drain queued audit events before the store goes away
	if d.AuditService != nil {
		timeout := auditStopTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	// Sync logger
	_ = d.Logger.Sync()

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
