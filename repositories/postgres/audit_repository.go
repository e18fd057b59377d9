package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	auditColumns = `id, action, statement_id, resource_path, subject, request_action,
		       allowed, reason, details, ip_address, user_agent, request_id, timestamp`

	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, action, statement_id, resource_path, subject, request_action,
			allowed, reason, details, ip_address, user_agent, request_id, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	executor := executorFor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.Action,
		log.StatementID,
		log.ResourcePath,
		log.Subject,
		log.RequestAction,
		log.Allowed,
		log.Reason,
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_logs WHERE id = $1`

	log, err := scanAuditLog(executorFor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit log %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return log, nil
}

// List retrieves audit logs newest first, narrowed by the filter
func (r *AuditRepository) List(ctx context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Action != "" {
		args = append(args, filter.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if filter.StatementID != "" {
		args = append(args, filter.StatementID)
		conditions = append(conditions, fmt.Sprintf("statement_id = $%d", len(args)))
	}
	if filter.RequestID != "" {
		args = append(args, filter.RequestID)
		conditions = append(conditions, fmt.Sprintf("request_id = $%d", len(args)))
	}

	query := `SELECT ` + auditColumns + ` FROM audit_logs`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := executorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	var (
		log                            models.AuditLog
		statementID, resourcePath      sql.NullString
		subject, requestAction, reason sql.NullString
		allowed                        sql.NullBool
		details                        []byte
		ipAddress, userAgent, reqID    sql.NullString
	)
	err := row.Scan(
		&log.ID,
		&log.Action,
		&statementID,
		&resourcePath,
		&subject,
		&requestAction,
		&allowed,
		&reason,
		&details,
		&ipAddress,
		&userAgent,
		&reqID,
		&log.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	log.StatementID = nullString(statementID)
	log.ResourcePath = nullString(resourcePath)
	log.Subject = nullString(subject)
	log.RequestAction = nullString(requestAction)
	log.Reason = nullString(reason)
	if allowed.Valid {
		v := allowed.Bool
		log.Allowed = &v
	}
	if len(details) > 0 {
		log.Details = details
	}
	log.IPAddress = ipAddress.String
	log.UserAgent = userAgent.String
	log.RequestID = reqID.String
	return &log, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
