package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionStatementRegistered  AuditAction = "statement_registered"
	AuditActionStatementRemoved     AuditAction = "statement_removed"
	AuditActionAuthorisationDecided AuditAction = "authorisation_decided"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	Action        AuditAction     `json:"action" db:"action"`
	StatementID   *string         `json:"statementId,omitempty" db:"statement_id"`
	ResourcePath  *string         `json:"resourcePath,omitempty" db:"resource_path"`
	Subject       *string         `json:"subject,omitempty" db:"subject"`
	RequestAction *string         `json:"requestAction,omitempty" db:"request_action"`
	Allowed       *bool           `json:"allowed,omitempty" db:"allowed"`
	Reason        *string         `json:"reason,omitempty" db:"reason"`
	Details       json.RawMessage `json:"details,omitempty" db:"details"` // JSONB for flexible metadata
	IPAddress     string          `json:"ipAddress" db:"ip_address"`
	UserAgent     string          `json:"userAgent" db:"user_agent"`
	RequestID     string          `json:"requestId" db:"request_id"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction) *AuditLog {
	return &AuditLog{
		ID:        uuid.New(),
		Action:    action,
		Timestamp: time.Now(),
	}
}

// WithStatement sets the statement ID
func (a *AuditLog) WithStatement(statementID string) *AuditLog {
	if statementID != "" {
		a.StatementID = &statementID
	}
	return a
}

// WithDecision records the request and the decision reached for it
func (a *AuditLog) WithDecision(resourcePath, subject, action string, decision AuthorizationDecision) *AuditLog {
	reason := string(decision.Reason)
	allowed := decision.Allowed
	a.ResourcePath = &resourcePath
	a.RequestAction = &action
	a.Allowed = &allowed
	a.Reason = &reason
	if subject != "" {
		a.Subject = &subject
	}
	return a.WithStatement(decision.StatementID)
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}
