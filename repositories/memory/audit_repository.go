package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/repositories"
	"github.com/google/uuid"
)

const defaultAuditLimit = 100

// AuditRepository keeps the most recent audit logs in a bounded ring
type AuditRepository struct {
	mu       sync.RWMutex
	logs     []*models.AuditLog
	capacity int
}

// NewAuditRepository creates a ring holding at most capacity entries
func NewAuditRepository(capacity int) *AuditRepository {
	if capacity <= 0 {
		capacity = 1
	}
	return &AuditRepository{capacity: capacity}
}

// Insert appends a log entry, evicting the oldest when full
func (r *AuditRepository) Insert(_ context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := *log
	r.logs = append(r.logs, &entry)
	if over := len(r.logs) - r.capacity; over > 0 {
		r.logs = append(r.logs[:0:0], r.logs[over:]...)
	}
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(_ context.Context, id uuid.UUID) (*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, log := range r.logs {
		if log.ID == id {
			entry := *log
			return &entry, nil
		}
	}
	return nil, fmt.Errorf("audit log %s: %w", id, repositories.ErrNotFound)
}

// List retrieves audit logs newest first
func (r *AuditRepository) List(_ context.Context, filter repositories.AuditFilter) ([]*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	skip := filter.Offset

	var result []*models.AuditLog
	for i := len(r.logs) - 1; i >= 0 && len(result) < limit; i-- {
		log := r.logs[i]
		if !matches(log, filter) {
			continue
		}
		if skip > 0 {
			skip--
			continue
		}
		entry := *log
		result = append(result, &entry)
	}
	return result, nil
}

func matches(log *models.AuditLog, filter repositories.AuditFilter) bool {
	if filter.Action != "" && log.Action != filter.Action {
		return false
	}
	if filter.StatementID != "" && (log.StatementID == nil || *log.StatementID != filter.StatementID) {
		return false
	}
	if filter.RequestID != "" && log.RequestID != filter.RequestID {
		return false
	}
	return true
}
