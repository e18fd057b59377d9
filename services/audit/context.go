package audit

import (
	"context"

	"github.com/femto-apps/authz/models"
)

// RequestMeta identifies the HTTP request that caused an audited event
type RequestMeta struct {
	RequestID string
	IPAddress string
	UserAgent string
}

type requestMetaKey struct{}

// WithRequestMeta attaches request metadata to ctx
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext returns the metadata stored by WithRequestMeta
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta, ok
}

func withMeta(ctx context.Context, log *models.AuditLog) *models.AuditLog {
	if meta, ok := RequestMetaFromContext(ctx); ok {
		log.WithRequest(meta.RequestID, meta.IPAddress, meta.UserAgent)
	}
	return log
}
