package middleware

import (
	"context"

	"github.com/femto-apps/authz/credential"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// PrincipalKey is the context key for the authenticated caller
	PrincipalKey contextKey = "principal"
)

// GetRequestIDFromContext retrieves the request ID from context.
// It falls back to the id assigned by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok && requestID != "" {
			return requestID
		}
	}
	return chimw.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetPrincipalFromContext retrieves the authenticated caller from context
func GetPrincipalFromContext(ctx context.Context) *credential.Principal {
	if val := ctx.Value(PrincipalKey); val != nil {
		if principal, ok := val.(*credential.Principal); ok {
			return principal
		}
	}
	return nil
}

// WithPrincipal adds the authenticated caller to the context
func WithPrincipal(ctx context.Context, principal *credential.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, principal)
}
