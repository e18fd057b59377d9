// Package observability provides structured logging and metrics for the
// authorisation server.
//
// This package implements:
//   - Structured logging with contextual fields (zap-based)
//   - Prometheus metrics for decisions, condition failures and registrations
//   - Request ID propagation into log fields
package observability
