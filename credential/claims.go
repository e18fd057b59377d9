package credential

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Scopes granted to API callers
const (
	ScopeStatementsWrite = "statements:write"
	ScopeStatementsRead  = "statements:read"
	ScopeAuthorise       = "authorise"
	ScopeAuditRead       = "audit:read"
)

// AllScopes lists every scope; the shared key is granted all of them
var AllScopes = []string{
	ScopeStatementsWrite,
	ScopeStatementsRead,
	ScopeAuthorise,
	ScopeAuditRead,
}

// Methods by which a caller authenticated
const (
	MethodSharedKey = "shared_key"
	MethodJWT       = "jwt"
)

// Claims represents the claims carried by a scoped API token
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"` // space separated
}

// Principal is an authenticated API caller
type Principal struct {
	Subject string
	Scopes  []string
	Method  string
}

// HasScope reports whether the principal was granted scope
func (p *Principal) HasScope(scope string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ParseScope splits a space separated scope claim
func ParseScope(scope string) []string {
	return strings.Fields(scope)
}

// FormatScope joins scopes into a scope claim
func FormatScope(scopes []string) string {
	return strings.Join(scopes, " ")
}
