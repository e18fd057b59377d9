package credential

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the credential is not accepted
	ErrInvalidToken = errors.New("invalid credential")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidIssuer is returned when the token issuer is invalid
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrNotConfigured is returned when no credential is configured at all
	ErrNotConfigured = errors.New("no credential configured")

	// ErrSigningDisabled is returned when tokens are issued without a secret
	ErrSigningDisabled = errors.New("token signing secret not configured")
)

// Config holds the credentials the validator accepts
type Config struct {
	SharedKey string // accepted verbatim, grants every scope
	JWTSecret string // HS256 signing secret for scoped tokens
	JWTIssuer string // required issuer when set
}

// Validator accepts either the shared key or an HS256 token carrying scopes.
// With neither configured every credential is rejected.
type Validator struct {
	sharedKey []byte
	secret    []byte
	issuer    string
}

// NewValidator creates a new credential validator
func NewValidator(config Config) *Validator {
	v := &Validator{issuer: config.JWTIssuer}
	if config.SharedKey != "" {
		v.sharedKey = []byte(config.SharedKey)
	}
	if config.JWTSecret != "" {
		v.secret = []byte(config.JWTSecret)
	}
	return v
}

// Configured reports whether any credential can be accepted
func (v *Validator) Configured() bool {
	return len(v.sharedKey) > 0 || len(v.secret) > 0
}

// ValidateToken validates a bearer credential and returns the caller
func (v *Validator) ValidateToken(_ context.Context, token string) (*Principal, error) {
	if !v.Configured() {
		return nil, ErrNotConfigured
	}
	if token == "" {
		return nil, ErrInvalidToken
	}

	if len(v.sharedKey) > 0 && subtle.ConstantTimeCompare([]byte(token), v.sharedKey) == 1 {
		return &Principal{
			Subject: MethodSharedKey,
			Scopes:  append([]string(nil), AllScopes...),
			Method:  MethodSharedKey,
		}, nil
	}

	if len(v.secret) == 0 {
		return nil, ErrInvalidToken
	}
	return v.parseJWT(token)
}

func (v *Validator) parseJWT(tokenString string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, fmt.Errorf("%w: expected %s", ErrInvalidIssuer, v.issuer)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &Principal{
		Subject: claims.Subject,
		Scopes:  ParseScope(claims.Scope),
		Method:  MethodJWT,
	}, nil
}

// IssueToken signs a scoped token for subject valid for ttl
func (v *Validator) IssueToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSigningDisabled
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Scope: FormatScope(scopes),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
