package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/femto-apps/authz/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*credential.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credential.Principal), args.Error(1)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func failHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("valid credential allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		principal := &credential.Principal{Subject: "svc", Scopes: []string{credential.ScopeAuthorise}, Method: credential.MethodJWT}
		mockValidator.On("ValidateToken", mock.Anything, "valid-token").Return(principal, nil)

		handler := middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extracted := GetPrincipalFromContext(r.Context())
			require.NotNil(t, extracted)
			assert.Equal(t, "svc", extracted.Subject)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorised", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("scheme is case insensitive", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)
		mockValidator.On("ValidateToken", mock.Anything, "key").Return(&credential.Principal{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "bearer   key ")
		w := httptest.NewRecorder()

		middleware.RequireAuth(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing credential returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		middleware.RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, `Bearer realm="authz"`, w.Header().Get("WWW-Authenticate"))
		mockValidator.AssertNotCalled(t, "ValidateToken")
	})

	t.Run("invalid authorization header format returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		w := httptest.NewRecorder()

		middleware.RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockValidator.AssertNotCalled(t, "ValidateToken")
	})

	t.Run("invalid credential returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)
		mockValidator.On("ValidateToken", mock.Anything, "invalid-token").
			Return(nil, errors.New("token validation failed"))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		middleware.RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "unauthorized", body["error"])
		mockValidator.AssertExpectations(t)
	})

	t.Run("expired token returns 401", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		middleware := NewAuthMiddleware(mockValidator, logger)
		mockValidator.On("ValidateToken", mock.Anything, "expired-token").
			Return(nil, credential.ErrTokenExpired)

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		w := httptest.NewRecorder()

		middleware.RequireAuth(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireScope(t *testing.T) {
	logger := zap.NewNop()
	middleware := NewAuthMiddleware(new(MockTokenValidator), logger)

	t.Run("caller with scope passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &credential.Principal{
			Scopes: []string{credential.ScopeStatementsRead},
		}))
		w := httptest.NewRecorder()

		middleware.RequireScope(credential.ScopeStatementsRead)(okHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("caller without scope returns 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		req = req.WithContext(WithPrincipal(req.Context(), &credential.Principal{
			Scopes: []string{credential.ScopeAuthorise},
		}))
		w := httptest.NewRecorder()

		middleware.RequireScope(credential.ScopeStatementsWrite)(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing principal returns 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		middleware.RequireScope(credential.ScopeAuditRead)(failHandler(t)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthMiddleware_WithCredentialValidator(t *testing.T) {
	validator := credential.NewValidator(credential.Config{
		SharedKey: "shared",
		JWTSecret: "jwt-secret-for-middleware-tests",
	})
	middleware := NewAuthMiddleware(validator, zap.NewNop())
	chain := func(scope string) http.Handler {
		return middleware.RequireAuth(middleware.RequireScope(scope)(okHandler()))
	}

	readOnly, err := validator.IssueToken("reader", []string{credential.ScopeStatementsRead}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		scope  string
		status int
	}{
		{"shared key has every scope", "shared", credential.ScopeStatementsWrite, http.StatusOK},
		{"token within scope", readOnly, credential.ScopeStatementsRead, http.StatusOK},
		{"token outside scope", readOnly, credential.ScopeStatementsWrite, http.StatusForbidden},
		{"unknown key", "guess", credential.ScopeAuthorise, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()

			chain(tt.scope).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAuthMiddleware_UnconfiguredRejectsAll(t *testing.T) {
	middleware := NewAuthMiddleware(credential.NewValidator(credential.Config{}), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer anything")
	w := httptest.NewRecorder()

	middleware.RequireAuth(failHandler(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
