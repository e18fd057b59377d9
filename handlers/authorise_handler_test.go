package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockAuthoriser is a mock implementation of Authoriser
type MockAuthoriser struct {
	mock.Mock
}

func (m *MockAuthoriser) Authorise(ctx context.Context, req *models.AuthorizationRequest) (models.AuthorizationDecision, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.AuthorizationDecision), args.Error(1)
}

func TestAuthoriseHandler_HandleAuthorised(t *testing.T) {
	t.Run("returns bare decision", func(t *testing.T) {
		authoriser := new(MockAuthoriser)
		handler := NewAuthoriseHandler(authoriser, zap.NewNop())

		authoriser.On("Authorise", mock.Anything, mock.MatchedBy(func(req *models.AuthorizationRequest) bool {
			return req.Action == "hoster:GetObject" &&
				req.Resource["type"] == "hoster:object" &&
				req.User["_id"] == "abc"
		})).Return(models.AuthorizationDecision{
			Allowed:     true,
			StatementID: "Allow get by anybody",
			Reason:      models.ReasonAllow,
		}, nil)

		body := `{"resource":{"type":"hoster:object","_id":"123"},"user":{"_id":"abc"},"action":"hoster:GetObject"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorised", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.HandleAuthorised(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var decision map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.Equal(t, true, decision["allowed"])
		assert.Equal(t, "Allow get by anybody", decision["statementId"])
		assert.Equal(t, "allow", decision["reason"])
		assert.NotContains(t, decision, "data")
		authoriser.AssertExpectations(t)
	})

	t.Run("denied decision is still 200", func(t *testing.T) {
		authoriser := new(MockAuthoriser)
		handler := NewAuthoriseHandler(authoriser, zap.NewNop())

		authoriser.On("Authorise", mock.Anything, mock.Anything).
			Return(models.AuthorizationDecision{Reason: models.ReasonDefaultDeny}, nil)

		body := `{"resource":{"type":"t","_id":"1"},"user":{},"action":"a"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorised", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.HandleAuthorised(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"allowed":false,"reason":"default_deny"}`, w.Body.String())
	})

	t.Run("missing action fails validation", func(t *testing.T) {
		authoriser := new(MockAuthoriser)
		handler := NewAuthoriseHandler(authoriser, zap.NewNop())

		body := `{"resource":{"type":"t","_id":"1"},"user":{}}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorised", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.HandleAuthorised(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		authoriser.AssertNotCalled(t, "Authorise", mock.Anything, mock.Anything)
	})

	t.Run("empty body", func(t *testing.T) {
		authoriser := new(MockAuthoriser)
		handler := NewAuthoriseHandler(authoriser, zap.NewNop())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorised", http.NoBody)
		w := httptest.NewRecorder()

		handler.HandleAuthorised(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Request body is required")
	})

	t.Run("storage failure", func(t *testing.T) {
		authoriser := new(MockAuthoriser)
		handler := NewAuthoriseHandler(authoriser, zap.NewNop())

		authoriser.On("Authorise", mock.Anything, mock.Anything).
			Return(models.AuthorizationDecision{}, services.WrapInternal("failed to load statements", errors.New("db down")))

		body := `{"resource":{"type":"t","_id":"1"},"user":{},"action":"a"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/authorised", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.HandleAuthorised(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "db down")
	})
}
