package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionList_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ActionList
		wantErr bool
	}{
		{"single string", `"hoster:GetObject"`, ActionList{"hoster:GetObject"}, false},
		{"array", `["hoster:DeleteObject","hoster:UpdateObject"]`, ActionList{"hoster:DeleteObject", "hoster:UpdateObject"}, false},
		{"null", `null`, nil, false},
		{"number", `42`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ActionList
			err := json.Unmarshal([]byte(tt.input), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestActionList_MarshalJSON(t *testing.T) {
	single, err := json.Marshal(ActionList{"hoster:GetObject"})
	require.NoError(t, err)
	assert.JSONEq(t, `"hoster:GetObject"`, string(single))

	many, err := json.Marshal(ActionList{"a", "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(many))
}

func TestActionList_Contains(t *testing.T) {
	actions := ActionList{"hoster:DeleteObject", "hoster:UpdateObject"}
	assert.True(t, actions.Contains("hoster:DeleteObject"))
	assert.True(t, actions.Contains("hoster:UpdateObject"))
	assert.False(t, actions.Contains("hoster:GetObject"))
}

func TestStatementSet_UnmarshalJSON(t *testing.T) {
	t.Run("single statement", func(t *testing.T) {
		var set StatementSet
		err := json.Unmarshal([]byte(`{"effect":"allow","action":"hoster:GetObject","resource":"hoster:object:*"}`), &set)
		require.NoError(t, err)
		require.Len(t, set, 1)
		assert.Equal(t, EffectAllow, set[0].Effect)
		assert.Equal(t, ActionList{"hoster:GetObject"}, set[0].Action)
	})

	t.Run("ordered list with condition", func(t *testing.T) {
		payload := `[
			{"id":"Allow get by anybody","effect":"allow","action":"hoster:GetObject","resource":"hoster:object:*"},
			{"id":"Allow delete / update own object","effect":"allow",
			 "action":["hoster:DeleteObject","hoster:UpdateObject"],"resource":"hoster:object:*",
			 "condition":{"owns hosted image":{"%ensure":"resource.owner._id == user._id"}}}
		]`
		var set StatementSet
		err := json.Unmarshal([]byte(payload), &set)
		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.Equal(t, "Allow get by anybody", set[0].ID)
		assert.False(t, set[0].HasCondition())
		assert.True(t, set[1].HasCondition())
		assert.Equal(t, "resource.owner._id == user._id", set[1].Condition["owns hosted image"][OperatorEnsure])
	})
}

func TestStatement_EnsureID(t *testing.T) {
	s := Statement{}
	s.EnsureID()
	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)

	named := Statement{ID: "keep-me"}
	named.EnsureID()
	assert.Equal(t, "keep-me", named.ID)
}

func TestStatement_MarshalJSON_CreatedAt(t *testing.T) {
	stmt := Statement{ID: "s1", Effect: EffectAllow, Action: ActionList{"a"}, Resource: "*"}

	unset, err := json.Marshal(stmt)
	require.NoError(t, err)
	assert.NotContains(t, string(unset), "createdAt")

	stmt.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	set, err := json.Marshal(stmt)
	require.NoError(t, err)
	assert.Contains(t, string(set), `"createdAt":"2026-01-02T03:04:05Z"`)
}

func TestStatement_TableName(t *testing.T) {
	assert.Equal(t, "statements", Statement{}.TableName())
	assert.Equal(t, "audit_logs", AuditLog{}.TableName())
}

func TestAuditLog_WithDecision(t *testing.T) {
	log := NewAuditLog(AuditActionAuthorisationDecided).
		WithDecision("hoster:object:123", "abc", "hoster:GetObject", AuthorizationDecision{
			Allowed:     true,
			StatementID: "s1",
			Reason:      ReasonAllow,
		}).
		WithRequest("req-1", "10.0.0.1", "go-test")

	assert.NotEqual(t, uuid.Nil, log.ID)
	require.NotNil(t, log.Allowed)
	assert.True(t, *log.Allowed)
	require.NotNil(t, log.StatementID)
	assert.Equal(t, "s1", *log.StatementID)
	assert.Equal(t, "allow", *log.Reason)
	assert.Equal(t, "abc", *log.Subject)
	assert.Equal(t, "req-1", log.RequestID)
}

func TestAuditLog_DefaultDenyHasNoStatement(t *testing.T) {
	log := NewAuditLog(AuditActionAuthorisationDecided).
		WithDecision("hoster:image:1", "", "hoster:GetObject", AuthorizationDecision{Reason: ReasonDefaultDeny})

	assert.Nil(t, log.StatementID)
	assert.Nil(t, log.Subject)
	assert.False(t, *log.Allowed)
}

func TestAuditLog_WithDetails(t *testing.T) {
	log := NewAuditLog(AuditActionStatementRegistered).WithDetails(map[string]interface{}{"effect": "deny"})
	assert.JSONEq(t, `{"effect":"deny"}`, string(log.Details))
}
