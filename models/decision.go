package models

// DecisionReason explains which rule produced a decision
type DecisionReason string

const (
	ReasonExplicitDeny DecisionReason = "explicit_deny"
	ReasonAllow        DecisionReason = "allow"
	ReasonDefaultDeny  DecisionReason = "default_deny"
)

// AuthorizationRequest asks whether user may perform action on resource.
// Resource and User are free-form attribute bags.
type AuthorizationRequest struct {
	Resource map[string]any `json:"resource" validate:"required"`
	User     map[string]any `json:"user"`
	Action   string         `json:"action" validate:"required"`
}

// AuthorizationDecision is the engine's answer for one request
type AuthorizationDecision struct {
	Allowed     bool           `json:"allowed"`
	StatementID string         `json:"statementId,omitempty"`
	Reason      DecisionReason `json:"reason,omitempty"`
}
