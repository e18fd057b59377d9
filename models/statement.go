package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Effect is the outcome a matching statement contributes
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Predicate operators. Both spellings require the expression to hold.
const (
	OperatorEnsure    = "%ensure"
	OperatorEnsureAlt = "$ensure"
)

// ActionList is the set of actions a statement applies to.
// On the wire it is either a single string or an array of strings.
type ActionList []string

// UnmarshalJSON accepts "hoster:GetObject" as well as ["a", "b"]
func (a *ActionList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*a = ActionList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("action must be a string or an array of strings: %w", err)
	}
	*a = many
	return nil
}

// MarshalJSON writes a single action back as a plain string
func (a ActionList) MarshalJSON() ([]byte, error) {
	if len(a) == 1 {
		return json.Marshal(a[0])
	}
	return json.Marshal([]string(a))
}

// Contains reports whether action is a member of the list
func (a ActionList) Contains(action string) bool {
	for _, candidate := range a {
		if candidate == action {
			return true
		}
	}
	return false
}

// Predicate maps an operator such as "%ensure" to an expression string
type Predicate map[string]string

// Condition maps a human readable label to the predicate guarding it
type Condition map[string]Predicate

// Statement is a policy rule binding an effect to actions on a resource pattern
type Statement struct {
	ID        string     `json:"id,omitempty" db:"id"`
	Effect    Effect     `json:"effect" db:"effect" validate:"required,oneof=allow deny"`
	Action    ActionList `json:"action" db:"actions" validate:"required,min=1,dive,required"`
	Resource  string     `json:"resource" db:"resource" validate:"required"`
	Condition Condition  `json:"condition,omitempty" db:"condition"`
	CreatedAt time.Time  `json:"createdAt,omitzero" db:"created_at"`
}

// TableName returns the table name for the Statement model
func (Statement) TableName() string {
	return "statements"
}

// EnsureID assigns a generated identifier when none was supplied
func (s *Statement) EnsureID() {
	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}
}

// HasCondition reports whether the statement is guarded by predicates
func (s *Statement) HasCondition() bool {
	return len(s.Condition) > 0
}

// StatementSet is the registration payload: one statement or an ordered list
type StatementSet []Statement

// UnmarshalJSON accepts either a single statement object or an array
func (s *StatementSet) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var single Statement
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*s = StatementSet{single}
		return nil
	}
	var many []Statement
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// RegistrationResult reports the identifiers assigned to registered statements
type RegistrationResult struct {
	Registered int      `json:"registered"`
	IDs        []string `json:"ids"`
}
