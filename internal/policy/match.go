package policy

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/femto-apps/authz/models"
)

const (
	// Separator splits resource patterns and paths into segments
	Separator = ":"
	// MatchAll is the pattern that matches every resource
	MatchAll = "*"
	// MatchRest as the final pattern segment matches any remaining segments
	MatchRest = "**"
)

// Resource is the matchable form of a request resource. Type splits into
// segments on the separator; ID is always exactly one trailing segment, so
// an identifier containing the separator or '/' cannot shift the match.
type Resource struct {
	Type string
	ID   string
}

// Path renders the resource as "type:identifier"
func (r *Resource) Path() string {
	if r == nil {
		return ""
	}
	return r.Type + Separator + r.ID
}

func (r *Resource) segments() []string {
	segs := strings.Split(r.Type, Separator)
	return append(segs, r.ID)
}

// ParseResource derives the matchable resource from its "type" and
// identifier attributes. The identifier is "_id", falling back to "id".
// It returns nil when the resource has no string type.
func ParseResource(resource map[string]any) *Resource {
	typ, ok := resource["type"].(string)
	if !ok || typ == "" {
		return nil
	}
	return &Resource{Type: typ, ID: Subject(resource)}
}

// Subject returns the identifier of a user attribute bag, or "" when it has none
func Subject(user map[string]any) string {
	if id := identifier(user["_id"]); id != "" {
		return id
	}
	return identifier(user["id"])
}

func identifier(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// MatchResource reports whether pattern matches the resource. Patterns are
// compared segment by segment with glob rules inside each segment; a
// trailing "**" segment swallows the rest of the resource. A nil resource
// only matches "*".
func MatchResource(pattern string, res *Resource) bool {
	if pattern == MatchAll {
		return true
	}
	if res == nil {
		return false
	}

	patternSegs := splitSegments(pattern)
	pathSegs := res.segments()

	for i, seg := range patternSegs {
		if seg == MatchRest && i == len(patternSegs)-1 {
			return len(pathSegs) >= i
		}
		if i >= len(pathSegs) {
			return false
		}
		if !matchSegment(seg, pathSegs[i]) {
			return false
		}
	}
	return len(patternSegs) == len(pathSegs)
}

// splitSegments splits a pattern on unescaped separators, so "\:" stays
// inside its segment and matches a literal ':' in an identifier
func splitSegments(pattern string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case Separator[0]:
			segs = append(segs, pattern[start:i])
			start = i + 1
		}
	}
	return append(segs, pattern[start:])
}

// MatchAction reports whether the statement covers the requested action
func MatchAction(actions models.ActionList, action string) bool {
	return actions.Contains(action)
}

// Matches reports whether a statement applies to the action and resource,
// ignoring its condition
func Matches(stmt *models.Statement, action string, res *Resource) bool {
	return MatchAction(stmt.Action, action) && MatchResource(stmt.Resource, res)
}
