package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/femto-apps/authz/models"
)

func TestParseResource(t *testing.T) {
	tests := []struct {
		name     string
		resource map[string]any
		want     *Resource
		wantPath string
	}{
		{"type only", map[string]any{"type": "hoster:object"}, &Resource{Type: "hoster:object"}, "hoster:object:"},
		{"underscore id", map[string]any{"type": "hoster:object", "_id": "123"}, &Resource{Type: "hoster:object", ID: "123"}, "hoster:object:123"},
		{"plain id fallback", map[string]any{"type": "hoster:image", "id": "img-1"}, &Resource{Type: "hoster:image", ID: "img-1"}, "hoster:image:img-1"},
		{"underscore id wins", map[string]any{"type": "t", "_id": "a", "id": "b"}, &Resource{Type: "t", ID: "a"}, "t:a"},
		{"json number id", map[string]any{"type": "t", "_id": json.Number("42")}, &Resource{Type: "t", ID: "42"}, "t:42"},
		{"float id", map[string]any{"type": "t", "id": float64(7)}, &Resource{Type: "t", ID: "7"}, "t:7"},
		{"object id ignored", map[string]any{"type": "t", "_id": map[string]any{}}, &Resource{Type: "t"}, "t:"},
		{"id with separator", map[string]any{"type": "t", "_id": "a:b"}, &Resource{Type: "t", ID: "a:b"}, "t:a:b"},
		{"no type", map[string]any{"_id": "123"}, nil, ""},
		{"non string type", map[string]any{"type": 5}, nil, ""},
		{"nil resource", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResource(tt.resource)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantPath, got.Path())
		})
	}
}

func TestMatchResource(t *testing.T) {
	object := func(id string) *Resource { return &Resource{Type: "hoster:object", ID: id} }

	tests := []struct {
		name    string
		pattern string
		res     *Resource
		want    bool
	}{
		{"wildcard id", "hoster:object:*", object("123"), true},
		{"wildcard matches empty id", "hoster:object:*", object(""), true},
		{"wildcard matches id with slash", "hoster:object:*", object("a/b"), true},
		{"wildcard matches id with separator", "hoster:object:*", object("a:b"), true},
		{"id with separator is one segment", "hoster:object:a:*", object("a:b"), false},
		{"escaped separator matches literal", `hoster:object:a\:b`, object("a:b"), true},
		{"question mark matches slash", "hoster:object:a?b", object("a/b"), true},
		{"different type", "hoster:object:*", &Resource{Type: "hoster:image", ID: "123"}, false},
		{"exact", "hoster:object:123", object("123"), true},
		{"exact mismatch", "hoster:object:123", object("124"), false},
		{"segment count differs", "hoster:*", object("123"), false},
		{"pattern longer than path", "hoster:object:*:*", object("1"), false},
		{"question mark", "hoster:object:1?3", object("123"), true},
		{"character class", "hoster:object:[0-9]*", object("9z"), true},
		{"negated class", "hoster:object:[^0-9]*", object("9z"), false},
		{"prefix glob in segment", "hoster:obj*:1", object("1"), true},
		{"glob does not cross segments", "hoster*:1", object("1"), false},
		{"trailing double star", "hoster:**", object("123"), true},
		{"double star matches nothing more", "hoster:object:**", &Resource{Type: "hoster", ID: "object"}, true},
		{"double star needs prefix", "hoster:**", &Resource{Type: "other:object", ID: "1"}, false},
		{"match all", "*", &Resource{Type: "anything:at", ID: "all"}, true},
		{"match all without path", "*", nil, true},
		{"no path only matches all", "hoster:object:*", nil, false},
		{"malformed pattern", "hoster:[", &Resource{Type: "hoster", ID: "["}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchResource(tt.pattern, tt.res))
		})
	}
}

func TestMatchAction(t *testing.T) {
	actions := models.ActionList{"hoster:DeleteObject", "hoster:UpdateObject"}
	assert.True(t, MatchAction(actions, "hoster:UpdateObject"))
	assert.False(t, MatchAction(actions, "hoster:GetObject"))
	assert.False(t, MatchAction(models.ActionList{"hoster:*"}, "hoster:GetObject"))
}

func TestMatches(t *testing.T) {
	stmt := &models.Statement{
		Effect:   models.EffectAllow,
		Action:   models.ActionList{"hoster:GetObject"},
		Resource: "hoster:object:*",
	}

	assert.True(t, Matches(stmt, "hoster:GetObject", &Resource{Type: "hoster:object", ID: "1"}))
	assert.False(t, Matches(stmt, "hoster:DeleteObject", &Resource{Type: "hoster:object", ID: "1"}))
	assert.False(t, Matches(stmt, "hoster:GetObject", &Resource{Type: "hoster:image", ID: "1"}))
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "abc", Subject(map[string]any{"_id": "abc", "id": "ignored"}))
	assert.Equal(t, "7", Subject(map[string]any{"id": 7}))
	assert.Equal(t, "", Subject(map[string]any{"name": "anon"}))
	assert.Equal(t, "", Subject(nil))
}
