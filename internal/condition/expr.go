package condition

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Context carries the request attributes an expression is evaluated against
type Context struct {
	Resource map[string]any
	User     map[string]any
	Action   string
}

// Roots that a path expression may start from
const (
	RootResource = "resource"
	RootUser     = "user"
	RootAction   = "action"
)

// node is one element of a compiled expression tree
type node interface {
	value(ctx *Context) (any, error)
	String() string
}

type literalNode struct {
	v any
}

func (n *literalNode) value(*Context) (any, error) { return n.v, nil }

func (n *literalNode) String() string {
	switch v := n.v.(type) {
	case string:
		return strconv.Quote(v)
	case nil:
		return "null"
	default:
		return fmt.Sprint(v)
	}
}

type pathNode struct {
	root     string
	segments []string
}

func (n *pathNode) String() string {
	if len(n.segments) == 0 {
		return n.root
	}
	return n.root + "." + strings.Join(n.segments, ".")
}

func (n *pathNode) value(ctx *Context) (any, error) {
	var current any
	switch n.root {
	case RootResource:
		current = ctx.Resource
	case RootUser:
		current = ctx.User
	case RootAction:
		current = ctx.Action
	}

	for i, segment := range n.segments {
		var (
			next  any
			found bool
		)
		switch m := current.(type) {
		case map[string]any:
			next, found = m[segment]
		case map[string]string:
			next, found = m[segment]
		default:
			return nil, fmt.Errorf("%s is not an object", n.prefix(i))
		}
		if !found {
			return nil, &unknownPathError{path: n.prefix(i + 1)}
		}
		current = next
	}
	return current, nil
}

// prefix renders the path up to and excluding segment i
func (n *pathNode) prefix(i int) string {
	return (&pathNode{root: n.root, segments: n.segments[:i]}).String()
}

type notNode struct {
	operand node
}

func (n *notNode) String() string { return "!" + n.operand.String() }

func (n *notNode) value(ctx *Context) (any, error) {
	b, err := truth(n.operand, ctx)
	if err != nil {
		return nil, err
	}
	return !b, nil
}

type logicalNode struct {
	and         bool
	left, right node
}

func (n *logicalNode) String() string {
	op := "||"
	if n.and {
		op = "&&"
	}
	return "(" + n.left.String() + " " + op + " " + n.right.String() + ")"
}

func (n *logicalNode) value(ctx *Context) (any, error) {
	left, err := truth(n.left, ctx)
	if err != nil {
		return nil, err
	}
	if n.and && !left {
		return false, nil
	}
	if !n.and && left {
		return true, nil
	}
	return truth(n.right, ctx)
}

type compareNode struct {
	negate      bool
	left, right node
}

func (n *compareNode) String() string {
	op := "=="
	if n.negate {
		op = "!="
	}
	return n.left.String() + " " + op + " " + n.right.String()
}

func (n *compareNode) value(ctx *Context) (any, error) {
	left, err := n.left.value(ctx)
	if err != nil {
		return nil, err
	}
	right, err := n.right.value(ctx)
	if err != nil {
		return nil, err
	}
	eq, err := equal(left, right)
	if err != nil {
		return nil, err
	}
	return eq != n.negate, nil
}

// truth evaluates n and requires the result to be a boolean
func truth(n node, ctx *Context) (bool, error) {
	v, err := n.value(ctx)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s is %s, not a boolean", n.String(), kindOf(v))
	}
	return b, nil
}

// equal compares two scalars. Numbers compare numerically; values of
// different kinds are never equal.
func equal(a, b any) (bool, error) {
	a, err := scalar(a)
	if err != nil {
		return false, err
	}
	b, err = scalar(b)
	if err != nil {
		return false, err
	}
	return a == b, nil
}

// scalar normalises a comparable value, folding every numeric type to float64
func scalar(v any) (any, error) {
	switch t := v.(type) {
	case nil, string, bool, float64:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", t.String())
		}
		return f, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	default:
		return nil, fmt.Errorf("cannot compare %s", kindOf(v))
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case map[string]any, map[string]string:
		return "an object"
	case []any, []string:
		return "an array"
	}
	if _, err := scalar(v); err == nil {
		return "a number"
	}
	return fmt.Sprintf("a %T", v)
}

type unknownPathError struct {
	path string
}

func (e *unknownPathError) Error() string {
	return fmt.Sprintf("unknown attribute path %s", e.path)
}
