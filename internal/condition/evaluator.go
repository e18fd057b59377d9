package condition

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/femto-apps/authz/models"
	"github.com/femto-apps/authz/services"
)

// Expression is a compiled condition expression
type Expression struct {
	source string
	root   node
}

// Source returns the text the expression was compiled from
func (e *Expression) Source() string {
	return e.source
}

// String renders the parsed tree with explicit grouping
func (e *Expression) String() string {
	return e.root.String()
}

// Eval evaluates the expression, which must produce a boolean
func (e *Expression) Eval(ctx Context) (bool, error) {
	ok, err := truth(e.root, &ctx)
	if err != nil {
		return false, evaluationError(e.source, err)
	}
	return ok, nil
}

type compiled struct {
	expr *Expression
	err  error
}

// Evaluator compiles expressions once and reuses them across requests.
// It is safe for concurrent use.
type Evaluator struct {
	cache sync.Map // source -> compiled
}

// NewEvaluator creates an Evaluator with an empty expression cache
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Compile parses src, returning the memoised result on repeat calls
func (ev *Evaluator) Compile(src string) (*Expression, error) {
	if cached, ok := ev.cache.Load(src); ok {
		c := cached.(compiled)
		return c.expr, c.err
	}

	var c compiled
	root, err := parse(src)
	if err != nil {
		c.err = services.ErrMalformedExpression.Derive(err).
			WithDetail("expression", src)
	} else {
		c.expr = &Expression{source: src, root: root}
	}

	actual, _ := ev.cache.LoadOrStore(src, c)
	c = actual.(compiled)
	return c.expr, c.err
}

// Evaluate reports whether every operator of the predicate holds
func (ev *Evaluator) Evaluate(predicate models.Predicate, ctx Context) (bool, error) {
	if len(predicate) == 0 {
		return false, services.NewEvaluationError("predicate has no operator", nil)
	}

	operators := make([]string, 0, len(predicate))
	for op := range predicate {
		operators = append(operators, op)
	}
	sort.Strings(operators)

	for _, op := range operators {
		switch op {
		case models.OperatorEnsure, models.OperatorEnsureAlt:
		default:
			return false, services.NewEvaluationError("unknown predicate operator", nil).
				WithDetail("operator", op)
		}

		expr, err := ev.Compile(predicate[op])
		if err != nil {
			return false, err
		}
		ok, err := expr.Eval(ctx)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// EvaluateCondition reports whether all labelled predicates hold. When one
// does not, its label is returned alongside the result.
func (ev *Evaluator) EvaluateCondition(condition models.Condition, ctx Context) (bool, string, error) {
	labels := make([]string, 0, len(condition))
	for label := range condition {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		ok, err := ev.Evaluate(condition[label], ctx)
		if err != nil {
			return false, label, services.NewEvaluationError(fmt.Sprintf("condition %q could not be evaluated", label), err).
				WithDetail("label", label)
		}
		if !ok {
			return false, label, nil
		}
	}
	return true, "", nil
}

func evaluationError(src string, err error) error {
	var unknown *unknownPathError
	if errors.As(err, &unknown) {
		return services.NewEvaluationError(unknown.Error(), services.ErrUnknownAttribute).
			WithDetail("expression", src).
			WithDetail("path", unknown.path)
	}
	return services.NewEvaluationError(fmt.Sprintf("cannot evaluate condition: %v", err), nil).
		WithDetail("expression", src)
}
