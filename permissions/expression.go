package permissions

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-bexpr"
)

// ExpressionEvaluator returns an evaluator for "expression" specs, boolean
// go-bexpr expressions over principal_id and permissions, e.g.
//
//	"admin" in permissions or principal_id == "svc-backup"
//
// A syntax error is a configuration error. An expression that cannot be
// evaluated against the principal is false.
func ExpressionEvaluator() EvaluatorFunc {
	cache := newExpressionCache()

	return func(_ context.Context, spec RawSpec, principal *Principal) (bool, error) {
		var s ExpressionSpec
		if err := spec.Decode(&s); err != nil {
			return false, err
		}
		if strings.TrimSpace(s.Expression) == "" {
			return false, fmt.Errorf("%w: expression spec has an empty expression", ErrConfiguration)
		}

		evaluator, err := cache.compile(s.Expression)
		if err != nil {
			return false, err
		}

		matches, err := evaluator.Evaluate(map[string]any{
			"principal_id": principal.PrincipalID,
			"permissions":  principal.Permissions.Slice(),
		})
		if err != nil {
			return false, nil
		}
		return matches, nil
	}
}

// expressionCache stores compiled expressions keyed by source text. Each
// evaluator returned by ExpressionEvaluator owns one.
type expressionCache struct {
	mu         sync.RWMutex
	evaluators map[string]*bexpr.Evaluator
}

func newExpressionCache() *expressionCache {
	return &expressionCache{evaluators: make(map[string]*bexpr.Evaluator)}
}

func (c *expressionCache) compile(expression string) (*bexpr.Evaluator, error) {
	c.mu.RLock()
	evaluator, ok := c.evaluators[expression]
	c.mu.RUnlock()
	if ok {
		return evaluator, nil
	}

	evaluator, err := bexpr.CreateEvaluator(expression)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid expression %q: %w", ErrConfiguration, expression, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.evaluators[expression]; ok {
		return cached, nil
	}
	c.evaluators[expression] = evaluator
	return evaluator, nil
}

func (c *expressionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.evaluators)
}
