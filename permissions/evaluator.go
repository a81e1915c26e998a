package permissions

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
)

// EvaluatorFunc decides whether principal satisfies spec. It must not have
// side effects: every spec of a call is evaluated, concurrently, even when
// the result is already known.
type EvaluatorFunc func(ctx context.Context, spec RawSpec, principal *Principal) (bool, error)

// Registry maps spec types to their evaluators.
type Registry map[string]EvaluatorFunc

// DefaultRegistry returns the built-in evaluators: "permission".
func DefaultRegistry() Registry {
	return Registry{
		PermissionType: evaluatePermission,
	}
}

func evaluatePermission(_ context.Context, spec RawSpec, principal *Principal) (bool, error) {
	var s PermissionSpec
	if err := spec.Decode(&s); err != nil {
		return false, err
	}
	if s.Permission == "" {
		return false, fmt.Errorf("%w: permission spec has an empty permission", ErrConfiguration)
	}
	return principal.Permissions.Has(s.Permission), nil
}

// FactoryOption is how options for the Factory are set up.
type FactoryOption func(*Factory) error

// WithEvaluator registers fn for specType, replacing any default.
func WithEvaluator(specType string, fn EvaluatorFunc) FactoryOption {
	return func(f *Factory) error {
		if specType == "" {
			return errors.New("spec type cannot be empty")
		}
		if fn == nil {
			return fmt.Errorf("evaluator for %q cannot be nil", specType)
		}
		f.registry[specType] = fn
		return nil
	}
}

// WithRegistry registers every entry of registry, replacing defaults on
// collision.
func WithRegistry(registry Registry) FactoryOption {
	return func(f *Factory) error {
		for specType, fn := range registry {
			if err := WithEvaluator(specType, fn)(f); err != nil {
				return err
			}
		}
		return nil
	}
}

// Factory builds Evaluators that share one registry.
type Factory struct {
	registry Registry
}

// NewFactory returns a Factory whose registry is DefaultRegistry overridden
// by the given options.
func NewFactory(opts ...FactoryOption) (*Factory, error) {
	f := &Factory{registry: DefaultRegistry()}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return f, nil
}

// Types returns the registered spec types in sorted order.
func (f *Factory) Types() []string {
	types := make([]string, 0, len(f.registry))
	for t := range f.registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// ForPrincipal returns an Evaluator bound to principal.
func (f *Factory) ForPrincipal(principal *Principal) *Evaluator {
	if principal == nil {
		principal = &Principal{}
	}
	return &Evaluator{principal: principal, registry: f.registry}
}

// Evaluator answers permission questions about a single principal.
type Evaluator struct {
	principal *Principal
	registry  Registry
}

// Principal returns the principal the evaluator is bound to.
func (e *Evaluator) Principal() *Principal {
	return e.principal
}

// HasPermissions reports whether every spec holds. It is true for no specs.
func (e *Evaluator) HasPermissions(ctx context.Context, specs ...RawSpec) (bool, error) {
	results, err := e.evaluate(ctx, specs)
	if err != nil {
		return false, err
	}
	for _, ok := range results {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// HasAnyPermission reports whether at least one spec holds. It is false for
// no specs.
func (e *Evaluator) HasAnyPermission(ctx context.Context, specs ...RawSpec) (bool, error) {
	results, err := e.evaluate(ctx, specs)
	if err != nil {
		return false, err
	}
	for _, ok := range results {
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AssertPermissions returns an error matching ErrPermissionDenied unless
// every spec holds.
func (e *Evaluator) AssertPermissions(ctx context.Context, specs ...RawSpec) error {
	ok, err := e.HasPermissions(ctx, specs...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: requires all of %s", ErrPermissionDenied, describe(specs))
	}
	return nil
}

// AssertAnyPermission returns an error matching ErrPermissionDenied unless
// at least one spec holds.
func (e *Evaluator) AssertAnyPermission(ctx context.Context, specs ...RawSpec) error {
	ok, err := e.HasAnyPermission(ctx, specs...)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: requires any of %s", ErrPermissionDenied, describe(specs))
	}
	return nil
}

// evaluate runs every spec concurrently and waits for all of them.
func (e *Evaluator) evaluate(ctx context.Context, specs []RawSpec) ([]bool, error) {
	evaluators := make([]EvaluatorFunc, len(specs))
	for i, spec := range specs {
		fn, ok := e.registry[spec.Type]
		if !ok {
			return nil, fmt.Errorf("%w: no evaluator registered for spec type %q", ErrConfiguration, spec.Type)
		}
		evaluators[i] = fn
	}

	results := make([]bool, len(specs))

	var g errgroup.Group
	for i, spec := range specs {
		g.Go(func() error {
			ok, err := evaluators[i](ctx, spec, e.principal)
			if err != nil {
				return fmt.Errorf("evaluate %q spec: %w", spec.Type, err)
			}
			results[i] = ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func describe(specs []RawSpec) string {
	parts := make([]string, len(specs))
	for i, spec := range specs {
		parts[i] = spec.Type
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
