package engine

import (
	"fmt"
	"strings"

	"speechd/pkg/types"
)

// Factory instantiates an engine for a model whose weights are already on
// disk at mdl.Path.
type Factory func(mdl types.Model) (Engine, error)

// binding associates a model-id prefix with a constructor. The table is
// closed: backends are compiled in, not discovered at runtime.
type binding struct {
	prefix  string
	kind    types.ModelKind
	factory Factory
}

// Registry resolves a model descriptor to an engine constructor. Resolution
// happens once per load, never per frame.
type Registry struct {
	bindings []binding
}

// NewRegistry returns a registry populated with the compiled-in backends.
// Build tags select real implementations; default builds get stubs that fail
// with a descriptive error at instantiation time.
func NewRegistry() *Registry {
	r := &Registry{}
	registerBuiltins(r)
	return r
}

// Register appends a binding. Longer prefixes win over shorter ones, so a
// specific variant can shadow a family-wide binding.
func (r *Registry) Register(prefix string, kind types.ModelKind, f Factory) {
	r.bindings = append(r.bindings, binding{prefix: prefix, kind: kind, factory: f})
}

// Resolve returns the factory for the given model, matching the longest
// registered prefix of the same kind.
func (r *Registry) Resolve(mdl types.Model) (Factory, error) {
	var best *binding
	for i := range r.bindings {
		b := &r.bindings[i]
		if b.kind != mdl.Kind {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(mdl.ID), b.prefix) {
			continue
		}
		if best == nil || len(b.prefix) > len(best.prefix) {
			best = b
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no %s backend registered for model %q", mdl.Kind, mdl.ID)
	}
	return best.factory, nil
}

// New resolves and instantiates in one step.
func (r *Registry) New(mdl types.Model) (Engine, error) {
	f, err := r.Resolve(mdl)
	if err != nil {
		return nil, err
	}
	return f(mdl)
}
