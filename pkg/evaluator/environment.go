package evaluator

import (
	"fmt"
	"math"
	"sort"

	"github.com/sandrolain/gorei/pkg/types"
)

// binding is a named slot. Its mutability is fixed at creation.
type binding struct {
	value   types.Value
	mutable bool
}

// Environment is one lexical scope in a parent-linked chain.
//
// Environments are not safe for concurrent mutation; a session confines
// writes to one goroutine at a time.
type Environment struct {
	// parent is the enclosing scope, nil for the root
	parent *Environment

	// bindings stores the names defined in this scope
	bindings map[string]*binding

	// depth is the distance from the root scope
	depth int
}

// NewEnvironment creates an empty root scope.
func NewEnvironment() *Environment {
	return &Environment{
		bindings: make(map[string]*binding),
	}
}

// NewRootEnvironment creates a root scope with the predefined constants
// π, φ and e bound immutably.
func NewRootEnvironment() *Environment {
	env := NewEnvironment()
	env.Define("π", types.Number(math.Pi), false)
	env.Define("φ", types.Number(math.Phi), false)
	env.Define("e", types.Number(math.E), false)
	return env
}

// NewChild creates a child scope whose parent is env.
func (env *Environment) NewChild() *Environment {
	return &Environment{
		parent:   env,
		bindings: make(map[string]*binding),
		depth:    env.depth + 1,
	}
}

// Parent returns the enclosing scope.
func (env *Environment) Parent() *Environment {
	return env.parent
}

// Depth returns the distance from the root scope.
func (env *Environment) Depth() int {
	return env.depth
}

// Define binds name in this scope, shadowing any binding of the same name in
// an ancestor. Redefining a name in the same scope replaces it.
func (env *Environment) Define(name string, value types.Value, mutable bool) {
	env.bindings[name] = &binding{value: value, mutable: mutable}
}

// Get resolves name from this scope outward.
func (env *Environment) Get(name string) (types.Value, error) {
	if b := env.find(name); b != nil {
		return b.value, nil
	}
	return nil, types.Errorf(types.ErrCodeUndefinedVariable, "undefined variable %q", name).WithToken(name)
}

// Lookup is Get without an error.
func (env *Environment) Lookup(name string) (types.Value, bool) {
	if b := env.find(name); b != nil {
		return b.value, true
	}
	return nil, false
}

// Set rebinds the nearest binding of name. It fails without touching the
// stored value when the name is unbound or the binding is immutable.
func (env *Environment) Set(name string, value types.Value) error {
	b := env.find(name)
	if b == nil {
		return types.Errorf(types.ErrCodeUndefinedVariable, "undefined variable %q", name).WithToken(name)
	}
	if !b.mutable {
		return types.Errorf(types.ErrCodeImmutableBinding, "cannot assign to immutable binding %q", name).WithToken(name)
	}
	b.value = value
	return nil
}

// IsMutable reports whether the nearest binding of name is mutable.
func (env *Environment) IsMutable(name string) bool {
	b := env.find(name)
	return b != nil && b.mutable
}

// Has reports whether name is bound in this scope only.
func (env *Environment) Has(name string) bool {
	_, ok := env.bindings[name]
	return ok
}

// Names returns the names bound in this scope, sorted.
func (env *Environment) Names() []string {
	names := make([]string, 0, len(env.bindings))
	for name := range env.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (env *Environment) find(name string) *binding {
	for s := env; s != nil; s = s.parent {
		if b, ok := s.bindings[name]; ok {
			return b
		}
	}
	return nil
}

// String returns a string representation of the scope.
func (env *Environment) String() string {
	return fmt.Sprintf("Environment{depth=%d, bindings=%d}", env.depth, len(env.bindings))
}
