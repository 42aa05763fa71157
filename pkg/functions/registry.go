// Package functions defines the command registry that backs pipe dispatch.
//
// Every "apply a named operation to a value" form in Rei (`x |> name`,
// `x |> compute:mode`, `x |> seal`, ...) resolves to exactly one lookup in a
// [Registry]. Plugin packs register extra commands through the same contract
// as the built-ins, so the evaluator never depends on any specific plugin.
//
// # Example
//
//	reg := evaluator.NewRegistry()
//	err := reg.Register("twice", func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
//	    f, err := types.Project(v)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return types.Number(f * 2), nil
//	})
//	sess := gorei.NewSession(gorei.WithEvalOptions(evaluator.WithRegistry(reg)))
//	v, _ := sess.Eval(ctx, `21 |> twice`) // 42
package functions

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sandrolain/gorei/pkg/types"
)

// Handler implements a named command. name is the name the command was
// invoked under, operand the value on the left of the pipe.
type Handler func(name string, operand types.Value, inv Invocation) (types.Value, error)

// Invocation is the evaluator context handed to a Handler.
type Invocation interface {
	// Context is the context passed to the evaluation entry point.
	Context() context.Context
	// Args are the evaluated command arguments, in source order.
	Args() []types.Value
	// Mode is the `:label` of compute/as/compress forms, or "".
	Mode() string
	// Now reads the injected clock.
	Now() time.Time
	// Hash applies the injected content hash.
	Hash(data []byte) string
	// Call invokes a function value with positional arguments.
	Call(fn types.Value, args ...types.Value) (types.Value, error)
	// Logger is the evaluator logger.
	Logger() *slog.Logger
	// Concurrent reports whether handlers may fan work out to goroutines.
	Concurrent() bool
}

// AuditEntry records a witness or phase guard met during evaluation.
type AuditEntry struct {
	Kind    string // "witness" or "phase"
	Binding string // let-bound name, empty for bare expressions
	Label   string // witness text or phase name
	Value   types.Value
	Line    int
	Column  int
}

// Registry maps command names to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering a name twice is an error; use
// Override to replace an existing command.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" || h == nil {
		return types.NewError(types.ErrCodeTypeMismatch, "command name and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return types.Errorf(types.ErrCodeTypeMismatch, "command %q is already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Override adds or replaces a handler.
func (r *Registry) Override(name string, h Handler) {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	return h, ok
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{handlers: make(map[string]Handler, len(r.handlers))}
	for name, h := range r.handlers {
		c.handlers[name] = h
	}
	return c
}

// Entry is a named handler, the unit plugin packs export.
type Entry struct {
	Name    string
	Handler Handler
}

// RegisterAll registers every entry, stopping at the first error.
func (r *Registry) RegisterAll(entries ...Entry) error {
	for _, e := range entries {
		if err := r.Register(e.Name, e.Handler); err != nil {
			return err
		}
	}
	return nil
}
