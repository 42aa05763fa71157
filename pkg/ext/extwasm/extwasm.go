// Package extwasm loads WebAssembly modules as Rei commands.
//
// A module becomes one command. Its exported functions are selected with the
// command mode and must have the signature (f64) -> f64; the operand is
// projected to a number before the call:
//
//	mod, err := extwasm.Load(ctx, "scale", wasmBytes)
//	defer mod.Close(ctx)
//	sess := gorei.NewSession(gorei.WithEvalOptions(evaluator.WithCommands(mod.Entry())))
//	sess.Eval(ctx, "21 |> scale:apply")   // 42 for an `apply` that doubles
//
// Without a mode the export named "apply" is called.
package extwasm

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/sandrolain/gorei/pkg/ext/extutil"
	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// DefaultExport is the function called when the command has no mode.
const DefaultExport = "apply"

// Module is an instantiated WebAssembly module bound to a command name.
// Calls are serialized; a wazero module instance is not safe for concurrent
// use.
type Module struct {
	name    string
	runtime wazero.Runtime
	mod     api.Module
	mu      sync.Mutex
}

// Load compiles and instantiates wasm under the given command name.
func Load(ctx context.Context, name string, wasm []byte) (*Module, error) {
	if name == "" {
		return nil, fmt.Errorf("extwasm: command name is required")
	}
	r := wazero.NewRuntime(ctx)
	mod, err := r.Instantiate(ctx, wasm)
	if err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("extwasm: instantiate %s: %w", name, err)
	}
	return &Module{name: name, runtime: r, mod: mod}, nil
}

// LoadFile loads a .wasm file. The command is named after the file's base
// name without extension.
func LoadFile(ctx context.Context, path string) (*Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extwasm: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Load(ctx, name, data)
}

// Name returns the command name.
func (m *Module) Name() string { return m.name }

// Exports lists the callable (f64) -> f64 exports.
func (m *Module) Exports() []string {
	var out []string
	for name, def := range m.mod.ExportedFunctionDefinitions() {
		if isUnaryF64(def) {
			out = append(out, name)
		}
	}
	return out
}

// Call invokes export with x.
func (m *Module) Call(ctx context.Context, export string, x float64) (float64, error) {
	fn := m.mod.ExportedFunction(export)
	if fn == nil || !isUnaryF64(fn.Definition()) {
		return 0, types.Errorf(types.ErrCodeUnknownCommand, "%s has no (f64) -> f64 export %q", m.name, export).WithToken(export)
	}
	m.mu.Lock()
	res, err := fn.Call(ctx, api.EncodeF64(x))
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("%s:%s: %w", m.name, export, err)
	}
	return api.DecodeF64(res[0]), nil
}

// Entry returns the registry entry dispatching to this module.
func (m *Module) Entry() functions.Entry {
	return functions.Entry{
		Name: m.name,
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			x, err := types.Project(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			export := inv.Mode()
			if export == "" {
				export = DefaultExport
			}
			out, err := m.Call(inv.Context(), export, x)
			if err != nil {
				return nil, err
			}
			return types.Number(out), nil
		},
	}
}

// Close releases the module and its runtime.
func (m *Module) Close(ctx context.Context) error {
	return m.runtime.Close(ctx)
}

func isUnaryF64(def api.FunctionDefinition) bool {
	params, results := def.ParamTypes(), def.ResultTypes()
	return len(params) == 1 && params[0] == api.ValueTypeF64 &&
		len(results) == 1 && results[0] == api.ValueTypeF64
}

// Set is a group of loaded modules.
type Set []*Module

// LoadFiles loads every path, closing what was loaded on failure.
func LoadFiles(ctx context.Context, paths ...string) (Set, error) {
	var set Set
	for _, p := range paths {
		m, err := LoadFile(ctx, p)
		if err != nil {
			_ = set.Close(ctx)
			return nil, err
		}
		set = append(set, m)
	}
	return set, nil
}

// Entries returns the registry entries of all modules.
func (s Set) Entries() []functions.Entry {
	out := make([]functions.Entry, len(s))
	for i, m := range s {
		out[i] = m.Entry()
	}
	return out
}

// Close closes every module and returns the first error.
func (s Set) Close(ctx context.Context) error {
	var first error
	for _, m := range s {
		if err := m.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}
