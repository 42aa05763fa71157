package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandrolain/gorei/pkg/types"
)

// commandNames maps the dedicated pipe node types to their registry names.
var commandNames = map[types.NodeType]string{
	types.NodeCompute:  "compute",
	types.NodeDomain:   "as",
	types.NodeCompress: "compress",
	types.NodeSeal:     "seal",
	types.NodeVerify:   "verify",
	types.NodeForward:  "forward",
	types.NodeMirror:   "mirror",
	types.NodeTemporal: "temporal",
	types.NodeTimeless: "timeless",
	types.NodeParallel: "parallel",
}

// evalCommand evaluates every "apply a named operation" form through a
// single registry lookup.
func (e *Evaluator) evalCommand(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	name := node.StrValue
	mode := node.Mode
	if n, ok := commandNames[node.Type]; ok {
		name = n
		mode = node.StrValue
	}

	operand, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}

	var args []types.Value
	if node.Type == types.NodeParallel {
		args = make([]types.Value, len(node.Params))
		for i, p := range node.Params {
			args[i] = types.String(p)
		}
	} else if len(node.Arguments) > 0 {
		if args, err = e.evalList(ctx, node.Arguments, env); err != nil {
			return nil, err
		}
	}

	return e.invoke(ctx, name, mode, operand, args)
}

// invoke looks name up in the registry and runs the handler. An unknown
// name is always an error.
func (e *Evaluator) invoke(ctx context.Context, name, mode string, operand types.Value, args []types.Value) (types.Value, error) {
	h, ok := e.registry.Lookup(name)
	if !ok {
		return nil, types.Errorf(types.ErrCodeUnknownCommand, "unknown command %q", name).WithToken(name)
	}
	if e.opts.Debug {
		e.logger.Debug("dispatching command",
			"command", name,
			"mode", mode,
			"operand", operand.Kind().String(),
			"args", len(args))
	}
	return h(name, operand, &invocation{ctx: ctx, e: e, args: args, mode: mode})
}

// invocation implements functions.Invocation for one command dispatch.
type invocation struct {
	ctx  context.Context
	e    *Evaluator
	args []types.Value
	mode string
}

func (inv *invocation) Context() context.Context { return inv.ctx }
func (inv *invocation) Args() []types.Value      { return inv.args }
func (inv *invocation) Mode() string             { return inv.mode }
func (inv *invocation) Now() time.Time           { return inv.e.opts.Clock.Now() }
func (inv *invocation) Hash(data []byte) string  { return inv.e.opts.Hasher(data) }
func (inv *invocation) Logger() *slog.Logger     { return inv.e.logger }
func (inv *invocation) Concurrent() bool         { return inv.e.opts.Concurrency }

func (inv *invocation) Call(fn types.Value, args ...types.Value) (types.Value, error) {
	return inv.e.callValue(inv.ctx, fn, args)
}
