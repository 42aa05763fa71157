package evaluator

import (
	"context"

	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// recurseDepthKey is used to store the function call depth in context.Context.
type recurseDepthKey struct{}

// getRecurseDepth returns the current call depth from a context.Context.
func getRecurseDepth(ctx context.Context) int {
	if d, ok := ctx.Value(recurseDepthKey{}).(int); ok {
		return d
	}
	return 0
}

// withRecurseDepth returns a context.Context with the given call depth.
func withRecurseDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, recurseDepthKey{}, depth)
}

// evalNode evaluates an AST node in env. Runtime errors without a position
// get the node's position attached.
func (e *Evaluator) evalNode(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.dispatch(ctx, node, env)
	if err != nil {
		return nil, positioned(err, node)
	}
	return v, nil
}

// positioned copies a bare *types.Error and attaches the node position.
// Wrapped errors and errors that already carry a position pass through.
func positioned(err error, node *types.ASTNode) error {
	perr, ok := err.(*types.Error)
	if !ok || perr.Line != 0 || node.Position.Line == 0 {
		return err
	}
	cp := *perr
	return cp.At(node.Position)
}

func (e *Evaluator) dispatch(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	if node == nil {
		return types.VoidValue, nil
	}

	// Debug logging
	if e.opts.Debug {
		e.logger.Debug("evaluating node",
			"type", node.Type,
			"value", node.StrValue,
			"line", node.Position.Line,
			"scope", env.Depth())
	}

	// Dispatch based on node type
	switch node.Type {
	// Literals
	case types.NodeNumber:
		return types.Number(node.NumValue), nil
	case types.NodeString:
		return types.String(node.StrValue), nil
	case types.NodeExtended:
		return types.NewExtended(node.Base, node.Subscripts), nil
	case types.NodeQuad:
		q, ok := types.ParseQuad(node.StrValue)
		if !ok {
			return nil, types.Errorf(types.ErrCodeTypeMismatch, "unknown truth value %q", node.StrValue)
		}
		return q, nil
	case types.NodePoint:
		return types.PointValue, nil
	case types.NodeGenesis:
		return types.NewGeneration(), nil
	case types.NodeAggregate:
		return e.evalAggregate(ctx, node, env)
	case types.NodeUnified:
		return e.evalUnified(ctx, node, env)
	case types.NodeShape:
		return e.evalShape(ctx, node, env)
	case types.NodeArray:
		return e.evalArray(ctx, node, env)

	// Expressions
	case types.NodeIdentifier:
		return env.Get(node.StrValue)
	case types.NodeBinary:
		return e.evalBinary(ctx, node, env)
	case types.NodeUnary:
		return e.evalUnary(ctx, node, env)
	case types.NodeExtend, types.NodeReduce:
		return e.evalExtendReduce(ctx, node, env)
	case types.NodeSpiralUp, types.NodeSpiralDown:
		return e.evalSpiral(ctx, node, env)
	case types.NodePipe, types.NodeMirror, types.NodeCompute, types.NodeCompress,
		types.NodeDomain, types.NodeSeal, types.NodeVerify, types.NodeForward,
		types.NodeTemporal, types.NodeTimeless, types.NodeParallel:
		return e.evalCommand(ctx, node, env)
	case types.NodeWitness:
		return e.evalWitness(ctx, node, env)
	case types.NodePhaseGuard:
		return e.evalPhaseGuard(ctx, node, env)
	case types.NodeCall:
		return e.evalCall(ctx, node, env)
	case types.NodeMember:
		return e.evalMember(ctx, node, env)
	case types.NodeIndex:
		return e.evalIndex(ctx, node, env)
	case types.NodeBlock:
		return e.evalBlock(ctx, node, env.NewChild())
	case types.NodeIf:
		return e.evalIf(ctx, node, env)
	case types.NodeMatch:
		return e.evalMatch(ctx, node, env)

	// Statements
	case types.NodeLet:
		return e.evalLet(ctx, node, env)
	case types.NodeAssign:
		return e.evalAssign(ctx, node, env)
	case types.NodeFunctionDef:
		return e.evalFunctionDef(node, env)
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "unsupported node type: %s", node.Type)
	}
}

// evalAggregate evaluates 𝕄{c; n1, n2:w}. Absent weights default to 1.
func (e *Evaluator) evalAggregate(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	center, err := e.evalNumber(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	agg := types.Aggregate{Center: center}
	if len(node.Arguments) > 0 {
		agg.Neighbors = make([]types.Neighbor, len(node.Arguments))
	}
	for i, arg := range node.Arguments {
		v, err := e.evalNumber(ctx, arg, env)
		if err != nil {
			return nil, err
		}
		w := 1.0
		if i < len(node.Weights) && node.Weights[i] != nil {
			if w, err = e.evalNumber(ctx, node.Weights[i], env); err != nil {
				return nil, err
			}
		}
		agg.Neighbors[i] = types.Neighbor{Value: v, Weight: w}
	}
	return agg, nil
}

// evalNumber evaluates node and reduces the result to its numeric projection.
func (e *Evaluator) evalNumber(ctx context.Context, node *types.ASTNode, env *Environment) (float64, error) {
	v, err := e.evalNode(ctx, node, env)
	if err != nil {
		return 0, err
	}
	return types.Project(v)
}

func (e *Evaluator) evalUnified(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	left, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	ext, ok := left.(types.Extended)
	if !ok {
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "unified literal expects an extended symbol, got %s", left.Kind())
	}
	right, err := e.evalNode(ctx, node.RHS, env)
	if err != nil {
		return nil, err
	}
	multi, err := asAggregate(right)
	if err != nil {
		return nil, err
	}
	return types.Unified{Ext: ext, Multi: multi}, nil
}

func (e *Evaluator) evalShape(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	points, err := e.evalList(ctx, node.Arguments, env)
	if err != nil {
		return nil, err
	}
	return types.NewShape(types.ShapeTag(node.StrValue), points), nil
}

func (e *Evaluator) evalArray(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	items, err := e.evalList(ctx, node.Expressions, env)
	if err != nil {
		return nil, err
	}
	return types.Array(items), nil
}

func (e *Evaluator) evalList(ctx context.Context, nodes []*types.ASTNode, env *Environment) ([]types.Value, error) {
	out := make([]types.Value, len(nodes))
	for i, n := range nodes {
		v, err := e.evalNode(ctx, n, env)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// evalBlock evaluates statements in scope and returns the last value.
func (e *Evaluator) evalBlock(ctx context.Context, node *types.ASTNode, scope *Environment) (types.Value, error) {
	var result types.Value = types.VoidValue
	for _, stmt := range node.Expressions {
		v, err := e.evalNode(ctx, stmt, scope)
		if err != nil {
			return nil, err
		}
		result = v
	}
	return result, nil
}

func (e *Evaluator) evalIf(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	cond, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	if types.Truthy(cond) {
		return e.evalNode(ctx, node.Arguments[0], env)
	}
	if node.RHS != nil {
		return e.evalNode(ctx, node.RHS, env)
	}
	return types.VoidValue, nil
}

// evalMatch selects the first arm whose pattern is structurally equal to the
// subject, then the `_` arm.
func (e *Evaluator) evalMatch(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	subject, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	for i, pat := range node.Arguments {
		pv, err := e.evalNode(ctx, pat, env)
		if err != nil {
			return nil, err
		}
		if types.Equal(subject, pv) {
			return e.evalNode(ctx, node.Expressions[i], env)
		}
	}
	if node.RHS != nil {
		return e.evalNode(ctx, node.RHS, env)
	}
	return nil, types.Errorf(types.ErrCodeNoMatchingArm, "no arm matches %s", subject)
}

// evalLet binds a name in the current scope. A let statement evaluates to Void.
func (e *Evaluator) evalLet(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	if node.PhaseGuard != "" {
		e.record(functions.AuditEntry{
			Kind: "phase", Binding: node.StrValue, Label: node.PhaseGuard, Value: v,
			Line: node.Position.Line, Column: node.Position.Column,
		})
	}
	if node.Witness != "" {
		e.record(functions.AuditEntry{
			Kind: "witness", Binding: node.StrValue, Label: node.Witness, Value: v,
			Line: node.Position.Line, Column: node.Position.Column,
		})
	}
	env.Define(node.StrValue, v, node.Mutable)
	return types.VoidValue, nil
}

func (e *Evaluator) evalAssign(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	if err := env.Set(node.StrValue, v); err != nil {
		return nil, err
	}
	return types.VoidValue, nil
}

func (e *Evaluator) evalWitness(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	e.record(functions.AuditEntry{
		Kind: "witness", Label: node.StrValue, Value: v,
		Line: node.Position.Line, Column: node.Position.Column,
	})
	return v, nil
}

func (e *Evaluator) evalPhaseGuard(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	e.record(functions.AuditEntry{
		Kind: "phase", Label: node.StrValue, Value: v,
		Line: node.Position.Line, Column: node.Position.Column,
	})
	return v, nil
}

// evalFunctionDef binds a closure over env under the function name and
// returns it. The binding is visible to the body, so recursion works.
func (e *Evaluator) evalFunctionDef(node *types.ASTNode, env *Environment) (types.Value, error) {
	fn := &Closure{
		Name:   node.StrValue,
		Params: node.Params,
		Body:   node.LHS,
		Env:    env,
		Level:  node.Depth,
	}
	env.Define(node.StrValue, fn, false)
	return fn, nil
}

// evalCall evaluates f(args). An unbound identifier callee falls back to a
// registered command: `len(x)` is `x |> len`, `advance(g, 2)` is
// `g |> advance(2)`.
func (e *Evaluator) evalCall(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	if node.LHS.Type == types.NodeIdentifier {
		if _, bound := env.Lookup(node.LHS.StrValue); !bound {
			if _, ok := e.registry.Lookup(node.LHS.StrValue); ok && len(node.Arguments) > 0 {
				args, err := e.evalList(ctx, node.Arguments, env)
				if err != nil {
					return nil, err
				}
				return e.invoke(ctx, node.LHS.StrValue, "", args[0], args[1:])
			}
		}
	}

	callee, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	args, err := e.evalList(ctx, node.Arguments, env)
	if err != nil {
		return nil, err
	}
	return e.callValue(ctx, callee, args)
}

// callValue applies a function value to positional arguments. Each call gets
// one fresh child of the closure's captured scope, discarded on return.
func (e *Evaluator) callValue(ctx context.Context, callee types.Value, args []types.Value) (types.Value, error) {
	fn, ok := callee.(*Closure)
	if !ok {
		return nil, types.Errorf(types.ErrCodeNotCallable, "%s is not callable", kindName(callee))
	}
	if len(args) != len(fn.Params) {
		return nil, types.Errorf(types.ErrCodeArityMismatch,
			"%s expects %d argument(s), got %d", fn.Name, len(fn.Params), len(args))
	}

	depth := getRecurseDepth(ctx)
	if e.opts.MaxDepth > 0 && depth >= e.opts.MaxDepth {
		return nil, types.Errorf(types.ErrCodeRecursionLimit, "maximum call depth %d exceeded in %s", e.opts.MaxDepth, fn.Name)
	}
	ctx = withRecurseDepth(ctx, depth+1)

	scope := fn.Env.NewChild()
	for i, p := range fn.Params {
		scope.Define(p, args[i], false)
	}
	return e.evalNode(ctx, fn.Body, scope)
}

func kindName(v types.Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}
