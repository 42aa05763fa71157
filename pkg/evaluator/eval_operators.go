package evaluator

import (
	"context"
	"math"
	"slices"

	"github.com/sandrolain/gorei/pkg/types"
)

// approxEpsilon is the tolerance of =κ, >κ and <κ.
const approxEpsilon = 1e-9

func (e *Evaluator) evalBinary(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	op := node.StrValue

	// Evaluate both sides
	left, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	right, err := e.evalNode(ctx, node.RHS, env)
	if err != nil {
		return nil, err
	}

	// Fast-path for the most common case: both operands are numbers.
	// Float semantics apply, so x/0 is ±Inf rather than an error.
	if lf, ok := left.(types.Number); ok {
		if rf, ok := right.(types.Number); ok {
			switch op {
			case "+":
				return lf + rf, nil
			case "-":
				return lf - rf, nil
			case "*":
				return lf * rf, nil
			case "/":
				return lf / rf, nil
			}
		}
	}

	switch op {
	case "+":
		if ls, ok := left.(types.String); ok {
			if rs, ok := right.(types.String); ok {
				return ls + rs, nil
			}
		}
		return arith(left, right, func(a, b float64) float64 { return a + b })
	case "-":
		return arith(left, right, func(a, b float64) float64 { return a - b })
	case "*":
		return arith(left, right, func(a, b float64) float64 { return a * b })
	case "/":
		return arith(left, right, func(a, b float64) float64 { return a / b })
	case "⊕":
		return opOplus(left, right)
	case "⊗":
		return opOtimes(left, right)
	case "·":
		return opCdot(left, right)
	case "∧":
		return asQuad(left).And(asQuad(right)), nil
	case "∨":
		return asQuad(left).Or(asQuad(right)), nil
	case "=κ", ">κ", "<κ", ">", "<":
		return compare(op, left, right)
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "unknown operator %q", op)
	}
}

func (e *Evaluator) evalUnary(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	operand, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	switch node.StrValue {
	case "¬":
		return asQuad(operand).Not(), nil
	case "-":
		f, err := types.Project(operand)
		if err != nil {
			return nil, err
		}
		return types.Number(-f), nil
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "unknown prefix operator %q", node.StrValue)
	}
}

// arith applies op to the numeric projections of both operands.
func arith(left, right types.Value, op func(a, b float64) float64) (types.Value, error) {
	l, err := types.Project(left)
	if err != nil {
		return nil, err
	}
	r, err := types.Project(right)
	if err != nil {
		return nil, err
	}
	return types.Number(op(l, r)), nil
}

// compare yields ⊤ or ⊥. The κ forms compare within approxEpsilon.
func compare(op string, left, right types.Value) (types.Value, error) {
	l, err := types.Project(left)
	if err != nil {
		return nil, err
	}
	r, err := types.Project(right)
	if err != nil {
		return nil, err
	}
	var result bool
	switch op {
	case "=κ":
		result = math.Abs(l-r) <= approxEpsilon
	case ">κ":
		result = l > r+approxEpsilon
	case "<κ":
		result = l < r-approxEpsilon
	case ">":
		result = l > r
	case "<":
		result = l < r
	}
	return types.QuadOf(result), nil
}

// asQuad reads a quad operand. Non-quad values map through truthiness.
func asQuad(v types.Value) types.Quad {
	if q, ok := v.(types.Quad); ok {
		return q
	}
	return types.QuadOf(types.Truthy(v))
}

// asAggregate promotes a value to an aggregate for the structural operators
// and compute modes. Numbers become centers without neighbors; arrays become
// neighbors around a zero center.
func asAggregate(v types.Value) (types.Aggregate, error) {
	switch x := v.(type) {
	case types.Aggregate:
		return x, nil
	case types.Unified:
		return x.Multi, nil
	case types.Number:
		return types.Aggregate{Center: float64(x)}, nil
	case types.Domain:
		return asAggregate(x.Inner)
	case types.Sealed:
		return asAggregate(x.Inner)
	case types.Array:
		agg := types.Aggregate{Neighbors: make([]types.Neighbor, len(x))}
		for i, item := range x {
			f, err := types.Project(item)
			if err != nil {
				return types.Aggregate{}, err
			}
			agg.Neighbors[i] = types.Neighbor{Value: f, Weight: 1}
		}
		return agg, nil
	default:
		return types.Aggregate{}, types.Errorf(types.ErrCodeTypeMismatch, "%s cannot be used as an aggregate", kindName(v))
	}
}

// sharedSubscripts keeps the subscripts only when both sides agree.
func sharedSubscripts(a, b types.Aggregate) []rune {
	if slices.Equal(a.Subscripts, b.Subscripts) {
		return slices.Clone(a.Subscripts)
	}
	return nil
}

// opOplus merges centers additively and concatenates neighbor lists.
func opOplus(left, right types.Value) (types.Value, error) {
	a, err := asAggregate(left)
	if err != nil {
		return nil, err
	}
	b, err := asAggregate(right)
	if err != nil {
		return nil, err
	}
	neighbors := make([]types.Neighbor, 0, len(a.Neighbors)+len(b.Neighbors))
	neighbors = append(neighbors, a.Neighbors...)
	neighbors = append(neighbors, b.Neighbors...)
	return types.Aggregate{
		Center:     a.Center + b.Center,
		Neighbors:  neighbors,
		Subscripts: sharedSubscripts(a, b),
	}, nil
}

// opOtimes multiplies centers and combines neighbors pairwise over the
// shorter list.
func opOtimes(left, right types.Value) (types.Value, error) {
	a, err := asAggregate(left)
	if err != nil {
		return nil, err
	}
	b, err := asAggregate(right)
	if err != nil {
		return nil, err
	}
	n := min(len(a.Neighbors), len(b.Neighbors))
	var neighbors []types.Neighbor
	if n > 0 {
		neighbors = make([]types.Neighbor, n)
	}
	for i := 0; i < n; i++ {
		neighbors[i] = types.Neighbor{
			Value:  a.Neighbors[i].Value * b.Neighbors[i].Value,
			Weight: a.Neighbors[i].Weight * b.Neighbors[i].Weight,
		}
	}
	return types.Aggregate{
		Center:     a.Center * b.Center,
		Neighbors:  neighbors,
		Subscripts: sharedSubscripts(a, b),
	}, nil
}

// opCdot is the inner product: center product plus pairwise neighbor
// products over the shorter list.
func opCdot(left, right types.Value) (types.Value, error) {
	a, err := asAggregate(left)
	if err != nil {
		return nil, err
	}
	b, err := asAggregate(right)
	if err != nil {
		return nil, err
	}
	sum := a.Center * b.Center
	for i := 0; i < min(len(a.Neighbors), len(b.Neighbors)); i++ {
		sum += a.Neighbors[i].Value * b.Neighbors[i].Value
	}
	return types.Number(sum), nil
}

// mirror reflects a value. Sequences reverse, scalars and quads negate.
func mirror(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case types.Number:
		return -x, nil
	case types.Quad:
		return x.Not(), nil
	case types.String:
		r := []rune(string(x))
		slices.Reverse(r)
		return types.String(r), nil
	case types.Array:
		out := slices.Clone(x)
		slices.Reverse(out)
		return out, nil
	case types.Aggregate:
		x.Neighbors = slices.Clone(x.Neighbors)
		slices.Reverse(x.Neighbors)
		return x, nil
	case types.Extended:
		x.Subscripts = slices.Clone(x.Subscripts)
		slices.Reverse(x.Subscripts)
		return x, nil
	case types.Unified:
		ext, _ := mirror(x.Ext)
		multi, _ := mirror(x.Multi)
		return types.Unified{Ext: ext.(types.Extended), Multi: multi.(types.Aggregate)}, nil
	case types.Shape:
		points := slices.Clone(x.Points)
		slices.Reverse(points)
		return types.NewShape(x.Tag, points), nil
	case types.Point:
		return x, nil
	case types.Domain:
		inner, err := mirror(x.Inner)
		if err != nil {
			return nil, err
		}
		x.Inner = inner
		return x, nil
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "cannot mirror %s", kindName(v))
	}
}
