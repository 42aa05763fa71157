package evaluator

import (
	"context"
	"slices"

	"github.com/sandrolain/gorei/pkg/types"
)

const (
	// contraction is the projection factor applied by one extend step.
	contraction = 0.1
	// spiralSubscript is appended by each ⤊ step.
	spiralSubscript = 'o'
)

func (e *Evaluator) evalExtendReduce(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	if node.Type == types.NodeExtend {
		return extendValue(v, node.Subscript)
	}
	return reduceValue(v)
}

// evalSpiral applies extend (⤊) or reduce (⤋) Depth times in sequence.
func (e *Evaluator) evalSpiral(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	v, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	return spiral(v, node.Depth, node.Type == types.NodeSpiralUp)
}

func spiral(v types.Value, depth int, up bool) (types.Value, error) {
	var err error
	for i := 0; i < depth; i++ {
		if up {
			v, err = extendValue(v, spiralSubscript)
		} else {
			v, err = reduceValue(v)
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// extendValue appends sub and contracts the numeric projection by 0.1.
// Numbers are promoted to neighborless aggregates first.
func extendValue(v types.Value, sub rune) (types.Value, error) {
	switch x := v.(type) {
	case types.Extended:
		x.Subscripts = append(slices.Clone(x.Subscripts), sub)
		x.Scale *= contraction
		return x, nil
	case types.Aggregate:
		return scaleAggregate(x, append(slices.Clone(x.Subscripts), sub), contraction), nil
	case types.Number:
		return scaleAggregate(types.Aggregate{Center: float64(x)}, []rune{sub}, contraction), nil
	case types.Unified:
		ext, _ := extendValue(x.Ext, sub)
		multi, _ := extendValue(x.Multi, sub)
		return types.Unified{Ext: ext.(types.Extended), Multi: multi.(types.Aggregate)}, nil
	case types.Domain:
		inner, err := extendValue(x.Inner, sub)
		if err != nil {
			return nil, err
		}
		x.Inner = inner
		return x, nil
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "cannot extend %s", kindName(v))
	}
}

// reduceValue removes the last subscript and undoes one contraction.
func reduceValue(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case types.Extended:
		if len(x.Subscripts) == 0 {
			return nil, types.Errorf(types.ErrCodeReduceBelowBase, "cannot reduce %s below its base", x)
		}
		x.Subscripts = slices.Clone(x.Subscripts[:len(x.Subscripts)-1])
		x.Scale /= contraction
		return x, nil
	case types.Aggregate:
		if len(x.Subscripts) == 0 {
			return nil, types.Errorf(types.ErrCodeReduceBelowBase, "cannot reduce %s below its base", x)
		}
		subs := slices.Clone(x.Subscripts[:len(x.Subscripts)-1])
		if len(subs) == 0 {
			subs = nil
		}
		return scaleAggregate(x, subs, 1/contraction), nil
	case types.Unified:
		ext, err := reduceValue(x.Ext)
		if err != nil {
			return nil, err
		}
		multi, err := reduceValue(x.Multi)
		if err != nil {
			return nil, err
		}
		return types.Unified{Ext: ext.(types.Extended), Multi: multi.(types.Aggregate)}, nil
	case types.Domain:
		inner, err := reduceValue(x.Inner)
		if err != nil {
			return nil, err
		}
		x.Inner = inner
		return x, nil
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "cannot reduce %s", kindName(v))
	}
}

// fullyReduce strips every subscript, returning the value at base depth.
// Extended symbols come back as their unit-scale base.
func fullyReduce(v types.Value) (types.Value, error) {
	switch x := v.(type) {
	case types.Extended:
		return types.NewExtended(x.Base, nil), nil
	case types.Aggregate:
		for len(x.Subscripts) > 0 {
			r, err := reduceValue(x)
			if err != nil {
				return nil, err
			}
			x = r.(types.Aggregate)
		}
		return x, nil
	}
	return v, nil
}

func scaleAggregate(a types.Aggregate, subs []rune, factor float64) types.Aggregate {
	out := types.Aggregate{
		Center:     a.Center * factor,
		Subscripts: subs,
	}
	if len(a.Neighbors) > 0 {
		out.Neighbors = make([]types.Neighbor, len(a.Neighbors))
		for i, n := range a.Neighbors {
			out.Neighbors[i] = types.Neighbor{Value: n.Value * factor, Weight: n.Weight}
		}
	}
	return out
}
