package evaluator

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/sandrolain/gorei/pkg/types"
)

func (e *Evaluator) evalMember(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	target, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	return Member(target, node.StrValue)
}

func (e *Evaluator) evalIndex(ctx context.Context, node *types.ASTNode, env *Environment) (types.Value, error) {
	target, err := e.evalNode(ctx, node.LHS, env)
	if err != nil {
		return nil, err
	}
	idx, err := e.evalNumber(ctx, node.RHS, env)
	if err != nil {
		return nil, err
	}
	return Index(target, idx)
}

func runeString(rs []rune) types.Value {
	return types.String(rs)
}

// Member reads a named field of a value.
func Member(v types.Value, name string) (types.Value, error) {
	switch x := v.(type) {
	case types.Aggregate:
		switch name {
		case "center":
			return types.Number(x.Center), nil
		case "neighbors":
			out := make(types.Array, len(x.Neighbors))
			for i, n := range x.Neighbors {
				out[i] = types.Number(n.Value)
			}
			return out, nil
		case "weights":
			out := make(types.Array, len(x.Neighbors))
			for i, n := range x.Neighbors {
				out[i] = types.Number(n.Weight)
			}
			return out, nil
		case "dim":
			return types.Number(len(x.Neighbors)), nil
		case "depth":
			return types.Number(len(x.Subscripts)), nil
		case "subscripts":
			return runeString(x.Subscripts), nil
		case "value":
			return types.Number(x.Weighted()), nil
		}
	case types.Extended:
		switch name {
		case "base":
			return types.String(string(x.Base)), nil
		case "subscripts":
			return runeString(x.Subscripts), nil
		case "depth":
			return types.Number(len(x.Subscripts)), nil
		case "magnitude":
			return types.Number(x.Magnitude), nil
		case "value":
			return types.Number(x.Projection()), nil
		}
	case types.Unified:
		switch name {
		case "ext":
			return x.Ext, nil
		case "multi":
			return x.Multi, nil
		case "value":
			return types.Number(x.Multi.Weighted()), nil
		}
	case types.Shape:
		switch name {
		case "kind":
			return types.String(x.Tag), nil
		case "vertices":
			return types.Number(x.Vertices), nil
		case "points":
			return types.Array(x.Points), nil
		}
	case types.Generation:
		switch name {
		case "phase":
			return types.String(x.Phase.String()), nil
		case "progress":
			return types.Number(x.Progress), nil
		case "history":
			out := make(types.Array, len(x.History))
			for i, p := range x.History {
				out[i] = types.String(p.String())
			}
			return out, nil
		case "payload":
			if x.Payload == nil {
				return types.VoidValue, nil
			}
			return x.Payload, nil
		}
	case types.Domain:
		switch name {
		case "value":
			return x.Inner, nil
		case "domain":
			return types.String(x.Label), nil
		case "meta":
			keys := make(types.Array, 0, len(x.Meta))
			for _, k := range sortedMetaKeys(x.Meta) {
				keys = append(keys, types.String(k))
			}
			return keys, nil
		}
		if mv, ok := x.Meta[name]; ok {
			return mv, nil
		}
	case types.Sealed:
		switch name {
		case "value":
			return x.Inner, nil
		case "hash":
			return types.String(x.Hash), nil
		case "sealedAt":
			return types.String(x.SealedAt.UTC().Format(time.RFC3339Nano)), nil
		}
	case types.Parallel:
		if name == "modes" {
			out := make(types.Array, len(x))
			for i, entry := range x {
				out[i] = types.String(entry.Mode)
			}
			return out, nil
		}
		if pv, ok := x.Get(name); ok {
			return pv, nil
		}
	case types.Array:
		if name == "length" {
			return types.Number(len(x)), nil
		}
	case types.String:
		if name == "length" {
			return types.Number(len([]rune(string(x)))), nil
		}
	case types.Point:
		if name == "value" {
			return types.Number(0), nil
		}
	}
	return nil, types.Errorf(types.ErrCodeUnknownMember, "%s has no member %q", kindName(v), name).WithToken(name)
}

// Index reads position idx of an ordered value. idx must be an integer in
// range.
func Index(v types.Value, idx float64) (types.Value, error) {
	length := -1
	var at func(i int) types.Value
	switch x := v.(type) {
	case types.Aggregate:
		length, at = len(x.Neighbors), func(i int) types.Value { return types.Number(x.Neighbors[i].Value) }
	case types.Shape:
		length, at = len(x.Points), func(i int) types.Value { return x.Points[i] }
	case types.Array:
		length, at = len(x), func(i int) types.Value { return x[i] }
	case types.Parallel:
		length, at = len(x), func(i int) types.Value { return x[i].Value }
	case types.String:
		rs := []rune(string(x))
		length, at = len(rs), func(i int) types.Value { return types.String(rs[i : i+1]) }
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "%s cannot be indexed", kindName(v))
	}
	if idx != math.Trunc(idx) || idx < 0 || idx >= float64(length) {
		return nil, types.Errorf(types.ErrCodeIndexOutOfRange, "index %v out of range [0, %d)", idx, length)
	}
	return at(int(idx)), nil
}

func sortedMetaKeys(m map[string]types.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
