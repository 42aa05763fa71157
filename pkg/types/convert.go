package types

import (
	"encoding/json"
	"math"
	"time"
)

// Project reduces a value to its numeric projection.
func Project(v Value) (float64, error) {
	switch x := v.(type) {
	case Number:
		return float64(x), nil
	case Extended:
		return x.Projection(), nil
	case Aggregate:
		return x.Weighted(), nil
	case Unified:
		return x.Multi.Weighted(), nil
	case Point, Void:
		return 0, nil
	case Quad:
		if x.Truthy() {
			return 1, nil
		}
		return 0, nil
	case Shape:
		return float64(x.Vertices), nil
	case Generation:
		return x.Progress, nil
	case Domain:
		return Project(x.Inner)
	case Sealed:
		return Project(x.Inner)
	default:
		return 0, Errorf(ErrCodeTypeMismatch, "%s has no numeric projection", kindOf(v))
	}
}

// Truthy reports the boolean reading of a value used by conditionals.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil, Void:
		return false
	case Quad:
		return x.Truthy()
	case Number:
		return x != 0 && !math.IsNaN(float64(x))
	case String:
		return x != ""
	case Array:
		return len(x) > 0
	case Domain:
		return Truthy(x.Inner)
	case Sealed:
		return Truthy(x.Inner)
	default:
		return true
	}
}

// Equal reports structural equality. Numbers compare exactly.
func Equal(a, b Value) bool {
	return equal(a, b, 0)
}

// ApproxEqual reports structural equality with every float compared within eps.
func ApproxEqual(a, b Value, eps float64) bool {
	return equal(a, b, eps)
}

func floatEq(a, b, eps float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= eps
}

func runesEq(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equal(a, b Value, eps float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Number:
		return floatEq(float64(x), float64(b.(Number)), eps)
	case String:
		return x == b.(String)
	case Quad:
		return x == b.(Quad)
	case Void, Point:
		return true
	case Extended:
		y := b.(Extended)
		return x.Base == y.Base && runesEq(x.Subscripts, y.Subscripts) &&
			floatEq(x.Magnitude, y.Magnitude, eps) && floatEq(x.Scale, y.Scale, eps)
	case Aggregate:
		return aggregateEq(x, b.(Aggregate), eps)
	case Unified:
		y := b.(Unified)
		return equal(x.Ext, y.Ext, eps) && aggregateEq(x.Multi, y.Multi, eps)
	case Shape:
		y := b.(Shape)
		return x.Tag == y.Tag && valuesEq(x.Points, y.Points, eps)
	case Array:
		return valuesEq(x, b.(Array), eps)
	case Generation:
		y := b.(Generation)
		if x.Phase != y.Phase || !floatEq(x.Progress, y.Progress, eps) || len(x.History) != len(y.History) {
			return false
		}
		for i := range x.History {
			if x.History[i] != y.History[i] {
				return false
			}
		}
		return equal(x.Payload, y.Payload, eps)
	case Domain:
		y := b.(Domain)
		if x.Label != y.Label || len(x.Meta) != len(y.Meta) || !equal(x.Inner, y.Inner, eps) {
			return false
		}
		for k, v := range x.Meta {
			if !equal(v, y.Meta[k], eps) {
				return false
			}
		}
		return true
	case Sealed:
		y := b.(Sealed)
		return x.Hash == y.Hash && x.SealedAt.Equal(y.SealedAt) && equal(x.Inner, y.Inner, eps)
	case Parallel:
		y := b.(Parallel)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i].Mode != y[i].Mode || !equal(x[i].Value, y[i].Value, eps) {
				return false
			}
		}
		return true
	}
	if s, ok := a.(interface{ Same(Value) bool }); ok {
		return s.Same(b)
	}
	return a.String() == b.String()
}

func aggregateEq(x, y Aggregate, eps float64) bool {
	if !floatEq(x.Center, y.Center, eps) || len(x.Neighbors) != len(y.Neighbors) || !runesEq(x.Subscripts, y.Subscripts) {
		return false
	}
	for i := range x.Neighbors {
		if !floatEq(x.Neighbors[i].Value, y.Neighbors[i].Value, eps) ||
			!floatEq(x.Neighbors[i].Weight, y.Neighbors[i].Weight, eps) {
			return false
		}
	}
	return true
}

func valuesEq(x, y []Value, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !equal(x[i], y[i], eps) {
			return false
		}
	}
	return true
}

func kindOf(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Kind().String()
}

// plainFloat keeps non-finite floats encodable as their rendered text.
func plainFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number(f).String()
	}
	return f
}

// Plain converts a value into JSON-compatible Go data. Every map carries a
// "kind" key so the encoding stays unambiguous.
func Plain(v Value) any {
	switch x := v.(type) {
	case nil, Void:
		return nil
	case Number:
		return plainFloat(float64(x))
	case String:
		return string(x)
	case Quad:
		return x.String()
	case Point:
		return map[string]any{"kind": "point"}
	case Extended:
		return map[string]any{
			"kind":       "extended",
			"base":       string(x.Base),
			"subscripts": string(x.Subscripts),
			"magnitude":  plainFloat(x.Magnitude),
			"scale":      plainFloat(x.Scale),
		}
	case Aggregate:
		neighbors := make([]any, len(x.Neighbors))
		for i, n := range x.Neighbors {
			neighbors[i] = []any{plainFloat(n.Value), plainFloat(n.Weight)}
		}
		return map[string]any{
			"kind":       "aggregate",
			"center":     plainFloat(x.Center),
			"neighbors":  neighbors,
			"subscripts": string(x.Subscripts),
		}
	case Unified:
		return map[string]any{"kind": "unified", "ext": Plain(x.Ext), "multi": Plain(x.Multi)}
	case Shape:
		return map[string]any{"kind": "shape", "tag": string(x.Tag), "points": plainList(x.Points)}
	case Array:
		return plainList(x)
	case Generation:
		history := make([]string, len(x.History))
		for i, p := range x.History {
			history[i] = p.String()
		}
		return map[string]any{
			"kind":     "generation",
			"phase":    x.Phase.String(),
			"progress": plainFloat(x.Progress),
			"payload":  Plain(x.Payload),
			"history":  history,
		}
	case Domain:
		meta := make(map[string]any, len(x.Meta))
		for k, mv := range x.Meta {
			meta[k] = Plain(mv)
		}
		return map[string]any{"kind": "domain", "domain": x.Label, "value": Plain(x.Inner), "meta": meta}
	case Sealed:
		return map[string]any{
			"kind":     "sealed",
			"value":    Plain(x.Inner),
			"hash":     x.Hash,
			"sealedAt": x.SealedAt.UTC().Format(time.RFC3339Nano),
		}
	case Parallel:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = map[string]any{"mode": e.Mode, "value": Plain(e.Value)}
		}
		return map[string]any{"kind": "parallel", "entries": out}
	default:
		return map[string]any{"kind": v.Kind().String(), "repr": v.String()}
	}
}

func plainList(vs []Value) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = Plain(v)
	}
	return out
}

// MarshalCanonical returns a deterministic byte encoding of v. It is the
// input to seal/verify hashing.
func MarshalCanonical(v Value) ([]byte, error) {
	return json.Marshal(Plain(v))
}
