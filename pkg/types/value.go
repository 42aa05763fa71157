package types

import (
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ValueKind is the explicit discriminant carried by every Value.
type ValueKind uint8

const (
	KindVoid ValueKind = iota
	KindNumber
	KindExtended
	KindAggregate
	KindUnified
	KindPoint
	KindShape
	KindQuad
	KindString
	KindArray
	KindFunction
	KindGeneration
	KindDomain
	KindSealed
	KindParallel
)

var kindNames = [...]string{
	KindVoid:       "void",
	KindNumber:     "number",
	KindExtended:   "extended",
	KindAggregate:  "aggregate",
	KindUnified:    "unified",
	KindPoint:      "point",
	KindShape:      "shape",
	KindQuad:       "quad",
	KindString:     "string",
	KindArray:      "array",
	KindFunction:   "function",
	KindGeneration: "generation",
	KindDomain:     "domain",
	KindSealed:     "sealed",
	KindParallel:   "parallel",
}

func (k ValueKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is a Rei runtime value. The set of kinds is closed; every dispatch
// site switches on Kind or on the concrete type.
type Value interface {
	Kind() ValueKind
	String() string
}

// Number is a plain scalar.
type Number float64

func (Number) Kind() ValueKind   { return KindNumber }
func (n Number) String() string { return humanize.Ftoa(float64(n)) }

// String is a string value.
type String string

func (String) Kind() ValueKind   { return KindString }
func (s String) String() string { return string(s) }

// Void is the absence of a value.
type Void struct{}

// VoidValue is the singleton Void.
var VoidValue = Void{}

func (Void) Kind() ValueKind { return KindVoid }
func (Void) String() string  { return "void" }

// Point is the primordial point ・.
type Point struct{}

// PointValue is the singleton Point.
var PointValue = Point{}

func (Point) Kind() ValueKind { return KindPoint }
func (Point) String() string  { return "・" }

// IsSubscript reports whether r belongs to the subscript character set:
// o x z w and the digits ₀ through ₉.
func IsSubscript(r rune) bool {
	switch r {
	case 'o', 'x', 'z', 'w':
		return true
	}
	return r >= '₀' && r <= '₉'
}

// Extended is a base constant annotated with subscripts encoding dimensional
// depth. Magnitude depends on Base only; Scale tracks extend/reduce steps.
type Extended struct {
	Base       rune
	Subscripts []rune
	Magnitude  float64
	Scale      float64
}

// NewExtended builds an extended symbol literal with unit scale.
func NewExtended(base rune, subscripts []rune) Extended {
	return Extended{
		Base:       base,
		Subscripts: slices.Clone(subscripts),
		Magnitude:  BaseMagnitude(base),
		Scale:      1,
	}
}

// BaseMagnitude returns the fixed numeric constant for an extended base.
// i resolves to 0 numerically while staying symbolically distinct.
func BaseMagnitude(base rune) float64 {
	switch base {
	case 'π':
		return math.Pi
	case 'e':
		return math.E
	case 'φ':
		return math.Phi
	default:
		return 0
	}
}

func (Extended) Kind() ValueKind { return KindExtended }

func (x Extended) String() string {
	return string(x.Base) + string(x.Subscripts)
}

// Projection returns Magnitude scaled by the accumulated extend factor.
func (x Extended) Projection() float64 {
	return x.Magnitude * x.Scale
}

// Neighbor is one weighted neighbor of an aggregate.
type Neighbor struct {
	Value  float64
	Weight float64
}

// Aggregate is a multi-dimensional value: a center scalar and an ordered
// list of weighted neighbors.
type Aggregate struct {
	Center     float64
	Neighbors  []Neighbor
	Subscripts []rune
}

func (Aggregate) Kind() ValueKind { return KindAggregate }

func (a Aggregate) String() string {
	var sb strings.Builder
	sb.WriteString("𝕄{")
	sb.WriteString(humanize.Ftoa(a.Center))
	for i, n := range a.Neighbors {
		if i == 0 {
			sb.WriteString("; ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(humanize.Ftoa(n.Value))
		if n.Weight != 1 {
			sb.WriteString(":")
			sb.WriteString(humanize.Ftoa(n.Weight))
		}
	}
	sb.WriteString("}")
	sb.WriteString(string(a.Subscripts))
	return sb.String()
}

// Weighted returns center plus the weighted average of the neighbors.
// An aggregate without neighbors projects to its center. Weights summing to
// zero divide by zero like any other float, giving ±Inf or NaN.
func (a Aggregate) Weighted() float64 {
	if len(a.Neighbors) == 0 {
		return a.Center
	}
	var sum, sumW float64
	for _, n := range a.Neighbors {
		sum += n.Value * n.Weight
		sumW += n.Weight
	}
	return a.Center + sum/sumW
}

// Values returns the neighbor values in order.
func (a Aggregate) Values() []float64 {
	out := make([]float64, len(a.Neighbors))
	for i, n := range a.Neighbors {
		out[i] = n.Value
	}
	return out
}

// Unified pairs an extended symbol with an aggregate.
type Unified struct {
	Ext   Extended
	Multi Aggregate
}

func (Unified) Kind() ValueKind { return KindUnified }

func (u Unified) String() string {
	return "𝕌{" + u.Ext.String() + ", " + u.Multi.String() + "}"
}

// ShapeTag names one of the fixed shape kinds.
type ShapeTag string

const (
	ShapeTriangle ShapeTag = "triangle"
	ShapeSquare   ShapeTag = "square"
	ShapeCircle   ShapeTag = "circle"
	ShapeDiamond  ShapeTag = "diamond"
)

// Glyph returns the opener glyph for the tag.
func (t ShapeTag) Glyph() string {
	switch t {
	case ShapeTriangle:
		return "△"
	case ShapeSquare:
		return "□"
	case ShapeCircle:
		return "○"
	case ShapeDiamond:
		return "◇"
	default:
		return "?"
	}
}

// Shape is a tagged point sequence. Vertices always equals len(Points).
type Shape struct {
	Tag      ShapeTag
	Points   []Value
	Vertices int
}

// NewShape builds a shape and derives its vertex count.
func NewShape(tag ShapeTag, points []Value) Shape {
	return Shape{Tag: tag, Points: points, Vertices: len(points)}
}

func (Shape) Kind() ValueKind { return KindShape }

func (s Shape) String() string {
	return s.Tag.Glyph() + "{" + joinValues(s.Points) + "}"
}

// Array is an ordered list of values.
type Array []Value

func (Array) Kind() ValueKind   { return KindArray }
func (a Array) String() string { return "[" + joinValues(a) + "]" }

// Phase is a generation state. Phases form a fixed total order.
type Phase uint8

const (
	PhaseVoid    Phase = iota // undefined origin
	PhasePoint                // ・
	PhaseZeroExt              // 0₀
	PhaseZero                 // 0
	PhaseOne                  // 1, terminal
)

// TerminalPhase is the last phase; advancing from it is a no-op.
const TerminalPhase = PhaseOne

var phaseNames = [...]string{
	PhaseVoid:    "void",
	PhasePoint:   "point",
	PhaseZeroExt: "zero_ext",
	PhaseZero:    "zero",
	PhaseOne:     "one",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Generation is a value moving through the generation phases. History holds
// every visited phase in order, starting with PhaseVoid.
type Generation struct {
	Phase    Phase
	Progress float64
	Payload  Value // nil while in PhaseVoid
	History  []Phase
}

// NewGeneration returns a generation value at the first phase.
func NewGeneration() Generation {
	return Generation{
		Phase:   PhaseVoid,
		History: []Phase{PhaseVoid},
	}
}

func (Generation) Kind() ValueKind { return KindGeneration }

func (g Generation) String() string {
	payload := "∅"
	if g.Payload != nil {
		payload = g.Payload.String()
	}
	return "gen<" + g.Phase.String() + " " + payload + " " + humanize.Ftoa(g.Progress) + ">"
}

// Domain wraps a value with a domain label and free-form metadata.
type Domain struct {
	Inner Value
	Label string
	Meta  map[string]Value
}

func (Domain) Kind() ValueKind { return KindDomain }

func (d Domain) String() string {
	var sb strings.Builder
	sb.WriteString(d.Label)
	sb.WriteString("<")
	sb.WriteString(d.Inner.String())
	for _, k := range sortedKeys(d.Meta) {
		sb.WriteString(" ")
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(d.Meta[k].String())
	}
	sb.WriteString(">")
	return sb.String()
}

// Sealed wraps a value with a content hash and the time it was sealed.
type Sealed struct {
	Inner    Value
	Hash     string
	SealedAt time.Time
}

func (Sealed) Kind() ValueKind { return KindSealed }

func (s Sealed) String() string {
	h := s.Hash
	if len(h) > 12 {
		h = h[:12]
	}
	return "sealed<" + s.Inner.String() + " #" + h + ">"
}

// ParallelEntry is one labelled branch result.
type ParallelEntry struct {
	Mode  string
	Value Value
}

// Parallel holds labelled results in source order.
type Parallel []ParallelEntry

func (Parallel) Kind() ValueKind { return KindParallel }

func (p Parallel) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.Mode + ": " + e.Value.String()
	}
	return "∥{" + strings.Join(parts, ", ") + "}"
}

// Get returns the value for a mode label.
func (p Parallel) Get(mode string) (Value, bool) {
	for _, e := range p {
		if e.Mode == mode {
			return e.Value, true
		}
	}
	return nil, false
}

func joinValues(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
