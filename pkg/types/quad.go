package types

// Quad is one of the four truth values. The values form a chain
// ⊥ < ⊥π < ⊤π < ⊤; conjunction is the meet and disjunction the join.
type Quad uint8

const (
	Bottom   Quad = iota // ⊥
	BottomPi             // ⊥π
	TopPi                // ⊤π
	Top                  // ⊤
)

// Kind implements Value.
func (Quad) Kind() ValueKind { return KindQuad }

func (q Quad) String() string {
	switch q {
	case Top:
		return "⊤"
	case TopPi:
		return "⊤π"
	case BottomPi:
		return "⊥π"
	default:
		return "⊥"
	}
}

// And returns the meet of q and r.
//
//	∧   | ⊤   ⊤π  ⊥π  ⊥
//	----+----------------
//	⊤   | ⊤   ⊤π  ⊥π  ⊥
//	⊤π  | ⊤π  ⊤π  ⊥π  ⊥
//	⊥π  | ⊥π  ⊥π  ⊥π  ⊥
//	⊥   | ⊥   ⊥   ⊥   ⊥
func (q Quad) And(r Quad) Quad {
	if r < q {
		return r
	}
	return q
}

// Or returns the join of q and r.
func (q Quad) Or(r Quad) Quad {
	if r > q {
		return r
	}
	return q
}

// Not swaps ⊤ with ⊥ and ⊤π with ⊥π.
func (q Quad) Not() Quad {
	return Top - q
}

// Truthy maps ⊤ and ⊤π to true.
func (q Quad) Truthy() bool {
	return q >= TopPi
}

// QuadOf converts a Go bool to ⊤ or ⊥.
func QuadOf(b bool) Quad {
	if b {
		return Top
	}
	return Bottom
}

// ParseQuad maps a truth glyph (or true/false) to its Quad.
func ParseQuad(s string) (Quad, bool) {
	switch s {
	case "⊤", "true":
		return Top, true
	case "⊤π":
		return TopPi, true
	case "⊥π":
		return BottomPi, true
	case "⊥", "false":
		return Bottom, true
	default:
		return Bottom, false
	}
}
