package evaluator

import (
	"slices"

	"github.com/sandrolain/gorei/pkg/types"
)

// phasePayload returns the canonical payload assigned on entering p.
func phasePayload(p types.Phase) types.Value {
	switch p {
	case types.PhasePoint:
		return types.PointValue
	case types.PhaseZeroExt:
		return types.NewExtended('0', []rune{'₀'})
	case types.PhaseZero:
		return types.Number(0)
	case types.PhaseOne:
		return types.Number(1)
	default:
		return nil
	}
}

// Forward moves g exactly one phase ahead. At the terminal phase it returns
// g unchanged.
func Forward(g types.Generation) types.Generation {
	if g.Phase >= types.TerminalPhase {
		return g
	}
	next := g.Phase + 1
	return types.Generation{
		Phase:    next,
		Progress: float64(next) / float64(types.TerminalPhase),
		Payload:  phasePayload(next),
		History:  append(slices.Clone(g.History), next),
	}
}

// Advance applies Forward n times.
func Advance(g types.Generation, n int) types.Generation {
	for i := 0; i < n && g.Phase < types.TerminalPhase; i++ {
		g = Forward(g)
	}
	return g
}
