package evaluator

import (
	"math"
	"slices"
	"sort"

	"github.com/sandrolain/gorei/pkg/types"
)

// ComputeFunc reduces an aggregate to a scalar.
type ComputeFunc func(a types.Aggregate) float64

// DefaultMode is used by compute and compress when no mode is given.
const DefaultMode = "weighted"

// computeModes maps mode labels to their formula. With no neighbors every
// mode returns the center.
var computeModes = map[string]ComputeFunc{
	"weighted":       computeWeighted,
	"multiplicative": computeMultiplicative,
	"harmonic":       computeHarmonic,
	"exponential":    computeExponential,
	"geometric":      computeGeometric,
	"median":         computeMedian,
	"minkowski":      computeMinkowski,
	"entropy":        computeEntropy,
}

// ComputeModes returns the known mode labels, sorted.
func ComputeModes() []string {
	modes := make([]string, 0, len(computeModes))
	for m := range computeModes {
		modes = append(modes, m)
	}
	sort.Strings(modes)
	return modes
}

// Compute applies a named mode to v, promoting it to an aggregate first.
func Compute(mode string, v types.Value) (float64, error) {
	if mode == "" {
		mode = DefaultMode
	}
	fn, ok := computeModes[mode]
	if !ok {
		return 0, types.Errorf(types.ErrCodeUnknownMode, "unknown compute mode %q", mode).WithToken(mode)
	}
	agg, err := asAggregate(v)
	if err != nil {
		return 0, err
	}
	if len(agg.Neighbors) == 0 {
		return agg.Center, nil
	}
	return fn(agg), nil
}

// c + Σwv/Σw
func computeWeighted(a types.Aggregate) float64 {
	return a.Weighted()
}

// c × Π(1+v)
func computeMultiplicative(a types.Aggregate) float64 {
	p := 1.0
	for _, n := range a.Neighbors {
		p *= 1 + n.Value
	}
	return a.Center * p
}

// c + n/Σ(1/v)
func computeHarmonic(a types.Aggregate) float64 {
	var s float64
	for _, n := range a.Neighbors {
		s += 1 / n.Value
	}
	return a.Center + float64(len(a.Neighbors))/s
}

// c × Σe^v/n
func computeExponential(a types.Aggregate) float64 {
	var s float64
	for _, n := range a.Neighbors {
		s += math.Exp(n.Value)
	}
	return a.Center * s / float64(len(a.Neighbors))
}

// c × (Π|v|)^(1/n)
func computeGeometric(a types.Aggregate) float64 {
	p := 1.0
	for _, n := range a.Neighbors {
		p *= math.Abs(n.Value)
	}
	return a.Center * math.Pow(p, 1/float64(len(a.Neighbors)))
}

// c + median(v)
func computeMedian(a types.Aggregate) float64 {
	vs := a.Values()
	slices.Sort(vs)
	mid := len(vs) / 2
	if len(vs)%2 == 1 {
		return a.Center + vs[mid]
	}
	return a.Center + (vs[mid-1]+vs[mid])/2
}

// c + sqrt(Σv²/n)
func computeMinkowski(a types.Aggregate) float64 {
	var s float64
	for _, n := range a.Neighbors {
		s += n.Value * n.Value
	}
	return a.Center + math.Sqrt(s/float64(len(a.Neighbors)))
}

// c + Σe·v/Σe with p = |v|/Σ|v| and e = -p ln p. Falls back to the plain mean
// when the entropy weights vanish.
func computeEntropy(a types.Aggregate) float64 {
	var total, mean float64
	for _, n := range a.Neighbors {
		total += math.Abs(n.Value)
		mean += n.Value
	}
	mean /= float64(len(a.Neighbors))

	var sumE, sumEV float64
	if total > 0 {
		for _, n := range a.Neighbors {
			p := math.Abs(n.Value) / total
			if p == 0 {
				continue
			}
			w := -p * math.Log(p)
			sumE += w
			sumEV += w * n.Value
		}
	}
	if sumE == 0 {
		return a.Center + mean
	}
	return a.Center + sumEV/sumE
}
