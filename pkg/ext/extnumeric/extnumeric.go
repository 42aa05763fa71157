// Package extnumeric provides statistical and numeric commands over
// aggregates and arrays.
//
//	𝕄{0; 2, 4, 4, 4, 5, 5, 7, 9} |> stddev   // 2
//	[1, 2, 3, 4] |> percentile(50)          // 2.5
package extnumeric

import (
	"math"
	"sort"

	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/ext/extutil"
	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// All returns all numeric command definitions.
func All() []functions.Entry {
	return extutil.Entries(
		Log,
		Sign,
		Trunc,
		Clamp,
		Variance,
		Stddev,
		Percentile,
		Mode,
		Sum,
	)
}

// Log returns the definition for `x |> log` and `x |> log(base)`.
// Without base, returns the natural logarithm.
func Log() functions.Entry {
	return functions.Entry{
		Name: "log",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			n, err := types.Project(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			if n <= 0 {
				return nil, extutil.Failf(name, "argument must be positive")
			}
			if base, ok := evaluator.NumberArg(inv, 0); ok {
				if base <= 0 || base == 1 {
					return nil, extutil.Failf(name, "base must be positive and not 1")
				}
				return types.Number(math.Log(n) / math.Log(base)), nil
			}
			return types.Number(math.Log(n)), nil
		},
	}
}

// Sign returns the definition for `x |> sign`: -1, 0 or 1.
func Sign() functions.Entry {
	return scalar("sign", func(n float64) float64 {
		switch {
		case n > 0:
			return 1
		case n < 0:
			return -1
		default:
			return 0
		}
	})
}

// Trunc returns the definition for `x |> trunc`.
func Trunc() functions.Entry {
	return scalar("trunc", math.Trunc)
}

// Clamp returns the definition for `x |> clamp(lo, hi)`.
func Clamp() functions.Entry {
	return functions.Entry{
		Name: "clamp",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			n, err := types.Project(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			lo, ok1 := evaluator.NumberArg(inv, 0)
			hi, ok2 := evaluator.NumberArg(inv, 1)
			if !ok1 || !ok2 {
				return nil, extutil.Failf(name, "expects (lo, hi)")
			}
			if lo > hi {
				return nil, extutil.Failf(name, "lo must not exceed hi")
			}
			return types.Number(math.Max(lo, math.Min(hi, n))), nil
		},
	}
}

// Variance returns the definition for `x |> variance` (population variance
// of the samples).
func Variance() functions.Entry {
	return samples("variance", calcVariance)
}

// Stddev returns the definition for `x |> stddev`.
func Stddev() functions.Entry {
	return samples("stddev", func(nums []float64) float64 {
		return math.Sqrt(calcVariance(nums))
	})
}

// Sum returns the definition for `x |> sum`.
func Sum() functions.Entry {
	return samples("sum", func(nums []float64) float64 {
		var s float64
		for _, n := range nums {
			s += n
		}
		return s
	})
}

// Percentile returns the definition for `x |> percentile(p)`, p in [0, 100].
func Percentile() functions.Entry {
	return functions.Entry{
		Name: "percentile",
		Handler: func(name string, v types.Value, inv functions.Invocation) (types.Value, error) {
			nums, err := extutil.Samples(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			p, ok := evaluator.NumberArg(inv, 0)
			if !ok {
				return nil, extutil.Failf(name, "expects a percentile argument")
			}
			if p < 0 || p > 100 {
				return nil, extutil.Failf(name, "p must be between 0 and 100")
			}
			if len(nums) == 0 {
				return types.VoidValue, nil
			}
			sorted := make([]float64, len(nums))
			copy(sorted, nums)
			sort.Float64s(sorted)
			idx := p / 100 * float64(len(sorted)-1)
			lo := int(math.Floor(idx))
			hi := int(math.Ceil(idx))
			if lo == hi {
				return types.Number(sorted[lo]), nil
			}
			frac := idx - float64(lo)
			return types.Number(sorted[lo]*(1-frac) + sorted[hi]*frac), nil
		},
	}
}

// Mode returns the definition for `x |> mode`.
// Returns the most frequent sample; ties return every tied value in first
// occurrence order as an array.
func Mode() functions.Entry {
	return functions.Entry{
		Name: "mode",
		Handler: func(name string, v types.Value, _ functions.Invocation) (types.Value, error) {
			nums, err := extutil.Samples(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			if len(nums) == 0 {
				return types.VoidValue, nil
			}
			counts := make(map[float64]int)
			maxCount := 0
			for _, n := range nums {
				counts[n]++
				maxCount = max(maxCount, counts[n])
			}
			var modes types.Array
			seen := make(map[float64]bool)
			for _, n := range nums {
				if counts[n] == maxCount && !seen[n] {
					seen[n] = true
					modes = append(modes, types.Number(n))
				}
			}
			if len(modes) == 1 {
				return modes[0], nil
			}
			return modes, nil
		},
	}
}

// ── helpers ────────────────────────────────────────────────────────────────

func scalar(name string, fn func(float64) float64) functions.Entry {
	return functions.Entry{
		Name: name,
		Handler: func(name string, v types.Value, _ functions.Invocation) (types.Value, error) {
			n, err := types.Project(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			return types.Number(fn(n)), nil
		},
	}
}

func samples(name string, fn func([]float64) float64) functions.Entry {
	return functions.Entry{
		Name: name,
		Handler: func(name string, v types.Value, _ functions.Invocation) (types.Value, error) {
			nums, err := extutil.Samples(v)
			if err != nil {
				return nil, extutil.Wrap(name, err)
			}
			if len(nums) == 0 {
				return types.VoidValue, nil
			}
			return types.Number(fn(nums)), nil
		},
	}
}

func calcVariance(nums []float64) float64 {
	var sum float64
	for _, n := range nums {
		sum += n
	}
	mean := sum / float64(len(nums))
	var sq float64
	for _, n := range nums {
		d := n - mean
		sq += d * d
	}
	return sq / float64(len(nums))
}
