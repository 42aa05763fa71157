// Package extutil provides shared helpers for the ext sub-packages.
package extutil

import (
	"fmt"

	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// Samples returns the numeric samples carried by v: an aggregate's neighbor
// values, an array's projected items, or the projection of a scalar.
func Samples(v types.Value) ([]float64, error) {
	switch x := v.(type) {
	case types.Aggregate:
		return x.Values(), nil
	case types.Unified:
		return x.Multi.Values(), nil
	case types.Array:
		out := make([]float64, len(x))
		for i, item := range x {
			f, err := types.Project(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out[i] = f
		}
		return out, nil
	case types.Domain:
		return Samples(x.Inner)
	case types.Sealed:
		return Samples(x.Inner)
	default:
		f, err := types.Project(v)
		if err != nil {
			return nil, err
		}
		return []float64{f}, nil
	}
}

// Failf builds a type-mismatch error prefixed with the command name.
func Failf(command, format string, args ...any) error {
	return types.Errorf(types.ErrCodeTypeMismatch, command+": "+format, args...)
}

// Wrap prefixes err with the command name, keeping it matchable with
// errors.Is against its original code.
func Wrap(command string, err error) error {
	return fmt.Errorf("%s: %w", command, err)
}

// Entries collects constructors into registry entries.
func Entries(ctors ...func() functions.Entry) []functions.Entry {
	out := make([]functions.Entry, len(ctors))
	for i, c := range ctors {
		out[i] = c()
	}
	return out
}
