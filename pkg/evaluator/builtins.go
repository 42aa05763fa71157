package evaluator

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oarkflow/date"

	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

// NewRegistry returns a registry holding the built-in commands.
func NewRegistry() *functions.Registry {
	reg := functions.NewRegistry()
	RegisterBuiltins(reg)
	return reg
}

// RegisterBuiltins installs the built-in commands, replacing same-named
// entries.
func RegisterBuiltins(reg *functions.Registry) {
	for _, b := range Builtins() {
		reg.Override(b.Name, b.Handler)
	}
}

// Builtins returns the built-in command table.
func Builtins() []functions.Entry {
	return []functions.Entry{
		{Name: "compute", Handler: cmdCompute},
		{Name: "as", Handler: cmdAs},
		{Name: "compress", Handler: cmdCompress},
		{Name: "seal", Handler: cmdSeal},
		{Name: "verify", Handler: cmdVerify},
		{Name: "forward", Handler: cmdForward},
		{Name: "advance", Handler: cmdAdvance},
		{Name: "mirror", Handler: cmdMirror},
		{Name: "temporal", Handler: cmdTemporal},
		{Name: "timeless", Handler: cmdTimeless},
		{Name: "parallel", Handler: cmdParallel},
		{Name: "extend", Handler: cmdExtend},
		{Name: "reduce", Handler: cmdReduce},
		{Name: "project", Handler: cmdProject},
		{Name: "kind", Handler: cmdKind},
		{Name: "len", Handler: cmdLen},
	}
}

// label returns the `:mode` of the invocation, or its first string argument.
func label(inv functions.Invocation) string {
	if m := inv.Mode(); m != "" {
		return m
	}
	if s, ok := StringArg(inv, 0); ok {
		return s
	}
	return ""
}

// StringArg returns argument i when it is a string.
func StringArg(inv functions.Invocation, i int) (string, bool) {
	args := inv.Args()
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(types.String)
	return string(s), ok
}

// NumberArg returns the numeric projection of argument i.
func NumberArg(inv functions.Invocation, i int) (float64, bool) {
	args := inv.Args()
	if i >= len(args) {
		return 0, false
	}
	f, err := types.Project(args[i])
	return f, err == nil
}

func cmdCompute(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	f, err := Compute(label(inv), v)
	if err != nil {
		return nil, err
	}
	return types.Number(f), nil
}

func cmdAs(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	domain := label(inv)
	if domain == "" {
		return nil, types.NewError(types.ErrCodeTypeMismatch, "as requires a domain label")
	}
	return types.Domain{Inner: v, Label: domain, Meta: map[string]types.Value{}}, nil
}

// cmdCompress reduces aggregates by mode, strips extended symbols back to
// their base and projects everything else.
func cmdCompress(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	switch x := v.(type) {
	case types.Aggregate, types.Unified:
		f, err := Compute(label(inv), x)
		if err != nil {
			return nil, err
		}
		return types.Number(f), nil
	case types.Extended:
		return fullyReduce(x)
	default:
		f, err := types.Project(v)
		if err != nil {
			return nil, err
		}
		return types.Number(f), nil
	}
}

// Seal wraps v with its content hash and the current time.
func Seal(v types.Value, hash Hasher, now time.Time) (types.Sealed, error) {
	data, err := types.MarshalCanonical(v)
	if err != nil {
		return types.Sealed{}, types.NewError(types.ErrCodeTypeMismatch, "value cannot be sealed").WithCause(err)
	}
	return types.Sealed{Inner: v, Hash: hash(data), SealedAt: now}, nil
}

func cmdSeal(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	return Seal(v, inv.Hash, inv.Now())
}

// cmdVerify recomputes the hash of a sealed value. Unsealed values verify ⊥.
func cmdVerify(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	s, ok := v.(types.Sealed)
	if !ok {
		return types.Bottom, nil
	}
	data, err := types.MarshalCanonical(s.Inner)
	if err != nil {
		return types.Bottom, nil
	}
	return types.QuadOf(inv.Hash(data) == s.Hash), nil
}

func asGeneration(v types.Value) (types.Generation, error) {
	g, ok := v.(types.Generation)
	if !ok {
		return types.Generation{}, types.Errorf(types.ErrCodeTypeMismatch, "expected a generation value, got %s", kindName(v))
	}
	return g, nil
}

func cmdForward(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	g, err := asGeneration(v)
	if err != nil {
		return nil, err
	}
	return Forward(g), nil
}

func cmdAdvance(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	g, err := asGeneration(v)
	if err != nil {
		return nil, err
	}
	n := 1
	if f, ok := NumberArg(inv, 0); ok {
		n = int(f)
	}
	return Advance(g, n), nil
}

func cmdMirror(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	return mirror(v)
}

// cmdTemporal tags v with a timestamp from the clock, or from its date
// argument.
func cmdTemporal(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	ts := inv.Now()
	if len(inv.Args()) > 0 {
		s, ok := StringArg(inv, 0)
		if !ok {
			return nil, types.NewError(types.ErrCodeTypeMismatch, "temporal expects a date string")
		}
		t, err := date.Parse(s)
		if err != nil {
			return nil, types.Errorf(types.ErrCodeTypeMismatch, "cannot parse date %q", s).WithCause(err)
		}
		ts = t
	}
	return types.Domain{
		Inner: v,
		Label: "temporal",
		Meta:  map[string]types.Value{"timestamp": types.String(ts.UTC().Format(time.RFC3339Nano))},
	}, nil
}

func cmdTimeless(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	return types.Domain{Inner: v, Label: "timeless", Meta: map[string]types.Value{}}, nil
}

// cmdParallel evaluates each compute mode named in its arguments. Results
// keep source order whether or not the branches run concurrently.
func cmdParallel(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	args := inv.Args()
	modes := make([]string, len(args))
	for i := range args {
		m, ok := StringArg(inv, i)
		if !ok {
			return nil, types.NewError(types.ErrCodeTypeMismatch, "parallel expects mode labels")
		}
		modes[i] = m
	}

	out := make(types.Parallel, len(modes))
	errs := make([]error, len(modes))
	run := func(i int) {
		f, err := Compute(modes[i], v)
		out[i] = types.ParallelEntry{Mode: modes[i], Value: types.Number(f)}
		errs[i] = err
	}

	if inv.Concurrent() && len(modes) > 1 {
		var wg sync.WaitGroup
		for i := range modes {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range modes {
			run(i)
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func subscriptArg(inv functions.Invocation) (rune, error) {
	s, ok := StringArg(inv, 0)
	if !ok {
		return spiralSubscript, nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || !types.IsSubscript(r) {
		return 0, types.Errorf(types.ErrCodeTypeMismatch, "invalid subscript %q", s)
	}
	return r, nil
}

func cmdExtend(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
	sub, err := subscriptArg(inv)
	if err != nil {
		return nil, err
	}
	return extendValue(v, sub)
}

func cmdReduce(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	return reduceValue(v)
}

func cmdProject(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	f, err := types.Project(v)
	if err != nil {
		return nil, err
	}
	return types.Number(f), nil
}

func cmdKind(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	return types.String(v.Kind().String()), nil
}

func cmdLen(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
	switch x := v.(type) {
	case types.Array:
		return types.Number(len(x)), nil
	case types.String:
		return types.Number(utf8.RuneCountInString(string(x))), nil
	case types.Aggregate:
		return types.Number(len(x.Neighbors)), nil
	case types.Shape:
		return types.Number(x.Vertices), nil
	case types.Parallel:
		return types.Number(len(x)), nil
	case types.Extended:
		return types.Number(len(x.Subscripts)), nil
	default:
		return nil, types.Errorf(types.ErrCodeTypeMismatch, "%s has no length", kindName(v))
	}
}
