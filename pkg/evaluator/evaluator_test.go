package evaluator_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/parser"
	"github.com/sandrolain/gorei/pkg/types"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// contractionFactor is the projection ratio of one extend step.
const contractionFactor = 0.1

func evalIn(t *testing.T, ev *evaluator.Evaluator, env *evaluator.Environment, src string) (types.Value, error) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", src, err)
	}
	return ev.EvalProgram(context.Background(), prog, env)
}

func eval(t *testing.T, src string, opts ...evaluator.EvalOption) types.Value {
	t.Helper()
	v, err := evalIn(t, evaluator.New(opts...), nil, src)
	if err != nil {
		t.Fatalf("Eval(%q) error: %v", src, err)
	}
	return v
}

func evalExpectError(t *testing.T, src string, code types.ErrorCode, opts ...evaluator.EvalOption) *types.Error {
	t.Helper()
	_, err := evalIn(t, evaluator.New(opts...), nil, src)
	if err == nil {
		t.Fatalf("Eval(%q): expected error %s, got nil", src, code)
	}
	var rerr *types.Error
	if !errors.As(err, &rerr) {
		t.Fatalf("Eval(%q): expected *types.Error, got %T: %v", src, err, err)
	}
	if rerr.Code != code {
		t.Fatalf("Eval(%q): expected %s, got %s (%v)", src, code, rerr.Code, err)
	}
	return rerr
}

func num(t *testing.T, v types.Value) float64 {
	t.Helper()
	n, ok := v.(types.Number)
	if !ok {
		t.Fatalf("expected number, got %s %v", v.Kind(), v)
	}
	return float64(n)
}

func assertNum(t *testing.T, src string, want float64, opts ...evaluator.EvalOption) {
	t.Helper()
	if got := num(t, eval(t, src, opts...)); math.Abs(got-want) > 1e-9 {
		t.Errorf("Eval(%q): expected %v, got %v", src, want, got)
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"let x = 5; x + 3", 8},
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"10 - 4 - 3", 3},
		{"7 / 2", 3.5},
		{"-3 * 2", -6},
		{"-(1 + 1)", -2},
		{"π", math.Pi},
		{"e + φ", math.E + math.Phi},
		{"𝕄{5; 1, 2, 3} + 1", 8},
		{"0oo * 2", 0},
		{"⊤ + ⊤π", 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assertNum(t, tt.src, tt.want)
		})
	}
}

func TestEvalStrings(t *testing.T) {
	if got := eval(t, `"rei" + "-" + "lang"`); got != types.String("rei-lang") {
		t.Errorf("expected concatenation, got %v", got)
	}
	evalExpectError(t, `"a" * 2`, types.ErrCodeTypeMismatch)
}

func TestEvalDivisionByZero(t *testing.T) {
	if got := num(t, eval(t, "1 / 0")); !math.IsInf(got, 1) {
		t.Errorf("expected +Inf, got %v", got)
	}
}

func TestEvalEmptyProgram(t *testing.T) {
	if got := eval(t, ""); got != types.VoidValue {
		t.Errorf("expected void, got %v", got)
	}
	if got := eval(t, "let x = 1"); got != types.VoidValue {
		t.Errorf("let should evaluate to void, got %v", got)
	}
}

func TestEvalFunctions(t *testing.T) {
	assertNum(t, "compress double(n) = n * 2; double(21)", 42)
	assertNum(t, "compress 3 add(a, b) = a + b; add(2, 3)", 5)
	assertNum(t, "compress zero() = 0; zero()", 0)
	assertNum(t, "compress fact(n) = if n < 2 { 1 } else { n * fact(n - 1) }; fact(5)", 120)

	fn, ok := eval(t, "compress id(x) = x").(*evaluator.Closure)
	if !ok {
		t.Fatal("function definition should evaluate to its closure")
	}
	if fn.Name != "id" || len(fn.Params) != 1 || fn.String() != "fn id(x)" {
		t.Errorf("unexpected closure %v", fn)
	}
}

func TestEvalClosureCapturesByReference(t *testing.T) {
	assertNum(t, "let mut n = 1; compress get() = n; n = 5; get()", 5)
	assertNum(t, "compress outer(a) = { compress inner(b) = a + b; inner(10) }; outer(1)", 11)
}

func TestEvalFunctionErrors(t *testing.T) {
	evalExpectError(t, "compress f(a) = a; f(1, 2)", types.ErrCodeArityMismatch)
	evalExpectError(t, "compress f(a, b) = a; f(1)", types.ErrCodeArityMismatch)
	evalExpectError(t, "let x = 1; x(2)", types.ErrCodeNotCallable)
	evalExpectError(t, "compress f(a) = a; f = 2", types.ErrCodeImmutableBinding)
	evalExpectError(t, "compress f(a) = { a = 2 }; f(1)", types.ErrCodeImmutableBinding)
	evalExpectError(t, "compress loop(n) = loop(n); loop(1)", types.ErrCodeRecursionLimit, evaluator.WithMaxDepth(50))
}

func TestEvalBindings(t *testing.T) {
	assertNum(t, "let mut x = 1; x = x + 1; x", 2)
	evalExpectError(t, "let x = 1; x = 2", types.ErrCodeImmutableBinding)
	evalExpectError(t, "y = 2", types.ErrCodeUndefinedVariable)
	evalExpectError(t, "missing + 1", types.ErrCodeUndefinedVariable)
	evalExpectError(t, "π = 3", types.ErrCodeImmutableBinding)

	// redefinition in the same scope replaces the binding
	assertNum(t, "let x = 1; let x = 2; x", 2)
}

func TestEvalFailedAssignmentKeepsValue(t *testing.T) {
	ev := evaluator.New()
	env := evaluator.NewRootEnvironment()
	if _, err := evalIn(t, ev, env, "let x = 1"); err != nil {
		t.Fatal(err)
	}
	if _, err := evalIn(t, ev, env, "x = 2"); !errors.Is(err, types.ErrImmutableBinding) {
		t.Fatalf("expected immutable binding error, got %v", err)
	}
	v, err := env.Get("x")
	if err != nil || v != types.Number(1) {
		t.Fatalf("expected x to stay 1, got %v %v", v, err)
	}
}

func TestEvalScopes(t *testing.T) {
	assertNum(t, "let x = 1; { let x = 2; x }", 2)
	assertNum(t, "let x = 1; { let x = 2 }; x", 1)
	assertNum(t, "let mut x = 1; { x = 5 }; x", 5)
	evalExpectError(t, "{ let y = 2 }; y", types.ErrCodeUndefinedVariable)
	evalExpectError(t, "compress f() = { let inner = 1; inner }; f(); inner", types.ErrCodeUndefinedVariable)
}

func TestEvalControlFlow(t *testing.T) {
	assertNum(t, "if 0 { 1 } else { 2 }", 2)
	assertNum(t, "if ⊤π { 1 } else { 2 }", 1)
	assertNum(t, "let x = -5; if x > 0 { 1 } else if x < 0 { -1 } else { 0 }", -1)
	if got := eval(t, "if ⊥ { 1 }"); got != types.VoidValue {
		t.Errorf("expected void for missing else, got %v", got)
	}
	if got := eval(t, "{ 1; 2 }"); got != types.Number(2) {
		t.Errorf("block should yield its last value, got %v", got)
	}

	if got := eval(t, `match 2 { 1 -> "one", 2 -> "two", _ -> "many" }`); got != types.String("two") {
		t.Errorf("expected two, got %v", got)
	}
	if got := eval(t, `match 9 { 1 -> "one"; _ -> "many" }`); got != types.String("many") {
		t.Errorf("expected wildcard arm, got %v", got)
	}
	if got := eval(t, `match ⊤π { ⊤ -> 1, ⊤π -> 2 }`); got != types.Number(2) {
		t.Errorf("expected quad match, got %v", got)
	}
	evalExpectError(t, "match 3 { 1 -> 1 }", types.ErrCodeNoMatchingArm)
}

func TestEvalQuadLogic(t *testing.T) {
	tests := []struct {
		src  string
		want types.Quad
	}{
		{"⊤ ∧ ⊥π", types.BottomPi},
		{"⊤π ∨ ⊥", types.TopPi},
		{"¬⊤π", types.BottomPi},
		{"¬(⊤ ∧ ⊥)", types.Top},
		{"1 ∧ 0", types.Bottom},
		{"0.1 + 0.2 =κ 0.3", types.Top},
		{"1 >κ 1", types.Bottom},
		{"1.1 >κ 1", types.Top},
		{"1 <κ 1 + 1e-12", types.Bottom},
		{"2 > 1", types.Top},
		{"2 < 1", types.Bottom},
		{"𝕄{5; 1, 2, 3} =κ 7", types.Top},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := eval(t, tt.src); got != tt.want {
				t.Errorf("expected %s, got %v", tt.want, got)
			}
		})
	}
}

func agg(center float64, values ...float64) types.Aggregate {
	a := types.Aggregate{Center: center}
	for _, v := range values {
		a.Neighbors = append(a.Neighbors, types.Neighbor{Value: v, Weight: 1})
	}
	return a
}

func assertValue(t *testing.T, src string, want types.Value, opts ...evaluator.EvalOption) {
	t.Helper()
	got := eval(t, src, opts...)
	if !types.ApproxEqual(got, want, 1e-9) {
		t.Errorf("Eval(%q): expected %v, got %v", src, want, got)
	}
}

func TestEvalAggregates(t *testing.T) {
	weighted := agg(5, 1, 2)
	weighted.Neighbors[1].Weight = 0.5
	assertValue(t, "𝕄{5; 1, 2:0.5}", weighted)
	assertValue(t, "let c = 2; 𝕄{c * 2; c, c + 1}", agg(4, 2, 3))
	assertValue(t, "𝕄{7}", agg(7))
	assertNum(t, "𝕄{5; 1, 2, 3} |> compute:weighted", 7)
	assertNum(t, "𝕄{5; 1, 2:0, 3:0}", 6)
}

func TestEvalStructuralOperators(t *testing.T) {
	assertValue(t, "𝕄{1; 2, 3} ⊕ 𝕄{10; 4}", agg(11, 2, 3, 4))
	assertValue(t, "𝕄{2; 1, 2} ⊗ 𝕄{3; 4}", agg(6, 4))
	assertValue(t, "𝕄{2; 1, 2} · 𝕄{3; 4, 5}", types.Number(20))
	assertValue(t, "5 ⊕ 𝕄{1; 2}", agg(6, 2))
	assertValue(t, "[1, 2] ⊕ [3]", agg(0, 1, 2, 3))

	// subscripts survive only when both sides agree
	assertValue(t, "(𝕄{1; 2} >> o) ⊕ (𝕄{1; 2} >> o)", types.Aggregate{
		Center:     0.2,
		Neighbors:  []types.Neighbor{{Value: 0.2, Weight: 1}, {Value: 0.2, Weight: 1}},
		Subscripts: []rune("o"),
	})
	assertValue(t, "(𝕄{1; 2} >> o) ⊕ 𝕄{1; 2}", types.Aggregate{
		Center:    1.1,
		Neighbors: []types.Neighbor{{Value: 0.2, Weight: 1}, {Value: 2, Weight: 1}},
	})

	evalExpectError(t, `"a" ⊕ 1`, types.ErrCodeTypeMismatch)
}

func TestEvalUnifiedAndShapes(t *testing.T) {
	assertNum(t, "𝕌{0o, 𝕄{1; 2}}.value", 3)
	if got := eval(t, "𝕌{πx, 𝕄{1; 2}}.ext"); got.String() != "πx" {
		t.Errorf("expected πx, got %v", got)
	}
	evalExpectError(t, "𝕌{1, 𝕄{1; 2}}", types.ErrCodeTypeMismatch)

	assertNum(t, "△{1, 2, 3}.vertices", 3)
	assertNum(t, "□{・, ・, ・, ・} |> len", 4)
	if got := eval(t, "○{1}.kind"); got != types.String("circle") {
		t.Errorf("expected circle, got %v", got)
	}
}

func TestEvalExtendReduce(t *testing.T) {
	// extend then reduce restores the projection
	assertValue(t, "𝕄{5; 1, 2} >> o << o", agg(5, 1, 2))
	assertValue(t, "(𝕄{5; 1, 2} >> o) |> reduce", agg(5, 1, 2))
	assertNum(t, "(0o >> x).depth", 2)
	assertNum(t, "(πx >> x).value", math.Pi/10)
	assertNum(t, "(πx >> x >> o).value", math.Pi/100)
	assertNum(t, "(πx >> x << x).value", math.Pi)
	assertNum(t, "(3 >> o).center", 0.3)
	if got := eval(t, `(0o >> "₁").subscripts`); got != types.String("o₁") {
		t.Errorf("expected o₁, got %v", got)
	}

	evalExpectError(t, "0o << o << o", types.ErrCodeReduceBelowBase)
	evalExpectError(t, "𝕄{1; 2} << o", types.ErrCodeReduceBelowBase)
	evalExpectError(t, `"s" >> o`, types.ErrCodeTypeMismatch)
}

func TestEvalSpiral(t *testing.T) {
	if got := eval(t, "0o ⤊ 2"); got.String() != "0ooo" {
		t.Errorf("expected 0ooo, got %v", got)
	}
	assertValue(t, "𝕄{1; 2} ⤊ 3 ⤋ 3", agg(1, 2))
	assertValue(t, "𝕄{1; 2} ⤊ 0", agg(1, 2))
	evalExpectError(t, "0o ⤋ 2", types.ErrCodeReduceBelowBase)
}

func TestEvalExtendReduceRoundTrip(t *testing.T) {
	bases := []struct {
		src   string
		depth int
	}{
		{"𝕄{5; 1, 2:3}", 0},
		{"0o", 1},
		{"πx", 1},
		{"e₁", 1},
		{"φz", 1},
		{"iw", 1},
	}
	subscripts := []rune("oxzw₀₁₂₃₄₅₆₇₈₉")
	const maxDepth = 6

	for _, b := range bases {
		base := eval(t, b.src)
		baseValue := num(t, eval(t, "("+b.src+").value"))
		for _, c := range subscripts {
			for d := 0; d <= maxDepth; d++ {
				extended := "(" + b.src + strings.Repeat(` >> "`+string(c)+`"`, d) + ")"
				restored := "(" + extended + strings.Repeat(` << "`+string(c)+`"`, d) + ")"
				name := fmt.Sprintf("%s/%c/%d", b.src, c, d)

				if got := num(t, eval(t, extended+".depth")); int(got) != b.depth+d {
					t.Errorf("%s: expected depth %d, got %v", name, b.depth+d, got)
				}
				wantScaled := baseValue * math.Pow(contractionFactor, float64(d))
				if got := num(t, eval(t, extended+".value")); math.Abs(got-wantScaled) > 1e-9 {
					t.Errorf("%s: expected extended value %v, got %v", name, wantScaled, got)
				}
				if got := eval(t, restored); !types.ApproxEqual(got, base, 1e-9) {
					t.Errorf("%s: expected %v after reduce, got %v", name, base, got)
				}
				if got := num(t, eval(t, restored+".value")); math.Abs(got-baseValue) > 1e-9 {
					t.Errorf("%s: expected value %v after reduce, got %v", name, baseValue, got)
				}
			}
		}
	}
}

func TestEvalMirror(t *testing.T) {
	assertValue(t, "◁[1, 2, 3]", types.Array{types.Number(3), types.Number(2), types.Number(1)})
	assertValue(t, "[1, 2] |> mirror", types.Array{types.Number(2), types.Number(1)})
	assertValue(t, "◁5", types.Number(-5))
	assertValue(t, "◁⊤π", types.BottomPi)
	assertValue(t, `◁"abc"`, types.String("cba"))
	assertValue(t, "◁𝕄{0; 1, 2}", agg(0, 2, 1))
	assertValue(t, "◁・", types.PointValue)
	assertValue(t, "◁◁𝕄{0; 1, 2, 3}", agg(0, 1, 2, 3))
	evalExpectError(t, "◁0₀", types.ErrCodeTypeMismatch)
}

func TestEvalGeneration(t *testing.T) {
	g, ok := eval(t, "0₀").(types.Generation)
	if !ok || g.Phase != types.PhaseVoid || g.Payload != nil {
		t.Fatalf("expected a fresh generation, got %v", g)
	}

	phases := []string{"point", "zero_ext", "zero", "one"}
	for i, want := range phases {
		src := "(0₀" + strings.Repeat(" |> forward", i+1) + ").phase"
		if got := eval(t, src); got != types.String(want) {
			t.Errorf("after %d steps: expected %s, got %v", i+1, want, got)
		}
	}

	terminal := eval(t, "0₀ |> forward |> forward |> forward |> forward").(types.Generation)
	if terminal.Phase != types.TerminalPhase || terminal.Progress != 1 || len(terminal.History) != 5 {
		t.Fatalf("unexpected terminal generation %v", terminal)
	}
	again := eval(t, "0₀ |> forward |> forward |> forward |> forward |> forward")
	if !types.Equal(again, terminal) {
		t.Errorf("forward at terminal should be a no-op: %v vs %v", again, terminal)
	}

	assertNum(t, "(0₀ |> advance(2)).progress", 0.5)
	if got := eval(t, "advance(0₀, 2).phase"); got != types.String("zero_ext") {
		t.Errorf("expected command fallback for advance, got %v", got)
	}
	assertNum(t, "(0₀ |> advance(99)).progress", 1)
	evalExpectError(t, "5 |> forward", types.ErrCodeTypeMismatch)
}

func TestEvalCompress(t *testing.T) {
	assertNum(t, "compress 𝕄{5; 1, 2, 3}", 7)
	assertNum(t, "𝕄{5; 1, 2, 3} |> compress:median", 7)
	assertNum(t, "𝕄{5; 1, 2, 3} |> compress", 7)
	if got := eval(t, "compress πxx"); !types.Equal(got, types.NewExtended('π', nil)) {
		t.Errorf("expected extended symbol at base depth, got %v", got)
	}
	assertNum(t, "compress ⊤", 1)
}

func TestEvalDomains(t *testing.T) {
	d, ok := eval(t, "5 |> as:physics").(types.Domain)
	if !ok || d.Label != "physics" || d.Inner != types.Number(5) {
		t.Fatalf("unexpected domain %v", d)
	}
	if got := eval(t, "(5 |> as:physics).domain"); got != types.String("physics") {
		t.Errorf("expected physics, got %v", got)
	}
	assertNum(t, "(5 |> as:physics) + 1", 6)
	if got := eval(t, "(1 |> timeless).domain"); got != types.String("timeless") {
		t.Errorf("expected timeless, got %v", got)
	}
}

func TestEvalTemporal(t *testing.T) {
	clock := clockwork.NewFakeClockAt(epoch)
	got := eval(t, "(1 |> temporal).timestamp", evaluator.WithClock(clock))
	if got != types.String("2024-01-01T00:00:00Z") {
		t.Errorf("expected clock timestamp, got %v", got)
	}

	parsed := eval(t, `(1 |> temporal("2024-03-05")).timestamp`)
	if s, ok := parsed.(types.String); !ok || !strings.HasPrefix(string(s), "2024-03-0") {
		t.Errorf("expected parsed date, got %v", parsed)
	}
	evalExpectError(t, "1 |> temporal(5)", types.ErrCodeTypeMismatch)
}

func TestEvalSealVerify(t *testing.T) {
	if got := eval(t, "𝕄{1; 2} |> seal |> verify"); got != types.Top {
		t.Errorf("expected sealed value to verify, got %v", got)
	}
	if got := eval(t, "5 |> verify"); got != types.Bottom {
		t.Errorf("unsealed value should verify ⊥, got %v", got)
	}
	for _, src := range []string{
		"𝕄{1/0; 1} |> seal |> verify",
		"𝕄{1; 0/0, -1/0} |> seal |> verify",
		"(1/0) |> seal |> verify",
	} {
		if got := eval(t, src); got != types.Top {
			t.Errorf("%s: expected ⊤, got %v", src, got)
		}
	}
	assertNum(t, "(𝕄{5; 1, 2, 3} |> seal) |> compute:weighted", 7)
}

func TestEvalSealDeterminism(t *testing.T) {
	opts := []evaluator.EvalOption{
		evaluator.WithClock(clockwork.NewFakeClockAt(epoch)),
		evaluator.WithHasher(evaluator.FNVHasher),
	}
	a := eval(t, `𝕄{5; 1, 2} |> as:x |> seal`, opts...).(types.Sealed)
	b := eval(t, `𝕄{5; 1, 2} |> as:x |> seal`, opts...).(types.Sealed)
	if a.Hash != b.Hash || !a.SealedAt.Equal(b.SealedAt) {
		t.Fatalf("sealing is not deterministic: %v vs %v", a, b)
	}
	data, err := types.MarshalCanonical(a.Inner)
	if err != nil {
		t.Fatal(err)
	}
	if a.Hash != evaluator.FNVHasher(data) {
		t.Errorf("hash does not match the canonical encoding")
	}
	if !a.SealedAt.Equal(epoch) {
		t.Errorf("expected seal time from the injected clock, got %v", a.SealedAt)
	}

	blake := eval(t, "1 |> seal").(types.Sealed)
	if len(blake.Hash) != 64 {
		t.Errorf("expected a 64 hex digit blake3 hash, got %q", blake.Hash)
	}
}

func TestEvalVerifyDetectsTampering(t *testing.T) {
	ev := evaluator.New()
	env := evaluator.NewRootEnvironment()
	sealed, err := evaluator.Seal(types.Number(1), evaluator.Blake3Hasher, epoch)
	if err != nil {
		t.Fatal(err)
	}
	sealed.Inner = types.Number(2)
	env.Define("s", sealed, false)
	v, err := evalIn(t, ev, env, "s |> verify")
	if err != nil {
		t.Fatal(err)
	}
	if v != types.Bottom {
		t.Errorf("expected tampered value to verify ⊥, got %v", v)
	}
}

func TestEvalParallel(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		got := eval(t, "𝕄{5; 1, 2, 3} |> parallel(weighted, median, geometric)", evaluator.WithConcurrency(concurrent))
		p, ok := got.(types.Parallel)
		if !ok || len(p) != 3 {
			t.Fatalf("expected 3 parallel entries, got %v", got)
		}
		want := []string{"weighted", "median", "geometric"}
		for i, m := range want {
			if p[i].Mode != m {
				t.Errorf("entry %d: expected %s, got %s", i, m, p[i].Mode)
			}
		}
		if v, _ := p.Get("median"); v != types.Number(7) {
			t.Errorf("expected median 7, got %v", v)
		}
	}
	assertNum(t, "(𝕄{5; 1, 2, 3} |> parallel(weighted, median)).weighted", 7)
	evalExpectError(t, "𝕄{1; 2} |> parallel(weighted, bogus)", types.ErrCodeUnknownMode)
}

func TestEvalMembersAndIndex(t *testing.T) {
	assertNum(t, "𝕄{5; 1, 2}.center", 5)
	assertNum(t, "𝕄{5; 1, 2}.dim", 2)
	assertNum(t, "𝕄{5; 1, 2}[1]", 2)
	assertNum(t, "𝕄{5; 1, 2:3}.weights[1]", 3)
	assertNum(t, "[10, 20, 30][2]", 30)
	assertNum(t, "[1, 2, 3].length", 3)
	if got := eval(t, `"héllo"[1]`); got != types.String("é") {
		t.Errorf("expected rune indexing, got %v", got)
	}
	evalExpectError(t, "[1][5]", types.ErrCodeIndexOutOfRange)
	evalExpectError(t, "[1, 2][0.5]", types.ErrCodeIndexOutOfRange)
	evalExpectError(t, "[1][-1]", types.ErrCodeIndexOutOfRange)
	evalExpectError(t, "5[0]", types.ErrCodeTypeMismatch)
	evalExpectError(t, "𝕄{1}.nope", types.ErrCodeUnknownMember)
}

func TestEvalCommands(t *testing.T) {
	evalExpectError(t, "1 |> nope", types.ErrCodeUnknownCommand)
	evalExpectError(t, "𝕄{1; 2} |> compute:nope", types.ErrCodeUnknownMode)
	evalExpectError(t, "1 |> as", types.ErrCodeTypeMismatch)

	assertNum(t, "len([1, 2, 3])", 3)
	assertNum(t, "[1, 2, 3] |> len", 3)
	assertNum(t, "𝕄{5; 1, 2, 3} |> project", 7)
	if got := eval(t, "0₀ |> kind"); got != types.String("generation") {
		t.Errorf("expected generation kind, got %v", got)
	}
	if got := eval(t, `1 |> extend("x") |> extend`); got.(types.Aggregate).Subscripts == nil {
		t.Errorf("expected subscripts after extend, got %v", got)
	}
	evalExpectError(t, `1 |> extend("q")`, types.ErrCodeTypeMismatch)
	for _, c := range "oxzw₀₁₂₃₄₅₆₇₈₉" {
		viaCommand := eval(t, fmt.Sprintf(`1 |> extend(%q)`, string(c)))
		viaOperator := eval(t, fmt.Sprintf(`1 >> %q`, string(c)))
		if !types.Equal(viaCommand, viaOperator) {
			t.Errorf("extend %q: command gave %v, operator gave %v", c, viaCommand, viaOperator)
		}
	}
}

func TestEvalCustomCommands(t *testing.T) {
	twice := func(_ string, v types.Value, _ functions.Invocation) (types.Value, error) {
		f, err := types.Project(v)
		if err != nil {
			return nil, err
		}
		return types.Number(f * 2), nil
	}
	apply := func(_ string, v types.Value, inv functions.Invocation) (types.Value, error) {
		if len(inv.Args()) != 1 {
			return nil, types.NewError(types.ErrCodeArityMismatch, "apply expects a function")
		}
		return inv.Call(inv.Args()[0], v)
	}
	opts := []evaluator.EvalOption{
		evaluator.WithCommand("twice", twice),
		evaluator.WithCommands(functions.Entry{Name: "apply", Handler: apply}),
	}

	assertNum(t, "21 |> twice", 42, opts...)
	assertNum(t, "compress inc(x) = x + 1; 1 |> apply(inc)", 2, opts...)

	// overriding a built-in replaces it for this evaluator only
	assertNum(t, "𝕄{5; 1} |> compute:weighted", 42, evaluator.WithCommand("compute", func(string, types.Value, functions.Invocation) (types.Value, error) {
		return types.Number(42), nil
	}))
	assertNum(t, "𝕄{5; 1} |> compute:weighted", 6)
}

func TestEvalCommandKeywords(t *testing.T) {
	prog, err := parser.Parse("seal 5", parser.WithKeywords("seal"))
	if err != nil {
		t.Fatal(err)
	}
	v, err := evaluator.New().EvalProgram(context.Background(), prog, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(types.Sealed); !ok {
		t.Errorf("expected keyword to dispatch to seal, got %v", v)
	}
}

func TestEvalAudit(t *testing.T) {
	ev := evaluator.New()
	_, err := evalIn(t, ev, nil, `let x: Number @ flowing = 5 witnessed by "alice"; x + 1 witnessed by "bob"`)
	if err != nil {
		t.Fatal(err)
	}
	audit := ev.Audit()
	if len(audit) != 3 {
		t.Fatalf("expected 3 audit entries, got %d: %v", len(audit), audit)
	}
	if audit[0].Kind != "phase" || audit[0].Binding != "x" || audit[0].Label != "flowing" {
		t.Errorf("unexpected phase entry %+v", audit[0])
	}
	if audit[1].Kind != "witness" || audit[1].Label != "alice" || audit[1].Value != types.Number(5) {
		t.Errorf("unexpected witness entry %+v", audit[1])
	}
	if audit[2].Binding != "" || audit[2].Label != "bob" || audit[2].Value != types.Number(6) {
		t.Errorf("unexpected expression witness %+v", audit[2])
	}
	ev.ResetAudit()
	if len(ev.Audit()) != 0 {
		t.Error("expected empty audit after reset")
	}
}

func TestEvalAuditLimit(t *testing.T) {
	ev := evaluator.New(evaluator.WithAuditLimit(2))
	env := evaluator.NewRootEnvironment()
	for _, src := range []string{`1 witnessed by "a"`, `2 witnessed by "b"`, `3 witnessed by "c"`} {
		if _, err := evalIn(t, ev, env, src); err != nil {
			t.Fatal(err)
		}
	}
	audit := ev.Audit()
	if len(audit) != 2 || audit[0].Label != "b" || audit[1].Label != "c" {
		t.Fatalf("expected the two newest entries, got %+v", audit)
	}
	// reading the log leaves it intact
	if again := ev.Audit(); len(again) != 2 || again[0].Label != "b" {
		t.Errorf("audit changed after read: %+v", again)
	}

	off := evaluator.New(evaluator.WithAuditLimit(-1))
	if _, err := evalIn(t, off, nil, `1 witnessed by "a"`); err != nil {
		t.Fatal(err)
	}
	if n := len(off.Audit()); n != 0 {
		t.Errorf("expected recording disabled, got %d entries", n)
	}

	if got := evaluator.New().Options().AuditLimit; got != evaluator.DefaultAuditLimit {
		t.Errorf("expected default limit %d, got %d", evaluator.DefaultAuditLimit, got)
	}
}

func TestEvalPhaseGuardPassesValueThrough(t *testing.T) {
	assertNum(t, "(3 @ flowing) + 1", 4)
	assertNum(t, "let g = 2 @ settled; g", 2)
}

func TestEvalErrorPositions(t *testing.T) {
	rerr := evalExpectError(t, "let x = 1\n\n  x = 2", types.ErrCodeImmutableBinding)
	if rerr.Line != 3 || rerr.Column != 3 {
		t.Errorf("expected error at 3:3, got %d:%d", rerr.Line, rerr.Column)
	}
}

func TestEvalDebugLogging(t *testing.T) {
	assertNum(t, "compress f(x) = x; f(1) |> project", 1, evaluator.WithDebug(true))
}

func TestEvaluatorReuse(t *testing.T) {
	ev := evaluator.New()
	prog, err := parser.Parse("𝕄{5; 1, 2, 3} |> compute:weighted")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		v, err := ev.EvalProgram(context.Background(), prog, nil)
		if err != nil || v != types.Number(7) {
			t.Fatalf("run %d: got %v %v", i, v, err)
		}
	}
}

func BenchmarkEvalRecursion(b *testing.B) {
	prog, err := parser.Parse("compress fib(n) = if n < 2 { n } else { fib(n - 1) + fib(n - 2) }; fib(15)")
	if err != nil {
		b.Fatal(err)
	}
	ev := evaluator.New()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ev.EvalProgram(ctx, prog, nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvalCompute(b *testing.B) {
	prog, err := parser.Parse("𝕄{5; 1, 2, 3, 4, 5, 6, 7, 8} |> parallel(weighted, harmonic, geometric, entropy)")
	if err != nil {
		b.Fatal(err)
	}
	ev := evaluator.New()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ev.EvalProgram(ctx, prog, nil); err != nil {
			b.Fatal(err)
		}
	}
}
