package ext_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/sandrolain/gorei"
	"github.com/sandrolain/gorei/pkg/evaluator"
	"github.com/sandrolain/gorei/pkg/ext"
	"github.com/sandrolain/gorei/pkg/ext/extcrypto"
	"github.com/sandrolain/gorei/pkg/ext/extnumeric"
	"github.com/sandrolain/gorei/pkg/types"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newSession() *gorei.Session {
	return gorei.NewSession(gorei.WithEvalOptions(
		ext.WithAll(),
		evaluator.WithClock(clockwork.NewFakeClockAt(epoch)),
	))
}

func eval(t *testing.T, src string) types.Value {
	t.Helper()
	v, err := newSession().Eval(context.Background(), src)
	if err != nil {
		t.Fatalf("Eval(%q) error: %v", src, err)
	}
	return v
}

func evalString(t *testing.T, src string) string {
	t.Helper()
	s, ok := eval(t, src).(types.String)
	if !ok {
		t.Fatalf("Eval(%q): expected a string", src)
	}
	return string(s)
}

func evalExpectError(t *testing.T, src string) {
	t.Helper()
	_, err := newSession().Eval(context.Background(), src)
	if err == nil {
		t.Fatalf("Eval(%q): expected error, got nil", src)
	}
	if !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("Eval(%q): expected a type mismatch, got %v", src, err)
	}
}

// ── WithAll ────────────────────────────────────────────────────────────────

func TestWithAllRegistersEveryCommand(t *testing.T) {
	ev := evaluator.New(ext.WithAll())
	for _, e := range ext.All() {
		if _, ok := ev.Registry().Lookup(e.Name); !ok {
			t.Errorf("command %q not registered", e.Name)
		}
	}
	// built-ins survive alongside the packs
	if _, ok := ev.Registry().Lookup("compute"); !ok {
		t.Error("built-in compute missing")
	}
}

func TestWithCategory(t *testing.T) {
	sess := gorei.NewSession(gorei.WithEvalOptions(ext.WithNumeric()))
	if v, err := sess.Eval(context.Background(), "[1, 2, 3] |> sum"); err != nil || v != types.Number(6) {
		t.Errorf("numeric pack: got %v %v", v, err)
	}
	if _, err := sess.Eval(context.Background(), "1 |> hash"); !errors.Is(err, types.ErrUnknownCommand) {
		t.Errorf("crypto pack should not be loaded, got %v", err)
	}

	single := gorei.NewSession(gorei.WithEvalOptions(evaluator.WithCommands(extnumeric.Stddev())))
	if v, err := single.Eval(context.Background(), "[2, 4, 4, 4, 5, 5, 7, 9] |> stddev"); err != nil || v != types.Number(2) {
		t.Errorf("single command: got %v %v", v, err)
	}
}

// ── numeric ────────────────────────────────────────────────────────────────

func TestNumeric(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"𝕄{0; 2, 4, 4, 4, 5, 5, 7, 9} |> stddev", 2},
		{"[2, 4, 4, 4, 5, 5, 7, 9] |> variance", 4},
		{"[1, 2, 3, 4] |> percentile(50)", 2.5},
		{"[4, 1, 3, 2] |> percentile(100)", 4},
		{"[1, 2, 3, 4] |> percentile(0)", 1},
		{"[1, 2, 3] |> sum", 6},
		{"𝕄{10; 1, 2} |> sum", 3},
		{"(𝕄{10; 1, 2} |> seal) |> sum", 3},
		{"5 |> sum", 5},
		{"-3.7 |> trunc", -3},
		{"-2 |> sign", -1},
		{"0 |> sign", 0},
		{"8 |> log(2)", 3},
		{"1 |> log", 0},
		{"15 |> clamp(0, 10)", 10},
		{"-1 |> clamp(0, 10)", 0},
		{"[1, 2, 2, 3] |> mode", 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, ok := eval(t, tt.src).(types.Number)
			if !ok || math.Abs(float64(got)-tt.want) > 1e-9 {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNumericModeTies(t *testing.T) {
	got := eval(t, "[3, 1, 1, 3, 2] |> mode")
	want := types.Array{types.Number(3), types.Number(1)}
	if !types.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestNumericEmpty(t *testing.T) {
	for _, src := range []string{"𝕄{1} |> sum", "𝕄{1} |> mode", "𝕄{1} |> percentile(50)"} {
		if got := eval(t, src); got != types.VoidValue {
			t.Errorf("%s: expected void, got %v", src, got)
		}
	}
}

func TestNumericErrors(t *testing.T) {
	for _, src := range []string{
		"0 |> log",
		"8 |> log(1)",
		"1 |> clamp(5, 1)",
		"1 |> clamp(5)",
		"[1] |> percentile(101)",
		"[1] |> percentile",
		`"a" |> sum`,
		`["a"] |> stddev`,
	} {
		t.Run(src, func(t *testing.T) {
			evalExpectError(t, src)
		})
	}
}

// ── crypto ─────────────────────────────────────────────────────────────────

func TestHashMatchesSeal(t *testing.T) {
	hashed := evalString(t, "𝕄{1; 2} |> hash")
	sealed := evalString(t, "(𝕄{1; 2} |> seal).hash")
	if hashed != sealed {
		t.Errorf("hash %q differs from seal hash %q", hashed, sealed)
	}
}

func TestHashAlgorithms(t *testing.T) {
	tests := []struct {
		src    string
		length int
	}{
		{"1 |> hash", 64},
		{"1 |> hash:blake3", 64},
		{"1 |> hash:sha256", 64},
		{`1 |> hash("SHA512")`, 128},
		{"1 |> hash:fnv", 16},
		{`1 |> hmac("key")`, 64},
		{`1 |> hmac:sha512("key")`, 128},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := evalString(t, tt.src); len(got) != tt.length {
				t.Errorf("expected %d hex digits, got %q", tt.length, got)
			}
		})
	}

	if evalString(t, "1 |> hash:sha256") != evalString(t, `1 |> hash("sha256")`) {
		t.Error("mode and argument should select the same algorithm")
	}
	if evalString(t, `1 |> hmac("a")`) == evalString(t, `1 |> hmac("b")`) {
		t.Error("different keys should give different MACs")
	}

	evalExpectError(t, "1 |> hash:md5")
	evalExpectError(t, "1 |> hmac")
	evalExpectError(t, `1 |> hmac:fnv("k")`)
}

func TestUUID(t *testing.T) {
	a := evalString(t, "𝕄{1; 2} |> uuid")
	b := evalString(t, "𝕄{1; 2} |> uuid")
	c := evalString(t, "𝕄{1; 3} |> uuid")
	if a != b || a == c {
		t.Errorf("content ids should be stable and distinct: %s %s %s", a, b, c)
	}
	id, err := uuid.Parse(a)
	if err != nil || id.Version() != 5 {
		t.Errorf("expected a version 5 uuid, got %q %v", a, err)
	}

	r1, r2 := evalString(t, "1 |> uuid:random"), evalString(t, "1 |> uuid:random")
	rid, err := uuid.Parse(r1)
	if err != nil || rid.Version() != 4 || r1 == r2 {
		t.Errorf("expected fresh version 4 uuids, got %q %q", r1, r2)
	}
}

func TestFingerprint(t *testing.T) {
	a, err := extcrypto.Fingerprint(types.Number(1))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := extcrypto.Fingerprint(types.Number(2))
	if a == b {
		t.Error("distinct values should fingerprint differently")
	}
	data, _ := types.MarshalCanonical(types.Number(1))
	if got := evaluator.FNVHasher(data); got != evalString(t, "1 |> hash:fnv") {
		t.Errorf("fnv hash mismatch: %s", got)
	}
}

// ── datetime ───────────────────────────────────────────────────────────────

func TestDateTime(t *testing.T) {
	if got := evalString(t, `"2023-12-31T23:00:00Z" |> since`); got != "1 hour ago" {
		t.Errorf("since: got %q", got)
	}
	if got := evalString(t, `"2024-01-03T00:00:00Z" |> since`); got != "2 days from now" {
		t.Errorf("since future: got %q", got)
	}

	ages := []struct {
		src  string
		want float64
	}{
		{"(1 |> temporal) |> age", 0},
		{`"2023-12-31T00:00:00Z" |> age`, 86400},
		{`(1 |> temporal("2023-12-31T23:59:00Z")) |> age`, 60},
		{"(1 |> seal) |> age", 0},
	}
	for _, tt := range ages {
		if got := eval(t, tt.src); got != types.Number(tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.src, tt.want, got)
		}
	}

	if got := evalString(t, `"2024-03-01T12:00:00+02:00" |> stamp`); got != "2024-03-01T10:00:00Z" {
		t.Errorf("stamp: got %q", got)
	}
	if got := evalString(t, "(1 |> seal) |> stamp"); got != "2024-01-01T00:00:00Z" {
		t.Errorf("stamp of a sealed value: got %q", got)
	}

	evalExpectError(t, "5 |> since")
	evalExpectError(t, "(1 |> as:plain) |> age")
}
