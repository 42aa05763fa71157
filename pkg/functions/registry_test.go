package functions_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/sandrolain/gorei/pkg/functions"
	"github.com/sandrolain/gorei/pkg/types"
)

func constant(v types.Value) functions.Handler {
	return func(string, types.Value, functions.Invocation) (types.Value, error) {
		return v, nil
	}
}

func TestRegistryRegister(t *testing.T) {
	r := functions.NewRegistry()
	if err := r.Register("one", constant(types.Number(1))); err != nil {
		t.Fatal(err)
	}

	err := r.Register("one", constant(types.Number(2)))
	if !errors.Is(err, types.ErrTypeMismatch) {
		t.Errorf("duplicate registration: expected error, got %v", err)
	}
	if err := r.Register("", constant(types.Number(1))); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := r.Register("nil", nil); err == nil {
		t.Error("nil handler should be rejected")
	}

	h, ok := r.Lookup("one")
	if !ok {
		t.Fatal("expected lookup hit")
	}
	if v, _ := h("one", types.VoidValue, nil); v != types.Number(1) {
		t.Errorf("first registration should win, got %v", v)
	}
	if _, ok := r.Lookup("two"); ok {
		t.Error("expected lookup miss")
	}
}

func TestRegistryOverride(t *testing.T) {
	r := functions.NewRegistry()
	r.Override("x", constant(types.Number(1)))
	r.Override("x", constant(types.Number(2)))
	h, _ := r.Lookup("x")
	if v, _ := h("x", types.VoidValue, nil); v != types.Number(2) {
		t.Errorf("override should replace, got %v", v)
	}
}

func TestRegistryNames(t *testing.T) {
	r := functions.NewRegistry()
	err := r.RegisterAll(
		functions.Entry{Name: "zeta", Handler: constant(types.VoidValue)},
		functions.Entry{Name: "alpha", Handler: constant(types.VoidValue)},
		functions.Entry{Name: "mid", Handler: constant(types.VoidValue)},
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Names(); !slices.Equal(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("unexpected names %v", got)
	}

	err = r.RegisterAll(
		functions.Entry{Name: "new", Handler: constant(types.VoidValue)},
		functions.Entry{Name: "alpha", Handler: constant(types.VoidValue)},
		functions.Entry{Name: "after", Handler: constant(types.VoidValue)},
	)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if _, ok := r.Lookup("after"); ok {
		t.Error("RegisterAll should stop at the first error")
	}
}

func TestRegistryClone(t *testing.T) {
	r := functions.NewRegistry()
	r.Override("a", constant(types.Number(1)))

	c := r.Clone()
	c.Override("b", constant(types.Number(2)))
	c.Override("a", constant(types.Number(3)))

	if _, ok := r.Lookup("b"); ok {
		t.Error("clone writes leaked into the original")
	}
	h, _ := r.Lookup("a")
	if v, _ := h("a", types.VoidValue, nil); v != types.Number(1) {
		t.Errorf("original handler replaced, got %v", v)
	}
}
