package engine

import (
	"errors"
	"testing"
)

func mustCall(t *testing.T, fn Func, args ...Value) any {
	t.Helper()
	v, err := fn(args)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	out, err := v.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return out
}

func poisoned() Value {
	return Lazy(func() (Value, error) {
		return Value{}, errors.New("untaken branch was evaluated")
	})
}

func TestIFShortCircuit(t *testing.T) {
	r := DefaultRegistry()
	fn, _ := r.Lookup("IF")

	got := mustCall(t, fn, Scalar(true), Scalar("sim"), poisoned())
	if got != "sim" {
		t.Errorf("got %#v, want sim", got)
	}
	got = mustCall(t, fn, Scalar(false), poisoned(), Scalar("não"))
	if got != "não" {
		t.Errorf("got %#v, want não", got)
	}
}

func TestIFArrayCondition(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("IF")
	cond := Array([]Value{Scalar(1.0)})
	got := mustCall(t, fn, cond, Scalar("a"), Scalar("b"))
	if got != "a" {
		t.Errorf("got %#v, want a", got)
	}
}

func TestIFTextCondition(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("IF")
	// Non-empty text is truthy; only "" and "false" select the else branch.
	got := mustCall(t, fn, Scalar("qualquer"), Scalar("sim"), poisoned())
	if got != "sim" {
		t.Errorf("got %#v, want sim", got)
	}
	got = mustCall(t, fn, Scalar(""), poisoned(), Scalar("não"))
	if got != "não" {
		t.Errorf("got %#v, want não", got)
	}
}

func TestIFMissingBranches(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("IF")
	if got := mustCall(t, fn, Scalar(true)); got != true {
		t.Errorf("got %#v, want true", got)
	}
	if got := mustCall(t, fn, Scalar(false), Scalar("x")); got != false {
		t.Errorf("got %#v, want false", got)
	}
}

func TestIFERROR(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("IFERROR")
	if got := mustCall(t, fn, Scalar(5.0), poisoned()); got != 5.0 {
		t.Errorf("happy path: got %#v, want 5.0", got)
	}
	if got := mustCall(t, fn, poisoned(), Scalar(0.0)); got != 0.0 {
		t.Errorf("fallback: got %#v, want 0.0", got)
	}
}

func TestSUMSkipsNonNumeric(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("SUM")
	args := []Value{Array([]Value{
		Scalar(1.0), Scalar(nil), Scalar("texto"), Scalar(2.0), Scalar(true),
	})}
	got := mustCall(t, fn, args...)
	if got != 4.0 {
		t.Errorf("got %#v, want 4.0", got)
	}
}

func TestAVERAGE(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("AVERAGE")
	got := mustCall(t, fn, Scalar(2.0), Scalar(4.0))
	if got != 3.0 {
		t.Errorf("got %#v, want 3.0", got)
	}
	if _, err := fn([]Value{Scalar("texto")}); err == nil {
		t.Error("AVERAGE over no numbers should fail")
	}
}

func TestRoundFamily(t *testing.T) {
	tests := []struct {
		fn   string
		n    float64
		d    float64
		want float64
	}{
		{"ROUND", 2.346, 2, 2.35},
		{"ROUND", -2.5, 0, -3},
		{"ROUNDUP", 2.01, 1, 2.1},
		{"ROUNDUP", -2.01, 1, -2.1},
		{"ROUNDDOWN", 2.99, 1, 2.9},
		{"INT", -1.5, 0, -2},
	}
	r := DefaultRegistry()
	for _, tt := range tests {
		fn, _ := r.Lookup(tt.fn)
		args := []Value{Scalar(tt.n)}
		if tt.fn != "INT" {
			args = append(args, Scalar(tt.d))
		}
		got := mustCall(t, fn, args...)
		if got != tt.want {
			t.Errorf("%s(%v, %v) = %#v, want %v", tt.fn, tt.n, tt.d, got, tt.want)
		}
	}
}

func TestMODSignOfDivisor(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("MOD")
	if got := mustCall(t, fn, Scalar(-3.0), Scalar(2.0)); got != 1.0 {
		t.Errorf("MOD(-3, 2) = %#v, want 1.0", got)
	}
	if _, err := fn([]Value{Scalar(1.0), Scalar(0.0)}); err == nil {
		t.Error("MOD by zero should fail")
	}
}

func TestCONCATFlattensRanges(t *testing.T) {
	fn, _ := DefaultRegistry().Lookup("CONCATENATE")
	got := mustCall(t, fn, Scalar("a"), Array([]Value{Scalar(1.0), Scalar(true)}))
	if got != "a1TRUE" {
		t.Errorf("got %#v, want a1TRUE", got)
	}
}

func TestRegistryOverride(t *testing.T) {
	r := DefaultRegistry()
	r.Register("if", func(args []Value) (Value, error) {
		return Scalar("patched"), nil
	})
	fn, ok := r.Lookup("IF")
	if !ok {
		t.Fatal("IF missing after override")
	}
	if got := mustCall(t, fn); got != "patched" {
		t.Errorf("got %#v, want patched", got)
	}
}
