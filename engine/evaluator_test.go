package engine

import (
	"math"
	"strings"
	"testing"
)

func buildTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return NewEvaluator(buildTestModel(t), nil)
}

func assertNumber(t *testing.T, got any, want float64) {
	t.Helper()
	n, ok := got.(float64)
	if !ok {
		t.Fatalf("got %#v, want %v", got, want)
	}
	if math.Abs(n-want) > 1e-9 {
		t.Fatalf("got %v, want %v", n, want)
	}
}

func TestEvaluateLiteral(t *testing.T) {
	ev := buildTestEvaluator(t)
	assertNumber(t, ev.Evaluate(testSheet+"!D3"), 1000)
	if got := ev.Evaluate(testSheet + "!B3"); got != "Investimento Inicial" {
		t.Errorf("B3 = %#v", got)
	}
}

func TestEvaluateFormulas(t *testing.T) {
	ev := buildTestEvaluator(t)

	// D3*D4
	assertNumber(t, ev.Evaluate(testSheet+"!M12"), 100)
	// SUM(D3:D4)
	assertNumber(t, ev.Evaluate(testSheet+"!M13"), 1000.1)
	// IF(D5, M12*2, M12) with D5=true
	assertNumber(t, ev.Evaluate(testSheet+"!M17"), 200)
	// ROUND(M12+M13, 0)
	assertNumber(t, ev.Evaluate(testSheet+"!M18"), 1100)
}

func TestEvaluateEmptyCellIsBlank(t *testing.T) {
	ev := buildTestEvaluator(t)
	if got := ev.Evaluate(testSheet + "!Z99"); got != nil {
		t.Errorf("empty cell = %#v, want nil", got)
	}
}

func TestSetCellValuePropagates(t *testing.T) {
	ev := buildTestEvaluator(t)
	assertNumber(t, ev.Evaluate(testSheet+"!M12"), 100)

	if err := ev.SetCellValue(testSheet+"!D3", 2000.0); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	assertNumber(t, ev.Evaluate(testSheet+"!M12"), 200)
	// An unrelated input keeps its value.
	assertNumber(t, ev.Evaluate(testSheet+"!D4"), 0.1)
}

func TestSetCellValueUnknownAddress(t *testing.T) {
	ev := buildTestEvaluator(t)
	if err := ev.SetCellValue(testSheet+"!Z99", 1.0); err == nil {
		t.Error("expected error for unknown cell")
	}
	if err := ev.SetCellValue("Z99", 1.0); err == nil {
		t.Error("expected error for address without sheet")
	}
}

func TestSetCellValueOverwritesFormula(t *testing.T) {
	ev := buildTestEvaluator(t)
	addr := testSheet + "!M12"
	if err := ev.SetCellValue(addr, 7.0); err != nil {
		t.Fatalf("SetCellValue: %v", err)
	}
	assertNumber(t, ev.Evaluate(addr), 7)
	// M18 = ROUND(M12+M13, 0) sees the new literal.
	assertNumber(t, ev.Evaluate(testSheet+"!M18"), 1007)
}

func TestUnsupportedFunctionIsolated(t *testing.T) {
	wb := openTestWorkbook(t)
	if err := wb.File().SetCellFormula(testSheet, "N2", "XIRR(D3:D4)"); err != nil {
		t.Fatalf("SetCellFormula: %v", err)
	}
	m, err := BuildModel(wb)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	ev := NewEvaluator(m, nil)

	got := ev.Evaluate(testSheet + "!N2")
	s, ok := got.(string)
	if !ok || !IsEvalError(got) {
		t.Fatalf("got %#v, want inline error", got)
	}
	if !strings.Contains(s, "XIRR") {
		t.Errorf("error %q should name the function", s)
	}
	// A sibling KPI still computes.
	assertNumber(t, ev.Evaluate(testSheet+"!M12"), 100)
}

func TestCircularReference(t *testing.T) {
	wb := openTestWorkbook(t)
	if err := wb.File().SetCellFormula(testSheet, "P1", "P2+1"); err != nil {
		t.Fatal(err)
	}
	if err := wb.File().SetCellFormula(testSheet, "P2", "P1+1"); err != nil {
		t.Fatal(err)
	}
	m, err := BuildModel(wb)
	if err != nil {
		t.Fatalf("BuildModel: %v", err)
	}
	ev := NewEvaluator(m, nil)

	got := ev.Evaluate(testSheet + "!P1")
	if !IsEvalError(got) {
		t.Fatalf("got %#v, want inline error", got)
	}
	if !strings.Contains(got.(string), "circular") {
		t.Errorf("error %q should mention the cycle", got)
	}
}

func TestInjectedRegistryOverridesIF(t *testing.T) {
	r := DefaultRegistry()
	r.Register("IF", func(args []Value) (Value, error) {
		return Scalar("patched"), nil
	})
	ev := NewEvaluator(buildTestModel(t), r)
	if got := ev.Evaluate(testSheet + "!M17"); got != "patched" {
		t.Errorf("M17 = %#v, want patched", got)
	}
}

func TestEvaluateInvalidAddress(t *testing.T) {
	ev := buildTestEvaluator(t)
	if got := ev.Evaluate("not an address"); !IsEvalError(got) {
		t.Errorf("got %#v, want inline error", got)
	}
}
