package engine

import (
	"fmt"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

// Evaluator computes cell values over a compiled model on demand. Results
// are memoized per cell; any write through SetCellValue discards the memo
// table so later reads see the edit.
//
// An Evaluator is not safe for concurrent use. Callers that share one
// across goroutines serialize through Session.
type Evaluator struct {
	model *Model
	fns   Registry
	memo  map[string]any
}

// NewEvaluator builds an evaluator over a model. A nil registry gets the
// default function set.
func NewEvaluator(m *Model, fns Registry) *Evaluator {
	if fns == nil {
		fns = DefaultRegistry()
	}
	return &Evaluator{model: m, fns: fns, memo: make(map[string]any)}
}

// Model returns the compiled model the evaluator runs over.
func (ev *Evaluator) Model() *Model { return ev.model }

// SetCellValue overwrites a cell with a literal. The cell must exist in
// the model; a formula cell loses its formula and becomes a plain value.
// All memoized results are dropped, since any formula may depend on the
// edited cell.
func (ev *Evaluator) SetCellValue(address string, value any) error {
	addr, err := normalizeAddr(address)
	if err != nil {
		return err
	}
	cell, ok := ev.model.Cells[addr]
	if !ok {
		return fmt.Errorf("célula %s não existe no modelo", addr)
	}
	cell.Value = value
	cell.Formula = nil
	delete(ev.model.Formulas, addr)
	ev.memo = make(map[string]any)
	return nil
}

// Evaluate computes one cell. Failures never escape as errors: a cell
// that cannot be computed yields the string "Erro: <motivo>", leaving
// sibling cells unaffected.
func (ev *Evaluator) Evaluate(address string) any {
	addr, err := normalizeAddr(address)
	if err != nil {
		return ErrPrefix + err.Error()
	}
	ctx := &evalCtx{ev: ev, fns: ev.fns, visiting: make(map[string]bool)}
	v, err := ctx.valueOf(addr)
	if err != nil {
		return ErrPrefix + err.Error()
	}
	out, err := v.Resolve()
	if err != nil {
		return ErrPrefix + err.Error()
	}
	return out
}

// evalCtx carries per-call state: the visiting set detects reference
// cycles along the current dependency chain.
type evalCtx struct {
	ev       *Evaluator
	fns      Registry
	visiting map[string]bool
}

func (ctx *evalCtx) valueOf(addr string) (Value, error) {
	if out, ok := ctx.ev.memo[addr]; ok {
		return Scalar(out), nil
	}
	cell, ok := ctx.ev.model.Cells[addr]
	if !ok {
		// An empty cell reads as blank, same as in Excel.
		return Scalar(nil), nil
	}
	if cell.Formula == nil {
		return Scalar(cell.Value), nil
	}
	if ctx.visiting[addr] {
		return Value{}, fmt.Errorf("referência circular em %s", addr)
	}
	f := cell.Formula
	if f.compileErr != nil {
		return Value{}, fmt.Errorf("fórmula inválida em %s: %w", addr, f.compileErr)
	}
	ctx.visiting[addr] = true
	v, err := f.ast.eval(ctx)
	delete(ctx.visiting, addr)
	if err != nil {
		return Value{}, err
	}
	out, err := v.Resolve()
	if err != nil {
		return Value{}, err
	}
	ctx.ev.memo[addr] = out
	return Scalar(out), nil
}

func (ctx *evalCtx) rangeOf(ref string) (*Range, bool) {
	r, ok := ctx.ev.model.Ranges[ref]
	return r, ok
}

// normalizeAddr canonicalizes a sheet-qualified single-cell address so it
// matches the model's cell keys.
func normalizeAddr(address string) (string, error) {
	sheet, col, row, err := internal.ParseCell(address)
	if err != nil {
		return "", fmt.Errorf("endereço inválido %q", address)
	}
	if sheet == "" {
		return "", fmt.Errorf("endereço %q não indica a aba", address)
	}
	return internal.FormatCell(sheet, row, col), nil
}
