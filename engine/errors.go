// Package engine evaluates spreadsheet-defined simulation models: it loads
// a workbook, discovers style-marked input cells, compiles the cell graph
// into an in-memory model, and recomputes formula cells after input edits.
package engine

import (
	"fmt"
	"strings"
)

// ErrPrefix is the marker prepended to per-cell evaluation failures.
// Evaluation errors are returned inline as data, never as Go errors, so one
// broken formula cannot abort the rest of a KPI batch.
const ErrPrefix = "Erro: "

// IsEvalError reports whether an evaluated cell value is an inline
// evaluation failure rather than a real result.
func IsEvalError(v any) bool {
	s, ok := v.(string)
	return ok && strings.HasPrefix(s, ErrPrefix)
}

// SheetNotFoundError indicates the configured sheet is absent from the
// workbook. It carries the available sheet names so the operator can fix
// the configuration.
type SheetNotFoundError struct {
	Sheet     string
	Available []string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("aba %q não encontrada; abas disponíveis: %s",
		e.Sheet, strings.Join(e.Available, ", "))
}

// LoadError indicates the workbook file could not be opened: a corrupt or
// unsupported container, or an Excel lock file (name starting with "~$").
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("falha ao abrir planilha %q: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
