package engine

import (
	"fmt"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindScalar valueKind = iota
	kindArray
	kindLazy
)

// Value is the evaluator's result type: a scalar (float64, string, bool or
// nil), an array of values in row-major order, or a lazy expression that has
// not been forced yet. Function arguments always arrive lazy so a function
// can decide which arguments to evaluate at all.
type Value struct {
	kind   valueKind
	scalar any
	array  []Value
	lazy   func() (Value, error)
}

// Scalar wraps a plain value.
func Scalar(v any) Value {
	return Value{kind: kindScalar, scalar: v}
}

// Array wraps a row-major list of values.
func Array(items []Value) Value {
	return Value{kind: kindArray, array: items}
}

// Lazy wraps an unevaluated expression.
func Lazy(fn func() (Value, error)) Value {
	return Value{kind: kindLazy, lazy: fn}
}

// Resolve fully dereferences a value to a plain scalar: lazy expressions are
// invoked, arrays collapse to their first element (empty arrays to nil).
// Resolve is idempotent: resolving an already-scalar value returns it
// unchanged.
func (v Value) Resolve() (any, error) {
	switch v.kind {
	case kindLazy:
		inner, err := v.lazy()
		if err != nil {
			return nil, err
		}
		return inner.Resolve()
	case kindArray:
		if len(v.array) == 0 {
			return nil, nil
		}
		return v.array[0].Resolve()
	default:
		return v.scalar, nil
	}
}

// flatten resolves a value to the row-major list of scalars it spans:
// arrays expand recursively, everything else yields one element.
func (v Value) flatten() ([]any, error) {
	switch v.kind {
	case kindLazy:
		inner, err := v.lazy()
		if err != nil {
			return nil, err
		}
		return inner.flatten()
	case kindArray:
		var out []any
		for _, item := range v.array {
			items, err := item.flatten()
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	default:
		return []any{v.scalar}, nil
	}
}

// toNumber coerces a resolved scalar to float64 using spreadsheet rules:
// blanks count as zero, booleans as 0/1, numeric strings are parsed.
func toNumber(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("valor não numérico: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("valor não numérico: %v", v)
	}
}

// toBool coerces a resolved scalar to a condition: blanks are false,
// numbers are true when nonzero, and any non-empty text except the
// literal "false" is true.
func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case nil:
		return false, nil
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case string:
		// Any non-empty text is truthy, except the literal "false".
		if strings.EqualFold(strings.TrimSpace(t), "false") {
			return false, nil
		}
		return strings.TrimSpace(t) != "", nil
	default:
		return false, fmt.Errorf("valor não lógico: %v", v)
	}
}

// toText coerces a resolved scalar to its spreadsheet text form.
func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
