package engine

import (
	"fmt"
	"math"
	"strings"
)

// Func implements one spreadsheet function. Arguments arrive lazy: a
// function forces only the arguments it needs via Value.Resolve or
// Value.flatten, which is what makes short-circuit conditionals possible.
type Func func(args []Value) (Value, error)

// Registry maps upper-cased function names to implementations. It is
// injected into the evaluator at construction, so deployments can add or
// override functions without touching global state.
type Registry map[string]Func

// Register adds or replaces a function under the given name.
func (r Registry) Register(name string, fn Func) {
	r[strings.ToUpper(name)] = fn
}

// Lookup finds a function by name, case-insensitively.
func (r Registry) Lookup(name string) (Func, bool) {
	fn, ok := r[strings.ToUpper(name)]
	return fn, ok
}

// DefaultRegistry returns a registry with the functions the simulator
// workbook family uses.
func DefaultRegistry() Registry {
	r := make(Registry)
	r.Register("IF", fnIF)
	r.Register("IFERROR", fnIFERROR)
	r.Register("AND", fnAND)
	r.Register("OR", fnOR)
	r.Register("NOT", fnNOT)
	r.Register("TRUE", fnTRUE)
	r.Register("FALSE", fnFALSE)
	r.Register("SUM", fnSUM)
	r.Register("AVERAGE", fnAVERAGE)
	r.Register("MIN", fnMIN)
	r.Register("MAX", fnMAX)
	r.Register("COUNT", fnCOUNT)
	r.Register("COUNTA", fnCOUNTA)
	r.Register("ROUND", fnROUND)
	r.Register("ROUNDUP", fnROUNDUP)
	r.Register("ROUNDDOWN", fnROUNDDOWN)
	r.Register("INT", fnINT)
	r.Register("ABS", fnABS)
	r.Register("SQRT", fnSQRT)
	r.Register("POWER", fnPOWER)
	r.Register("MOD", fnMOD)
	r.Register("CONCAT", fnCONCAT)
	r.Register("CONCATENATE", fnCONCAT)
	return r
}

// fnIF selects a branch after fully dereferencing the test (a 1×1 array
// condition collapses to its element). Only the chosen branch is ever
// forced, so an intentionally broken formula in the untaken branch cannot
// poison the result.
func fnIF(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 3 {
		return Value{}, fmt.Errorf("IF espera de 1 a 3 argumentos, recebeu %d", len(args))
	}
	raw, err := args[0].Resolve()
	if err != nil {
		return Value{}, err
	}
	cond, err := toBool(raw)
	if err != nil {
		return Value{}, err
	}
	chosen := Scalar(cond)
	if cond {
		if len(args) > 1 {
			chosen = args[1]
		}
	} else {
		if len(args) > 2 {
			chosen = args[2]
		}
	}
	out, err := chosen.Resolve()
	if err != nil {
		return Value{}, err
	}
	return Scalar(out), nil
}

// fnIFERROR forces the first argument and substitutes the fallback when it
// fails. The fallback stays unevaluated on the happy path.
func fnIFERROR(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("IFERROR espera 2 argumentos, recebeu %d", len(args))
	}
	out, err := args[0].Resolve()
	if err == nil {
		return Scalar(out), nil
	}
	fallback, err := args[1].Resolve()
	if err != nil {
		return Value{}, err
	}
	return Scalar(fallback), nil
}

func fnAND(args []Value) (Value, error) {
	if len(args) == 0 {
		return Value{}, fmt.Errorf("AND espera ao menos 1 argumento")
	}
	for _, arg := range args {
		items, err := arg.flatten()
		if err != nil {
			return Value{}, err
		}
		for _, item := range items {
			b, err := toBool(item)
			if err != nil {
				return Value{}, err
			}
			if !b {
				return Scalar(false), nil
			}
		}
	}
	return Scalar(true), nil
}

func fnOR(args []Value) (Value, error) {
	if len(args) == 0 {
		return Value{}, fmt.Errorf("OR espera ao menos 1 argumento")
	}
	for _, arg := range args {
		items, err := arg.flatten()
		if err != nil {
			return Value{}, err
		}
		for _, item := range items {
			b, err := toBool(item)
			if err != nil {
				return Value{}, err
			}
			if b {
				return Scalar(true), nil
			}
		}
	}
	return Scalar(false), nil
}

func fnNOT(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("NOT espera 1 argumento, recebeu %d", len(args))
	}
	raw, err := args[0].Resolve()
	if err != nil {
		return Value{}, err
	}
	b, err := toBool(raw)
	if err != nil {
		return Value{}, err
	}
	return Scalar(!b), nil
}

func fnTRUE(args []Value) (Value, error) {
	return Scalar(true), nil
}

func fnFALSE(args []Value) (Value, error) {
	return Scalar(false), nil
}

// numericItems flattens all arguments and keeps the numeric elements.
// Blank cells and text inside ranges are skipped, matching how Excel
// aggregates over ranges.
func numericItems(args []Value) ([]float64, error) {
	var nums []float64
	for _, arg := range args {
		items, err := arg.flatten()
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			switch t := item.(type) {
			case float64:
				nums = append(nums, t)
			case int:
				nums = append(nums, float64(t))
			case bool:
				if t {
					nums = append(nums, 1)
				} else {
					nums = append(nums, 0)
				}
			}
		}
	}
	return nums, nil
}

func fnSUM(args []Value) (Value, error) {
	nums, err := numericItems(args)
	if err != nil {
		return Value{}, err
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return Scalar(total), nil
}

func fnAVERAGE(args []Value) (Value, error) {
	nums, err := numericItems(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return Value{}, fmt.Errorf("divisão por zero")
	}
	total := 0.0
	for _, n := range nums {
		total += n
	}
	return Scalar(total / float64(len(nums))), nil
}

func fnMIN(args []Value) (Value, error) {
	nums, err := numericItems(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return Scalar(0.0), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return Scalar(m), nil
}

func fnMAX(args []Value) (Value, error) {
	nums, err := numericItems(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return Scalar(0.0), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return Scalar(m), nil
}

func fnCOUNT(args []Value) (Value, error) {
	count := 0
	for _, arg := range args {
		items, err := arg.flatten()
		if err != nil {
			return Value{}, err
		}
		for _, item := range items {
			switch item.(type) {
			case float64, int:
				count++
			}
		}
	}
	return Scalar(float64(count)), nil
}

func fnCOUNTA(args []Value) (Value, error) {
	count := 0
	for _, arg := range args {
		items, err := arg.flatten()
		if err != nil {
			return Value{}, err
		}
		for _, item := range items {
			if item != nil && item != "" {
				count++
			}
		}
	}
	return Scalar(float64(count)), nil
}

// roundTo rounds away from zero at the given number of decimal digits,
// which is Excel's ROUND rule (Go's math.Round at scale 0, generalized).
func roundTo(n float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(n*scale) / scale
}

func numericArgs(args []Value, name string, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%s espera %d argumentos, recebeu %d", name, want, len(args))
	}
	out := make([]float64, want)
	for i, arg := range args {
		raw, err := arg.Resolve()
		if err != nil {
			return nil, err
		}
		n, err := toNumber(raw)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func fnROUND(args []Value) (Value, error) {
	ns, err := numericArgs(args, "ROUND", 2)
	if err != nil {
		return Value{}, err
	}
	return Scalar(roundTo(ns[0], int(ns[1]))), nil
}

func fnROUNDUP(args []Value) (Value, error) {
	ns, err := numericArgs(args, "ROUNDUP", 2)
	if err != nil {
		return Value{}, err
	}
	scale := math.Pow(10, ns[1])
	v := ns[0]
	if v >= 0 {
		return Scalar(math.Ceil(v*scale) / scale), nil
	}
	return Scalar(math.Floor(v*scale) / scale), nil
}

func fnROUNDDOWN(args []Value) (Value, error) {
	ns, err := numericArgs(args, "ROUNDDOWN", 2)
	if err != nil {
		return Value{}, err
	}
	scale := math.Pow(10, ns[1])
	return Scalar(math.Trunc(ns[0]*scale) / scale), nil
}

func fnINT(args []Value) (Value, error) {
	ns, err := numericArgs(args, "INT", 1)
	if err != nil {
		return Value{}, err
	}
	return Scalar(math.Floor(ns[0])), nil
}

func fnABS(args []Value) (Value, error) {
	ns, err := numericArgs(args, "ABS", 1)
	if err != nil {
		return Value{}, err
	}
	return Scalar(math.Abs(ns[0])), nil
}

func fnSQRT(args []Value) (Value, error) {
	ns, err := numericArgs(args, "SQRT", 1)
	if err != nil {
		return Value{}, err
	}
	if ns[0] < 0 {
		return Value{}, fmt.Errorf("raiz de número negativo")
	}
	return Scalar(math.Sqrt(ns[0])), nil
}

func fnPOWER(args []Value) (Value, error) {
	ns, err := numericArgs(args, "POWER", 2)
	if err != nil {
		return Value{}, err
	}
	return Scalar(math.Pow(ns[0], ns[1])), nil
}

func fnMOD(args []Value) (Value, error) {
	ns, err := numericArgs(args, "MOD", 2)
	if err != nil {
		return Value{}, err
	}
	if ns[1] == 0 {
		return Value{}, fmt.Errorf("divisão por zero")
	}
	// Excel MOD takes the sign of the divisor.
	m := math.Mod(ns[0], ns[1])
	if m != 0 && (m < 0) != (ns[1] < 0) {
		m += ns[1]
	}
	return Scalar(m), nil
}

func fnCONCAT(args []Value) (Value, error) {
	var sb strings.Builder
	for _, arg := range args {
		items, err := arg.flatten()
		if err != nil {
			return Value{}, err
		}
		for _, item := range items {
			sb.WriteString(toText(item))
		}
	}
	return Scalar(sb.String()), nil
}
