package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/efp"
)

// node is one expression in a compiled formula.
type node interface {
	eval(ctx *evalCtx) (Value, error)
}

type numberNode struct{ value float64 }

type textNode struct{ value string }

type boolNode struct{ value bool }

type blankNode struct{}

type errorNode struct{ literal string }

// refNode is a single-cell reference, already sheet-qualified.
type refNode struct{ addr string }

// rangeNode is a rectangular reference, resolved through the model's
// shared range table.
type rangeNode struct{ ref string }

type callNode struct {
	name string
	args []node
}

type unaryNode struct {
	op      string
	operand node
}

type percentNode struct{ operand node }

type binaryNode struct {
	op    string
	left  node
	right node
}

func (n numberNode) eval(ctx *evalCtx) (Value, error) { return Scalar(n.value), nil }

func (n textNode) eval(ctx *evalCtx) (Value, error) { return Scalar(n.value), nil }

func (n boolNode) eval(ctx *evalCtx) (Value, error) { return Scalar(n.value), nil }

func (n blankNode) eval(ctx *evalCtx) (Value, error) { return Scalar(nil), nil }

func (n errorNode) eval(ctx *evalCtx) (Value, error) {
	return Value{}, fmt.Errorf("a planilha contém o erro %s", n.literal)
}

func (n refNode) eval(ctx *evalCtx) (Value, error) {
	return ctx.valueOf(n.addr)
}

func (n rangeNode) eval(ctx *evalCtx) (Value, error) {
	r, ok := ctx.rangeOf(n.ref)
	if !ok {
		return Value{}, fmt.Errorf("intervalo desconhecido %s", n.ref)
	}
	items := make([]Value, len(r.Addrs))
	for i, addr := range r.Addrs {
		addr := addr
		items[i] = Lazy(func() (Value, error) { return ctx.valueOf(addr) })
	}
	return Array(items), nil
}

func (n callNode) eval(ctx *evalCtx) (Value, error) {
	fn, ok := ctx.fns.Lookup(n.name)
	if !ok {
		return Value{}, fmt.Errorf("função não suportada: %s", n.name)
	}
	args := make([]Value, len(n.args))
	for i, arg := range n.args {
		arg := arg
		args[i] = Lazy(func() (Value, error) { return arg.eval(ctx) })
	}
	return fn(args)
}

func (n unaryNode) eval(ctx *evalCtx) (Value, error) {
	v, err := n.operand.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	raw, err := v.Resolve()
	if err != nil {
		return Value{}, err
	}
	num, err := toNumber(raw)
	if err != nil {
		return Value{}, err
	}
	if n.op == "-" {
		num = -num
	}
	return Scalar(num), nil
}

func (n percentNode) eval(ctx *evalCtx) (Value, error) {
	v, err := n.operand.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	raw, err := v.Resolve()
	if err != nil {
		return Value{}, err
	}
	num, err := toNumber(raw)
	if err != nil {
		return Value{}, err
	}
	return Scalar(num / 100), nil
}

func (n binaryNode) eval(ctx *evalCtx) (Value, error) {
	lv, err := n.left.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	left, err := lv.Resolve()
	if err != nil {
		return Value{}, err
	}
	rv, err := n.right.eval(ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := rv.Resolve()
	if err != nil {
		return Value{}, err
	}

	switch n.op {
	case "&":
		return Scalar(toText(left) + toText(right)), nil
	case "=", "<>", "<", "<=", ">", ">=":
		cmp, err := compareValues(left, right)
		if err != nil {
			return Value{}, err
		}
		var out bool
		switch n.op {
		case "=":
			out = cmp == 0
		case "<>":
			out = cmp != 0
		case "<":
			out = cmp < 0
		case "<=":
			out = cmp <= 0
		case ">":
			out = cmp > 0
		case ">=":
			out = cmp >= 0
		}
		return Scalar(out), nil
	}

	ln, err := toNumber(left)
	if err != nil {
		return Value{}, err
	}
	rn, err := toNumber(right)
	if err != nil {
		return Value{}, err
	}
	switch n.op {
	case "+":
		return Scalar(ln + rn), nil
	case "-":
		return Scalar(ln - rn), nil
	case "*":
		return Scalar(ln * rn), nil
	case "/":
		if rn == 0 {
			return Value{}, fmt.Errorf("divisão por zero")
		}
		return Scalar(ln / rn), nil
	case "^":
		return Scalar(math.Pow(ln, rn)), nil
	}
	return Value{}, fmt.Errorf("operador desconhecido %q", n.op)
}

// compareValues orders two scalars the way Excel comparisons do: numbers
// numerically, text case-insensitively, booleans as false < true. Blank
// compares as zero against numbers and as the empty string against text.
func compareValues(left, right any) (int, error) {
	if ln, lok := asNumber(left); lok {
		if rn, rok := asNumber(right); rok {
			switch {
			case ln < rn:
				return -1, nil
			case ln > rn:
				return 1, nil
			}
			return 0, nil
		}
	}
	ls, lok := asText(left)
	rs, rok := asText(right)
	if lok && rok {
		return strings.Compare(strings.ToUpper(ls), strings.ToUpper(rs)), nil
	}
	return 0, fmt.Errorf("valores não comparáveis: %v e %v", left, right)
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, true
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func asText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, true
	case bool:
		return toText(t), true
	}
	return "", false
}

// parser consumes the efp token stream with one token of lookahead.
// Whitespace tokens are dropped before parsing starts.
type parser struct {
	sheet  string
	tokens []efp.Token
	pos    int
}

// parseFormula compiles one formula source into its AST. The host sheet
// qualifies any reference the source leaves unqualified.
func parseFormula(sheet, source string) (node, error) {
	ps := efp.ExcelParser()
	raw := ps.Parse(strings.TrimPrefix(source, "="))
	tokens := make([]efp.Token, 0, len(raw))
	for _, tok := range raw {
		if tok.TType == efp.TokenTypeWhitespace {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("fórmula vazia")
	}
	p := &parser{sheet: sheet, tokens: tokens}
	n, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, fmt.Errorf("símbolo inesperado %q na fórmula", p.tokens[p.pos].TValue)
	}
	return n, nil
}

func (p *parser) peek() (efp.Token, bool) {
	if p.pos >= len(p.tokens) {
		return efp.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (efp.Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func infixPrecedence(op string) int {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
		return 1
	case "&":
		return 2
	case "+", "-":
		return 3
	case "*", "/":
		return 4
	case "^":
		return 5
	}
	return 0
}

func (p *parser) parseExpr(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.TType != efp.TokenTypeOperatorInfix {
			return left, nil
		}
		prec := infixPrecedence(tok.TValue)
		if prec == 0 {
			return nil, fmt.Errorf("operador desconhecido %q", tok.TValue)
		}
		if prec < minPrec {
			return left, nil
		}
		p.pos++
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: tok.TValue, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	tok, ok := p.peek()
	if ok && tok.TType == efp.TokenTypeOperatorPrefix {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if tok.TValue == "+" {
			return operand, nil
		}
		return unaryNode{op: tok.TValue, operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.TType != efp.TokenTypeOperatorPostfix {
			return n, nil
		}
		p.pos++
		n = percentNode{operand: n}
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, fmt.Errorf("fim inesperado da fórmula")
	}
	switch tok.TType {
	case efp.TokenTypeOperand:
		return p.operandNode(tok)
	case efp.TokenTypeFunction:
		if tok.TSubType != efp.TokenSubTypeStart {
			return nil, fmt.Errorf("símbolo inesperado %q na fórmula", tok.TValue)
		}
		return p.parseCall(tok.TValue)
	case efp.TokenTypeSubexpression:
		if tok.TSubType != efp.TokenSubTypeStart {
			return nil, fmt.Errorf("símbolo inesperado %q na fórmula", tok.TValue)
		}
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		end, ok := p.next()
		if !ok || end.TType != efp.TokenTypeSubexpression || end.TSubType != efp.TokenSubTypeStop {
			return nil, fmt.Errorf("parêntese não fechado na fórmula")
		}
		return inner, nil
	}
	return nil, fmt.Errorf("símbolo inesperado %q na fórmula", tok.TValue)
}

func (p *parser) operandNode(tok efp.Token) (node, error) {
	switch tok.TSubType {
	case efp.TokenSubTypeNumber:
		n, err := strconv.ParseFloat(tok.TValue, 64)
		if err != nil {
			return nil, fmt.Errorf("número inválido %q", tok.TValue)
		}
		return numberNode{value: n}, nil
	case efp.TokenSubTypeText:
		return textNode{value: tok.TValue}, nil
	case efp.TokenSubTypeLogical:
		return boolNode{value: strings.EqualFold(tok.TValue, "TRUE")}, nil
	case efp.TokenSubTypeError:
		return errorNode{literal: tok.TValue}, nil
	case efp.TokenSubTypeRange:
		term, ok := qualifyTerm(p.sheet, tok.TValue)
		if !ok {
			return nil, fmt.Errorf("referência não suportada %q", tok.TValue)
		}
		if strings.Contains(term, ":") {
			return rangeNode{ref: term}, nil
		}
		return refNode{addr: term}, nil
	}
	return nil, fmt.Errorf("operando não suportado %q", tok.TValue)
}

func (p *parser) parseCall(name string) (node, error) {
	call := callNode{name: strings.ToUpper(strings.TrimSuffix(name, "("))}
	// An immediate Stop means a zero-argument call like TODAY().
	if tok, ok := p.peek(); ok && tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop {
		p.pos++
		return call, nil
	}
	for {
		if tok, ok := p.peek(); ok && p.argBoundary(tok) {
			call.args = append(call.args, blankNode{})
		} else {
			arg, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			call.args = append(call.args, arg)
		}
		tok, ok := p.next()
		if !ok {
			return nil, fmt.Errorf("chamada de %s não fechada", call.name)
		}
		if tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop {
			return call, nil
		}
		if tok.TType != efp.TokenTypeArgument {
			return nil, fmt.Errorf("símbolo inesperado %q na fórmula", tok.TValue)
		}
	}
}

// argBoundary reports whether the token ends the current (empty) argument.
func (p *parser) argBoundary(tok efp.Token) bool {
	if tok.TType == efp.TokenTypeArgument {
		return true
	}
	return tok.TType == efp.TokenTypeFunction && tok.TSubType == efp.TokenSubTypeStop
}
