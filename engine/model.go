package engine

import (
	"strings"

	"github.com/xuri/efp"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

// Cell is one populated workbook cell. Exactly one of Value and Formula is
// set: a formula cell never carries a literal, a literal cell never
// carries a formula.
type Cell struct {
	Address string
	Sheet   string
	Row     int
	Col     int
	Value   any
	Formula *Formula
}

// Formula is one compiled formula. Terms lists every sheet-qualified cell
// and range reference the source mentions, which the evaluator uses to
// walk dependencies.
type Formula struct {
	Source    string
	Sheet     string
	Reference string
	Terms     []string

	ast        node
	compileErr error
}

// Range is one rectangular reference shared by the formulas that mention
// it. Addrs holds the member cell addresses in row-major order.
type Range struct {
	Ref      string
	Sheet    string
	StartRow int
	StartCol int
	EndRow   int
	EndCol   int
	Addrs    []string
}

// Model is the compiled form of a workbook: every populated cell keyed by
// canonical address, plus the formula and range tables the evaluator
// walks. Building the model is the only pass over the file; evaluation
// never touches excelize again.
type Model struct {
	Cells    map[string]*Cell
	Formulas map[string]*Formula
	Ranges   map[string]*Range
}

// BuildModel compiles a workbook. Formulas that fail to parse are kept
// with their error recorded, so one broken formula degrades only the
// cells that depend on it.
func BuildModel(wb *Workbook) (*Model, error) {
	m := &Model{
		Cells:    make(map[string]*Cell),
		Formulas: make(map[string]*Formula),
		Ranges:   make(map[string]*Range),
	}
	for _, sheet := range wb.SheetNames() {
		if err := m.addSheet(wb, sheet); err != nil {
			return nil, err
		}
	}
	m.compile()
	return m, nil
}

func (m *Model) addSheet(wb *Workbook, sheet string) error {
	maxRow, maxCol, err := wb.Bounds(sheet)
	if err != nil {
		return err
	}
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			ref := internal.CellRef(row, col)
			addr := internal.FormatCell(sheet, row, col)

			formula, err := wb.CellFormula(sheet, ref)
			if err != nil {
				return err
			}
			cell := &Cell{Address: addr, Sheet: sheet, Row: row, Col: col}
			if formula != "" {
				f := &Formula{
					Source:    formula,
					Sheet:     sheet,
					Reference: addr,
					Terms:     extractTerms(sheet, formula),
				}
				cell.Formula = f
				m.Formulas[addr] = f
				m.registerRanges(f)
			} else {
				value, err := wb.CellValue(sheet, ref)
				if err != nil {
					return err
				}
				if value == nil {
					continue
				}
				cell.Value = value
			}
			m.Cells[addr] = cell
		}
	}
	return nil
}

// registerRanges records each range term of a formula, once per distinct
// reference across the whole model. Single-cell terms never produce a
// range entry.
func (m *Model) registerRanges(f *Formula) {
	for _, term := range f.Terms {
		if !strings.Contains(term, ":") {
			continue
		}
		if _, ok := m.Ranges[term]; ok {
			continue
		}
		sheet, sr, sc, er, ec, err := internal.ParseRange(term)
		if err != nil {
			continue
		}
		r := &Range{
			Ref:      term,
			Sheet:    sheet,
			StartRow: sr,
			StartCol: sc,
			EndRow:   er,
			EndCol:   ec,
		}
		for row := sr; row <= er; row++ {
			for col := sc; col <= ec; col++ {
				r.Addrs = append(r.Addrs, internal.FormatCell(sheet, row, col))
			}
		}
		m.Ranges[term] = r
	}
}

// compile parses every formula into its AST. Parse failures are stored on
// the formula and surface as evaluation errors for that cell only.
func (m *Model) compile() {
	for _, f := range m.Formulas {
		f.ast, f.compileErr = parseFormula(f.Sheet, f.Source)
	}
}

// extractTerms walks the tokenized formula and collects its cell and
// range references, qualified with the formula's own sheet when the
// source leaves the sheet implicit.
func extractTerms(sheet, formula string) []string {
	ps := efp.ExcelParser()
	tokens := ps.Parse(strings.TrimPrefix(formula, "="))
	var terms []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if tok.TType != efp.TokenTypeOperand || tok.TSubType != efp.TokenSubTypeRange {
			continue
		}
		term, ok := qualifyTerm(sheet, tok.TValue)
		if !ok {
			continue
		}
		if !seen[term] {
			seen[term] = true
			terms = append(terms, term)
		}
	}
	return terms
}

// qualifyTerm canonicalizes one operand reference: absolute markers drop,
// quotes around sheet names drop, the host sheet is prepended when the
// term names none, and the cell part is upper-cased. Named or structured
// references that do not look like cell addresses are rejected.
func qualifyTerm(sheet, term string) (string, bool) {
	term = strings.ReplaceAll(term, "$", "")
	termSheet, ref := internal.SplitSheet(term)
	if termSheet == "" {
		termSheet = sheet
	}
	ref = strings.ToUpper(ref)
	for _, part := range strings.SplitN(ref, ":", 2) {
		if !internal.IsCellRef(part) {
			return "", false
		}
	}
	return termSheet + "!" + ref, true
}
