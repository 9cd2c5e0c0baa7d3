package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

// Workbook wraps an open xlsx file and exposes the reads the compiler and
// input discovery need.
type Workbook struct {
	f    *excelize.File
	name string
}

// Open reads a workbook from disk. Office lock files (the "~$" shadow a
// running Excel leaves next to the real file) are rejected before any
// parsing happens, since they are not zip archives at all.
func Open(path string) (*Workbook, error) {
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return nil, &LoadError{Name: path, Err: fmt.Errorf("arquivo de bloqueio do Office, não uma planilha")}
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &LoadError{Name: path, Err: err}
	}
	return &Workbook{f: f, name: path}, nil
}

// OpenBytes reads a workbook from an in-memory buffer. The name is used
// only for error messages and the same lock-file guard as Open.
func OpenBytes(name string, data []byte) (*Workbook, error) {
	if strings.HasPrefix(filepath.Base(name), "~$") {
		return nil, &LoadError{Name: name, Err: fmt.Errorf("arquivo de bloqueio do Office, não uma planilha")}
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	return &Workbook{f: f, name: name}, nil
}

// Name returns the path or label the workbook was opened under.
func (wb *Workbook) Name() string { return wb.name }

// File exposes the underlying excelize file for callers that need writes,
// such as test fixtures.
func (wb *Workbook) File() *excelize.File { return wb.f }

// Close releases the underlying file handles.
func (wb *Workbook) Close() error { return wb.f.Close() }

// SheetNames returns sheet names in workbook order.
func (wb *Workbook) SheetNames() []string { return wb.f.GetSheetList() }

// HasSheet reports whether a sheet with the given name exists.
func (wb *Workbook) HasSheet(name string) bool {
	for _, s := range wb.f.GetSheetList() {
		if s == name {
			return true
		}
	}
	return false
}

// Bounds returns the used extent of a sheet. GetRows only reports rows
// that hold content, so the sheet's declared dimension is merged in to
// cover styled-but-empty tails.
func (wb *Workbook) Bounds(sheet string) (maxRow, maxCol int, err error) {
	rows, err := wb.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, 0, err
	}
	maxRow = len(rows)
	for _, row := range rows {
		if len(row) > maxCol {
			maxCol = len(row)
		}
	}
	if dim, err := wb.f.GetSheetDimension(sheet); err == nil && dim != "" {
		if _, _, _, er, ec, derr := internal.ParseRange(dim); derr == nil {
			if er > maxRow {
				maxRow = er
			}
			if ec > maxCol {
				maxCol = ec
			}
		}
	}
	return maxRow, maxCol, nil
}

// CellFormula returns the cell's formula normalized to carry a leading
// "=", or "" when the cell holds no formula.
func (wb *Workbook) CellFormula(sheet, cell string) (string, error) {
	formula, err := wb.f.GetCellFormula(sheet, cell)
	if err != nil {
		return "", err
	}
	if formula == "" {
		return "", nil
	}
	if !strings.HasPrefix(formula, "=") {
		formula = "=" + formula
	}
	return formula, nil
}

// CellValue returns the typed literal stored in a cell, or nil when the
// cell is empty.
func (wb *Workbook) CellValue(sheet, cell string) (any, error) {
	raw, err := wb.f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	ct, err := wb.f.GetCellType(sheet, cell)
	if err != nil {
		return nil, err
	}
	return typedValue(raw, ct), nil
}

// DisplayValue returns the formatted text excelize renders for a cell.
func (wb *Workbook) DisplayValue(sheet, cell string) (string, error) {
	return wb.f.GetCellValue(sheet, cell)
}

// CachedValue returns the last value Excel itself computed for a cell, as
// stored in the file. Used to cross-check the evaluator against Excel.
func (wb *Workbook) CachedValue(sheet, cell string) (any, error) {
	return wb.CellValue(sheet, cell)
}

// typedValue maps excelize's raw string plus declared cell type onto a Go
// value. Numbers become float64, booleans bool, text stays string.
func typedValue(raw string, ct excelize.CellType) any {
	if raw == "" {
		return nil
	}
	switch ct {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "TRUE")
	case excelize.CellTypeNumber:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return raw
	default:
		// Cells written without an explicit type attribute still hold
		// numbers most of the time.
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return n
		}
		return raw
	}
}

// IsSolidThemeFill reports whether the cell carries a solid pattern fill
// whose foreground color is the given theme index. The public style API
// does not surface theme references, so this walks the raw stylesheet.
func (wb *Workbook) IsSolidThemeFill(sheet, cell string, themeIdx int) bool {
	styleID, err := wb.f.GetCellStyle(sheet, cell)
	if err != nil {
		return false
	}
	ss := wb.f.Styles
	if ss == nil || ss.CellXfs == nil || styleID < 0 || styleID >= len(ss.CellXfs.Xf) {
		return false
	}
	xf := ss.CellXfs.Xf[styleID]
	if xf.FillID == nil {
		return false
	}
	fid := *xf.FillID
	if ss.Fills == nil || fid < 0 || fid >= len(ss.Fills.Fill) {
		return false
	}
	pf := ss.Fills.Fill[fid].PatternFill
	if pf == nil || pf.PatternType != "solid" {
		return false
	}
	fg := pf.FgColor
	return fg != nil && fg.Theme != nil && *fg.Theme == themeIdx
}

// FindWorkbook picks a workbook file inside dir. Preferred names win when
// present; otherwise the first *.xlsx in sorted order is used. Lock files
// are never candidates.
func FindWorkbook(dir string, preferred []string) (string, error) {
	for _, name := range preferred {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.xlsx"))
	if err != nil {
		return "", err
	}
	sort.Strings(matches)
	for _, m := range matches {
		if strings.HasPrefix(filepath.Base(m), "~$") {
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("nenhuma planilha .xlsx encontrada em %s", dir)
}
