package engine

import (
	"sort"
	"strings"

	"github.com/Fabianoeyes/Simulador-Economia-Circular-Verde/internal"
)

// InputDescriptor describes one editable cell found by style discovery.
type InputDescriptor struct {
	Label   string `json:"label"`
	Address string `json:"address"`
	Default any    `json:"default"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
}

// InputOptions tunes discovery. Unset fields fall back to the workbook
// family's conventions: theme color 7 marks inputs, labels live in column
// B. ThemeIndex is a pointer because slot 0 is a valid theme color, so an
// explicit zero must be distinguishable from "not configured".
type InputOptions struct {
	ThemeIndex  *int
	LabelColumn int
}

const (
	defaultThemeIndex  = 7
	defaultLabelColumn = 2
)

func (o InputOptions) withDefaults() InputOptions {
	if o.ThemeIndex == nil {
		n := defaultThemeIndex
		o.ThemeIndex = &n
	}
	if o.LabelColumn == 0 {
		o.LabelColumn = defaultLabelColumn
	}
	return o
}

// DiscoverInputs scans a sheet for cells styled as inputs: a solid fill
// whose foreground is the configured theme color, holding a literal value
// rather than a formula. Each hit is labeled from the label column of its
// row, falling back to the cell's own address when the label cell is blank.
// Addresses come back sheet-qualified ("Sheet!D3"), ordered by row, then
// column.
func DiscoverInputs(wb *Workbook, sheet string, opts InputOptions) ([]InputDescriptor, error) {
	if !wb.HasSheet(sheet) {
		return nil, &SheetNotFoundError{Sheet: sheet, Available: wb.SheetNames()}
	}
	opts = opts.withDefaults()

	maxRow, maxCol, err := wb.Bounds(sheet)
	if err != nil {
		return nil, err
	}

	var inputs []InputDescriptor
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			cell := internal.CellRef(row, col)
			if !wb.IsSolidThemeFill(sheet, cell, *opts.ThemeIndex) {
				continue
			}
			formula, err := wb.CellFormula(sheet, cell)
			if err != nil {
				return nil, err
			}
			if formula != "" {
				continue
			}
			value, err := wb.CellValue(sheet, cell)
			if err != nil {
				return nil, err
			}
			if value == nil {
				continue
			}
			addr := internal.FormatCell(sheet, row, col)
			label, err := rowLabel(wb, sheet, row, opts.LabelColumn)
			if err != nil {
				return nil, err
			}
			if label == "" {
				label = addr
			}
			inputs = append(inputs, InputDescriptor{
				Label:   label,
				Address: addr,
				Default: value,
				Row:     row,
				Col:     col,
			})
		}
	}

	sort.Slice(inputs, func(i, j int) bool {
		if inputs[i].Row != inputs[j].Row {
			return inputs[i].Row < inputs[j].Row
		}
		return inputs[i].Col < inputs[j].Col
	})
	return inputs, nil
}

func rowLabel(wb *Workbook, sheet string, row, labelCol int) (string, error) {
	text, err := wb.DisplayValue(sheet, internal.CellRef(row, labelCol))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
