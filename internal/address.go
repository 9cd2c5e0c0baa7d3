package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// cellRefRe matches a cell reference like A1, $B$2, AA100
var cellRefRe = regexp.MustCompile(`^\$?([A-Za-z]+)\$?(\d+)$`)

// SplitSheet splits an address like "Sheet1!A1" into the sheet name and the
// local reference. Surrounding single quotes on the sheet name are removed.
// The sheet part is empty when the address carries no "!" separator.
func SplitSheet(address string) (sheet, ref string) {
	sheetPart, refPart, hasSheet := strings.Cut(address, "!")
	if !hasSheet {
		return "", address
	}
	return strings.Trim(sheetPart, "'"), refPart
}

// IsCellRef reports whether ref looks like a bare single-cell reference
// such as "A1" or "$B$2".
func IsCellRef(ref string) bool {
	return cellRefRe.MatchString(ref)
}

// ParseCell parses a single-cell address like "Sheet1!B3" or "B3" and
// returns the sheet name (may be empty) with 1-indexed column and row.
func ParseCell(address string) (sheet string, col, row int, err error) {
	sheet, ref := SplitSheet(address)
	col, row, err = parseRef(ref)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid cell address %q: %w", address, err)
	}
	return sheet, col, row, nil
}

// ParseRange parses an address like "Sheet1!A1:Z50" and returns
// (sheet, startRow, startCol, endRow, endCol) in 1-indexed form.
// A single-cell address yields a 1×1 range.
func ParseRange(address string) (sheet string, startRow, startCol, endRow, endCol int, err error) {
	sheetPart, rangePart := SplitSheet(address)
	sheet = sheetPart

	fromRef, toRef, hasColon := strings.Cut(rangePart, ":")
	if !hasColon {
		toRef = fromRef // single cell
	}

	startCol, startRow, err = parseRef(fromRef)
	if err != nil {
		return "", 0, 0, 0, 0, fmt.Errorf("invalid start of range %q: %w", fromRef, err)
	}
	endCol, endRow, err = parseRef(toRef)
	if err != nil {
		return "", 0, 0, 0, 0, fmt.Errorf("invalid end of range %q: %w", toRef, err)
	}

	// Normalize order
	if startRow > endRow {
		startRow, endRow = endRow, startRow
	}
	if startCol > endCol {
		startCol, endCol = endCol, startCol
	}

	return sheet, startRow, startCol, endRow, endCol, nil
}

// ColToLetter converts a 1-indexed column number to Excel letter(s)
func ColToLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// LetterToCol converts Excel column letter(s) to a 1-indexed column number.
// Returns 0 for anything that is not a plain column reference.
func LetterToCol(letters string) int {
	col := 0
	for _, c := range strings.ToUpper(letters) {
		if c < 'A' || c > 'Z' {
			return 0
		}
		col = col*26 + int(c-'A'+1)
	}
	return col
}

// FormatCell builds a canonical single-cell address like "Sheet1!B3".
func FormatCell(sheet string, row, col int) string {
	return sheet + "!" + CellRef(row, col)
}

// CellRef builds a bare cell reference like "B3".
func CellRef(row, col int) string {
	return ColToLetter(col) + strconv.Itoa(row)
}

// FormatAddress builds an address string like "Sheet1!A1:Z50"
func FormatAddress(sheet string, startRow, startCol, endRow, endCol int) string {
	from := ColToLetter(startCol) + strconv.Itoa(startRow)
	to := ColToLetter(endCol) + strconv.Itoa(endRow)
	if from == to {
		return sheet + "!" + from
	}
	return sheet + "!" + from + ":" + to
}

func parseRef(ref string) (col, row int, err error) {
	ref = strings.ReplaceAll(ref, "$", "")
	m := cellRefRe.FindStringSubmatch(strings.ToUpper(ref))
	if m == nil {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	col = LetterToCol(m[1])
	row, _ = strconv.Atoi(m[2])
	return col, row, nil
}
