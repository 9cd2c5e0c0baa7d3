package engine

import (
	"strconv"
	"strings"
	"unicode"
)

// Coerce converts user-supplied input into the value a cell should carry.
// Numbers and booleans pass through. Strings are interpreted with pt-BR
// conventions: "1.000,00" reads as one thousand, "true"/"false" become
// booleans. Anything that does not parse is kept as text.
func Coerce(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64, int, bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "true":
			return true
		case "false":
			return false
		}
		if n, ok := parseNumber(s); ok {
			return n
		}
		return t
	default:
		return v
	}
}

func parseNumber(s string) (float64, bool) {
	if !strings.ContainsFunc(s, unicode.IsDigit) {
		return 0, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
