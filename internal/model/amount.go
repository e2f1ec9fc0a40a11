package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount written the way people type them in
// chat: "40", "40,5", "40.50", "R$ 1.234,56", "1,234.56".
//
// When both separators appear, the last one is the decimal separator.
// A lone separator followed by exactly three digits ("1.500") is a
// thousands separator; any other lone separator is decimal.
func ParseAmount(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	clean := strings.Trim(b.String(), ".,")
	if clean == "" || clean == "-" {
		return decimal.Zero, false
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		decSep, thouSep := ".", ","
		if lastComma > lastDot {
			decSep, thouSep = ",", "."
		}
		clean = strings.ReplaceAll(clean, thouSep, "")
		clean = strings.Replace(clean, decSep, ".", 1)
	case lastDot >= 0 || lastComma >= 0:
		sep := "."
		idx := lastDot
		if lastComma >= 0 {
			sep, idx = ",", lastComma
		}
		if strings.Count(clean, sep) > 1 || len(clean)-idx-1 == 3 {
			clean = strings.ReplaceAll(clean, sep, "")
		} else {
			clean = strings.Replace(clean, sep, ".", 1)
		}
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
