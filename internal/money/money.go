// Package money normalizes currency-bearing text from OCR extractions.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencySymbols is the broad symbol set stripped from the front of
// amounts. It covers the Unicode currency block plus the legacy symbols
// that predate it.
const currencySymbols = "$€¥£₹₩₦₪฿₫₴₸₺₼₽₾₿¢¤₠₡₢₣₤₥₦₧₨₩₪₫€₭₮₯₰₱₲₳₵₶₷"

// StripSymbol removes one leading currency symbol and any thousands
// separators. Text without a leading symbol is only trimmed; the caller may
// still be holding a plain description, and mangling it would be worse than
// leaving it alone.
func StripSymbol(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return s
	}
	r := []rune(s)
	if strings.ContainsRune(currencySymbols, r[0]) {
		s = strings.TrimSpace(string(r[1:]))
		s = strings.ReplaceAll(s, ",", "")
	}
	return s
}

// Parse coerces currency-bearing text to a decimal. The boolean is false
// when the text is not numeric after symbol stripping, in which case callers
// keep the trimmed text as-is rather than coercing to zero.
func Parse(text string) (decimal.Decimal, bool) {
	s := StripSymbol(text)
	if s == "" {
		return decimal.Decimal{}, false
	}
	// tolerate thousands separators even without a symbol: "1,234.56"
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// ParseAny coerces the string-or-number values the vendor sends for line
// amounts.
func ParseAny(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Decimal{}, false
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		return Parse(t)
	default:
		return decimal.Decimal{}, false
	}
}
