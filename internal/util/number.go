package util

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reThousandsDot   = regexp.MustCompile(`^[1-9]\d{0,2}(?:\.\d{3}){2,}$`)
	reThousandsComma = regexp.MustCompile(`^[1-9]\d{0,2}(?:,\d{3})+$`)
	reMixedComma     = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+\.\d+$`)
	reMixedDot       = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+,\d+$`)
	reCurrency       = regexp.MustCompile(`(?i)(aed|usd|eur|sar|rs\.?|[$€£¥₹])`)
)

// ParseDecimal coerces a spreadsheet cell into a number. The bool is false when the
// cell holds no usable number; the returned value is then zero.
func ParseDecimal(input string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(input, "\u00a0", " ")
	s = reCurrency.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" || s == "-" || s == "--" {
		return decimal.Zero, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimSpace(s[1:])
	}

	d, err := decimal.NewFromString(normalizeNumericToken(s))
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// DecimalOrZero is ParseDecimal without the flag.
func DecimalOrZero(input string) decimal.Decimal {
	d, _ := ParseDecimal(input)
	return d
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, " ", "")
	compact = strings.ReplaceAll(compact, "'", "")
	switch {
	case reMixedComma.MatchString(compact):
		return strings.ReplaceAll(compact, ",", "")
	case reMixedDot.MatchString(compact):
		return strings.ReplaceAll(strings.ReplaceAll(compact, ".", ""), ",", ".")
	case reThousandsDot.MatchString(compact):
		return strings.ReplaceAll(compact, ".", "")
	case reThousandsComma.MatchString(compact):
		return strings.ReplaceAll(compact, ",", "")
	case strings.Contains(compact, ",") && !strings.Contains(compact, "."):
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
