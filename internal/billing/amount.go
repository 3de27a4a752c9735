package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyMarkers = []string{"S/.", "S/", "PEN", "s/.", "s/"}

// ParseAmount parses amounts as written on Peruvian receipts and sheets:
// "S/ 1,234.50", "S/. 10", "1.234,50", "-3.5". Empty input is zero.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(amountStr)
	if cleaned == "" {
		return decimal.Zero, nil
	}

	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimPrefix(cleaned, "-")
	for _, marker := range currencyMarkers {
		cleaned = strings.ReplaceAll(cleaned, marker, "")
	}
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = strings.TrimPrefix(cleaned, "-")
	}

	cleaned = normalizeSeparators(cleaned)

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to parse amount: %s (cleaned: %s)", amountStr, cleaned)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// normalizeSeparators turns the last of '.' or ',' into the decimal point and
// drops the other as a thousands separator. A lone comma followed by three
// digits is a thousands separator.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		parts := strings.Split(s, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			return parts[0] + "." + parts[1]
		}
		return strings.ReplaceAll(s, ",", "")
	default:
		return s
	}
}
