// Package money parses and formats the dollar amounts entered and shown by the
// tracker.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finance-tracker/internal/models"
)

// Parse converts user input such as "$1,234.50" or "12" into a positive
// amount. Currency symbols, thousands separators and surrounding whitespace
// are ignored. Empty, malformed, zero and negative values return
// models.ErrInvalidAmount.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, models.ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, models.ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, models.ErrInvalidAmount
	}
	return d, nil
}

// Plain formats d with two decimals and thousands separators, e.g. "1,234.50".
func Plain(d decimal.Decimal) string {
	p := message.NewPrinter(language.English)
	return p.Sprintf("%.2f", d.Round(2).InexactFloat64())
}

// Format formats d as a dollar amount, e.g. "$1,234.50".
func Format(d decimal.Decimal) string {
	return "$" + Plain(d)
}

// Input formats d for re-display in the amount field, e.g. "1234.50".
func Input(d decimal.Decimal) string {
	return d.StringFixed(2)
}
