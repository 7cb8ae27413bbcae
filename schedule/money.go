/*
money.go - Money and percentage arithmetic

PURPOSE:
  The conversion primitives everything else is built on:
  percentage <-> amount against an invoice total, 2-decimal rounding for
  comparisons against 100%, ordinal labels for auto-generated
  descriptions, and display-only currency formatting.

ROUNDING:
  Stored values keep full decimal precision; RoundPercentage and
  RoundMoney exist for comparisons and display, never for storage.

SEE ALSO:
  - reconcile.go: Uses the conversions for redistribution
  - present.go: Uses FormatCurrency for display rows
*/
package schedule

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var hundred = decimal.NewFromInt(100)

// tolerance is the engine-wide comparison tolerance (0.01).
var tolerance = decimal.New(1, -2)

// AmountFromPercentage returns total * percentage / 100.
func AmountFromPercentage(total, percentage decimal.Decimal) decimal.Decimal {
	return total.Mul(percentage).Div(hundred)
}

// PercentageFromAmount returns (amount / total) * 100, or zero when the
// total is zero or negative.
func PercentageFromAmount(total, amount decimal.Decimal) decimal.Decimal {
	if total.Sign() <= 0 {
		return decimal.Zero
	}
	return amount.Div(total).Mul(hundred)
}

// RoundPercentage rounds to 2 decimal places (used for comparisons
// against 100 and for display).
func RoundPercentage(p decimal.Decimal) decimal.Decimal { return p.Round(2) }

// RoundMoney rounds a monetary value to 2 decimal places.
func RoundMoney(a decimal.Decimal) decimal.Decimal { return a.Round(2) }

func withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}

// =============================================================================
// CURRENCY FORMATTING - display only, never fed back into stored values
// =============================================================================

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"CNY": "¥",
	"KRW": "₩",
	"INR": "₹",
}

var displayPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount as a grouped currency string, e.g.
// "$1,234.56". Unknown currency codes fall back to "CODE 1,234.56".
func FormatCurrency(amount decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	f, _ := amount.Abs().Float64()
	grouped := displayPrinter.Sprintf("%v",
		number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	sign := ""
	if amount.Sign() < 0 {
		sign = "-"
	}
	if sym, ok := currencySymbols[code]; ok {
		return sign + sym + grouped
	}
	if code == "" {
		return sign + grouped
	}
	return fmt.Sprintf("%s%s %s", sign, code, grouped)
}

// =============================================================================
// ORDINALS
// =============================================================================

// Ordinal returns the English ordinal label for n: "1st", "2nd", "3rd",
// "4th", ..., "11th", "21st". The suffix cycles every 10 with the 11-13
// exception.
func Ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
		// teens always take "th"
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// AutoDescriptionFor returns the generated description for the
// installment at 1-based position n.
func AutoDescriptionFor(n int) string {
	return Ordinal(n) + " payment"
}
