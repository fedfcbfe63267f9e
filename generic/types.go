/*
Package generic provides the leaf types shared by every salary package.

KEY CONCEPTS:
  - TimePoint / DateRange: calendar dates, never instants
  - PeriodKey: one calendar month, the unit of salary calculation
  - Money helpers: decimal.Decimal everywhere, never float64
  - Identifiers: type-safe IDs so a teacher ID can't be passed as a class ID
  - Error taxonomy: validation / conflict / network

SEE ALSO:
  - period.go: PeriodKey
  - errors.go: error classes
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TeacherID string
type CalculationID string
type ClassID string
type AcademicYearID string
type RateCardID string

// =============================================================================
// MONEY
// =============================================================================

// MustParseDecimal parses a literal amount, panicking on malformed input.
// Only for presets and tests.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// SumDecimals adds a list of amounts.
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FormatMoney renders an amount with two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
