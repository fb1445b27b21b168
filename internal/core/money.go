// Package core provides money parsing and handling utilities.
//
// Amounts are kept in integer cents. Parsing and division go through
// shopspring/decimal so rounding is exact half-up on the cent.
package core

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencyLabel is appended to every formatted amount.
const CurrencyLabel = "TL"

// maxAmount caps a single parsed amount at one hundred billion.
var maxAmount = decimal.New(100_000_000_000, 0)

// ParseAmount converts a user-entered decimal string into Money.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted and the
// value is rounded half-up to the cent. Zero is a valid amount; negatives are not.
//
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("0")      -> 0 cents
//	ParseAmount("-1")     -> ErrNegativeAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	if d.GreaterThan(maxAmount) {
		return Money{}, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, s)
	}
	return Money{Cents: d.Shift(2).Round(0).IntPart()}, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// DivRound divides by n rounding half away from zero to the cent. Division
// by zero (or a negative count) yields zero.
func (m Money) DivRound(n int64) Money {
	if n <= 0 {
		return Money{}
	}
	q := decimal.New(m.Cents, 0).Div(decimal.New(n, 0)).Round(0)
	return Money{Cents: q.IntPart()}
}

// Units returns the amount in major units, for charts only.
func (m Money) Units() float64 {
	return decimal.New(m.Cents, -2).InexactFloat64()
}

// Decimal returns the amount as an exact decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Format renders a total: thousands separators, no decimals ("12,346 TL").
func (m Money) Format() string {
	units := decimal.New(m.Cents, -2).Round(0).IntPart()
	return humanize.Comma(units) + " " + CurrencyLabel
}

// FormatAverage renders an average: thousands separators, two decimals ("1,234.50 TL").
func (m Money) FormatAverage() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%s.%02d %s", sign, humanize.Comma(cents/100), cents%100, CurrencyLabel)
}

// Input renders the amount for an editable form field ("1234.5" style, no grouping).
func (m Money) Input() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}
