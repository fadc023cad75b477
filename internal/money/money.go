package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// scale is the number of minor units per major unit exponent (cents).
const scale = 2

// Money represents a monetary value stored in minor units.
type Money int64

// BasePrice is the starting price of a Size, MenuItem or SpecialtyPizza.
type BasePrice Money

// Modifier is the additive amount of a Crust, Sauce, Topping or CustomizationOption.
type Modifier Money

// Minor returns the amount in minor units as a decimal.
func (m Money) Minor() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -scale)
}

// String formats the amount with two decimal places, e.g. "14.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(scale)
}

// Minor returns the base price in minor units as a decimal.
func (b BasePrice) Minor() decimal.Decimal {
	return decimal.NewFromInt(int64(b))
}

// Minor returns the modifier in minor units as a decimal.
func (m Modifier) Minor() decimal.Decimal {
	return decimal.NewFromInt(int64(m))
}

// ErrOutOfRange is returned when an amount does not fit in Money.
var ErrOutOfRange = errors.New("money: amount out of range")

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// FromMinor rounds a minor-unit decimal to whole minor units, half away from
// zero. Amounts beyond ±math.MaxInt64 minor units fail with ErrOutOfRange.
func FromMinor(d decimal.Decimal) (Money, error) {
	rounded := d.Round(0)
	if rounded.Abs().Cmp(maxMinor) > 0 {
		return 0, fmt.Errorf("%w: %s minor units", ErrOutOfRange, rounded.String())
	}
	return Money(rounded.IntPart()), nil
}

// FromDecimal converts a major-unit decimal into Money, rounding to the nearest minor unit.
func FromDecimal(d decimal.Decimal) (Money, error) {
	return FromMinor(d.Shift(scale))
}

// Parse reads a major-unit amount such as "12.50".
func Parse(value string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", value, err)
	}
	m, err := FromDecimal(d)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", value, err)
	}
	return m, nil
}

// WithinEpsilon reports whether |a - b| < epsilon, all expressed in minor units.
func WithinEpsilon(a, b decimal.Decimal, epsilon Money) bool {
	return a.Sub(b).Abs().LessThan(epsilon.Minor())
}
