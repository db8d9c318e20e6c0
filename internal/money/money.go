package money

import "fmt"

// Cents represents a monetary value stored in integer minor units. All
// arithmetic on money happens on this type; conversion to major units is a
// formatting concern and never feeds back into computation.
type Cents = int64

// Add returns the sum of two amounts.
func Add(a, b Cents) Cents { return a + b }

// Negate mirrors an amount across zero. Returns are modelled as negated
// sales, so negation must be exact and symmetric.
func Negate(a Cents) Cents { return -a }

// Scale multiplies an amount by a rate expressed in basis points, rounding
// half-up to the nearest cent. Negative amounts round away from zero so that
// Scale(-a) == -Scale(a).
func Scale(a Cents, rateBps int64) Cents {
	if a < 0 {
		return -Scale(-a, rateBps)
	}
	return (a*rateBps + 5000) / 10000
}

// InverseScale divides a gross amount by (1 + rate) with the same half-up
// rounding as Scale. It is the back-computation used for tax-inclusive
// amounts; re-applying Scale to the result reproduces the input within one
// cent, which callers accept as documented tolerance rather than an error.
func InverseScale(a Cents, rateBps int64) Cents {
	if a < 0 {
		return -InverseScale(-a, rateBps)
	}
	denom := 10000 + rateBps
	return (a*10000 + denom/2) / denom
}

// Format renders cents as a decimal string in major units, e.g. -1050 ->
// "-10.50". Only presentation code should call this; totals are stored and
// transmitted as integers.
func Format(c Cents) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
