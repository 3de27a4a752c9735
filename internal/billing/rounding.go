package billing

import "github.com/shopspring/decimal"

const (
	// PricePlaces is the precision of unit prices, enough to survive tax back-calculation.
	PricePlaces = 4

	// MaxPricePlaces bounds the extra precision a price derived from a fixed
	// total may take on when the quantity is large.
	MaxPricePlaces = 8

	// MoneyPlaces is the precision of totals and tax amounts.
	MoneyPlaces = 2
)

// Tolerance is the largest difference treated as rounding noise.
var Tolerance = decimal.New(1, -MoneyPlaces)

func roundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PricePlaces)
}

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// WithinTolerance reports whether a and b differ by at most 0.01.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
