package billing

import "github.com/shopspring/decimal"

// EventKind identifies a line edit event.
type EventKind int

const (
	KindQuantityChanged EventKind = iota + 1
	KindBasePriceChanged
	KindTaxFlagChanged
	KindTotalChanged
)

func (k EventKind) String() string {
	switch k {
	case KindQuantityChanged:
		return "quantity_changed"
	case KindBasePriceChanged:
		return "base_price_changed"
	case KindTaxFlagChanged:
		return "tax_flag_changed"
	case KindTotalChanged:
		return "total_changed"
	default:
		return "unknown"
	}
}

// Event is a user edit of one line field. The concrete types below are the
// only variants; each one is handled by exactly one engine handler.
type Event interface {
	Kind() EventKind
}

// QuantityChanged sets a new quantity; the unit price stays fixed.
type QuantityChanged struct {
	Quantity decimal.Decimal
}

// BasePriceChanged sets a new pre-tax unit price; the quantity stays fixed.
type BasePriceChanged struct {
	BasePrice decimal.Decimal
}

// TaxFlagChanged switches IGV on or off; the line total stays fixed.
type TaxFlagChanged struct {
	TaxApplies bool
}

// TotalChanged sets a new line total; the quantity stays fixed and the unit
// price is derived from it.
type TotalChanged struct {
	Total decimal.Decimal
}

func (QuantityChanged) Kind() EventKind  { return KindQuantityChanged }
func (BasePriceChanged) Kind() EventKind { return KindBasePriceChanged }
func (TaxFlagChanged) Kind() EventKind   { return KindTaxFlagChanged }
func (TotalChanged) Kind() EventKind     { return KindTotalChanged }
