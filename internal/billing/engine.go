// Package billing keeps the numeric fields of sales document lines consistent
// with IGV and aggregates them into document summaries.
//
// A line always satisfies
//
//	LineTotal = Quantity × UnitPrice × (1 + rate if TaxApplies else 1)
//
// within ±0.01. Unit prices are kept to 4 decimal places, money to 2. A price
// derived from a fixed total takes up to MaxPricePlaces when 4 places would
// move the total by more than the tolerance.
//
// Edits arrive as Events and are dispatched to one handler per event kind.
// Each handler works on a copy of the line and commits only on success, so an
// invalid edit leaves the line exactly as it was.
package billing

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"boleta/internal/logger"
	"boleta/pkg/models"
)

// DefaultTaxRate is the Peruvian IGV rate.
var DefaultTaxRate = decimal.RequireFromString("0.18")

type handler func(e *Engine, line *models.LineItem, ev Event) (bool, error)

var handlers = map[EventKind]handler{
	KindQuantityChanged:  (*Engine).onQuantityChanged,
	KindBasePriceChanged: (*Engine).onBasePriceChanged,
	KindTaxFlagChanged:   (*Engine).onTaxFlagChanged,
	KindTotalChanged:     (*Engine).onTotalChanged,
}

// Engine recomputes line fields for a fixed tax rate.
type Engine struct {
	rate   decimal.Decimal
	factor decimal.Decimal
	log    zerolog.Logger
}

// NewEngine creates an engine for the given tax rate.
func NewEngine(rate decimal.Decimal) (*Engine, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("NewEngine: %w: %s", ErrInvalidTaxRate, rate)
	}
	return &Engine{
		rate:   rate,
		factor: decimal.NewFromInt(1).Add(rate),
		log:    logger.WithComponent("billing"),
	}, nil
}

// Rate returns the tax rate the engine applies.
func (e *Engine) Rate() decimal.Decimal {
	return e.rate
}

// Apply dispatches ev to its handler. It reports whether any field of the
// line changed. Errors leave the line untouched.
func (e *Engine) Apply(line *models.LineItem, ev Event) (bool, error) {
	const op = "Apply"

	if ev == nil {
		return false, fmt.Errorf("%s: %w: nil event", op, ErrUnknownEvent)
	}
	h, ok := handlers[ev.Kind()]
	if !ok {
		return false, fmt.Errorf("%s: %w: %T", op, ErrUnknownEvent, ev)
	}

	changed, err := h(e, line, ev)
	if err != nil {
		e.log.Debug().
			Err(err).
			Str("event", ev.Kind().String()).
			Str("description", line.Description).
			Msg("Line edit rejected")
		return false, err
	}
	return changed, nil
}

// Reconcile recomputes LineTotal and LineTaxAmount from Quantity and
// UnitPrice. Calling it again without other edits yields the same values.
func (e *Engine) Reconcile(line *models.LineItem) error {
	const op = "Reconcile"

	if !line.Quantity.IsPositive() {
		return fmt.Errorf("%s: %w: got %s", op, ErrInvalidQuantity, line.Quantity)
	}
	if line.UnitPrice.IsNegative() {
		return fmt.Errorf("%s: %w: got %s", op, ErrNegativePrice, line.UnitPrice)
	}

	net := line.Quantity.Mul(line.UnitPrice)
	if line.TaxApplies {
		line.LineTotal = roundMoney(net.Mul(e.factor))
		line.LineTaxAmount = line.LineTotal.Sub(roundMoney(net))
		return nil
	}
	line.LineTotal = roundMoney(net)
	line.LineTaxAmount = decimal.Zero
	return nil
}

// CheckLine reports whether the line satisfies the tax formula within ±0.01.
func (e *Engine) CheckLine(line models.LineItem) bool {
	expected := line.Quantity.Mul(line.UnitPrice)
	if line.TaxApplies {
		expected = expected.Mul(e.factor)
	}
	return WithinTolerance(line.LineTotal, expected)
}

// SelectProduct fills a line from an accepted catalog suggestion and
// recomputes it as a base price edit. A line without a valid quantity gets 1.
func (e *Engine) SelectProduct(line *models.LineItem, product models.Product) (bool, error) {
	next := *line
	next.Description = product.Name
	next.Unit = product.Unit
	next.TaxApplies = product.TaxApplies
	next.OriginalBasePrice = nil
	if product.ID != 0 {
		id := product.ID
		next.ProductID = &id
	}
	if !next.Quantity.IsPositive() {
		next.Quantity = decimal.NewFromInt(1)
	}

	if _, err := e.Apply(&next, BasePriceChanged{BasePrice: product.Price}); err != nil {
		return false, err
	}
	*line = next
	return true, nil
}

func (e *Engine) onQuantityChanged(line *models.LineItem, ev Event) (bool, error) {
	qc, ok := ev.(QuantityChanged)
	if !ok {
		return false, unexpected(ev)
	}

	next := *line
	next.Quantity = qc.Quantity
	if err := e.Reconcile(&next); err != nil {
		return false, err
	}
	return commit(line, next), nil
}

// onBasePriceChanged also forgets any remembered pre-tax price: the user has
// just chosen one explicitly.
func (e *Engine) onBasePriceChanged(line *models.LineItem, ev Event) (bool, error) {
	bp, ok := ev.(BasePriceChanged)
	if !ok {
		return false, unexpected(ev)
	}

	next := *line
	next.UnitPrice = roundPrice(bp.BasePrice)
	next.OriginalBasePrice = nil
	if err := e.Reconcile(&next); err != nil {
		return false, err
	}
	return commit(line, next), nil
}

// onTaxFlagChanged keeps LineTotal fixed when switching tax on, and restores
// the remembered base price when switching it off.
func (e *Engine) onTaxFlagChanged(line *models.LineItem, ev Event) (bool, error) {
	const op = "onTaxFlagChanged"
	tf, ok := ev.(TaxFlagChanged)
	if !ok {
		return false, unexpected(ev)
	}

	if tf.TaxApplies == line.TaxApplies {
		return false, nil
	}
	if !line.Quantity.IsPositive() {
		return false, fmt.Errorf("%s: %w: got %s", op, ErrInvalidQuantity, line.Quantity)
	}

	next := *line
	next.TaxApplies = tf.TaxApplies

	if tf.TaxApplies {
		original := line.UnitPrice
		next.OriginalBasePrice = &original
		next.UnitPrice = e.fitPrice(line.LineTotal, line.Quantity, true)
		next.LineTaxAmount = e.taxFromPrice(next.UnitPrice, next.Quantity)
		return commit(line, next), nil
	}

	if line.OriginalBasePrice != nil {
		next.UnitPrice = *line.OriginalBasePrice
		next.OriginalBasePrice = nil
	}
	next.LineTaxAmount = decimal.Zero
	next.LineTotal = roundMoney(next.Quantity.Mul(next.UnitPrice))
	return commit(line, next), nil
}

// onTotalChanged derives the unit price from a user-entered total. Totals
// within ±0.01 of the current one are rounding noise and ignored.
func (e *Engine) onTotalChanged(line *models.LineItem, ev Event) (bool, error) {
	const op = "onTotalChanged"
	tc, ok := ev.(TotalChanged)
	if !ok {
		return false, unexpected(ev)
	}

	total := roundMoney(tc.Total)
	if !line.Quantity.IsPositive() {
		return false, fmt.Errorf("%s: %w: got %s", op, ErrInvalidQuantity, line.Quantity)
	}
	if total.IsNegative() {
		return false, fmt.Errorf("%s: %w: got %s", op, ErrNegativeTotal, total)
	}
	if WithinTolerance(total, line.LineTotal) {
		return false, nil
	}

	next := *line
	next.LineTotal = total
	if next.TaxApplies {
		next.UnitPrice = e.fitPrice(total, next.Quantity, true)
		next.LineTaxAmount = e.taxFromPrice(next.UnitPrice, next.Quantity)
	} else {
		next.UnitPrice = e.fitPrice(total, next.Quantity, false)
		next.LineTaxAmount = decimal.Zero
	}
	return commit(line, next), nil
}

func unexpected(ev Event) error {
	return fmt.Errorf("%w: %T for kind %s", ErrUnknownEvent, ev, ev.Kind())
}

func (e *Engine) taxFromPrice(price, quantity decimal.Decimal) decimal.Decimal {
	return roundMoney(price.Mul(e.rate).Mul(quantity))
}

// fitPrice returns total / (quantity × factor) with the fewest places, from
// PricePlaces up to MaxPricePlaces, that keep quantity × price × factor
// within ±0.01 of total.
func (e *Engine) fitPrice(total, quantity decimal.Decimal, taxed bool) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	if taxed {
		factor = e.factor
	}
	exact := total.Div(quantity.Mul(factor))

	var price decimal.Decimal
	for places := int32(PricePlaces); places <= MaxPricePlaces; places++ {
		price = exact.Round(places)
		if WithinTolerance(total, quantity.Mul(price).Mul(factor)) {
			break
		}
	}
	return price
}

// commit stores next into line and reports whether a numeric field moved.
func commit(line *models.LineItem, next models.LineItem) bool {
	changed := !line.Quantity.Equal(next.Quantity) ||
		!line.UnitPrice.Equal(next.UnitPrice) ||
		!line.LineTotal.Equal(next.LineTotal) ||
		!line.LineTaxAmount.Equal(next.LineTaxAmount) ||
		line.TaxApplies != next.TaxApplies
	*line = next
	return changed
}
