package billing_test

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"boleta/internal/billing"
	"boleta/pkg/models"
)

// Example walks one line through the edits a user makes while building a boleta.
func Example() {
	engine, err := billing.NewEngine(billing.DefaultTaxRate)
	if err != nil {
		panic(err)
	}

	line := models.LineItem{
		Description: "Arroz Extra Superior",
		Unit:        models.UnitKilogram,
		Quantity:    decimal.NewFromInt(2),
		UnitPrice:   decimal.RequireFromString("10.00"),
	}
	_ = engine.Reconcile(&line)
	fmt.Println("total:", line.LineTotal.StringFixed(2))

	// Customer agreed on the total; the price now includes IGV.
	_, _ = engine.Apply(&line, billing.TaxFlagChanged{TaxApplies: true})
	fmt.Println("base price:", line.UnitPrice.StringFixed(4), "igv:", line.LineTaxAmount.StringFixed(2))

	_, err = engine.Apply(&line, billing.QuantityChanged{Quantity: decimal.Zero})
	fmt.Println("invalid quantity:", errors.Is(err, billing.ErrInvalidQuantity))

	_, _ = engine.Apply(&line, billing.TaxFlagChanged{TaxApplies: false})
	fmt.Println("restored:", line.UnitPrice.StringFixed(2), line.LineTotal.StringFixed(2))

	// Output:
	// total: 20.00
	// base price: 8.4746 igv: 3.05
	// invalid quantity: true
	// restored: 10.00 20.00
}

func ExampleRecomputeSummary() {
	lines := []models.LineItem{
		{LineTotal: decimal.RequireFromString("30.00"), LineTaxAmount: decimal.Zero},
		{LineTotal: decimal.RequireFromString("11.80"), LineTaxAmount: decimal.RequireFromString("1.80")},
	}

	summary := billing.RecomputeSummary(lines)
	fmt.Println(summary.Subtotal.StringFixed(2), summary.TaxTotal.StringFixed(2), summary.GrandTotal.StringFixed(2))

	// Output: 40.00 1.80 41.80
}
