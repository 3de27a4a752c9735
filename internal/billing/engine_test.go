package billing

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"boleta/pkg/models"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultTaxRate)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func assertDecimal(t *testing.T, field string, got, want decimal.Decimal, tolerance string) {
	t.Helper()
	if got.Sub(want).Abs().GreaterThan(d(tolerance)) {
		t.Errorf("%s = %s, want %s (±%s)", field, got, want, tolerance)
	}
}

func TestNewEngineRejectsInvalidRate(t *testing.T) {
	for _, rate := range []string{"-0.01", "1", "1.18"} {
		if _, err := NewEngine(d(rate)); !errors.Is(err, ErrInvalidTaxRate) {
			t.Errorf("NewEngine(%s) error = %v, want ErrInvalidTaxRate", rate, err)
		}
	}
	if _, err := NewEngine(decimal.Zero); err != nil {
		t.Errorf("NewEngine(0) error = %v", err)
	}
}

func TestReconcile(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name      string
		quantity  string
		price     string
		taxed     bool
		wantTotal string
		wantTax   string
	}{
		{name: "untaxed", quantity: "3", price: "10", taxed: false, wantTotal: "30", wantTax: "0"},
		{name: "taxed", quantity: "2", price: "5", taxed: true, wantTotal: "11.80", wantTax: "1.80"},
		{name: "fractional kilograms", quantity: "2.5", price: "4.2", taxed: false, wantTotal: "10.50", wantTax: "0"},
		{name: "taxed with rounding", quantity: "3", price: "3.3333", taxed: true, wantTotal: "11.80", wantTax: "1.80"},
		{name: "zero price", quantity: "4", price: "0", taxed: true, wantTotal: "0", wantTax: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := models.LineItem{Quantity: d(tt.quantity), UnitPrice: d(tt.price), TaxApplies: tt.taxed}
			if err := e.Reconcile(&line); err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			assertDecimal(t, "LineTotal", line.LineTotal, d(tt.wantTotal), "0")
			assertDecimal(t, "LineTaxAmount", line.LineTaxAmount, d(tt.wantTax), "0")
			if !e.CheckLine(line) {
				t.Errorf("CheckLine() = false for %+v", line)
			}
		})
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("7"), UnitPrice: d("1.2345"), TaxApplies: true}

	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	first := line

	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	if !first.LineTotal.Equal(line.LineTotal) || !first.LineTaxAmount.Equal(line.LineTaxAmount) {
		t.Errorf("second Reconcile() drifted: %s/%s -> %s/%s",
			first.LineTotal, first.LineTaxAmount, line.LineTotal, line.LineTaxAmount)
	}

	changed, err := e.Apply(&line, BasePriceChanged{BasePrice: d("1.2345")})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if changed {
		t.Error("Apply(BasePriceChanged) with same price reported a change")
	}
}

func TestInvalidQuantityLeavesLineUnchanged(t *testing.T) {
	e := newTestEngine(t)

	for _, q := range []string{"0", "-1"} {
		t.Run("quantity "+q, func(t *testing.T) {
			line := models.LineItem{Quantity: d("2"), UnitPrice: d("10"), TaxApplies: false}
			if err := e.Reconcile(&line); err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			before := line

			changed, err := e.Apply(&line, QuantityChanged{Quantity: d(q)})
			if !errors.Is(err, ErrInvalidQuantity) {
				t.Fatalf("Apply() error = %v, want ErrInvalidQuantity", err)
			}
			if changed {
				t.Error("Apply() reported a change on invalid input")
			}
			if !line.Quantity.Equal(before.Quantity) || !line.UnitPrice.Equal(before.UnitPrice) || !line.LineTotal.Equal(before.LineTotal) {
				t.Errorf("line changed on invalid quantity: before %+v after %+v", before, line)
			}

			direct := models.LineItem{Quantity: d(q), UnitPrice: d("10"), LineTotal: d("99")}
			if err := e.Reconcile(&direct); !errors.Is(err, ErrInvalidQuantity) {
				t.Errorf("Reconcile() error = %v, want ErrInvalidQuantity", err)
			}
			if !direct.LineTotal.Equal(d("99")) {
				t.Errorf("Reconcile() touched LineTotal: %s", direct.LineTotal)
			}
		})
	}
}

func TestTaxToggleRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("2"), UnitPrice: d("10.00"), TaxApplies: false}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	assertDecimal(t, "LineTotal", line.LineTotal, d("20.00"), "0")

	if _, err := e.Apply(&line, TaxFlagChanged{TaxApplies: true}); err != nil {
		t.Fatalf("toggle on error = %v", err)
	}
	assertDecimal(t, "LineTotal (taxed)", line.LineTotal, d("20.00"), "0")
	assertDecimal(t, "UnitPrice (taxed)", line.UnitPrice, d("8.4746"), "0")
	assertDecimal(t, "LineTaxAmount (taxed)", line.LineTaxAmount, d("3.05"), "0")
	if line.OriginalBasePrice == nil || !line.OriginalBasePrice.Equal(d("10")) {
		t.Fatalf("OriginalBasePrice = %v, want 10", line.OriginalBasePrice)
	}
	if !e.CheckLine(line) {
		t.Errorf("CheckLine() = false after toggle on: %+v", line)
	}

	if _, err := e.Apply(&line, TaxFlagChanged{TaxApplies: false}); err != nil {
		t.Fatalf("toggle off error = %v", err)
	}
	assertDecimal(t, "UnitPrice", line.UnitPrice, d("10.00"), "0.0001")
	assertDecimal(t, "LineTotal", line.LineTotal, d("20.00"), "0.01")
	assertDecimal(t, "LineTaxAmount", line.LineTaxAmount, decimal.Zero, "0")
	if line.OriginalBasePrice != nil {
		t.Errorf("OriginalBasePrice = %s, want nil after restore", line.OriginalBasePrice)
	}
}

func TestTaxToggleOffWithoutOriginalKeepsPrice(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("1"), UnitPrice: d("100"), TaxApplies: true}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if _, err := e.Apply(&line, TaxFlagChanged{TaxApplies: false}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	assertDecimal(t, "UnitPrice", line.UnitPrice, d("100"), "0")
	assertDecimal(t, "LineTotal", line.LineTotal, d("100"), "0")
	assertDecimal(t, "LineTaxAmount", line.LineTaxAmount, decimal.Zero, "0")
}

func TestTaxFlagUnchangedIsNoop(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("1"), UnitPrice: d("5"), TaxApplies: true}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	changed, err := e.Apply(&line, TaxFlagChanged{TaxApplies: true})
	if err != nil || changed {
		t.Errorf("Apply() = %v, %v; want false, nil", changed, err)
	}
	if line.OriginalBasePrice != nil {
		t.Error("no-op toggle recorded an original base price")
	}
}

func TestTotalChanged(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name      string
		quantity  string
		taxed     bool
		total     string
		wantPrice string
		wantTax   string
	}{
		{name: "taxed single unit", quantity: "1", taxed: true, total: "118.00", wantPrice: "100.00", wantTax: "18.00"},
		{name: "untaxed", quantity: "4", taxed: false, total: "10", wantPrice: "2.5", wantTax: "0"},
		{name: "taxed repeating", quantity: "3", taxed: true, total: "10", wantPrice: "2.8249", wantTax: "1.53"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := models.LineItem{Quantity: d(tt.quantity), TaxApplies: tt.taxed}

			changed, err := e.Apply(&line, TotalChanged{Total: d(tt.total)})
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if !changed {
				t.Error("Apply() reported no change")
			}
			assertDecimal(t, "UnitPrice", line.UnitPrice, d(tt.wantPrice), "0.0001")
			assertDecimal(t, "LineTaxAmount", line.LineTaxAmount, d(tt.wantTax), "0.01")
			assertDecimal(t, "LineTotal", line.LineTotal, d(tt.total), "0")
			if !e.CheckLine(line) {
				t.Errorf("CheckLine() = false: %+v", line)
			}
		})
	}
}

func TestLargeQuantitiesKeepTaxFormula(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name      string
		quantity  string
		taxed     bool
		event     Event
		wantTotal string
		wantPrice string
	}{
		{name: "toggle on at 1000", quantity: "1000", event: TaxFlagChanged{TaxApplies: true}, wantTotal: "1000", wantPrice: "0.84746"},
		{name: "toggle on at 250.5", quantity: "250.5", event: TaxFlagChanged{TaxApplies: true}, wantTotal: "250.5", wantPrice: "0.84746"},
		{name: "taxed total at 1000", quantity: "1000", taxed: true, event: TotalChanged{Total: d("1234.57")}, wantTotal: "1234.57", wantPrice: "1.04625"},
		{name: "untaxed total at 1000", quantity: "1000", event: TotalChanged{Total: d("1234.57")}, wantTotal: "1234.57", wantPrice: "1.23457"},
		{name: "small quantity keeps 4 places", quantity: "3", taxed: true, event: TotalChanged{Total: d("10")}, wantTotal: "10", wantPrice: "2.8249"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := models.LineItem{Quantity: d(tt.quantity), UnitPrice: d("1"), TaxApplies: tt.taxed}
			if err := e.Reconcile(&line); err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}

			if _, err := e.Apply(&line, tt.event); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			assertDecimal(t, "LineTotal", line.LineTotal, d(tt.wantTotal), "0")
			assertDecimal(t, "UnitPrice", line.UnitPrice, d(tt.wantPrice), "0")
			if !e.CheckLine(line) {
				t.Errorf("CheckLine() = false: %+v", line)
			}

			summary := RecomputeSummary([]models.LineItem{line})
			assertDecimal(t, "Subtotal", summary.Subtotal, line.Quantity.Mul(line.UnitPrice), "0.01")
		})
	}
}

func TestTotalChangedWithinToleranceIsNoop(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("3"), UnitPrice: d("3.3333"), TaxApplies: false}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	before := line

	changed, err := e.Apply(&line, TotalChanged{Total: line.LineTotal.Add(d("0.01"))})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if changed || !line.UnitPrice.Equal(before.UnitPrice) {
		t.Errorf("Apply() within tolerance changed the line: %+v -> %+v", before, line)
	}
}

func TestTotalChangedRejectsNegative(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("1"), UnitPrice: d("1")}

	if _, err := e.Apply(&line, TotalChanged{Total: d("-5")}); !errors.Is(err, ErrNegativeTotal) {
		t.Errorf("Apply() error = %v, want ErrNegativeTotal", err)
	}
	if _, err := e.Apply(&line, BasePriceChanged{BasePrice: d("-5")}); !errors.Is(err, ErrNegativePrice) {
		t.Errorf("Apply() error = %v, want ErrNegativePrice", err)
	}
}

func TestBasePriceChangedForgetsOriginal(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("2"), UnitPrice: d("10")}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, err := e.Apply(&line, TaxFlagChanged{TaxApplies: true}); err != nil {
		t.Fatalf("toggle error = %v", err)
	}

	if _, err := e.Apply(&line, BasePriceChanged{BasePrice: d("12")}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if line.OriginalBasePrice != nil {
		t.Errorf("OriginalBasePrice = %s, want nil", line.OriginalBasePrice)
	}
	assertDecimal(t, "LineTotal", line.LineTotal, d("28.32"), "0")

	if _, err := e.Apply(&line, TaxFlagChanged{TaxApplies: false}); err != nil {
		t.Fatalf("toggle off error = %v", err)
	}
	assertDecimal(t, "UnitPrice", line.UnitPrice, d("12"), "0")
}

func TestQuantityChangeKeepsOriginalBasePrice(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("1"), UnitPrice: d("10")}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, err := e.Apply(&line, TaxFlagChanged{TaxApplies: true}); err != nil {
		t.Fatalf("toggle error = %v", err)
	}
	if _, err := e.Apply(&line, QuantityChanged{Quantity: d("3")}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if line.OriginalBasePrice == nil || !line.OriginalBasePrice.Equal(d("10")) {
		t.Errorf("OriginalBasePrice = %v, want 10", line.OriginalBasePrice)
	}
	if !e.CheckLine(line) {
		t.Errorf("CheckLine() = false: %+v", line)
	}
}

type renamed struct{}

func (renamed) Kind() EventKind { return EventKind(99) }

func TestApplyUnknownEvent(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Quantity: d("1")}

	if _, err := e.Apply(&line, renamed{}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Apply(renamed) error = %v, want ErrUnknownEvent", err)
	}
	if _, err := e.Apply(&line, nil); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Apply(nil) error = %v, want ErrUnknownEvent", err)
	}
	if _, err := e.Apply(&line, &QuantityChanged{Quantity: d("2")}); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Apply(*QuantityChanged) error = %v, want ErrUnknownEvent", err)
	}
}

func TestSelectProduct(t *testing.T) {
	e := newTestEngine(t)
	line := models.LineItem{Description: "arros", Quantity: decimal.Zero}
	product := models.Product{ID: 7, Name: "Arroz Extra Superior", Unit: models.UnitKilogram, Price: d("4.50"), TaxApplies: true}

	if _, err := e.SelectProduct(&line, product); err != nil {
		t.Fatalf("SelectProduct() error = %v", err)
	}
	if line.Description != product.Name || line.Unit != models.UnitKilogram || !line.TaxApplies {
		t.Errorf("SelectProduct() did not copy product fields: %+v", line)
	}
	if line.ProductID == nil || *line.ProductID != 7 {
		t.Errorf("ProductID = %v, want 7", line.ProductID)
	}
	assertDecimal(t, "Quantity", line.Quantity, d("1"), "0")
	assertDecimal(t, "LineTotal", line.LineTotal, d("5.31"), "0")
}

func TestEditSequencesKeepTaxFormula(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(42))

	quantities := []string{"1", "2", "3", "0.5", "2.5", "10", "25", "0", "-1", "0.333", "250.5", "1000", "12345.678"}
	prices := []string{"0", "1.5", "3.3333", "10", "99.99", "0.07"}

	for run := 0; run < 200; run++ {
		line := models.LineItem{Quantity: d("1"), UnitPrice: d("1")}
		if err := e.Reconcile(&line); err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}

		for step := 0; step < 12; step++ {
			var ev Event
			switch rng.Intn(4) {
			case 0:
				ev = QuantityChanged{Quantity: d(quantities[rng.Intn(len(quantities))])}
			case 1:
				ev = BasePriceChanged{BasePrice: d(prices[rng.Intn(len(prices))])}
			case 2:
				ev = TaxFlagChanged{TaxApplies: rng.Intn(2) == 0}
			default:
				ev = TotalChanged{Total: decimal.New(int64(rng.Intn(5000000)), -2)}
			}

			before := line
			if _, err := e.Apply(&line, ev); err != nil {
				if !line.LineTotal.Equal(before.LineTotal) || !line.UnitPrice.Equal(before.UnitPrice) {
					t.Fatalf("run %d step %d: failed %s changed the line", run, step, ev.Kind())
				}
				continue
			}
			if !e.CheckLine(line) {
				t.Fatalf("run %d step %d: %s broke the tax formula: %+v", run, step, ev.Kind(), line)
			}
			if line.LineTaxAmount.IsNegative() {
				t.Fatalf("run %d step %d: negative tax amount %s", run, step, line.LineTaxAmount)
			}
		}
	}
}
