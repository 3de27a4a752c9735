package billing

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"boleta/pkg/models"
)

func reconciledLine(t *testing.T, e *Engine, unit models.Unit, quantity, price string, taxed bool) models.LineItem {
	t.Helper()
	line := models.LineItem{
		Description: "item " + quantity,
		Unit:        unit,
		Quantity:    d(quantity),
		UnitPrice:   d(price),
		TaxApplies:  taxed,
	}
	if err := e.Reconcile(&line); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	return line
}

func TestRecomputeSummaryMixedUnits(t *testing.T) {
	e := newTestEngine(t)
	lines := []models.LineItem{
		reconciledLine(t, e, models.UnitUnit, "3", "10.00", false),
		reconciledLine(t, e, models.UnitKilogram, "2", "5.00", true),
	}

	summary := RecomputeSummary(lines)

	assertDecimal(t, "Subtotal", summary.Subtotal, d("40.00"), "0")
	assertDecimal(t, "TaxTotal", summary.TaxTotal, d("1.80"), "0")
	assertDecimal(t, "GrandTotal", summary.GrandTotal, d("41.80"), "0")
}

func TestRecomputeSummaryEmpty(t *testing.T) {
	summary := RecomputeSummary(nil)
	if !summary.GrandTotal.IsZero() || !summary.Subtotal.IsZero() || !summary.TaxTotal.IsZero() {
		t.Errorf("RecomputeSummary(nil) = %+v, want zeros", summary)
	}
}

func TestRecomputeSummaryIsConsistent(t *testing.T) {
	e := newTestEngine(t)
	rng := rand.New(rand.NewSource(7))

	for run := 0; run < 100; run++ {
		var lines []models.LineItem
		for i := 0; i < rng.Intn(8)+1; i++ {
			quantity := decimal.New(int64(rng.Intn(500)+1), -1)
			price := decimal.New(int64(rng.Intn(100000)), -4)
			lines = append(lines, reconciledLine(t, e, models.UnitUnit, quantity.String(), price.String(), rng.Intn(2) == 0))
		}

		summary := RecomputeSummary(lines)
		if !Consistent(summary) {
			t.Fatalf("run %d: inconsistent summary %+v", run, summary)
		}
	}
}

func TestRefreshKeepsNumbering(t *testing.T) {
	e := newTestEngine(t)
	doc := &models.Document{
		Products: []models.LineItem{reconciledLine(t, e, models.UnitUnit, "1", "10", false)},
		Summary:  &models.Summary{Series: "B01-04", Number: "04"},
	}

	Refresh(doc)

	if doc.Summary.Series != "B01-04" || doc.Summary.Number != "04" {
		t.Errorf("Refresh() lost numbering: %+v", doc.Summary)
	}
	assertDecimal(t, "GrandTotal", doc.Summary.GrandTotal, d("10"), "0")
}

func validDocument(t *testing.T) *models.Document {
	t.Helper()
	e := newTestEngine(t)
	doc := &models.Document{
		Type:     models.DocumentBoleta,
		SenderID: 1,
		Client:   &models.ClientInfo{Name: "Juan Perez", NationalID: "12345678"},
		Products: []models.LineItem{
			reconciledLine(t, e, models.UnitUnit, "3", "10.00", false),
			reconciledLine(t, e, models.UnitKilogram, "2", "5.00", true),
		},
	}
	Refresh(doc)
	return doc
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(doc *models.Document)
		wantErr     error
		wantMissing string
	}{
		{name: "valid boleta", mutate: func(doc *models.Document) {}},
		{
			name:        "missing client",
			mutate:      func(doc *models.Document) { doc.Client = nil },
			wantErr:     ErrIncompleteDocument,
			wantMissing: "client",
		},
		{
			name:        "client without identifiers",
			mutate:      func(doc *models.Document) { doc.Client.NationalID = "" },
			wantErr:     ErrIncompleteDocument,
			wantMissing: "client identifier",
		},
		{
			name:        "missing products",
			mutate:      func(doc *models.Document) { doc.Products = nil },
			wantErr:     ErrIncompleteDocument,
			wantMissing: "products",
		},
		{
			name:        "missing summary",
			mutate:      func(doc *models.Document) { doc.Summary = nil },
			wantErr:     ErrIncompleteDocument,
			wantMissing: "summary",
		},
		{
			name:        "stale summary",
			mutate:      func(doc *models.Document) { doc.Products = doc.Products[:1] },
			wantErr:     ErrIncompleteDocument,
			wantMissing: "stale",
		},
		{
			name:        "missing sender",
			mutate:      func(doc *models.Document) { doc.SenderID = 0 },
			wantErr:     ErrIncompleteDocument,
			wantMissing: "sender",
		},
		{
			name:    "factura without ruc",
			mutate:  func(doc *models.Document) { doc.Type = models.DocumentFactura },
			wantErr: ErrInvalidDocument,
		},
		{
			name:    "malformed dni",
			mutate:  func(doc *models.Document) { doc.Client.NationalID = "1234" },
			wantErr: ErrInvalidDocument,
		},
		{
			name: "factura with ruc",
			mutate: func(doc *models.Document) {
				doc.Type = models.DocumentFactura
				doc.Client.TaxID = "20123456789"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument(t)
			tt.mutate(doc)

			err := Assemble(doc)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Assemble() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Assemble() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMissing == "" {
				return
			}
			var docErr *DocumentError
			if !errors.As(err, &docErr) {
				t.Fatalf("Assemble() error %T is not a *DocumentError", err)
			}
			if !strings.Contains(strings.Join(docErr.Missing, ";"), tt.wantMissing) {
				t.Errorf("Missing = %v, want mention of %q", docErr.Missing, tt.wantMissing)
			}
		})
	}
}

func TestAssembleNil(t *testing.T) {
	if err := Assemble(nil); !errors.Is(err, ErrIncompleteDocument) {
		t.Errorf("Assemble(nil) error = %v, want ErrIncompleteDocument", err)
	}
}

func TestAssembleReportsAllMissingParts(t *testing.T) {
	err := Assemble(&models.Document{})

	var docErr *DocumentError
	if !errors.As(err, &docErr) {
		t.Fatalf("Assemble() error = %v, want *DocumentError", err)
	}
	if len(docErr.Missing) != 4 {
		t.Errorf("Missing = %v, want sender, client, products and summary", docErr.Missing)
	}
}

func TestNumbering(t *testing.T) {
	tests := []struct {
		docType  models.DocumentType
		senderID uint
		n        int
		want     string
	}{
		{models.DocumentBoleta, 1, 3, "B01-03"},
		{models.DocumentFactura, 12, 7, "F12-07"},
		{models.DocumentBoleta, 2, 123, "B02-123"},
	}
	for _, tt := range tests {
		if got := FormatSeries(tt.docType, tt.senderID, tt.n); got != tt.want {
			t.Errorf("FormatSeries(%s, %d, %d) = %q, want %q", tt.docType, tt.senderID, tt.n, got, tt.want)
		}
	}

	doc := validDocument(t)
	Number(doc, 5)
	if doc.Summary.Series != "B01-05" || doc.Summary.Number != "05" {
		t.Errorf("Number() = %q/%q, want B01-05/05", doc.Summary.Series, doc.Summary.Number)
	}
}
