package billing

import (
	"fmt"
	"strings"
	"time"

	"boleta/pkg/models"
)

// Warning flags a draft field the caller should show to the user. Warnings do
// not stop normalisation.
type Warning struct {
	Line    int    `json:"line,omitempty"` // 1-based, 0 for document-level warnings
	Field   string `json:"field"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Field, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

var draftDateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
}

// NormalizeDraft turns an extraction draft into a document with reconciled
// lines and a fresh summary.
//
// A product that shows only a total (base price 0, total not 0) gets its base
// price derived from the total, as if the user had typed that total.
func (e *Engine) NormalizeDraft(draft *models.Draft) (*models.Document, []Warning) {
	var warnings []Warning

	client := models.ClientInfo{
		Name:       strings.TrimSpace(draft.Client.Name.String()),
		NationalID: digitsOnly(draft.Client.DNI.String()),
		TaxID:      digitsOnly(draft.Client.RUC.String()),
	}

	doc := &models.Document{
		Type:     DefaultDocumentType(client),
		Client:   &client,
		Products: make([]models.LineItem, 0, len(draft.Products)),
	}

	if draft.Client.Date != "" {
		if date, err := parseDraftDate(draft.Client.Date); err == nil {
			doc.IssueDate = date
		} else {
			warnings = append(warnings, Warning{Field: "fecha", Message: err.Error(), Err: err})
		}
	}
	if client.Name == "" {
		warnings = append(warnings, Warning{Field: "cliente", Message: "client name not found"})
	}

	for i, p := range draft.Products {
		line, lineWarnings := e.normalizeProduct(i+1, p)
		warnings = append(warnings, lineWarnings...)
		doc.Products = append(doc.Products, line)
	}

	Refresh(doc)

	if !draft.Total.IsZero() && !WithinTolerance(draft.Total, doc.Summary.GrandTotal) {
		warnings = append(warnings, Warning{
			Field:   "total",
			Message: fmt.Sprintf("extracted total %s differs from line totals %s", draft.Total.StringFixed(MoneyPlaces), doc.Summary.GrandTotal.StringFixed(MoneyPlaces)),
		})
	}

	e.log.Debug().
		Int("products", len(doc.Products)).
		Int("warnings", len(warnings)).
		Str("grand_total", doc.Summary.GrandTotal.StringFixed(MoneyPlaces)).
		Msg("Draft normalized")

	return doc, warnings
}

func (e *Engine) normalizeProduct(index int, p models.DraftProduct) (models.LineItem, []Warning) {
	var warnings []Warning

	unit, ok := models.ParseUnit(p.Unit)
	if !ok {
		unit = models.UnitUnit
		warnings = append(warnings, Warning{
			Line:    index,
			Field:   "unidad_medida",
			Message: fmt.Sprintf("unknown unit %q, using %s", p.Unit, models.UnitUnit),
		})
	}

	line := models.LineItem{
		Quantity:    p.Quantity,
		Description: strings.TrimSpace(p.Description),
		Unit:        unit,
		UnitPrice:   roundPrice(p.BasePrice),
		TaxApplies:  bool(p.Tax),
	}

	var err error
	if p.BasePrice.IsZero() && !p.Total.IsZero() {
		_, err = e.Apply(&line, TotalChanged{Total: p.Total})
	} else {
		err = e.Reconcile(&line)
	}
	if err != nil {
		line.LineTotal = roundMoney(p.Total)
		warnings = append(warnings, Warning{Line: index, Field: "cantidad", Message: err.Error(), Err: err})
		return line, warnings
	}

	if !p.Total.IsZero() && !p.BasePrice.IsZero() && !WithinTolerance(p.Total, line.LineTotal) {
		warnings = append(warnings, Warning{
			Line:    index,
			Field:   "precio_total",
			Message: fmt.Sprintf("extracted total %s recomputed as %s", p.Total.StringFixed(MoneyPlaces), line.LineTotal.StringFixed(MoneyPlaces)),
		})
	}
	return line, warnings
}

func parseDraftDate(s string) (time.Time, error) {
	cleaned := strings.TrimSpace(s)
	for _, layout := range draftDateLayouts {
		if date, err := time.Parse(layout, cleaned); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %s", s)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
