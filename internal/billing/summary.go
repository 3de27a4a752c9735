package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"boleta/pkg/models"
)

// RecomputeSummary aggregates lines from scratch. It must run after every
// line mutation (add, edit, delete) before the summary is read.
func RecomputeSummary(lines []models.LineItem) models.Summary {
	tax := decimal.Zero
	grand := decimal.Zero
	for _, line := range lines {
		tax = tax.Add(line.LineTaxAmount)
		grand = grand.Add(line.LineTotal)
	}
	return models.Summary{
		Subtotal:   roundMoney(grand.Sub(tax)),
		TaxTotal:   roundMoney(tax),
		GrandTotal: roundMoney(grand),
	}
}

// Refresh recomputes doc.Summary, keeping any series and number already assigned.
func Refresh(doc *models.Document) {
	summary := RecomputeSummary(doc.Products)
	if doc.Summary != nil {
		summary.Series = doc.Summary.Series
		summary.Number = doc.Summary.Number
	}
	doc.Summary = &summary
}

// Consistent reports whether grand total equals subtotal plus tax within ±0.01.
func Consistent(s models.Summary) bool {
	return WithinTolerance(s.GrandTotal, s.Subtotal.Add(s.TaxTotal))
}

// Assemble checks that doc can be handed to persistence and submission.
// Missing parts are reported together in a *DocumentError wrapping
// ErrIncompleteDocument; rule violations wrap ErrInvalidDocument.
func Assemble(doc *models.Document) error {
	const op = "Assemble"

	if doc == nil {
		return NewDocumentError(op, ErrIncompleteDocument, "document")
	}

	var missing []string
	if doc.SenderID == 0 {
		missing = append(missing, "sender")
	}
	if doc.Client == nil || doc.Client.Name == "" {
		missing = append(missing, "client")
	} else if doc.Client.NationalID == "" && doc.Client.TaxID == "" {
		missing = append(missing, "client identifier (DNI or RUC)")
	}
	if len(doc.Products) == 0 {
		missing = append(missing, "products")
	}
	if doc.Summary == nil {
		missing = append(missing, "summary")
	} else if len(doc.Products) > 0 && !sameTotals(*doc.Summary, RecomputeSummary(doc.Products)) {
		missing = append(missing, "summary (stale, recompute after editing lines)")
	}
	if len(missing) > 0 {
		return NewDocumentError(op, ErrIncompleteDocument, missing...)
	}

	if !Consistent(*doc.Summary) {
		return fmt.Errorf("%s: %w", op, NewValidationError("summary", doc.Summary.GrandTotal, "grand total does not equal subtotal plus tax"))
	}
	if err := ValidateClient(*doc.Client); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := CheckDocumentType(doc.Type, *doc.Client); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for i, line := range doc.Products {
		if err := validateLine(line); err != nil {
			return fmt.Errorf("%s: product %d: %w", op, i+1, err)
		}
	}
	return nil
}

func sameTotals(a, b models.Summary) bool {
	return WithinTolerance(a.Subtotal, b.Subtotal) &&
		WithinTolerance(a.TaxTotal, b.TaxTotal) &&
		WithinTolerance(a.GrandTotal, b.GrandTotal)
}

func validateLine(line models.LineItem) error {
	if line.Description == "" {
		return NewValidationError("description", line.Description, "description is required")
	}
	if !line.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if !line.Unit.Valid() {
		return NewValidationError("unit", line.Unit, "unknown unit")
	}
	if line.UnitPrice.IsNegative() || line.LineTotal.IsNegative() || line.LineTaxAmount.IsNegative() {
		return NewValidationError("amounts", line.LineTotal, "amounts must not be negative")
	}
	return nil
}
