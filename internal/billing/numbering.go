package billing

import (
	"fmt"

	"boleta/pkg/models"
)

// FormatNumber renders a per-sender running number, e.g. 3 -> "03".
func FormatNumber(n int) string {
	return fmt.Sprintf("%02d", n)
}

// FormatSeries renders the series printed on the document, e.g. B01-03 for the
// third boleta of sender 1.
func FormatSeries(t models.DocumentType, senderID uint, n int) string {
	return fmt.Sprintf("%s%02d-%s", t.SeriesPrefix(), senderID, FormatNumber(n))
}

// Number assigns series and number to doc's summary. n comes from the store.
func Number(doc *models.Document, n int) {
	if doc.Summary == nil {
		Refresh(doc)
	}
	doc.Summary.Series = FormatSeries(doc.Type, doc.SenderID, n)
	doc.Summary.Number = FormatNumber(n)
}
