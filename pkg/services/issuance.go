package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"boleta/pkg/models"
)

// IssuanceService turns receipts into issued boletas and facturas.
type IssuanceService interface {
	// DraftFromFile extracts a receipt image or PDF and normalizes it into a
	// document for senderID, with catalog suggestions per line.
	DraftFromFile(ctx context.Context, path string, senderID uint) (*DraftResult, error)

	// Issue validates doc, then records and submits it in the background.
	// done receives the outcome. Only one issue runs at a time.
	Issue(ctx context.Context, doc *models.Document, done func(IssueOutcome)) (string, error)

	// History lists the sender's issued documents, newest first.
	History(ctx context.Context, senderID uint) ([]HistoryEntry, error)

	SuggestProducts(ctx context.Context, senderID uint, query string) ([]Suggestion, error)
	SuggestClients(ctx context.Context, query string) ([]Suggestion, error)
}

// DraftResult is a normalized extraction.
type DraftResult struct {
	Document    *models.Document `json:"document"`
	Warnings    []string         `json:"warnings,omitempty"`
	Suggestions [][]Suggestion   `json:"suggestions,omitempty"` // per product line
}

// IssueOutcome reports how a background issue ended. Invoice is set once the
// document was recorded, even if submission failed afterwards.
type IssueOutcome struct {
	TaskID   string
	Invoice  *models.Invoice
	Err      error
	Duration time.Duration
}

// Suggestion is one fuzzy match of a product or client.
type Suggestion struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Label string `json:"label"`
}

// HistoryEntry is a stored invoice with its lines.
type HistoryEntry struct {
	Invoice models.Invoice `json:"invoice"`
	Lines   []HistoryLine  `json:"lines"`
}

type HistoryLine struct {
	ProductName string          `json:"product_name"`
	Unit        models.Unit     `json:"unit"`
	TaxApplies  bool            `json:"igv"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
	Total       decimal.Decimal `json:"total"`
}
