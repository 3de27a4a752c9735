package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the unit of measure printed on a sales document line.
type Unit string

const (
	UnitKilogram Unit = "KILOGRAMO"
	UnitBox      Unit = "CAJA"
	UnitUnit     Unit = "UNIDAD"
	UnitBag      Unit = "BOLSA"
)

var unitAbbreviations = map[Unit]string{
	UnitKilogram: "KL",
	UnitBox:      "CJ",
	UnitUnit:     "UN",
	UnitBag:      "BS",
}

var unitAliases = map[string]Unit{
	"KILOGRAMO":  UnitKilogram,
	"KILOGRAMOS": UnitKilogram,
	"KILOGRAM":   UnitKilogram,
	"KG":         UnitKilogram,
	"KL":         UnitKilogram,
	"CAJA":       UnitBox,
	"CAJAS":      UnitBox,
	"BOX":        UnitBox,
	"CJ":         UnitBox,
	"UNIDAD":     UnitUnit,
	"UNIDADES":   UnitUnit,
	"UNIT":       UnitUnit,
	"UND":        UnitUnit,
	"UN":         UnitUnit,
	"BOLSA":      UnitBag,
	"BOLSAS":     UnitBag,
	"BAG":        UnitBag,
	"BS":         UnitBag,
}

// Units lists every supported unit in display order.
func Units() []Unit {
	return []Unit{UnitKilogram, UnitBox, UnitUnit, UnitBag}
}

// ParseUnit accepts a full unit name or its abbreviation, case-insensitively.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToUpper(strings.TrimSpace(s))]
	return u, ok
}

// Valid reports whether u is one of the supported units.
func (u Unit) Valid() bool {
	_, ok := unitAbbreviations[u]
	return ok
}

// Abbreviation returns the two-letter code used in suggestions and on the portal.
func (u Unit) Abbreviation() string {
	if abbr, ok := unitAbbreviations[u]; ok {
		return abbr
	}
	return string(u)
}

// DocumentType distinguishes a boleta (consumer receipt) from a factura (tax invoice).
type DocumentType string

const (
	DocumentBoleta  DocumentType = "BOLETA"
	DocumentFactura DocumentType = "FACTURA"
)

// SeriesPrefix returns the letter that opens the document series.
func (t DocumentType) SeriesPrefix() string {
	if t == DocumentFactura {
		return "F"
	}
	return "B"
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	return t == DocumentBoleta || t == DocumentFactura
}

// LineItem is one product entry of an in-progress document.
//
// UnitPrice is the base (pre-tax) price. OriginalBasePrice remembers the base
// price the line had before tax was switched on, so switching it off again can
// restore it.
type LineItem struct {
	ProductID         *uint            `json:"product_id,omitempty"`
	Quantity          decimal.Decimal  `json:"quantity"`
	Description       string           `json:"description"`
	Unit              Unit             `json:"unit"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	TaxApplies        bool             `json:"tax_applies"`
	LineTaxAmount     decimal.Decimal  `json:"line_tax_amount"`
	LineTotal         decimal.Decimal  `json:"line_total"`
	OriginalBasePrice *decimal.Decimal `json:"original_base_price,omitempty"`
}

// Net returns the pre-tax value of the line as stored in the document.
func (l LineItem) Net() decimal.Decimal {
	return l.LineTotal.Sub(l.LineTaxAmount)
}

// Summary aggregates the lines of a document.
type Summary struct {
	Series     string          `json:"series,omitempty"`
	Number     string          `json:"number,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxTotal   decimal.Decimal `json:"tax_total"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// ClientInfo identifies the buyer on a document. At least one of NationalID
// (DNI) or TaxID (RUC) is required before a document can be issued.
type ClientInfo struct {
	Name       string `json:"name"`
	NationalID string `json:"national_id,omitempty"`
	TaxID      string `json:"tax_id,omitempty"`
}

// Document is the in-progress or finalized sales document.
type Document struct {
	Type      DocumentType `json:"document_type"`
	SenderID  uint         `json:"sender_id"`
	ClientID  *uint        `json:"client_id,omitempty"`
	Client    *ClientInfo  `json:"client,omitempty"`
	IssueDate time.Time    `json:"issue_date"`
	Products  []LineItem   `json:"products"`
	Summary   *Summary     `json:"summary,omitempty"`
}
