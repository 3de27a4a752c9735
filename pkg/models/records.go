package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sender is the vendor issuing documents, together with the credentials used
// to reach the tax portal on its behalf.
type Sender struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null" json:"name"`
	RUC            string    `gorm:"size:11;not null" json:"ruc"`
	PortalUser     string    `json:"portal_user"`
	PortalPassword string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Client is a stored buyer record.
type Client struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	DNI       string    `gorm:"size:8;index" json:"dni,omitempty"`
	RUC       string    `gorm:"size:11;index" json:"ruc,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c Client) CandidateID() uint     { return c.ID }
func (c Client) CandidateName() string { return c.Name }

// Info converts the record into the document's client block.
func (c Client) Info() ClientInfo {
	return ClientInfo{Name: c.Name, NationalID: c.DNI, TaxID: c.RUC}
}

// Product is a catalog entry, unique per sender, name, unit, price and tax flag.
type Product struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	SenderID   uint            `gorm:"not null;uniqueIndex:idx_products_natural_key" json:"sender_id"`
	Name       string          `gorm:"not null;uniqueIndex:idx_products_natural_key" json:"name"`
	Unit       Unit            `gorm:"type:varchar(16);not null;uniqueIndex:idx_products_natural_key" json:"unit"`
	Price      decimal.Decimal `gorm:"type:decimal(16,8);not null;uniqueIndex:idx_products_natural_key" json:"price"`
	TaxApplies bool            `gorm:"column:igv;not null;uniqueIndex:idx_products_natural_key" json:"igv"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (p Product) CandidateID() uint     { return p.ID }
func (p Product) CandidateName() string { return p.Name }

// Invoice status values.
const (
	StatusRecorded  = "recorded"
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
)

// Invoice is an issued document as persisted.
type Invoice struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	SenderID     uint            `gorm:"not null;index" json:"sender_id"`
	ClientID     uint            `gorm:"not null;index" json:"client_id"`
	Client       Client          `gorm:"foreignKey:ClientID" json:"client"`
	DocumentType DocumentType    `gorm:"type:varchar(10);not null" json:"document_type"`
	Series       string          `gorm:"not null" json:"series"`
	Number       string          `gorm:"not null" json:"number"`
	IssueDate    time.Time       `json:"issue_date"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	TaxTotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_total"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Status       string          `gorm:"type:varchar(16);not null" json:"status"`
	Details      []InvoiceDetail `gorm:"foreignKey:InvoiceID" json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// InvoiceDetail is one persisted line of an invoice.
type InvoiceDetail struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	InvoiceID uint            `gorm:"not null;index" json:"invoice_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(16,8);not null" json:"unit_price"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax_amount"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
}
