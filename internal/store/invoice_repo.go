package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"boleta/pkg/models"
)

// DetailLine is an invoice detail joined with its product.
type DetailLine struct {
	models.InvoiceDetail
	ProductName string      `json:"product_name"`
	Unit        models.Unit `json:"unit"`
	TaxApplies  bool        `json:"igv"`
}

type InvoiceRepository interface {
	// NextNumber returns the running number the sender's next document gets.
	NextNumber(ctx context.Context, senderID uint) (int, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	Get(ctx context.Context, id uint) (*models.Invoice, error)
	FindBySeries(ctx context.Context, senderID uint, series string) (*models.Invoice, error)
	ListBySender(ctx context.Context, senderID uint) ([]models.Invoice, error)
	Details(ctx context.Context, invoiceID uint) ([]DetailLine, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) NextNumber(ctx context.Context, senderID uint) (int, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&models.Invoice{}).Where("sender_id = ?", senderID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}

// Create inserts the invoice and its details. The Client association is
// never written, ClientID must point at an existing row.
func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	return GetDB(ctx, r.db).Omit("Client").Create(invoice).Error
}

func (r *invoiceRepository) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := GetDB(ctx, r.db).Preload("Client").Preload("Details").First(&invoice, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("invoice %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindBySeries(ctx context.Context, senderID uint, series string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := GetDB(ctx, r.db).Preload("Client").
		Where("sender_id = ? AND series = ?", senderID, series).
		First(&invoice).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("invoice %s: %w", series, ErrNotFound)
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) ListBySender(ctx context.Context, senderID uint) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := GetDB(ctx, r.db).Preload("Client").
		Where("sender_id = ?", senderID).
		Order("id desc").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) Details(ctx context.Context, invoiceID uint) ([]DetailLine, error) {
	var lines []DetailLine
	err := GetDB(ctx, r.db).
		Table("invoice_details").
		Select("invoice_details.*, products.name AS product_name, products.unit AS unit, products.igv AS tax_applies").
		Joins("LEFT JOIN products ON products.id = invoice_details.product_id").
		Where("invoice_details.invoice_id = ?", invoiceID).
		Order("invoice_details.id").
		Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := GetDB(ctx, r.db).Model(&models.Invoice{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("invoice %d: %w", id, ErrNotFound)
	}
	return nil
}
