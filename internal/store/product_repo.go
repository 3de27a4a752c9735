package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"boleta/pkg/models"
)

type ProductRepository interface {
	// FindOrCreate looks the product up by sender, name, unit, price and tax
	// flag and inserts it when absent. p is updated with the stored row.
	FindOrCreate(ctx context.Context, p *models.Product) (bool, error)
	Get(ctx context.Context, id uint) (*models.Product, error)
	ListBySender(ctx context.Context, senderID uint) ([]models.Product, error)
	Delete(ctx context.Context, id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindOrCreate(ctx context.Context, p *models.Product) (bool, error) {
	db := GetDB(ctx, r.db)
	p.Price = p.Price.Round(4)

	var existing models.Product
	err := db.Where("sender_id = ? AND name = ? AND unit = ? AND price = ? AND igv = ?",
		p.SenderID, p.Name, p.Unit, p.Price, p.TaxApplies).
		First(&existing).Error
	if err == nil {
		*p = existing
		return false, nil
	}
	if !notFound(err) {
		return false, err
	}

	p.ID = 0
	if err := db.Create(p).Error; err != nil {
		return false, fmt.Errorf("failed to insert product %q: %w", p.Name, err)
	}
	return true, nil
}

func (r *productRepository) Get(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) ListBySender(ctx context.Context, senderID uint) ([]models.Product, error) {
	var products []models.Product
	if err := GetDB(ctx, r.db).Where("sender_id = ?", senderID).Order("name, id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return nil
}
