package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"boleta/pkg/models"
)

type SenderRepository interface {
	Create(ctx context.Context, sender *models.Sender) error
	Get(ctx context.Context, id uint) (*models.Sender, error)
	List(ctx context.Context) ([]models.Sender, error)
	Delete(ctx context.Context, id uint) error
}

type senderRepository struct {
	db *gorm.DB
}

func NewSenderRepository(db *gorm.DB) SenderRepository {
	return &senderRepository{db: db}
}

func (r *senderRepository) Create(ctx context.Context, sender *models.Sender) error {
	return GetDB(ctx, r.db).Create(sender).Error
}

func (r *senderRepository) Get(ctx context.Context, id uint) (*models.Sender, error) {
	var sender models.Sender
	if err := GetDB(ctx, r.db).First(&sender, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("sender %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &sender, nil
}

func (r *senderRepository) List(ctx context.Context) ([]models.Sender, error) {
	var senders []models.Sender
	if err := GetDB(ctx, r.db).Order("id").Find(&senders).Error; err != nil {
		return nil, err
	}
	return senders, nil
}

func (r *senderRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Where("id = ?", id).Delete(&models.Sender{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sender %d: %w", id, ErrNotFound)
	}
	return nil
}
