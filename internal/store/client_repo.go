package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"boleta/internal/logger"
	"boleta/pkg/models"
)

type ClientRepository interface {
	// FindOrCreate returns the first stored client whose name, DNI or RUC
	// equals the given one, inserting a new client when none does. The
	// boolean reports whether a row was inserted.
	FindOrCreate(ctx context.Context, info models.ClientInfo) (*models.Client, bool, error)
	Get(ctx context.Context, id uint) (*models.Client, error)
	List(ctx context.Context) ([]models.Client, error)
}

type clientRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db, log: logger.WithComponent("store")}
}

func (r *clientRepository) FindOrCreate(ctx context.Context, info models.ClientInfo) (*models.Client, bool, error) {
	db := GetDB(ctx, r.db)

	var conds []string
	var args []interface{}
	for _, c := range []struct{ column, value string }{
		{"name", info.Name},
		{"dni", info.NationalID},
		{"ruc", info.TaxID},
	} {
		if c.value != "" {
			conds = append(conds, c.column+" = ?")
			args = append(args, c.value)
		}
	}
	if len(conds) == 0 {
		return nil, false, errors.New("client has no name or identifier")
	}

	query := db.Where(conds[0], args[0])
	for i := 1; i < len(conds); i++ {
		query = query.Or(conds[i], args[i])
	}

	var existing models.Client
	err := query.Order("id").First(&existing).Error
	if err == nil {
		if mismatch(existing.DNI, info.NationalID) || mismatch(existing.RUC, info.TaxID) || mismatch(existing.Name, info.Name) {
			r.log.Warn().
				Uint("client_id", existing.ID).
				Str("stored_name", existing.Name).
				Str("stored_dni", existing.DNI).
				Str("stored_ruc", existing.RUC).
				Str("name", info.Name).
				Str("dni", info.NationalID).
				Str("ruc", info.TaxID).
				Msg("Reusing client matched on a single field, other fields differ")
		}
		return &existing, false, nil
	}
	if !notFound(err) {
		return nil, false, err
	}

	client := models.Client{Name: info.Name, DNI: info.NationalID, RUC: info.TaxID}
	if err := db.Create(&client).Error; err != nil {
		return nil, false, fmt.Errorf("failed to insert client: %w", err)
	}
	return &client, true, nil
}

func (r *clientRepository) Get(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	if err := GetDB(ctx, r.db).First(&client, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("client %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	if err := GetDB(ctx, r.db).Order("name, id").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}

// mismatch reports two non-empty values that differ.
func mismatch(stored, given string) bool {
	return stored != "" && given != "" && stored != given
}
