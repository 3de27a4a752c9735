// Package store persists senders, clients, products and issued documents in
// a local sqlite database through gorm.
package store

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"boleta/internal/logger"
	"boleta/pkg/models"
)

// ErrNotFound is returned when a lookup by id matches nothing.
var ErrNotFound = errors.New("record not found")

// Open connects to the sqlite database at dsn and migrates the schema.
// dsn is a file path or a sqlite URI such as "file:test?mode=memory&cache=shared".
func Open(dsn string) (*gorm.DB, error) {
	const op = "store.Open"
	log := logger.WithComponent("store")

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open %s: %w", op, dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get connection pool: %w", op, err)
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.Sender{},
		&models.Client{},
		&models.Product{},
		&models.Invoice{},
		&models.InvoiceDetail{},
	); err != nil {
		return nil, fmt.Errorf("%s: failed to migrate schema: %w", op, err)
	}

	log.Debug().Str("dsn", dsn).Msg("Database ready")
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
