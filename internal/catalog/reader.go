// Package catalog reads product and client catalogs kept in a spreadsheet
// and imports them into the store.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"boleta/internal/billing"
	"boleta/internal/logger"
	"boleta/pkg/models"
)

const (
	ProductsSheet = "Productos"
	ClientsSheet  = "Clientes"
)

// RangeReader reads a range in A1 notation. *sheets.Service implements it.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// Reader reads catalog worksheets.
type Reader struct {
	source RangeReader
	log    zerolog.Logger
}

// NewReader creates a catalog reader over source.
func NewReader(source RangeReader) *Reader {
	return &Reader{
		source: source,
		log:    logger.WithComponent("catalog-reader"),
	}
}

// ReadProducts reads the Productos sheet.
// Expected columns: A=Nombre, B=Unidad, C=Precio, D=IGV
func (r *Reader) ReadProducts(ctx context.Context) ([]models.Product, error) {
	const op = "ReadProducts"

	values, err := r.read(ctx, ProductsSheet+"!A:D")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var products []models.Product
	for i, row := range values {
		rowNum := i + 2
		p, err := parseProductRow(row, rowNum)
		if err != nil {
			r.log.Warn().Err(err).Int("row", rowNum).Msg("Skipping product row")
			continue
		}
		products = append(products, p)
	}

	r.log.Info().
		Int("total_rows", len(values)).
		Int("parsed_products", len(products)).
		Msg("Products read successfully")
	return products, nil
}

// ReadClients reads the Clientes sheet.
// Expected columns: A=Nombre, B=DNI, C=RUC
func (r *Reader) ReadClients(ctx context.Context) ([]models.ClientInfo, error) {
	const op = "ReadClients"

	values, err := r.read(ctx, ClientsSheet+"!A:C")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var clients []models.ClientInfo
	for i, row := range values {
		rowNum := i + 2
		c, err := parseClientRow(row, rowNum)
		if err != nil {
			r.log.Warn().Err(err).Int("row", rowNum).Msg("Skipping client row")
			continue
		}
		clients = append(clients, c)
	}

	r.log.Info().
		Int("total_rows", len(values)).
		Int("parsed_clients", len(clients)).
		Msg("Clients read successfully")
	return clients, nil
}

// read returns the data rows of rangeSpec, without the header row.
func (r *Reader) read(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	r.log.Info().Str("range", rangeSpec).Msg("Reading catalog sheet")

	values, err := r.source.ReadRange(ctx, rangeSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rangeSpec, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s is empty", rangeSpec)
	}
	return values[1:], nil
}

func parseProductRow(row []interface{}, rowNum int) (models.Product, error) {
	const op = "parseProductRow"

	name := getString(row, 0)
	if name == "" {
		return models.Product{}, fmt.Errorf("%s: missing name in row %d", op, rowNum)
	}

	unitStr := getString(row, 1)
	unit, ok := models.ParseUnit(unitStr)
	if !ok {
		return models.Product{}, fmt.Errorf("%s: unknown unit '%s' in row %d", op, unitStr, rowNum)
	}

	priceStr := getString(row, 2)
	price, err := billing.ParseAmount(priceStr)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: invalid price '%s' in row %d: %w", op, priceStr, rowNum, err)
	}
	if !price.IsPositive() {
		return models.Product{}, fmt.Errorf("%s: price must be positive in row %d", op, rowNum)
	}

	igvStr := getString(row, 3)
	taxed, err := parseFlag(igvStr)
	if err != nil {
		return models.Product{}, fmt.Errorf("%s: invalid IGV flag '%s' in row %d: %w", op, igvStr, rowNum, err)
	}

	return models.Product{
		Name:       strings.ToUpper(name),
		Unit:       unit,
		Price:      price,
		TaxApplies: taxed,
	}, nil
}

func parseClientRow(row []interface{}, rowNum int) (models.ClientInfo, error) {
	const op = "parseClientRow"

	info := models.ClientInfo{
		Name:       strings.ToUpper(getString(row, 0)),
		NationalID: getString(row, 1),
		TaxID:      getString(row, 2),
	}
	if err := billing.ValidateClient(info); err != nil {
		return models.ClientInfo{}, fmt.Errorf("%s: row %d: %w", op, rowNum, err)
	}
	return info, nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sí", "si", "s", "x", "1", "true", "yes":
		return true, nil
	case "no", "n", "0", "false", "":
		return false, nil
	}
	return false, fmt.Errorf("expected Sí or No")
}

// getString safely extracts a cell as text. Sheets returns unformatted
// numbers as float64, which would otherwise print in exponent form.
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	if f, ok := row[index].(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
