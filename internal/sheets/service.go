// Package sheets reads catalog worksheets from and writes the issuance
// history to a Google Sheets spreadsheet.
package sheets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"boleta/internal/logger"
	"boleta/pkg/models"
)

var historyHeaders = []interface{}{
	"Serie", "Número", "Tipo", "Fecha", "Cliente", "DNI", "RUC",
	"Subtotal", "IGV", "Total", "Estado", "Productos", "Registrado",
}

var spreadsheetIDPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9-_]+)`)

// Service handles Google Sheets operations
type Service struct {
	sheetsService *sheets.Service
	spreadsheetID string
	log           zerolog.Logger
}

// HistoryRow is one issued document as written to the history worksheet.
type HistoryRow struct {
	Series       string
	Number       string
	DocumentType string
	IssueDate    string
	Client       string
	DNI          string
	RUC          string
	Subtotal     float64
	TaxTotal     float64
	Total        float64
	Status       string
	Products     string
	RecordedAt   string
}

// NewSheetsService creates a Sheets client for the spreadsheet at sheetURL,
// using the service account in GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.
func NewSheetsService(ctx context.Context, sheetURL string) (*Service, error) {
	const op = "NewSheetsService"

	log := logger.WithComponent("sheets")

	spreadsheetID, err := extractSpreadsheetID(sheetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to extract spreadsheet ID: %w", op, err)
	}

	log.Debug().Str("spreadsheet_id", spreadsheetID).Msg("Extracted spreadsheet ID")

	var creds []byte
	if credsFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credsFile != "" {
		creds, err = os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read credentials file: %w", op, err)
		}
	} else if credsJSON := os.Getenv("GOOGLE_CREDENTIALS"); credsJSON != "" {
		creds = []byte(credsJSON)
	} else {
		return nil, fmt.Errorf("%s: neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set", op)
	}

	config, err := google.JWTConfigFromJSON(creds, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	sheetsService, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create sheets service: %w", op, err)
	}

	return &Service{
		sheetsService: sheetsService,
		spreadsheetID: spreadsheetID,
		log:           log,
	}, nil
}

func extractSpreadsheetID(url string) (string, error) {
	matches := spreadsheetIDPattern.FindStringSubmatch(url)
	if len(matches) < 2 {
		return "", fmt.Errorf("invalid Google Sheets URL format")
	}
	return matches[1], nil
}

// NewHistoryRow flattens a stored invoice. products are the line
// descriptions in document order.
func NewHistoryRow(inv models.Invoice, products []string) HistoryRow {
	row := HistoryRow{
		Series:       inv.Series,
		Number:       inv.Number,
		DocumentType: string(inv.DocumentType),
		Client:       inv.Client.Name,
		DNI:          inv.Client.DNI,
		RUC:          inv.Client.RUC,
		Subtotal:     inv.Subtotal.InexactFloat64(),
		TaxTotal:     inv.TaxTotal.InexactFloat64(),
		Total:        inv.Total.InexactFloat64(),
		Status:       inv.Status,
		Products:     strings.Join(products, ", "),
	}
	if !inv.IssueDate.IsZero() {
		row.IssueDate = inv.IssueDate.Format("02/01/2006")
	}
	if !inv.CreatedAt.IsZero() {
		row.RecordedAt = inv.CreatedAt.Format("02/01/2006 15:04:05")
	}
	return row
}

// WriteHistory appends rows to sheetName, creating the worksheet and its
// header row when missing.
func (s *Service) WriteHistory(ctx context.Context, rows []HistoryRow, sheetName string) error {
	const op = "WriteHistory"

	s.log.Info().
		Str("sheet", sheetName).
		Int("rows", len(rows)).
		Msg("Writing history to Google Sheet")

	if err := s.ensureSheetWithHeaders(ctx, sheetName); err != nil {
		return fmt.Errorf("%s: failed to ensure sheet exists: %w", op, err)
	}
	if len(rows) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		values = append(values, rowToValues(row))
	}

	_, err := s.sheetsService.Spreadsheets.Values.Append(
		s.spreadsheetID,
		fmt.Sprintf("%s!A:%s", sheetName, columnLetter(len(historyHeaders))),
		&sheets.ValueRange{Values: values},
	).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to append values to sheet: %w", op, err)
	}

	s.log.Info().
		Int("rows_written", len(values)).
		Time("at", time.Now()).
		Msg("History written to Google Sheet")
	return nil
}

func rowToValues(row HistoryRow) []interface{} {
	return []interface{}{
		row.Series,
		row.Number,
		row.DocumentType,
		row.IssueDate,
		row.Client,
		row.DNI,
		row.RUC,
		row.Subtotal,
		row.TaxTotal,
		row.Total,
		row.Status,
		row.Products,
		row.RecordedAt,
	}
}

// columnLetter converts a 1-based column count to its A1 letter (1 -> A, 27 -> AA).
func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func (s *Service) ensureSheetWithHeaders(ctx context.Context, sheetName string) error {
	const op = "ensureSheetWithHeaders"

	spreadsheet, err := s.sheetsService.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get spreadsheet: %w", op, err)
	}

	var sheetExists bool
	var sheetID int64
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title == sheetName {
			sheetExists = true
			sheetID = sheet.Properties.SheetId
			break
		}
	}

	if !sheetExists {
		s.log.Info().Str("sheet", sheetName).Msg("Creating new sheet")

		resp, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: sheetName}}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("%s: failed to create sheet: %w", op, err)
		}
		sheetID = resp.Replies[0].AddSheet.Properties.SheetId
	}

	headerRange := fmt.Sprintf("%s!A1:%s1", sheetName, columnLetter(len(historyHeaders)))
	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to get headers: %w", op, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	s.log.Info().Str("sheet", sheetName).Msg("Adding headers to sheet")

	_, err = s.sheetsService.Spreadsheets.Values.Update(
		s.spreadsheetID,
		headerRange,
		&sheets.ValueRange{Values: [][]interface{}{historyHeaders}},
	).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to add headers: %w", op, err)
	}

	if err := s.formatHeaders(ctx, sheetID); err != nil {
		s.log.Warn().Err(err).Msg("Failed to format headers, continuing anyway")
	}
	return nil
}

// formatHeaders makes the header row bold and resizes the columns.
func (s *Service) formatHeaders(ctx context.Context, sheetID int64) error {
	const op = "formatHeaders"
	columns := int64(len(historyHeaders))

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   columns,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:      &sheets.TextFormat{Bold: true},
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
					},
				},
				Fields: "userEnteredFormat(textFormat,backgroundColor)",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   columns,
				},
			},
		},
	}

	_, err := s.sheetsService.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%s: failed to format headers: %w", op, err)
	}
	return nil
}

// ReadRange reads values from a range in A1 notation, e.g. "Productos!A:D".
func (s *Service) ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error) {
	const op = "ReadRange"

	s.log.Debug().
		Str("range", rangeSpec).
		Msg("Reading range from spreadsheet")

	resp, err := s.sheetsService.Spreadsheets.Values.Get(s.spreadsheetID, rangeSpec).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read range %s: %w", op, rangeSpec, err)
	}

	s.log.Debug().
		Int("rows", len(resp.Values)).
		Str("range", rangeSpec).
		Msg("Successfully read range from spreadsheet")

	return resp.Values, nil
}
