package issuance

import (
	"context"
	"fmt"

	"boleta/internal/sheets"
)

// HistoryWriter appends history rows to a worksheet. *sheets.Service
// implements it.
type HistoryWriter interface {
	WriteHistory(ctx context.Context, rows []sheets.HistoryRow, sheetName string) error
}

// ExportHistory writes the sender's history to sheetName, oldest first, and
// returns the number of rows written.
func (s *Service) ExportHistory(ctx context.Context, senderID uint, w HistoryWriter, sheetName string) (int, error) {
	const op = "ExportHistory"

	entries, err := s.History(ctx, senderID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	rows := make([]sheets.HistoryRow, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		names := make([]string, 0, len(e.Lines))
		for _, l := range e.Lines {
			names = append(names, l.ProductName)
		}
		rows = append(rows, sheets.NewHistoryRow(e.Invoice, names))
	}

	if err := w.WriteHistory(ctx, rows, sheetName); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return len(rows), nil
}
