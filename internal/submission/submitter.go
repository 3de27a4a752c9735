// Package submission hands issued documents over to the tax portal side and
// makes sure only one hand-over runs at a time.
package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"boleta/internal/logger"
	"boleta/pkg/models"
)

// Record is what gets submitted: the recorded invoice id, the issuing sender
// and the finalized document.
type Record struct {
	InvoiceID uint            `json:"invoice_id"`
	Sender    models.Sender   `json:"sender"`
	Document  models.Document `json:"document"`
}

// Submitter delivers a record to the portal side.
type Submitter interface {
	Submit(ctx context.Context, record Record) error
}

var totalTolerance = decimal.RequireFromString("0.001")

// Validate runs the checks the portal automation performs before filling the
// form.
func Validate(record Record) error {
	doc := record.Document
	if doc.SenderID == 0 || record.Sender.ID != doc.SenderID {
		return ErrMissingSender
	}
	if len(doc.Products) == 0 {
		return ErrNoProducts
	}
	if doc.Summary == nil || doc.Summary.Series == "" {
		return ErrMissingSeries
	}

	sum := decimal.Zero
	for _, line := range doc.Products {
		sum = sum.Add(line.LineTotal)
	}
	if doc.Summary.GrandTotal.Sub(sum).Abs().GreaterThan(totalTolerance) {
		return fmt.Errorf("%w: summary %s, lines %s", ErrTotalMismatch, doc.Summary.GrandTotal.StringFixed(2), sum.StringFixed(2))
	}
	return nil
}

// OutboxSubmitter writes each record as <series>.json into a directory the
// portal automation watches.
type OutboxSubmitter struct {
	dir string
	log zerolog.Logger
}

func NewOutboxSubmitter(dir string) *OutboxSubmitter {
	return &OutboxSubmitter{dir: dir, log: logger.WithComponent("outbox")}
}

type outboxEnvelope struct {
	Record
	QueuedAt time.Time `json:"queued_at"`
}

func (o *OutboxSubmitter) Submit(ctx context.Context, record Record) error {
	const op = "OutboxSubmitter.Submit"

	if err := Validate(record); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("%s: failed to create outbox: %w", op, err)
	}

	data, err := json.MarshalIndent(outboxEnvelope{Record: record, QueuedAt: time.Now()}, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: failed to encode record: %w", op, err)
	}

	path := filepath.Join(o.dir, record.Document.Summary.Series+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%s: failed to write %s: %w", op, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%s: failed to move record into outbox: %w", op, err)
	}

	o.log.Info().
		Str("series", record.Document.Summary.Series).
		Uint("invoice_id", record.InvoiceID).
		Str("path", path).
		Msg("Record queued for submission")
	return nil
}

// DryRunSubmitter validates and logs records without delivering them.
type DryRunSubmitter struct {
	log zerolog.Logger
}

func NewDryRunSubmitter() *DryRunSubmitter {
	return &DryRunSubmitter{log: logger.WithComponent("dry-run")}
}

func (d *DryRunSubmitter) Submit(ctx context.Context, record Record) error {
	if err := Validate(record); err != nil {
		return fmt.Errorf("DryRunSubmitter.Submit: %w", err)
	}
	d.log.Info().
		Str("series", record.Document.Summary.Series).
		Uint("sender_id", record.Sender.ID).
		Int("products", len(record.Document.Products)).
		Str("total", record.Document.Summary.GrandTotal.StringFixed(2)).
		Msg("Dry run, record not submitted")
	return nil
}
