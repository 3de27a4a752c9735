package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"boleta/internal/billing"
	"boleta/internal/logger"
	"boleta/pkg/models"
)

// Recorder writes an assembled document to the store in one transaction:
// the client is deduplicated, every line's product is reused or inserted,
// the next running number is assigned and the invoice is inserted with its
// details.
type Recorder struct {
	tx       TransactionManager
	senders  SenderRepository
	clients  ClientRepository
	products ProductRepository
	invoices InvoiceRepository
	log      zerolog.Logger
}

func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{
		tx:       NewTransactionManager(db),
		senders:  NewSenderRepository(db),
		clients:  NewClientRepository(db),
		products: NewProductRepository(db),
		invoices: NewInvoiceRepository(db),
		log:      logger.WithComponent("recorder"),
	}
}

// Record persists doc and returns the stored invoice. On success doc gets its
// client id, product ids, series and number; on failure it is left as it was.
func (r *Recorder) Record(ctx context.Context, doc *models.Document) (*models.Invoice, error) {
	const op = "Record"

	if err := billing.Assemble(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	work := cloneDocument(doc)
	if work.IssueDate.IsZero() {
		work.IssueDate = time.Now()
	}

	var invoice *models.Invoice
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := r.senders.Get(txCtx, work.SenderID); err != nil {
			return err
		}

		client, created, err := r.clients.FindOrCreate(txCtx, *work.Client)
		if err != nil {
			return err
		}
		clientID := client.ID
		work.ClientID = &clientID

		details := make([]models.InvoiceDetail, 0, len(work.Products))
		for i := range work.Products {
			line := &work.Products[i]
			product := models.Product{
				SenderID:   work.SenderID,
				Name:       line.Description,
				Unit:       line.Unit,
				Price:      line.UnitPrice,
				TaxApplies: line.TaxApplies,
			}
			if _, err := r.products.FindOrCreate(txCtx, &product); err != nil {
				return err
			}
			productID := product.ID
			line.ProductID = &productID

			details = append(details, models.InvoiceDetail{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				TaxAmount: line.LineTaxAmount,
				Subtotal:  line.LineTotal,
			})
		}

		n, err := r.invoices.NextNumber(txCtx, work.SenderID)
		if err != nil {
			return err
		}
		billing.Number(work, n)

		invoice = &models.Invoice{
			SenderID:     work.SenderID,
			ClientID:     clientID,
			DocumentType: work.Type,
			Series:       work.Summary.Series,
			Number:       work.Summary.Number,
			IssueDate:    work.IssueDate,
			Subtotal:     work.Summary.Subtotal,
			TaxTotal:     work.Summary.TaxTotal,
			Total:        work.Summary.GrandTotal,
			Status:       models.StatusRecorded,
			Details:      details,
		}
		if err := r.invoices.Create(txCtx, invoice); err != nil {
			return err
		}
		invoice.Client = *client

		r.log.Info().
			Uint("invoice_id", invoice.ID).
			Uint("sender_id", work.SenderID).
			Uint("client_id", clientID).
			Bool("new_client", created).
			Str("series", invoice.Series).
			Str("total", invoice.Total.StringFixed(2)).
			Msg("Document recorded")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	*doc = *work
	return invoice, nil
}

// SetStatus records the outcome of submitting an invoice.
func (r *Recorder) SetStatus(ctx context.Context, invoiceID uint, status string) error {
	return r.invoices.UpdateStatus(ctx, invoiceID, status)
}

func cloneDocument(doc *models.Document) *models.Document {
	out := *doc
	out.Products = append([]models.LineItem(nil), doc.Products...)
	if doc.Client != nil {
		c := *doc.Client
		out.Client = &c
	}
	if doc.Summary != nil {
		s := *doc.Summary
		out.Summary = &s
	}
	if doc.ClientID != nil {
		id := *doc.ClientID
		out.ClientID = &id
	}
	return &out
}
