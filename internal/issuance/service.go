// Package issuance ties extraction, the billing engine, the store and
// submission together into the issuing workflow.
package issuance

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"boleta/internal/billing"
	"boleta/internal/extraction"
	"boleta/internal/logger"
	"boleta/internal/matcher"
	"boleta/internal/store"
	"boleta/internal/submission"
	"boleta/pkg/models"
	"boleta/pkg/services"
)

var (
	// ErrNoExtractor is returned by DraftFromFile when the service was built
	// without an extractor.
	ErrNoExtractor = errors.New("no extractor configured")

	// ErrAlreadySubmitted is returned when a numbered document has already
	// gone through submission.
	ErrAlreadySubmitted = errors.New("document already submitted")

	// ErrDocumentChanged is returned when a numbered document no longer
	// matches the invoice recorded under its series.
	ErrDocumentChanged = errors.New("document differs from its recorded invoice")
)

// Service implements services.IssuanceService.
type Service struct {
	engine     *billing.Engine
	extractor  extraction.Extractor
	submitter  submission.Submitter
	supervisor *submission.Supervisor
	recorder   *store.Recorder
	senders    store.SenderRepository
	clients    store.ClientRepository
	products   store.ProductRepository
	invoices   store.InvoiceRepository
	matcher    matcher.Matcher
	log        zerolog.Logger
}

var _ services.IssuanceService = (*Service)(nil)

// NewService wires the workflow over db. extractor may be nil for callers
// that never extract.
func NewService(engine *billing.Engine, db *gorm.DB, extractor extraction.Extractor, submitter submission.Submitter) *Service {
	return &Service{
		engine:     engine,
		extractor:  extractor,
		submitter:  submitter,
		supervisor: submission.NewSupervisor(),
		recorder:   store.NewRecorder(db),
		senders:    store.NewSenderRepository(db),
		clients:    store.NewClientRepository(db),
		products:   store.NewProductRepository(db),
		invoices:   store.NewInvoiceRepository(db),
		matcher:    matcher.New(),
		log:        logger.WithComponent("issuance"),
	}
}

func (s *Service) DraftFromFile(ctx context.Context, path string, senderID uint) (*services.DraftResult, error) {
	const op = "DraftFromFile"

	if s.extractor == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoExtractor)
	}

	draft, err := s.extractor.Extract(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	doc, warnings := s.engine.NormalizeDraft(draft)
	doc.SenderID = senderID

	result := &services.DraftResult{Document: doc}
	for _, w := range warnings {
		result.Warnings = append(result.Warnings, w.String())
	}

	if senderID != 0 {
		catalog, err := s.products.ListBySender(ctx, senderID)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to load catalog: %w", op, err)
		}
		result.Suggestions = make([][]services.Suggestion, len(doc.Products))
		for i, line := range doc.Products {
			result.Suggestions[i] = productSuggestions(matcher.Rank(s.matcher, line.Description, catalog))
		}
	}

	s.log.Info().
		Str("file", path).
		Int("products", len(doc.Products)).
		Int("warnings", len(warnings)).
		Msg("Draft ready")
	return result, nil
}

// Issue checks doc synchronously and then records and submits it as the
// single supervised task. doc must not be touched until done has run; it is
// numbered only when recording succeeds.
//
// A document that already carries the series of a stored invoice whose
// submission did not go through is resubmitted under that invoice instead of
// being recorded again.
func (s *Service) Issue(ctx context.Context, doc *models.Document, done func(services.IssueOutcome)) (string, error) {
	const op = "Issue"

	if err := billing.Assemble(doc); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var invoice *models.Invoice
	taskID, err := s.supervisor.Start(ctx, "issue", func(ctx context.Context) error {
		inv, err := s.recordOrReuse(ctx, doc)
		if err != nil {
			return err
		}
		invoice = inv
		return s.submit(ctx, inv, doc)
	}, func(res submission.Result) {
		if done != nil {
			done(services.IssueOutcome{TaskID: res.Task.ID, Invoice: invoice, Err: res.Err, Duration: res.Duration})
		}
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return taskID, nil
}

func (s *Service) recordOrReuse(ctx context.Context, doc *models.Document) (*models.Invoice, error) {
	series := doc.Summary.Series
	if series == "" {
		return s.recorder.Record(ctx, doc)
	}

	inv, err := s.invoices.FindBySeries(ctx, doc.SenderID, series)
	if errors.Is(err, store.ErrNotFound) {
		return s.recorder.Record(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	if inv.Status == models.StatusSubmitted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadySubmitted, series)
	}
	if inv.DocumentType != doc.Type || !inv.Total.Equal(doc.Summary.GrandTotal) {
		return nil, fmt.Errorf("%w: %s recorded with total %s, document has %s",
			ErrDocumentChanged, series, inv.Total.StringFixed(2), doc.Summary.GrandTotal.StringFixed(2))
	}

	s.log.Info().
		Uint("invoice_id", inv.ID).
		Str("series", series).
		Str("status", inv.Status).
		Msg("Resubmitting recorded invoice")
	return inv, nil
}

func (s *Service) submit(ctx context.Context, inv *models.Invoice, doc *models.Document) error {
	sender, err := s.senders.Get(ctx, doc.SenderID)
	if err != nil {
		return err
	}

	record := submission.Record{InvoiceID: inv.ID, Sender: *sender, Document: *doc}
	status := models.StatusSubmitted
	submitErr := s.submitter.Submit(ctx, record)
	if submitErr != nil {
		status = models.StatusFailed
	}

	// the status is written even when ctx was cancelled
	if err := s.recorder.SetStatus(context.WithoutCancel(ctx), inv.ID, status); err != nil {
		s.log.Error().Err(err).Uint("invoice_id", inv.ID).Msg("Failed to update invoice status")
		if submitErr == nil {
			return err
		}
	}
	inv.Status = status
	return submitErr
}

// Busy reports whether an issue is in flight.
func (s *Service) Busy() bool {
	return s.supervisor.Busy()
}

// Wait blocks until the running issue and its callback have finished.
func (s *Service) Wait() {
	s.supervisor.Wait()
}

func (s *Service) History(ctx context.Context, senderID uint) ([]services.HistoryEntry, error) {
	const op = "History"

	invoices, err := s.invoices.ListBySender(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries := make([]services.HistoryEntry, 0, len(invoices))
	for _, inv := range invoices {
		details, err := s.invoices.Details(ctx, inv.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: invoice %d: %w", op, inv.ID, err)
		}
		entry := services.HistoryEntry{Invoice: inv, Lines: make([]services.HistoryLine, 0, len(details))}
		for _, d := range details {
			entry.Lines = append(entry.Lines, services.HistoryLine{
				ProductName: d.ProductName,
				Unit:        d.Unit,
				TaxApplies:  d.TaxApplies,
				Quantity:    d.Quantity,
				UnitPrice:   d.UnitPrice,
				TaxAmount:   d.TaxAmount,
				Total:       d.Subtotal,
			})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) SuggestProducts(ctx context.Context, senderID uint, query string) ([]services.Suggestion, error) {
	catalog, err := s.products.ListBySender(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("SuggestProducts: %w", err)
	}
	return productSuggestions(matcher.Rank(s.matcher, query, catalog)), nil
}

func (s *Service) SuggestClients(ctx context.Context, query string) ([]services.Suggestion, error) {
	clients, err := s.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("SuggestClients: %w", err)
	}
	results := matcher.Rank(s.matcher, query, clients)
	out := make([]services.Suggestion, 0, len(results))
	for _, r := range results {
		out = append(out, services.Suggestion{
			ID:    r.Candidate.ID,
			Name:  r.Candidate.Name,
			Score: r.Score,
			Label: matcher.FormatClient(r.Candidate),
		})
	}
	return out, nil
}

func productSuggestions(results []matcher.Result[models.Product]) []services.Suggestion {
	out := make([]services.Suggestion, 0, len(results))
	for _, r := range results {
		out = append(out, services.Suggestion{
			ID:    r.Candidate.ID,
			Name:  r.Candidate.Name,
			Score: r.Score,
			Label: matcher.FormatProduct(r.Candidate),
		})
	}
	return out
}
