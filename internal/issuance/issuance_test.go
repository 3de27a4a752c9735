package issuance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"boleta/internal/billing"
	"boleta/internal/sheets"
	"boleta/internal/store"
	"boleta/internal/submission"
	"boleta/pkg/models"
	"boleta/pkg/services"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeExtractor map[string]*models.Draft

func (f fakeExtractor) Extract(_ context.Context, path string) (*models.Draft, error) {
	draft, ok := f[path]
	if !ok {
		return nil, fmt.Errorf("cannot read %s", path)
	}
	return draft, nil
}

type fakeSubmitter struct {
	mu      sync.Mutex
	err     error
	release chan struct{}
	records []submission.Record
}

func (f *fakeSubmitter) Submit(ctx context.Context, record submission.Record) error {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

type fakeHistoryWriter struct {
	rows  []sheets.HistoryRow
	sheet string
}

func (f *fakeHistoryWriter) WriteHistory(_ context.Context, rows []sheets.HistoryRow, sheetName string) error {
	f.rows = rows
	f.sheet = sheetName
	return nil
}

func receiptDraft() *models.Draft {
	return &models.Draft{
		Client: models.DraftClient{Date: "05/03/2025", Name: "Juan Perez", DNI: "12345678"},
		Products: []models.DraftProduct{
			{Quantity: d("2"), Unit: "KG", Description: "ARROZ EXTRA SUPERIOR", BasePrice: d("4.5")},
			{Quantity: d("1"), Unit: "UNIDAD", Description: "ACEITE VEGETAL", BasePrice: d("10"), Tax: true},
		},
	}
}

func newTestService(t *testing.T, extractor fakeExtractor, submitter submission.Submitter) (*Service, *gorm.DB, *models.Sender) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close(db) })

	sender := &models.Sender{Name: "Bodega Don Lucho", RUC: "10456789012", PortalUser: "DLUCHO01", PortalPassword: "secreto"}
	if err := store.NewSenderRepository(db).Create(context.Background(), sender); err != nil {
		t.Fatalf("Create sender error = %v", err)
	}

	engine, err := billing.NewEngine(billing.DefaultTaxRate)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return NewService(engine, db, extractor, submitter), db, sender
}

func draftDocument(t *testing.T, svc *Service, senderID uint) *models.Document {
	t.Helper()
	result, err := svc.DraftFromFile(context.Background(), "boleta.jpg", senderID)
	if err != nil {
		t.Fatalf("DraftFromFile() error = %v", err)
	}
	return result.Document
}

func issue(t *testing.T, svc *Service, doc *models.Document) services.IssueOutcome {
	t.Helper()
	outcomes := make(chan services.IssueOutcome, 1)
	if _, err := svc.Issue(context.Background(), doc, func(o services.IssueOutcome) { outcomes <- o }); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	svc.Wait()
	return <-outcomes
}

func TestDraftFromFile(t *testing.T) {
	draft := receiptDraft()
	draft.Products[0].Description = "arros superor"
	draft.Products[1].Unit = "LITRO"

	svc, db, sender := newTestService(t, fakeExtractor{"boleta.jpg": draft}, &fakeSubmitter{})
	ctx := context.Background()

	catalog := &models.Product{SenderID: sender.ID, Name: "ARROZ EXTRA SUPERIOR", Unit: models.UnitKilogram, Price: d("4.5")}
	if _, err := store.NewProductRepository(db).FindOrCreate(ctx, catalog); err != nil {
		t.Fatalf("FindOrCreate() error = %v", err)
	}

	result, err := svc.DraftFromFile(ctx, "boleta.jpg", sender.ID)
	if err != nil {
		t.Fatalf("DraftFromFile() error = %v", err)
	}

	doc := result.Document
	if doc.SenderID != sender.ID || doc.Type != models.DocumentBoleta {
		t.Errorf("document sender %d type %s", doc.SenderID, doc.Type)
	}
	if !doc.Summary.GrandTotal.Equal(d("20.8")) {
		t.Errorf("grand total = %s, want 20.80", doc.Summary.GrandTotal)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "unidad_medida") {
		t.Errorf("warnings = %v", result.Warnings)
	}

	if len(result.Suggestions) != 2 {
		t.Fatalf("suggestions for %d lines, want 2", len(result.Suggestions))
	}
	first := result.Suggestions[0]
	if len(first) != 1 || first[0].Score != 73 || first[0].Label != "ARROZ EXTRA SUPERIOR | S/ 4.50 | KL | No" {
		t.Errorf("line 1 suggestions = %+v", first)
	}
	if len(result.Suggestions[1]) != 0 {
		t.Errorf("line 2 suggestions = %+v, want none", result.Suggestions[1])
	}
}

func TestDraftFromFileErrors(t *testing.T) {
	svc, _, _ := newTestService(t, fakeExtractor{}, &fakeSubmitter{})
	if _, err := svc.DraftFromFile(context.Background(), "missing.jpg", 1); err == nil {
		t.Error("DraftFromFile() should fail when extraction fails")
	}

	svc.extractor = nil
	if _, err := svc.DraftFromFile(context.Background(), "boleta.jpg", 1); !errors.Is(err, ErrNoExtractor) {
		t.Errorf("DraftFromFile() error = %v, want ErrNoExtractor", err)
	}
}

func TestIssueSubmitsToOutbox(t *testing.T) {
	outbox := t.TempDir()
	svc, db, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, submission.NewOutboxSubmitter(outbox))

	doc := draftDocument(t, svc, sender.ID)
	outcome := issue(t, svc, doc)

	if outcome.Err != nil {
		t.Fatalf("outcome error = %v", outcome.Err)
	}
	if outcome.TaskID == "" || outcome.Invoice == nil {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Invoice.Series != "B01-01" || outcome.Invoice.Status != models.StatusSubmitted {
		t.Errorf("invoice series %q status %q", outcome.Invoice.Series, outcome.Invoice.Status)
	}
	if doc.Summary.Series != "B01-01" || doc.ClientID == nil {
		t.Errorf("document not updated after issue: %+v", doc.Summary)
	}

	stored, err := store.NewInvoiceRepository(db).Get(context.Background(), outcome.Invoice.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != models.StatusSubmitted {
		t.Errorf("stored status = %q, want %q", stored.Status, models.StatusSubmitted)
	}

	data, err := os.ReadFile(filepath.Join(outbox, "B01-01.json"))
	if err != nil {
		t.Fatalf("outbox file: %v", err)
	}
	if !strings.Contains(string(data), "ARROZ EXTRA SUPERIOR") || strings.Contains(string(data), "secreto") {
		t.Errorf("unexpected outbox content: %s", data)
	}
}

func TestIssueMarksFailedSubmission(t *testing.T) {
	portalDown := errors.New("portal unavailable")
	svc, db, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, &fakeSubmitter{err: portalDown})

	outcome := issue(t, svc, draftDocument(t, svc, sender.ID))

	if !errors.Is(outcome.Err, portalDown) {
		t.Fatalf("outcome error = %v, want %v", outcome.Err, portalDown)
	}
	if outcome.Invoice == nil {
		t.Fatal("invoice should be recorded even when submission fails")
	}
	stored, err := store.NewInvoiceRepository(db).Get(context.Background(), outcome.Invoice.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != models.StatusFailed {
		t.Errorf("stored status = %q, want %q", stored.Status, models.StatusFailed)
	}
}

func TestIssueRetriesFailedSubmission(t *testing.T) {
	portalDown := errors.New("portal unavailable")
	sub := &fakeSubmitter{err: portalDown}
	svc, db, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, sub)
	ctx := context.Background()

	doc := draftDocument(t, svc, sender.ID)
	first := issue(t, svc, doc)
	if !errors.Is(first.Err, portalDown) || first.Invoice == nil {
		t.Fatalf("first outcome = %+v, want recorded invoice and %v", first, portalDown)
	}
	if doc.Summary.Series != "B01-01" {
		t.Fatalf("document series = %q, want B01-01", doc.Summary.Series)
	}

	sub.err = nil
	second := issue(t, svc, doc)
	if second.Err != nil {
		t.Fatalf("retry error = %v", second.Err)
	}
	if second.Invoice == nil || second.Invoice.ID != first.Invoice.ID {
		t.Fatalf("retry invoice = %+v, want invoice %d", second.Invoice, first.Invoice.ID)
	}
	if doc.Summary.Series != "B01-01" {
		t.Errorf("document series after retry = %q, want B01-01", doc.Summary.Series)
	}

	invoices, err := store.NewInvoiceRepository(db).ListBySender(ctx, sender.ID)
	if err != nil {
		t.Fatalf("ListBySender() error = %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("stored %d invoices, want 1", len(invoices))
	}
	if invoices[0].Series != "B01-01" || invoices[0].Status != models.StatusSubmitted {
		t.Errorf("stored invoice = %s/%s, want B01-01/%s", invoices[0].Series, invoices[0].Status, models.StatusSubmitted)
	}
	if len(sub.records) != 2 || sub.records[1].InvoiceID != first.Invoice.ID {
		t.Errorf("submitted records = %d, want 2 for invoice %d", len(sub.records), first.Invoice.ID)
	}

	third := issue(t, svc, doc)
	if !errors.Is(third.Err, ErrAlreadySubmitted) {
		t.Errorf("issuing a submitted document error = %v, want ErrAlreadySubmitted", third.Err)
	}
	if len(sub.records) != 2 {
		t.Errorf("submitted records = %d after a rejected retry, want 2", len(sub.records))
	}
}

func TestIssueRetryRejectsEditedDocument(t *testing.T) {
	sub := &fakeSubmitter{err: errors.New("portal unavailable")}
	svc, db, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, sub)
	ctx := context.Background()

	doc := draftDocument(t, svc, sender.ID)
	issue(t, svc, doc)

	if _, err := svc.engine.Apply(&doc.Products[0], billing.QuantityChanged{Quantity: d("7")}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	billing.Refresh(doc)

	sub.err = nil
	outcome := issue(t, svc, doc)
	if !errors.Is(outcome.Err, ErrDocumentChanged) {
		t.Fatalf("outcome error = %v, want ErrDocumentChanged", outcome.Err)
	}

	invoices, err := store.NewInvoiceRepository(db).ListBySender(ctx, sender.ID)
	if err != nil {
		t.Fatalf("ListBySender() error = %v", err)
	}
	if len(invoices) != 1 || invoices[0].Status != models.StatusFailed {
		t.Errorf("stored invoices = %+v, want one failed invoice", invoices)
	}
}

func TestIssueRejectsWhileBusy(t *testing.T) {
	sub := &fakeSubmitter{release: make(chan struct{})}
	svc, _, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, sub)
	ctx := context.Background()

	first := draftDocument(t, svc, sender.ID)
	second := draftDocument(t, svc, sender.ID)

	if _, err := svc.Issue(ctx, first, nil); err != nil {
		t.Fatalf("first Issue() error = %v", err)
	}
	if !svc.Busy() {
		t.Error("Busy() = false while an issue is in flight")
	}
	if _, err := svc.Issue(ctx, second, nil); !errors.Is(err, submission.ErrBusy) {
		t.Errorf("second Issue() error = %v, want ErrBusy", err)
	}

	close(sub.release)
	svc.Wait()

	if second.Summary.Series != "" {
		t.Errorf("rejected document was numbered %q", second.Summary.Series)
	}
	if len(sub.records) != 1 {
		t.Errorf("submitted %d records, want 1", len(sub.records))
	}
}

func TestIssueRejectsIncompleteDocument(t *testing.T) {
	svc, _, _ := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, &fakeSubmitter{})

	doc := draftDocument(t, svc, 0)
	if _, err := svc.Issue(context.Background(), doc, nil); !errors.Is(err, billing.ErrIncompleteDocument) {
		t.Errorf("Issue() error = %v, want ErrIncompleteDocument", err)
	}
	if svc.Busy() {
		t.Error("a rejected document must not start a task")
	}
}

func TestHistoryAndExport(t *testing.T) {
	svc, _, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, &fakeSubmitter{})

	for i := 0; i < 2; i++ {
		if outcome := issue(t, svc, draftDocument(t, svc, sender.ID)); outcome.Err != nil {
			t.Fatalf("issue %d error = %v", i+1, outcome.Err)
		}
	}

	entries, err := svc.History(context.Background(), sender.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History() returned %d entries, want 2", len(entries))
	}
	if entries[0].Invoice.Series != "B01-02" || entries[1].Invoice.Series != "B01-01" {
		t.Errorf("history order = %s, %s", entries[0].Invoice.Series, entries[1].Invoice.Series)
	}
	lines := entries[0].Lines
	if len(lines) != 2 || lines[1].ProductName != "ACEITE VEGETAL" || !lines[1].TaxApplies || !lines[1].Total.Equal(d("11.8")) {
		t.Errorf("history lines = %+v", lines)
	}

	w := &fakeHistoryWriter{}
	n, err := svc.ExportHistory(context.Background(), sender.ID, w, "Historial")
	if err != nil {
		t.Fatalf("ExportHistory() error = %v", err)
	}
	if n != 2 || w.sheet != "Historial" {
		t.Errorf("ExportHistory() wrote %d rows to %q", n, w.sheet)
	}
	if w.rows[0].Series != "B01-01" || w.rows[0].Products != "ARROZ EXTRA SUPERIOR, ACEITE VEGETAL" || w.rows[0].Total != 20.8 {
		t.Errorf("first exported row = %+v", w.rows[0])
	}
}

func TestSuggestions(t *testing.T) {
	svc, _, sender := newTestService(t, fakeExtractor{"boleta.jpg": receiptDraft()}, &fakeSubmitter{})
	ctx := context.Background()

	if outcome := issue(t, svc, draftDocument(t, svc, sender.ID)); outcome.Err != nil {
		t.Fatalf("issue error = %v", outcome.Err)
	}

	clients, err := svc.SuggestClients(ctx, "juan perez")
	if err != nil {
		t.Fatalf("SuggestClients() error = %v", err)
	}
	if len(clients) != 1 || clients[0].Score != 100 || clients[0].Label != "Juan Perez | DNI: 12345678 | RUC: -" {
		t.Errorf("SuggestClients() = %+v", clients)
	}

	products, err := svc.SuggestProducts(ctx, sender.ID, "aceite")
	if err != nil {
		t.Fatalf("SuggestProducts() error = %v", err)
	}
	if len(products) != 1 || products[0].Name != "ACEITE VEGETAL" || products[0].Score != 90 {
		t.Errorf("SuggestProducts() = %+v", products)
	}

	empty, err := svc.SuggestProducts(ctx, sender.ID, "")
	if err != nil || len(empty) != 0 {
		t.Errorf("SuggestProducts(\"\") = %+v, %v", empty, err)
	}
}
