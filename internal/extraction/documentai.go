package extraction

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"boleta/internal/billing"
	"boleta/internal/config"
	"boleta/internal/logger"
	"boleta/pkg/models"
)

// DocumentAIConfig holds the Document AI processor coordinates.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

// DocumentAIExtractor reads receipts with a Document AI invoice or expense
// parser. Line items come from line_item entities and their properties.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates a processor client with credentials from
// GOOGLE_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS.
func NewDocumentAIExtractor(ctx context.Context, cfg *config.Config) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if err := cfg.RequireDocumentAI(); err != nil {
		return nil, NewExtractionError(op, ErrInvalidConfiguration, err.Error())
	}

	dc := DocumentAIConfig{
		ProjectID:        cfg.GoogleCloudProject,
		Location:         cfg.GoogleCloudLocation,
		ProcessorID:      cfg.DocumentAIProcessorID,
		ProcessorVersion: cfg.DocumentAIProcessorVersion,
		Timeout:          60 * time.Second,
	}
	if dc.Location == "" {
		dc.Location = "us"
	}

	var clientOptions []option.ClientOption
	if dc.Location != "us" {
		clientOptions = append(clientOptions, option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", dc.Location)))
	}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapExtractionError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapExtractionError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", dc.Location))
	}

	return NewDocumentAIExtractorWithClient(client, dc), nil
}

// NewDocumentAIExtractorWithClient wraps an existing processor client.
func NewDocumentAIExtractorWithClient(client *documentai.DocumentProcessorClient, cfg DocumentAIConfig) *DocumentAIExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &DocumentAIExtractor{
		client: client,
		config: cfg,
		log:    logger.WithComponent("extraction-documentai"),
	}
}

// Extract implements Extractor.
func (p *DocumentAIExtractor) Extract(ctx context.Context, path string) (*models.Draft, error) {
	const op = "Extract"

	data, mime, err := readReceipt(path)
	if err != nil {
		return nil, withSource(err, config.ProviderDocumentAI, path)
	}

	processCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.ProcessDocument(processCtx, &documentaipb.ProcessRequest{
		Name: p.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: mime,
			},
		},
	})
	if err != nil {
		return nil, withSource(p.handleProcessingError(op, err), config.ProviderDocumentAI, path)
	}
	if resp.Document == nil {
		return nil, withSource(NewExtractionError(op, ErrProcessingFailed, "no document in response"), config.ProviderDocumentAI, path)
	}

	draft, err := draftFromDocument(resp.Document, p.log)
	if err != nil {
		return nil, withSource(WrapExtractionError(op, err, "failed to map entities"), config.ProviderDocumentAI, path)
	}

	p.log.Info().
		Str("path", path).
		Str("draft", describe(draft)).
		Msg("Receipt extracted")
	return draft, nil
}

// Close closes the underlying Document AI client.
func (p *DocumentAIExtractor) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func (p *DocumentAIExtractor) processorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		p.config.ProjectID, p.config.Location, p.config.ProcessorID)
	if p.config.ProcessorVersion != "" {
		name += "/processorVersions/" + p.config.ProcessorVersion
	}
	return name
}

func (p *DocumentAIExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return NewExtractionError(op, ErrInvalidCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "RESOURCE_EXHAUSTED") || strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return NewExtractionError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return NewExtractionError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", p.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewExtractionError(op, ErrUnsupportedFormat, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return NewExtractionError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return NewExtractionError(op, ErrContextCanceled, "processing was canceled")
	default:
		return NewExtractionError(op, ErrProcessingFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// draftFromDocument maps parser entities to a draft. Invoice and expense
// parsers name their entities slightly differently, both are accepted.
func draftFromDocument(doc *documentaipb.Document, log zerolog.Logger) (*models.Draft, error) {
	draft := &models.Draft{}

	for _, entity := range doc.Entities {
		value := strings.TrimSpace(entity.MentionText)

		switch entity.Type {
		case "receiver_name", "customer_name", "buyer_name":
			draft.Client.Name = models.Text(strings.ToUpper(value))
		case "receiver_tax_id", "customer_tax_id":
			id := digits(value)
			switch len(id) {
			case 11:
				draft.Client.RUC = models.Text(id)
			case 8:
				draft.Client.DNI = models.Text(id)
			default:
				log.Warn().Str("value", value).Msg("Ignoring receiver tax id with unexpected length")
			}
		case "invoice_date", "receipt_date", "purchase_time":
			if date, ok := entityDate(entity); ok {
				draft.Client.Date = date.Format("02/01/2006")
			}
		case "total_amount":
			if amount, ok := entityMoney(entity); ok {
				draft.Total = amount
			}
		case "line_item":
			draft.Products = append(draft.Products, lineItem(entity))
		}
	}

	if len(draft.Products) == 0 {
		return nil, NewExtractionError("draftFromDocument", ErrInvalidResponse, "no line items found")
	}
	return draft, nil
}

func lineItem(entity *documentaipb.Document_Entity) models.DraftProduct {
	item := models.DraftProduct{
		Quantity: decimal.NewFromInt(1),
		Unit:     string(models.UnitUnit),
	}
	for _, prop := range entity.Properties {
		value := strings.TrimSpace(prop.MentionText)
		switch strings.TrimPrefix(prop.Type, "line_item/") {
		case "description":
			item.Description = strings.ToUpper(value)
		case "quantity":
			if q, err := billing.ParseAmount(value); err == nil && q.IsPositive() {
				item.Quantity = q
			}
		case "unit", "unit_of_measure":
			if u, ok := models.ParseUnit(value); ok {
				item.Unit = string(u)
			}
		case "unit_price":
			if amount, ok := entityMoney(prop); ok {
				item.BasePrice = amount
			}
		case "amount":
			if amount, ok := entityMoney(prop); ok {
				item.Total = amount
			}
		}
	}
	if item.Description == "" {
		item.Description = strings.ToUpper(strings.TrimSpace(entity.MentionText))
	}
	// the base price is derived from the printed line amount
	if !item.Total.IsZero() {
		item.BasePrice = decimal.Zero
	}
	return item
}

// entityMoney prefers the normalized money value over the mention text.
func entityMoney(entity *documentaipb.Document_Entity) (decimal.Decimal, bool) {
	if entity.NormalizedValue != nil {
		if money := entity.NormalizedValue.GetMoneyValue(); money != nil {
			return decimal.New(money.Units, 0).Add(decimal.New(int64(money.Nanos), -9)), true
		}
	}
	amount, err := billing.ParseAmount(entity.MentionText)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}

func entityDate(entity *documentaipb.Document_Entity) (time.Time, bool) {
	if entity.NormalizedValue != nil {
		if d := entity.NormalizedValue.GetDateValue(); d != nil && d.Year > 0 {
			return time.Date(int(d.Year), time.Month(d.Month), int(d.Day), 0, 0, 0, 0, time.UTC), true
		}
	}
	text := strings.TrimSpace(entity.MentionText)
	for _, layout := range []string{"02/01/2006", "2/1/2006", "02-01-2006", "2006-01-02", "02/01/06"} {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
