package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"boleta/internal/billing"
	"boleta/internal/config"
	"boleta/internal/extraction"
	"boleta/internal/issuance"
	"boleta/internal/ocr"
	"boleta/internal/store"
	"boleta/internal/submission"
	"boleta/pkg/models"
)

// app holds what a command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	engine  *billing.Engine
	service *issuance.Service
	closers []func() error
	log     zerolog.Logger
}

// newApp loads the configuration and opens the store. The extractor is only
// created when withExtractor is set, so commands that never read receipts
// do not need provider credentials.
func newApp(ctx context.Context, withExtractor bool, log zerolog.Logger) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	engine, err := billing.NewEngine(cfg.TaxRate)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.DatabasePath, err)
	}

	a := &app{cfg: cfg, db: db, engine: engine, log: log}
	a.closers = append(a.closers, func() error { return store.Close(db) })

	var extractor extraction.Extractor
	if withExtractor {
		extractor, err = a.createExtractor(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.service = issuance.NewService(engine, db, extractor, createSubmitter(cfg))
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("Failed to release resource")
		}
	}
}

func (a *app) createExtractor(ctx context.Context) (extraction.Extractor, error) {
	switch a.cfg.ExtractionProvider {
	case config.ProviderDocumentAI:
		extractor, err := extraction.NewDocumentAIExtractor(ctx, a.cfg)
		if err != nil {
			return nil, handleExtractionError(err, a.log)
		}
		a.closers = append(a.closers, extractor.Close)
		return extractor, nil
	default:
		var ocrService ocr.OCRService
		if hasGoogleCredentials() {
			vision, err := ocr.NewGoogleVisionOCRService(ctx)
			if err != nil {
				a.log.Warn().Err(err).Msg("Vision OCR unavailable, PDF receipts will be rejected")
			} else {
				a.closers = append(a.closers, vision.Close)
				ocrService = vision
			}
		}
		extractor, err := extraction.NewOpenAIExtractor(a.cfg, ocrService)
		if err != nil {
			return nil, handleExtractionError(err, a.log)
		}
		return extractor, nil
	}
}

func createSubmitter(cfg *config.Config) submission.Submitter {
	if cfg.SubmitMode == config.SubmitDryRun {
		return submission.NewDryRunSubmitter()
	}
	return submission.NewOutboxSubmitter(cfg.OutboxDir)
}

func hasGoogleCredentials() bool {
	return os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""
}

// commandContext creates a context bounded by the --timeout flag that is
// also canceled on SIGINT and SIGTERM.
func commandContext(cmd *cobra.Command, log zerolog.Logger) (context.Context, context.CancelFunc) {
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if timeoutSecs <= 0 {
		timeoutSecs = 300
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func senderFlag(cmd *cobra.Command) (uint, error) {
	id, _ := cmd.Flags().GetUint("sender")
	if id == 0 {
		return 0, fmt.Errorf("--sender is required (see 'boleta sender list')")
	}
	return id, nil
}

// writeJSON writes v indented to outputPath, or to stdout when it is empty.
func writeJSON(v interface{}, outputPath string, log zerolog.Logger) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create JSON output: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		log.Error().Err(err).Str("output_file", outputPath).Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Int("bytes", len(data)).Msg("Output written")
	return nil
}

// readDocument loads a document saved by extract or recalc. A draft result
// wrapper is accepted too.
func readDocument(path string) (*models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var wrapped struct {
		Document *models.Document `json:"document"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Document != nil {
		return wrapped.Document, nil
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid document file %s: %w", path, err)
	}
	return &doc, nil
}

// handleExtractionError provides user-friendly messages for extraction failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Extraction failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("extraction timed out. Try increasing --timeout")
	case errors.Is(err, context.Canceled), errors.Is(err, extraction.ErrContextCanceled):
		return fmt.Errorf("extraction was canceled")
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file. Supported formats: %s", strings.Join(extraction.SupportedExtensions(), ", "))
	case errors.Is(err, extraction.ErrFileTooLarge):
		return fmt.Errorf("receipt is too large (maximum 20MB). Try a smaller photo")
	case errors.Is(err, extraction.ErrEmptyFile):
		return fmt.Errorf("receipt file is empty")
	case errors.Is(err, extraction.ErrInvalidConfiguration):
		return fmt.Errorf("extraction is not configured. Check your .env file:\n"+
			"  EXTRACTION_PROVIDER - openai or documentai\n"+
			"  OPENAI_API_KEY - for the openai provider\n"+
			"  GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID - for the documentai provider\n"+
			"Original error: %w", err)
	case errors.Is(err, extraction.ErrMissingCredentials), errors.Is(err, extraction.ErrInvalidCredentials):
		return fmt.Errorf("Google Cloud credentials missing or invalid. Set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS: %w", err)
	case errors.Is(err, extraction.ErrProcessorNotFound):
		return fmt.Errorf("Document AI processor not found. Please check DOCUMENT_AI_PROCESSOR_ID")
	case errors.Is(err, extraction.ErrQuotaExceeded), strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("extraction API quota exceeded. Try again later")
	case errors.Is(err, extraction.ErrInvalidResponse):
		return fmt.Errorf("the receipt could not be read. Try a sharper photo: %w", err)
	default:
		return fmt.Errorf("extraction failed: %w", err)
	}
}

// handleIssueError provides user-friendly messages for documents that cannot
// be issued
func handleIssueError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Issue failed")

	var docErr *billing.DocumentError
	var valErr *billing.ValidationError

	switch {
	case errors.As(err, &docErr):
		return fmt.Errorf("the document is not complete yet, missing: %s", strings.Join(docErr.Missing, ", "))
	case errors.As(err, &valErr):
		return fmt.Errorf("the document is invalid: %s", valErr.Error())
	case errors.Is(err, submission.ErrBusy):
		return fmt.Errorf("another document is being submitted, wait for it to finish")
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("sender not found, register it with 'boleta sender add': %w", err)
	case errors.Is(err, issuance.ErrAlreadySubmitted):
		return fmt.Errorf("this document was already submitted: %w", err)
	case errors.Is(err, issuance.ErrDocumentChanged):
		return fmt.Errorf("the document was edited after it was recorded, clear its series to issue it as a new one: %w", err)
	case errors.Is(err, submission.ErrTotalMismatch):
		return fmt.Errorf("totals do not add up, run 'boleta recalc' on the document: %w", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("issuing timed out. Try increasing --timeout")
	default:
		return fmt.Errorf("issue failed: %w", err)
	}
}
