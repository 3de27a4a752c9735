package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"boleta/internal/logger"
	"boleta/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [receipt-file]",
	Short: "Extract the raw text of a receipt with Google Cloud Vision",
	Long: `Read a receipt photo or PDF with Google Cloud Vision document text
detection and print the recognized text.

Useful to check what the extraction step sees on a receipt. PDFs are limited
to 5 pages and files to 20MB.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string`,
	Example: `  # Print the text of a receipt photo
  boleta ocr boleta.jpg

  # Include metadata and output as JSON
  boleta ocr factura.pdf --json -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput is the JSON output of the ocr command
type OCROutput struct {
	Text               string    `json:"text"`
	PageCount          int       `json:"page_count,omitempty"`
	Confidence         float32   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in text output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	path := args[0]

	fileInfo, err := validateReceiptFile(path, log)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd, log)
	defer cancel()

	ocrService, err := createOCRService(ctx, log)
	if err != nil {
		return err
	}
	defer ocrService.Close()

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open receipt: %w", err)
	}
	defer file.Close()

	result, err := ocr.ProcessFile(ctx, ocrService, path, file)
	if err != nil {
		return handleOCRError(err, log)
	}

	log.Info().
		Int("page_count", result.PageCount).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("OCR processing completed successfully")

	if jsonOutput {
		return writeJSON(OCROutput{
			Text:               result.Text,
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
			PageCount:          result.PageCount,
			Confidence:         result.Confidence,
			LanguageCodes:      result.LanguageCodes,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
		}, outputPath, log)
	}

	var output strings.Builder
	if includeMetadata {
		fmt.Fprintf(&output, "=== OCR Results for %s ===\n", filepath.Base(fileInfo.Name()))
		fmt.Fprintf(&output, "File size: %d bytes\n", fileInfo.Size())
		if result.PageCount > 0 {
			fmt.Fprintf(&output, "Pages processed: %d\n", result.PageCount)
		}
		if result.Confidence > 0 {
			fmt.Fprintf(&output, "Confidence: %.1f%%\n", result.Confidence*100)
		}
		if len(result.LanguageCodes) > 0 {
			fmt.Fprintf(&output, "Languages: %s\n", strings.Join(result.LanguageCodes, ", "))
		}
		fmt.Fprintf(&output, "Processing time: %v\n", result.ProcessingDuration)
		output.WriteString("\n=== Extracted Text ===\n\n")
	}
	output.WriteString(result.Text)
	output.WriteString("\n")

	if outputPath == "" {
		_, err = os.Stdout.WriteString(output.String())
		return err
	}
	if err := os.WriteFile(outputPath, []byte(output.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().Str("output_file", outputPath).Msg("OCR results written to file")
	return nil
}

// validateReceiptFile checks that path is a readable, non-empty receipt of a
// supported kind
func validateReceiptFile(path string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("receipt not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied accessing receipt: %s", path)
		}
		return nil, fmt.Errorf("error accessing receipt: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("path is not a regular file: %s", path)
	}
	if ocr.KindOf(path) == ocr.KindUnknown {
		return nil, fmt.Errorf("unsupported file %s, use a JPG, PNG, WEBP or PDF", filepath.Base(path))
	}
	if fileInfo.Size() == 0 {
		return nil, fmt.Errorf("receipt is empty: %s", path)
	}
	if fileInfo.Size() > ocr.MaxFileSizeBytes {
		log.Error().
			Str("file", path).
			Int64("size", fileInfo.Size()).
			Msg("Receipt exceeds maximum size limit")
		return nil, fmt.Errorf("receipt too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxFileSizeBytes)
	}
	return fileInfo, nil
}

func createOCRService(ctx context.Context, log zerolog.Logger) (*ocr.GoogleVisionOCRService, error) {
	if !hasGoogleCredentials() {
		log.Warn().Msg("No Google Cloud credentials in environment, trying application default credentials")
	}

	ocrService, err := ocr.NewGoogleVisionOCRService(ctx)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n"+
				"1. GOOGLE_APPLICATION_CREDENTIALS with the path to a service account JSON file\n"+
				"2. GOOGLE_CREDENTIALS with the inline JSON\n"+
				"3. Application default credentials (gcloud auth application-default login)\n\n"+
				"Original error: %w", err)
		}
		return nil, fmt.Errorf("failed to create OCR service: %w", err)
	}
	return ocrService, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR processing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("OCR processing was canceled")
	case errors.Is(err, ocr.ErrFileTooLarge):
		return fmt.Errorf("receipt is too large (maximum 20MB)")
	case errors.Is(err, ocr.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages (maximum 5 pages). Try splitting it")
	case errors.Is(err, ocr.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, ocr.ErrEmptyDocument):
		return fmt.Errorf("no readable text found on the receipt. Try a sharper photo")
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported file, use a JPG, PNG, WEBP or PDF")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Check GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS and that the service account has the 'Cloud Vision API User' role: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your Google Cloud service account has the 'Cloud Vision API User' role")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("Google Cloud Vision API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, ocr.ErrOCRFailed):
		return fmt.Errorf("OCR processing failed. This may be due to network issues or service unavailability: %w", err)
	default:
		return fmt.Errorf("OCR processing failed: %w", err)
	}
}
