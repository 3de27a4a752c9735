package ocr

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"boleta/internal/logger"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of PDF pages for synchronous processing
	MaxPagesSync = 5
)

// receipts are printed in Spanish
var languageHints = []string{"es"}

// GoogleVisionOCRService implements OCRService with Google Cloud Vision.
type GoogleVisionOCRService struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionOCRService creates a Vision client with credentials from the environment.
func NewGoogleVisionOCRService(ctx context.Context) (*GoogleVisionOCRService, error) {
	const op = "NewGoogleVisionOCRService"

	var client *vision.ImageAnnotatorClient
	var err error

	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return NewGoogleVisionOCRServiceWithClient(client), nil
}

// NewGoogleVisionOCRServiceWithClient wraps an existing Vision client.
func NewGoogleVisionOCRServiceWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionOCRService {
	return &GoogleVisionOCRService{
		client: client,
		log:    logger.WithComponent("ocr"),
	}
}

// ProcessPDF runs document text detection over every page of a PDF receipt.
func (g *GoogleVisionOCRService) ProcessPDF(ctx context.Context, pdfData io.Reader) (*Result, error) {
	const op = "ProcessPDF"
	startTime := time.Now()

	pdfBytes, err := readLimited(op, pdfData)
	if err != nil {
		return nil, err
	}
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return nil, WrapOCRError(op, ErrInvalidPDF, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: languageHints},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, WrapOCRError(op, ErrOCRFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return nil, WrapOCRError(op, ErrTooManyPages, fmt.Sprintf("document has %d pages", len(fileResp.Responses)))
	}

	result, err := collect(fileResp.Responses)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	g.finish(result, startTime, "pdf")
	return result, nil
}

// ProcessImage runs document text detection over a receipt photo.
func (g *GoogleVisionOCRService) ProcessImage(ctx context.Context, imageData io.Reader) (*Result, error) {
	const op = "ProcessImage"
	startTime := time.Now()

	imageBytes, err := readLimited(op, imageData)
	if err != nil {
		return nil, err
	}
	if len(imageBytes) == 0 {
		return nil, WrapOCRError(op, ErrEmptyDocument, "empty image")
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageBytes},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
				ImageContext: &visionpb.ImageContext{LanguageHints: languageHints},
			},
		},
	}

	resp, err := g.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, WrapOCRError(op, ErrOCRFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}

	result, err := collect(resp.Responses)
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to process Vision API response")
	}
	g.finish(result, startTime, "image")
	return result, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionOCRService) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GoogleVisionOCRService) finish(result *Result, startTime time.Time, kind string) {
	result.ProcessedAt = time.Now()
	result.ProcessingDuration = result.ProcessedAt.Sub(startTime)

	g.log.Info().
		Str("kind", kind).
		Int("pages", result.PageCount).
		Int("text_length", len(result.Text)).
		Float32("confidence", result.Confidence).
		Dur("duration", result.ProcessingDuration).
		Msg("OCR completed")
}

func readLimited(op string, r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSizeBytes+1))
	if err != nil {
		return nil, WrapOCRError(op, err, "failed to read input")
	}
	if len(data) > MaxFileSizeBytes {
		return nil, WrapOCRError(op, ErrFileTooLarge, fmt.Sprintf("more than %d bytes", MaxFileSizeBytes))
	}
	return data, nil
}

// collect merges per page annotations into one Result.
func collect(pages []*visionpb.AnnotateImageResponse) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}

	var text strings.Builder
	var confidenceSum float32
	var confidenceCount int
	languages := make(map[string]bool)

	for i, page := range pages {
		if page.Error != nil {
			return nil, fmt.Errorf("error processing page %d: %s", i+1, page.Error.Message)
		}
		annotation := page.FullTextAnnotation
		if annotation == nil {
			continue
		}

		if i > 0 {
			fmt.Fprintf(&text, "\n\n--- Page %d ---\n\n", i+1)
		}
		text.WriteString(annotation.Text)

		for _, p := range annotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += p.Confidence
				confidenceCount++
			}
			if p.Property == nil {
				continue
			}
			for _, lang := range p.Property.DetectedLanguages {
				if lang.LanguageCode != "" {
					languages[lang.LanguageCode] = true
				}
			}
		}
	}

	if strings.TrimSpace(text.String()) == "" {
		return nil, ErrEmptyDocument
	}

	result := &Result{
		Text:      text.String(),
		PageCount: len(pages),
	}
	if confidenceCount > 0 {
		result.Confidence = confidenceSum / float32(confidenceCount)
	}
	for lang := range languages {
		result.LanguageCodes = append(result.LanguageCodes, lang)
	}
	sort.Strings(result.LanguageCodes)
	return result, nil
}
