// Package ocr reads the text printed on receipt photos and PDF receipts with
// Google Cloud Vision document text detection.
//
// Credentials come from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path), falling back to the
// application default credentials.
//
// Synchronous requests are limited to 20MB and, for PDFs, 5 pages.
package ocr

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// OCRService extracts text from receipt files.
type OCRService interface {
	// ProcessPDF extracts the text of every page of a PDF.
	ProcessPDF(ctx context.Context, pdfData io.Reader) (*Result, error)

	// ProcessImage extracts the text of a JPEG, PNG or WEBP photo.
	ProcessImage(ctx context.Context, imageData io.Reader) (*Result, error)
}

// Result is the recognized text of one file.
type Result struct {
	// Text holds the pages in reading order, separated by page markers.
	Text string `json:"text"`

	PageCount int `json:"page_count"`

	// Confidence is the average page confidence (0.0 to 1.0).
	Confidence float32 `json:"confidence"`

	LanguageCodes []string `json:"language_codes,omitempty"`

	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Kind is the file family a receipt belongs to.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindPDF
)

// KindOf classifies a file by its extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".jpg", ".jpeg", ".png", ".webp":
		return KindImage
	default:
		return KindUnknown
	}
}

// ProcessFile dispatches data to the PDF or image path according to the
// extension of path.
func ProcessFile(ctx context.Context, svc OCRService, path string, data io.Reader) (*Result, error) {
	switch KindOf(path) {
	case KindPDF:
		return svc.ProcessPDF(ctx, data)
	case KindImage:
		return svc.ProcessImage(ctx, data)
	default:
		return nil, NewOCRError("ProcessFile", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
