// Package extraction turns receipt photos and PDFs into drafts: the loosely
// typed client and product data that billing.NormalizeDraft reconciles into
// a document.
//
// Two providers are available. The OpenAI extractor sends photos to a vision
// model and PDFs through Cloud Vision OCR first. The Document AI extractor
// uses an invoice or expense parser processor.
//
// Limits:
//   - Maximum file size: 20MB
//   - Supported formats: JPEG, PNG, WEBP, PDF
package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"boleta/pkg/models"
)

// MaxFileSizeBytes is the largest receipt accepted (20MB).
const MaxFileSizeBytes = 20 * 1024 * 1024

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// Extractor reads a receipt file into a draft.
type Extractor interface {
	Extract(ctx context.Context, path string) (*models.Draft, error)
}

// SupportedExtensions lists the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".webp", ".pdf"}
}

// Supported reports whether path has an accepted extension.
func Supported(path string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	return ok
}

// MimeType returns the MIME type for path's extension.
func MimeType(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := mimeTypes[ext]
	if !ok {
		return "", NewExtractionError("MimeType", ErrUnsupportedFormat, fmt.Sprintf("extension %q", ext))
	}
	return mime, nil
}

// ValidateFile checks that path exists, has a supported extension and is not
// larger than MaxFileSizeBytes.
func ValidateFile(path string) error {
	const op = "ValidateFile"

	if _, err := MimeType(path); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return WrapExtractionError(op, err, "cannot access file")
	}
	if info.IsDir() {
		return NewExtractionError(op, ErrUnsupportedFormat, "path is a directory")
	}
	if info.Size() == 0 {
		return NewExtractionError(op, ErrEmptyFile, "")
	}
	if info.Size() > MaxFileSizeBytes {
		return NewExtractionError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", info.Size()))
	}
	return nil
}

// readReceipt validates and loads a receipt file.
func readReceipt(path string) ([]byte, string, error) {
	if err := ValidateFile(path); err != nil {
		return nil, "", err
	}
	mime, _ := MimeType(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", WrapExtractionError("readReceipt", err, "failed to read file")
	}
	return data, mime, nil
}
