package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is returned for files over the 20MB synchronous limit.
	ErrFileTooLarge = errors.New("file exceeds the maximum size (20MB)")

	// ErrInvalidPDF is returned when the data does not start with a PDF header.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrUnsupportedFormat is returned for files that are neither PDF nor a
	// supported image type.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	ErrOCRFailed = errors.New("OCR processing failed")

	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS")

	// ErrTooManyPages is returned for PDFs over 5 pages.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrEmptyDocument is returned when no text was recognized.
	ErrEmptyDocument = errors.New("document contains no readable text")
)

// OCRError adds the failing operation and details to an OCR failure.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps err unless it already is an *OCRError.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
