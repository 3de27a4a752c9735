package extraction

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedFormat is returned for files other than JPEG, PNG, WEBP or PDF.
	ErrUnsupportedFormat = errors.New("unsupported receipt format")

	// ErrFileTooLarge is returned for files over 20MB.
	ErrFileTooLarge = errors.New("receipt exceeds maximum size limit")

	ErrEmptyFile = errors.New("receipt file is empty")

	// ErrInvalidResponse is returned when the provider answer cannot be read
	// as a draft.
	ErrInvalidResponse = errors.New("extraction response is not a valid draft")

	ErrProcessingFailed = errors.New("extraction failed")

	ErrInvalidCredentials = errors.New("invalid Google Cloud credentials")

	ErrMissingCredentials = errors.New("missing Google Cloud credentials")

	ErrInvalidConfiguration = errors.New("invalid extraction configuration")

	ErrProcessorNotFound = errors.New("Document AI processor not found")

	ErrQuotaExceeded = errors.New("extraction API quota exceeded")

	ErrContextCanceled = errors.New("extraction was canceled")
)

// ExtractionError wraps extraction failures with the operation, provider and
// file involved.
type ExtractionError struct {
	Op       string
	Err      error
	Details  string
	Provider string
	Path     string
}

func (e *ExtractionError) Error() string {
	msg := fmt.Sprintf("extraction: %s failed", e.Op)
	if e.Provider != "" {
		msg += fmt.Sprintf(" (provider: %s)", e.Provider)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" for %s", e.Path)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func NewExtractionError(op string, err error, details string) *ExtractionError {
	return &ExtractionError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapExtractionError wraps err unless it already is an *ExtractionError.
func WrapExtractionError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		return err
	}

	return NewExtractionError(op, err, details)
}

// withSource fills provider and path on an *ExtractionError in err's chain.
func withSource(err error, provider, path string) error {
	var extractionErr *ExtractionError
	if errors.As(err, &extractionErr) {
		if extractionErr.Provider == "" {
			extractionErr.Provider = provider
		}
		if extractionErr.Path == "" {
			extractionErr.Path = path
		}
	}
	return err
}
