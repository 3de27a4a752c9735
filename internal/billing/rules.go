package billing

import (
	"fmt"
	"strings"
	"unicode"

	"boleta/pkg/models"
)

const (
	nationalIDLength = 8
	taxIDLength      = 11
)

// ValidateNationalID checks a DNI: exactly 8 digits.
func ValidateNationalID(dni string) error {
	if !allDigits(dni, nationalIDLength) {
		return NewValidationError("dni", dni, fmt.Sprintf("DNI must have %d digits", nationalIDLength))
	}
	return nil
}

// ValidateTaxID checks a RUC: exactly 11 digits.
func ValidateTaxID(ruc string) error {
	if !allDigits(ruc, taxIDLength) {
		return NewValidationError("ruc", ruc, fmt.Sprintf("RUC must have %d digits", taxIDLength))
	}
	return nil
}

// ValidateClient requires a name and at least one well-formed identifier.
func ValidateClient(c models.ClientInfo) error {
	if strings.TrimSpace(c.Name) == "" {
		return NewValidationError("client", c.Name, "client name is required")
	}
	if c.NationalID == "" && c.TaxID == "" {
		return NewValidationError("client", c.Name, "DNI or RUC is required")
	}
	if c.NationalID != "" {
		if err := ValidateNationalID(c.NationalID); err != nil {
			return err
		}
	}
	if c.TaxID != "" {
		if err := ValidateTaxID(c.TaxID); err != nil {
			return err
		}
	}
	return nil
}

// DefaultDocumentType picks FACTURA for clients with a RUC, BOLETA otherwise.
func DefaultDocumentType(c models.ClientInfo) models.DocumentType {
	if c.TaxID != "" {
		return models.DocumentFactura
	}
	return models.DocumentBoleta
}

// CheckDocumentType enforces that a FACTURA is only issued to a client with a RUC.
func CheckDocumentType(t models.DocumentType, c models.ClientInfo) error {
	if !t.Valid() {
		return NewValidationError("document_type", t, "must be BOLETA or FACTURA")
	}
	if t == models.DocumentFactura && c.TaxID == "" {
		return NewValidationError("document_type", t, "a FACTURA requires the client's RUC")
	}
	return nil
}

func allDigits(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
