package matcher

import (
	"fmt"

	"boleta/pkg/models"
)

// FormatProduct renders a product suggestion as "NAME | S/ 10.00 | KL | Sí".
func FormatProduct(p models.Product) string {
	igv := "No"
	if p.TaxApplies {
		igv = "Sí"
	}
	return fmt.Sprintf("%s | S/ %s | %s | %s", p.Name, p.Price.StringFixed(2), p.Unit.Abbreviation(), igv)
}

// FormatClient renders a client suggestion as "NAME | DNI: x | RUC: y".
func FormatClient(c models.Client) string {
	return fmt.Sprintf("%s | DNI: %s | RUC: %s", c.Name, orDash(c.DNI), orDash(c.RUC))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
