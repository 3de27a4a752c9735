package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Draft is the structured result of reading a receipt image or PDF. Field
// names follow the JSON the extraction prompt asks for.
type Draft struct {
	Client   DraftClient     `json:"cliente"`
	Products []DraftProduct  `json:"productos"`
	Total    decimal.Decimal `json:"total"`
}

// DraftClient is the buyer block of a draft.
type DraftClient struct {
	Date string `json:"fecha"`
	Name Text   `json:"cliente"`
	DNI  Text   `json:"dni"`
	RUC  Text   `json:"ruc"`
}

// DraftProduct is one extracted line. BasePrice may be zero when the source
// document only shows a total per item.
type DraftProduct struct {
	Quantity    decimal.Decimal `json:"cantidad"`
	Unit        string          `json:"unidad_medida"`
	Description string          `json:"descripcion"`
	BasePrice   decimal.Decimal `json:"precio_base"`
	Tax         Flag            `json:"igv"`
	Total       decimal.Decimal `json:"precio_total"`
}

// Text is a string that also accepts JSON numbers and null, since extraction
// models often emit identifiers as numbers.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*t = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("text field: unsupported value %s", raw)
	}
	*t = Text(n.String())
	return nil
}

func (t Text) String() string { return string(t) }

// Flag is a boolean that also accepts 0/1 and yes/no words in Spanish or English.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := strings.ToLower(strings.Trim(strings.TrimSpace(string(data)), `"`))
	switch raw {
	case "true", "1", "si", "sí", "yes", "y", "s":
		*f = true
	case "false", "0", "no", "n", "null", "":
		*f = false
	default:
		return fmt.Errorf("flag field: unsupported value %s", string(data))
	}
	return nil
}
