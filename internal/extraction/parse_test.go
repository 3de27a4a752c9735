package extraction

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

const sampleAnswer = `{
  "cliente": {"fecha": "05/03/2025", "cliente": "JUAN PEREZ", "dni": 12345678, "ruc": ""},
  "productos": [
    {"cantidad": 2, "unidad_medida": "KILOGRAMO", "descripcion": "ARROZ EXTRA", "precio_base": 4.5, "igv": 0, "precio_total": 9},
    {"cantidad": "1", "unidad_medida": "UNIDAD", "descripcion": "ACEITE", "precio_base": 0, "igv": "Sí", "precio_total": 11.8}
  ],
  "total": 20.8
}`

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "plain", content: sampleAnswer},
		{name: "json fence", content: "```json\n" + sampleAnswer + "\n```"},
		{name: "bare fence", content: "```\n" + sampleAnswer + "\n```"},
		{name: "surrounding prose", content: "Aquí está el resultado:\n" + sampleAnswer + "\nSaludos."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := ParseDraft(tt.content)
			if err != nil {
				t.Fatalf("ParseDraft() error = %v", err)
			}
			if draft.Client.Name != "JUAN PEREZ" || draft.Client.DNI != "12345678" {
				t.Errorf("client = %+v", draft.Client)
			}
			if len(draft.Products) != 2 {
				t.Fatalf("products = %d, want 2", len(draft.Products))
			}
			if !draft.Products[1].Quantity.Equal(decimal.NewFromInt(1)) || !bool(draft.Products[1].Tax) {
				t.Errorf("products[1] = %+v", draft.Products[1])
			}
			if !draft.Total.Equal(decimal.RequireFromString("20.8")) {
				t.Errorf("total = %s", draft.Total)
			}
		})
	}
}

func TestParseDraftRejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "no json", content: "no puedo leer la imagen"},
		{name: "broken json", content: `{"cliente": {"cliente": "X"}, "productos": [`},
		{name: "no products", content: `{"cliente": {"cliente": "X"}, "productos": [], "total": 0}`},
		{name: "bad flag", content: `{"productos": [{"cantidad": 1, "igv": "quizás"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDraft(tt.content)
			if !errors.Is(err, ErrInvalidResponse) {
				t.Errorf("ParseDraft() error = %v, want ErrInvalidResponse", err)
			}
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	if got := stripCodeFence("```json\n{}\n```"); got != "{}" {
		t.Errorf("stripCodeFence() = %q", got)
	}
	if got := stripCodeFence("  {}  "); got != "{}" {
		t.Errorf("stripCodeFence() = %q", got)
	}
}
