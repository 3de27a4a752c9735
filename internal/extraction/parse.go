package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"boleta/pkg/models"
)

// ParseDraft reads a model answer into a draft. Markdown code fences and any
// prose around the outermost JSON object are ignored.
func ParseDraft(content string) (*models.Draft, error) {
	const op = "ParseDraft"

	body := stripCodeFence(content)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return nil, NewExtractionError(op, ErrInvalidResponse, "no JSON object in response")
	}

	var draft models.Draft
	if err := json.Unmarshal([]byte(body[start:end+1]), &draft); err != nil {
		return nil, NewExtractionError(op, ErrInvalidResponse, err.Error())
	}
	if len(draft.Products) == 0 {
		return nil, NewExtractionError(op, ErrInvalidResponse, "no products in response")
	}
	return &draft, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasPrefix(strings.TrimSpace(lines[n-1]), "```") {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// describe summarizes a draft for logs.
func describe(d *models.Draft) string {
	return fmt.Sprintf("%d products, client %q, total %s", len(d.Products), d.Client.Name, d.Total.StringFixed(2))
}
