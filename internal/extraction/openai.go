package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"boleta/internal/config"
	"boleta/internal/logger"
	"boleta/internal/ocr"
	"boleta/pkg/models"
)

// OpenAIConfig configures the OpenAI extractor.
type OpenAIConfig struct {
	Model       string
	MaxRetries  int
	Temperature float32
	MaxTokens   int
}

// OpenAIExtractor reads receipts with an OpenAI chat model. Photos are sent
// inline as data URIs, PDFs are converted to text with OCR first.
type OpenAIExtractor struct {
	client *openai.Client
	ocr    ocr.OCRService
	config OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIExtractor builds an extractor from cfg. ocrService may be nil, in
// which case PDFs are rejected.
func NewOpenAIExtractor(cfg *config.Config, ocrService ocr.OCRService) (*OpenAIExtractor, error) {
	const op = "NewOpenAIExtractor"

	if err := cfg.RequireOpenAI(); err != nil {
		return nil, NewExtractionError(op, ErrInvalidConfiguration, err.Error())
	}

	return NewOpenAIExtractorWithClient(openai.NewClient(cfg.OpenAIAPIKey), ocrService, OpenAIConfig{
		Model:       cfg.OpenAIModel,
		MaxRetries:  cfg.OpenAIMaxRetries,
		Temperature: 0.1,
		MaxTokens:   2000,
	}), nil
}

// NewOpenAIExtractorWithClient builds an extractor around an existing client.
func NewOpenAIExtractorWithClient(client *openai.Client, ocrService ocr.OCRService, cfg OpenAIConfig) *OpenAIExtractor {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	return &OpenAIExtractor{
		client: client,
		ocr:    ocrService,
		config: cfg,
		log:    logger.WithComponent("extraction-openai"),
	}
}

// Extract implements Extractor.
func (e *OpenAIExtractor) Extract(ctx context.Context, path string) (*models.Draft, error) {
	const op = "Extract"

	data, mime, err := readReceipt(path)
	if err != nil {
		return nil, withSource(err, config.ProviderOpenAI, path)
	}

	var message openai.ChatCompletionMessage
	if mime == "application/pdf" {
		if e.ocr == nil {
			return nil, withSource(NewExtractionError(op, ErrInvalidConfiguration, "PDF receipts need the OCR service"), config.ProviderOpenAI, path)
		}
		result, err := e.ocr.ProcessPDF(ctx, bytes.NewReader(data))
		if err != nil {
			return nil, withSource(WrapExtractionError(op, err, "OCR failed"), config.ProviderOpenAI, path)
		}
		e.log.Debug().
			Str("path", path).
			Int("text_length", len(result.Text)).
			Float32("ocr_confidence", result.Confidence).
			Msg("PDF converted to text")
		message = openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: textPrompt(result.Text),
		}
	} else {
		message = imageMessage(mime, data)
	}

	draft, err := e.complete(ctx, message)
	if err != nil {
		return nil, withSource(WrapExtractionError(op, err, ""), config.ProviderOpenAI, path)
	}

	e.log.Info().
		Str("path", path).
		Str("draft", describe(draft)).
		Msg("Receipt extracted")
	return draft, nil
}

func imageMessage(mime string, data []byte) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: receiptPrompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURI(mime, data),
					Detail: openai.ImageURLDetailHigh,
				},
			},
		},
	}
}

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// complete asks the model for a draft, retrying on transport and parse errors.
func (e *OpenAIExtractor) complete(ctx context.Context, message openai.ChatCompletionMessage) (*models.Draft, error) {
	const op = "complete"

	var lastErr error
	for attempt := 1; attempt <= e.config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, NewExtractionError(op, ErrContextCanceled, "")
			}
			return nil, NewExtractionError(op, err, "")
		}

		resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       e.config.Model,
			Temperature: e.config.Temperature,
			MaxTokens:   e.config.MaxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: "Extraes datos de comprobantes de venta peruanos y respondes únicamente con JSON.",
				},
				message,
			},
		})
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_retries", e.config.MaxRetries).
				Msg("OpenAI request failed, retrying")
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no response choices from OpenAI")
			continue
		}

		content := resp.Choices[0].Message.Content
		e.log.Debug().Str("response", content).Msg("Received OpenAI response")

		draft, err := ParseDraft(content)
		if err != nil {
			lastErr = err
			e.log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Failed to parse OpenAI response, retrying")
			continue
		}
		return draft, nil
	}

	return nil, fmt.Errorf("%s: all %d attempts failed, last error: %w", op, e.config.MaxRetries, lastErr)
}
