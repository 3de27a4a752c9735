package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"boleta/internal/logger"
)

// Extraction providers.
const (
	ProviderOpenAI     = "openai"
	ProviderDocumentAI = "documentai"
)

// Submission modes.
const (
	SubmitOutbox = "outbox"
	SubmitDryRun = "dry-run"
)

type Config struct {
	// Local store
	DatabasePath string

	// Billing
	TaxRate decimal.Decimal

	// Extraction
	ExtractionProvider string
	OpenAIAPIKey       string
	OpenAIModel        string
	OpenAIMaxRetries   int

	// Google Cloud Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string

	// Submission
	SubmitMode string
	OutboxDir  string

	BatchWorkers int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	const op = "config.Load"

	taxRate, err := decimal.NewFromString(getEnv("IGV_RATE", "0.18"))
	if err != nil {
		return nil, fmt.Errorf("%s: IGV_RATE: %w", op, err)
	}
	retries, err := getEnvInt("OPENAI_MAX_RETRIES", 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	workers, err := getEnvInt("BATCH_WORKERS", 4)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	config := &Config{
		DatabasePath:               getEnv("DATABASE_PATH", "boleta.db"),
		TaxRate:                    taxRate,
		ExtractionProvider:         strings.ToLower(getEnv("EXTRACTION_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:               getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:                getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxRetries:           retries,
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		GoogleSheetURL:             getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:       getEnv("GOOGLE_SHEET_WORKSHEET", "Historial"),
		SubmitMode:                 strings.ToLower(getEnv("SUBMIT_MODE", SubmitOutbox)),
		OutboxDir:                  getEnv("OUTBOX_DIR", "outbox"),
		BatchWorkers:               workers,
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("IGV_RATE must be in [0, 1), got %s", c.TaxRate)
	}
	switch c.ExtractionProvider {
	case ProviderOpenAI, ProviderDocumentAI:
	default:
		return fmt.Errorf("EXTRACTION_PROVIDER must be %q or %q, got %q", ProviderOpenAI, ProviderDocumentAI, c.ExtractionProvider)
	}
	switch c.SubmitMode {
	case SubmitOutbox, SubmitDryRun:
	default:
		return fmt.Errorf("SUBMIT_MODE must be %q or %q, got %q", SubmitOutbox, SubmitDryRun, c.SubmitMode)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive, got %d", c.BatchWorkers)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// RequireOpenAI checks the settings the OpenAI extractor needs.
func (c *Config) RequireOpenAI() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	return nil
}

// RequireDocumentAI checks the settings the Document AI extractor needs.
func (c *Config) RequireDocumentAI() error {
	if c.GoogleCloudProject == "" {
		return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required")
	}
	if c.DocumentAIProcessorID == "" {
		return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required")
	}
	return nil
}

// RequireSheets checks the settings the Google Sheets commands need.
func (c *Config) RequireSheets() error {
	if c.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
