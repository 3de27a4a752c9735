package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error, fatal, panic
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, or custom format
	Output     string // stdout, stderr, or file path
	NoColor    bool
}

// DefaultConfig returns the configuration used when no .env is present.
func DefaultConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "console",
		TimeFormat: time.RFC3339,
		Output:     "stderr",
	}
}

// Setup initializes the global logger with the provided configuration
func Setup(config LogConfig) error {
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	output, err := openOutput(config.Output)
	if err != nil {
		return err
	}

	// Console is also the fallback for unknown formats
	if strings.ToLower(config.Format) != "json" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
			NoColor:    config.NoColor,
		}
	}

	log.Logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Logger()

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return nil
}

// openOutput resolves stdout, stderr or a file path. Command output (JSON
// drafts, tables) goes to stdout, so stderr is the usual choice.
func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	default:
		return os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
}

// GetLogger returns a logger instance
func GetLogger() zerolog.Logger {
	return log.Logger
}

// WithContext returns a logger with context
func WithContext(ctx context.Context) *zerolog.Logger {
	return log.Ctx(ctx)
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithTask returns a component logger tagged with a background task id.
func WithTask(component, taskID string) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Str("task_id", taskID).
		Logger()
}

// WithSender returns a component logger tagged with the issuing sender.
func WithSender(component string, senderID uint) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Uint("sender_id", senderID).
		Logger()
}

// Disable silences the global logger. Tests and --quiet use it.
func Disable() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}
