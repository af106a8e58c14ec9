package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"textalert/pkg/models"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level      string // trace, debug, info, warn, error, fatal, panic
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, or custom format
	Output     string // stdout, stderr, or file path
}

// DefaultConfig returns a sensible default logging configuration. Inside the
// Lambda runtime the default format is json so CloudWatch can index fields.
func DefaultConfig() LogConfig {
	format := "console"
	if InLambda() {
		format = "json"
	}
	return LogConfig{
		Level:      "info",
		Format:     format,
		TimeFormat: time.RFC3339,
		Output:     "stdout",
	}
}

// InLambda reports whether the process runs under the AWS Lambda runtime.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

// Setup initializes the global logger with the provided configuration
func Setup(config LogConfig) error {
	// Set log level
	level, err := zerolog.ParseLevel(strings.ToLower(config.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer
	switch config.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		// Assume it's a file path
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		output = file
	}

	// Configure format; unknown formats fall back to console
	if strings.ToLower(config.Format) != "json" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: config.TimeFormat,
			NoColor:    InLambda(),
		}
	}

	// Set global logger
	log.Logger = zerolog.New(output).With().
		Timestamp().
		Caller().
		Logger()

	// Configure time format
	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	return nil
}

// GetLogger returns a logger instance
func GetLogger() zerolog.Logger {
	return log.Logger
}

// WithComponent returns a logger with a component field
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithInvocationID returns a logger scoped to one pipeline invocation
func WithInvocationID(component, invocationID string) zerolog.Logger {
	return log.Logger.With().
		Str("component", component).
		Str("invocation_id", invocationID).
		Logger()
}

// WithObject adds the object identity fields to l
func WithObject(l zerolog.Logger, ref models.ObjectReference) zerolog.Logger {
	return l.With().
		Str("bucket", ref.Bucket).
		Str("key", ref.Key).
		Str("version", ref.Version).
		Logger()
}
