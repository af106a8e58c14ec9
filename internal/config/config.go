package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"textalert/internal/logger"
	"textalert/internal/notify"
	"textalert/internal/vision"
)

// Config is read once per execution context (cold start) and shared read-only
// across warm invocations.
type Config struct {
	// AWS Configuration
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSSessionToken    string
	AWSRegion          string

	// Vision Configuration
	VisionProvider        string
	GoogleCredentials     string
	GoogleCredentialsFile string
	TextLabel             string
	MinLabelConfidence    float64
	MaxLabels             int64

	// Gmail OAuth Configuration
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailAccessToken  string
	GmailUserID       string

	// Notification Configuration
	MailSender        string
	MailRecipient     string
	MailSubjectPrefix string

	// Pipeline Configuration
	Workers     int
	CallTimeout time.Duration

	// Optional: Google Sheets outcome log
	OutcomeSheetURL  string
	OutcomeSheetName string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the full configuration used by the pipeline.
func Load() (*Config, error) {
	config, err := load()
	if err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// LoadVision reads the configuration but only validates the vision settings,
// for commands that never send mail.
func LoadVision() (*Config, error) {
	config, err := load()
	if err != nil {
		return nil, err
	}

	if err := config.validateVision(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func load() (*Config, error) {
	defaults := logger.DefaultConfig()

	config := &Config{
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSSessionToken:       getEnv("AWS_SESSION_TOKEN", ""),
		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		VisionProvider:        strings.ToLower(strings.TrimSpace(getEnv("VISION_PROVIDER", vision.ProviderRekognition))),
		GoogleCredentials:     getEnv("GOOGLE_CREDENTIALS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		TextLabel:             getEnv("TEXT_LABEL", "Text"),
		GmailClientID:         getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret:     getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken:     getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailAccessToken:      getEnv("GMAIL_ACCESS_TOKEN", ""),
		GmailUserID:           getEnv("GMAIL_USER_ID", notify.DefaultUserID),
		MailSender:            getEnv("MAIL_SENDER", ""),
		MailRecipient:         getEnv("MAIL_RECIPIENT", ""),
		MailSubjectPrefix:     getEnv("MAIL_SUBJECT_PREFIX", notify.DefaultSubjectPrefix),
		OutcomeSheetURL:       getEnv("OUTCOME_SHEET_URL", ""),
		OutcomeSheetName:      getEnv("OUTCOME_SHEET_NAME", "Outcomes"),
		LogLevel:              getEnv("LOG_LEVEL", defaults.Level),
		LogFormat:             getEnv("LOG_FORMAT", defaults.Format),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", defaults.TimeFormat),
		LogOutput:             getEnv("LOG_OUTPUT", defaults.Output),
	}

	var err error
	if config.Workers, err = getEnvInt("PIPELINE_WORKERS", 1); err != nil {
		return nil, err
	}
	if config.MaxLabels, err = getEnvInt64("MAX_LABELS", 0); err != nil {
		return nil, err
	}
	if config.MinLabelConfidence, err = getEnvFloat("MIN_LABEL_CONFIDENCE", 0); err != nil {
		return nil, err
	}
	if config.CallTimeout, err = getEnvDuration("CALL_TIMEOUT", 0); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if err := c.validateVision(); err != nil {
		return err
	}
	return c.validateMail()
}

func (c *Config) validateMail() error {
	if c.GmailClientID == "" {
		return fmt.Errorf("GMAIL_CLIENT_ID is required")
	}
	if c.GmailClientSecret == "" {
		return fmt.Errorf("GMAIL_CLIENT_SECRET is required")
	}
	if c.GmailRefreshToken == "" && c.GmailAccessToken == "" {
		return fmt.Errorf("GMAIL_REFRESH_TOKEN or GMAIL_ACCESS_TOKEN is required")
	}
	if c.MailSender == "" {
		return fmt.Errorf("MAIL_SENDER is required")
	}
	if c.MailRecipient == "" {
		return fmt.Errorf("MAIL_RECIPIENT is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be at least 1, got %d", c.Workers)
	}
	return nil
}

func (c *Config) validateVision() error {
	if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	switch c.VisionProvider {
	case vision.ProviderRekognition, vision.ProviderGoogle:
	default:
		return fmt.Errorf("VISION_PROVIDER must be %q or %q, got %q", vision.ProviderRekognition, vision.ProviderGoogle, c.VisionProvider)
	}
	if c.MaxLabels < 0 || c.MaxLabels > math.MaxInt32 {
		return fmt.Errorf("MAX_LABELS must be between 0 and %d, got %d", math.MaxInt32, c.MaxLabels)
	}
	if c.MinLabelConfidence < 0 || c.MinLabelConfidence > 100 {
		return fmt.Errorf("MIN_LABEL_CONFIDENCE must be between 0 and 100, got %g", c.MinLabelConfidence)
	}
	if c.CallTimeout < 0 {
		return fmt.Errorf("CALL_TIMEOUT must not be negative")
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

// GetVisionConfig returns the vision backend configuration
func (c *Config) GetVisionConfig() vision.Config {
	return vision.Config{
		Provider:              c.VisionProvider,
		Region:                c.AWSRegion,
		AccessKeyID:           c.AWSAccessKeyID,
		SecretAccessKey:       c.AWSSecretAccessKey,
		SessionToken:          c.AWSSessionToken,
		GoogleCredentialsJSON: c.GoogleCredentials,
		GoogleCredentialsFile: c.GoogleCredentialsFile,
		MaxLabels:             c.MaxLabels,
		MinConfidence:         c.MinLabelConfidence,
	}
}

// GetGmailConfig returns the OAuth configuration of the mailer
func (c *Config) GetGmailConfig() notify.GmailConfig {
	return notify.GmailConfig{
		ClientID:     c.GmailClientID,
		ClientSecret: c.GmailClientSecret,
		RefreshToken: c.GmailRefreshToken,
		AccessToken:  c.GmailAccessToken,
		UserID:       c.GmailUserID,
	}
}

// GetNotifyOptions returns the fixed message fields
func (c *Config) GetNotifyOptions() notify.Options {
	return notify.Options{
		Sender:        c.MailSender,
		Recipient:     c.MailRecipient,
		SubjectPrefix: c.MailSubjectPrefix,
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
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration (e.g. 10s): %w", key, err)
	}
	return d, nil
}
