// Package config provides centralized configuration management for the
// note service. It loads configuration from CLI flags and environment
// variables, validates required fields, and provides sensible defaults.
//
// CLI flags control which services are mocked (--no-ai, --no-s3,
// --no-email, --test). Environment variables provide secrets and
// service configuration.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/impetus-notes/note-service/internal/ratelimit"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	ListenAddr string

	// Database and encryption
	MasterKey string // 64 hex characters (32 bytes)
	DataDir   string // Directory for the encrypted database file

	// Rate limiting
	RateLimitConfig ratelimit.Config

	// Mock service flags (controlled by CLI flags, not env vars)
	NoAI    bool // If true, use the basic local strategy (--no-ai)
	NoS3    bool // If true, skip source PDF archival (--no-s3)
	NoEmail bool // If true, use mock email service (--no-email)

	// OpenAI generation
	OpenAIAPIKey          string
	OpenAIModel           string
	OpenAITemperature     float64
	OpenAIMaxOutputTokens int64
	OpenAITimeout         time.Duration

	// PDF uploads
	PDFMaxBytes int64

	// Event delivery
	WebhookURL  string
	NotifyEmail string

	// Resend Email
	ResendAPIKey    string
	ResendFromEmail string

	// S3-compatible storage for source documents
	AWSEndpointS3      string // AWS_ENDPOINT_URL_S3
	AWSRegion          string // AWS_REGION
	AWSAccessKeyID     string // AWS_ACCESS_KEY_ID
	AWSSecretAccessKey string // AWS_SECRET_ACCESS_KEY
	AWSBucketName      string // BUCKET_NAME
}

// ValidationError represents a configuration validation error with
// multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Flags holds the CLI flag values consumed by LoadConfig.
type Flags struct {
	NoAI    bool
	NoS3    bool
	NoEmail bool
	Addr    string
}

// ParseFlags parses CLI flags and returns them. Call before LoadConfig.
// This registers and parses --no-ai, --no-s3, --no-email, --test, and
// --addr.
func ParseFlags() Flags {
	var f Flags
	var testMode bool
	flag.BoolVar(&f.NoAI, "no-ai", false, "Use the basic local generation strategy (no external provider)")
	flag.BoolVar(&f.NoS3, "no-s3", false, "Skip source PDF archival (no object storage)")
	flag.BoolVar(&f.NoEmail, "no-email", false, "Use mock email service (logs emails to console)")
	flag.BoolVar(&testMode, "test", false, "Shorthand for --no-ai --no-s3 --no-email")
	flag.StringVar(&f.Addr, "addr", "", "Listen address (default :8080, overrides LISTEN_ADDR env var)")
	flag.Parse()

	if testMode {
		f.NoAI = true
		f.NoS3 = true
		f.NoEmail = true
	}

	return f
}

// LoadConfig loads configuration from environment variables and CLI
// flag values. The No* flags control which services use mocks; Addr
// overrides the LISTEN_ADDR env var if non-empty.
func LoadConfig(flags Flags) (*Config, error) {
	cfg := &Config{}

	cfg.NoAI = flags.NoAI
	cfg.NoS3 = flags.NoS3
	cfg.NoEmail = flags.NoEmail

	// Server settings
	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", ":8080")
	if flags.Addr != "" {
		cfg.ListenAddr = flags.Addr
	}

	// Database and encryption
	cfg.MasterKey = os.Getenv("MASTER_KEY")
	cfg.DataDir = getEnvOrDefault("DATA_DIR", "/data")

	// Rate limiting
	cfg.RateLimitConfig = ratelimit.Config{
		StandardRPS:     parseFloat64OrDefault("RATE_LIMIT_STANDARD_RPS", 10),
		StandardBurst:   parseIntOrDefault("RATE_LIMIT_STANDARD_BURST", 20),
		PipelineRPS:     parseFloat64OrDefault("RATE_LIMIT_PIPELINE_RPS", 0.2),
		PipelineBurst:   parseIntOrDefault("RATE_LIMIT_PIPELINE_BURST", 3),
		CleanupInterval: parseDurationOrDefault("RATE_LIMIT_CLEANUP_INTERVAL", time.Hour),
	}

	// OpenAI generation
	cfg.OpenAIAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	cfg.OpenAIModel = getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAITemperature = parseFloat64OrDefault("OPENAI_TEMPERATURE", 0.7)
	cfg.OpenAIMaxOutputTokens = int64(parseIntOrDefault("OPENAI_MAX_OUTPUT_TOKENS", 4096))
	cfg.OpenAITimeout = parseDurationOrDefault("OPENAI_TIMEOUT", 60*time.Second)

	// PDF uploads
	cfg.PDFMaxBytes = int64(parseIntOrDefault("PDF_MAX_BYTES", 10<<20))

	// Event delivery
	cfg.WebhookURL = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
	cfg.NotifyEmail = strings.TrimSpace(os.Getenv("NOTIFY_EMAIL"))

	// Resend Email
	cfg.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.ResendFromEmail = getEnvOrDefault("RESEND_FROM_EMAIL", "noreply@impetus-notes.dev")

	// S3-compatible storage
	cfg.AWSEndpointS3 = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.AWSRegion = getEnvOrDefault("AWS_REGION", "auto")
	cfg.AWSAccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.AWSSecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.AWSBucketName = strings.TrimSpace(os.Getenv("BUCKET_NAME"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration is present and
// valid. When mocks are NOT active for a service, the corresponding
// secrets are required.
func (c *Config) Validate() error {
	var errs []string

	// MasterKey: always required (losing it = database unreadable)
	if c.MasterKey == "" {
		errs = append(errs, "MASTER_KEY is required (generate with: openssl rand -hex 32)")
	} else if len(c.MasterKey) != 64 {
		errs = append(errs, "MASTER_KEY must be 64 hex characters (32 bytes)")
	}

	// Generation: require an OpenAI key unless --no-ai. The documented
	// placeholder value counts as unconfigured but is allowed here; it
	// routes uploads to the placeholder note path instead.
	if !c.NoAI && c.OpenAIAPIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required (set env var or use --no-ai)")
	}

	// Storage: require S3 credentials unless --no-s3
	if !c.NoS3 {
		if c.AWSEndpointS3 == "" {
			errs = append(errs, "AWS_ENDPOINT_URL_S3 is required (set env var or use --no-s3)")
		}
		if c.AWSBucketName == "" {
			errs = append(errs, "BUCKET_NAME is required (set env var or use --no-s3)")
		}
		if c.AWSAccessKeyID == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required (set env var or use --no-s3)")
		}
		if c.AWSSecretAccessKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required (set env var or use --no-s3)")
		}
	}

	// Email: require a Resend key unless --no-email or notifications
	// are unconfigured entirely.
	if !c.NoEmail && c.NotifyEmail != "" && c.ResendAPIKey == "" {
		errs = append(errs, "RESEND_API_KEY is required when NOTIFY_EMAIL is set (or use --no-email)")
	}

	if c.PDFMaxBytes <= 0 {
		errs = append(errs, "PDF_MAX_BYTES must be positive")
	}

	if c.RateLimitConfig.StandardRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_STANDARD_RPS must be positive")
	}
	if c.RateLimitConfig.StandardBurst <= 0 {
		errs = append(errs, "RATE_LIMIT_STANDARD_BURST must be positive")
	}
	if c.RateLimitConfig.PipelineRPS <= 0 {
		errs = append(errs, "RATE_LIMIT_PIPELINE_RPS must be positive")
	}
	if c.RateLimitConfig.PipelineBurst <= 0 {
		errs = append(errs, "RATE_LIMIT_PIPELINE_BURST must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}

	return nil
}

// PrintStartupSummary prints a human-readable summary of the
// configuration to stderr.
func (c *Config) PrintStartupSummary() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "note-service starting...")

	if c.NoAI {
		fmt.Fprintln(os.Stderr, "  Generate: Basic local strategy (--no-ai)")
	} else {
		fmt.Fprintf(os.Stderr, "  Generate: OpenAI (model: %s)\n", c.OpenAIModel)
	}

	if c.NoS3 {
		fmt.Fprintln(os.Stderr, "  Storage:  Disabled (--no-s3)")
	} else {
		fmt.Fprintf(os.Stderr, "  Storage:  S3 (endpoint: %s, bucket: %s)\n", c.AWSEndpointS3, c.AWSBucketName)
	}

	if c.NoEmail || c.NotifyEmail == "" {
		fmt.Fprintln(os.Stderr, "  Email:    Mock / disabled")
	} else {
		fmt.Fprintf(os.Stderr, "  Email:    Resend (notify: %s)\n", c.NotifyEmail)
	}

	if c.WebhookURL != "" {
		fmt.Fprintf(os.Stderr, "  Webhook:  %s\n", c.WebhookURL)
	}

	fmt.Fprintln(os.Stderr, "  Master:   From MASTER_KEY env var")
	fmt.Fprintf(os.Stderr, "  Listen:   %s\n", c.ListenAddr)
	fmt.Fprintln(os.Stderr, "")
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// MustLoadConfig loads configuration and panics if validation fails.
// Use this in main() when the application should fail fast on bad
// config.
func MustLoadConfig(flags Flags) *Config {
	cfg, err := LoadConfig(flags)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			panic(fmt.Sprintf("Configuration validation failed:\n  - %s", strings.Join(validationErr.Errors, "\n  - ")))
		}
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	return cfg
}
