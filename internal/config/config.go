package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	MailBackendSMTP = "smtp"
	MailBackendAMQP = "amqp"
	MailBackendLog  = "log"

	VerificationOTP  = "otp"
	VerificationLink = "link"
)

type Config struct {
	// HTTP Server
	Port   string
	AppEnv string

	// Public base URLs, used to build verification links. Both end in "/".
	PublicURLDevelopment string
	PublicURLProduction  string

	// Database
	SQLiteDBPath string

	// Mail
	MailBackend string
	AuthEmail   string
	AuthPass    string
	SMTPHost    string
	SMTPPort    int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Accounts
	VerificationMode   string
	BcryptCost         int
	RateLimitPerMinute int

	LogLevel string

	// Google Sheets ledger export
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Worker
	ExportBatchSize int
	ExportInterval  time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:   getEnv("PORT", "5000"),
		AppEnv: getEnv("APP_ENV", EnvDevelopment),

		PublicURLDevelopment: withSlash(getEnv("PUBLIC_URL_DEVELOPMENT", "http://localhost:5000/")),
		PublicURLProduction:  withSlash(getEnv("PUBLIC_URL_PRODUCTION", "")),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/mywallet.db"),

		MailBackend: getEnv("MAIL_BACKEND", MailBackendLog),
		AuthEmail:   getEnv("AUTH_EMAIL", ""),
		AuthPass:    getEnv("AUTH_PASS", ""),
		SMTPHost:    getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:    getEnvInt("SMTP_PORT", 587),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mywallet"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mail"),

		VerificationMode:   getEnv("VERIFICATION_MODE", VerificationOTP),
		BcryptCost:         getEnvInt("BCRYPT_COST", 10),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Ledger"),

		ExportBatchSize: getEnvInt("EXPORT_BATCH_SIZE", 10),
		ExportInterval:  getEnvDuration("EXPORT_INTERVAL", 30*time.Second),
	}

	return cfg
}

// PublicURL is the base URL for the current environment.
func (c *Config) PublicURL() string {
	if c.AppEnv == EnvProduction {
		return c.PublicURLProduction
	}
	return c.PublicURLDevelopment
}

// ExportEnabled reports whether the worker should mirror the ledger to
// Google Sheets.
func (c *Config) ExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(c.AppEnv, EnvDevelopment, EnvProduction) {
		errors = append(errors, fmt.Sprintf("invalid app env '%s': must be one of [%s %s]", c.AppEnv, EnvDevelopment, EnvProduction))
	}
	publicURL := c.PublicURL()
	if publicURL == "" {
		errors = append(errors, fmt.Sprintf("public URL is required for %s", c.AppEnv))
	} else if u, err := url.Parse(publicURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid public URL '%s': must be an absolute http(s) URL", publicURL))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	switch c.MailBackend {
	case MailBackendSMTP:
		errors = append(errors, c.validateSMTP()...)
	case MailBackendAMQP:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP URL is required when using the amqp mail backend")
		}
	case MailBackendLog:
	default:
		errors = append(errors, fmt.Sprintf("invalid mail backend '%s': must be one of [%s %s %s]", c.MailBackend, MailBackendSMTP, MailBackendAMQP, MailBackendLog))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !oneOf(c.VerificationMode, VerificationOTP, VerificationLink) {
		errors = append(errors, fmt.Sprintf("invalid verification mode '%s': must be one of [%s %s]", c.VerificationMode, VerificationOTP, VerificationLink))
	}
	// bcrypt accepts 4..31.
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.ExportEnabled() && strings.TrimSpace(c.GoogleSheetName) == "" {
		errors = append(errors, "Google Sheet name is required when a spreadsheet ID is set")
	}

	if c.ExportBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at least 1", c.ExportBatchSize))
	} else if c.ExportBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize))
	}

	if c.ExportInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at least 1 second", c.ExportInterval))
	} else if c.ExportInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid export interval %v: must be at most 24 hours", c.ExportInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// validateSMTP checks the settings the SMTP transport needs. The worker
// checks them too when mail goes through AMQP.
func (c *Config) validateSMTP() []string {
	var errors []string
	if c.AuthEmail == "" || c.AuthPass == "" {
		errors = append(errors, "AUTH_EMAIL and AUTH_PASS are required to send mail over SMTP")
	}
	if c.SMTPHost == "" {
		errors = append(errors, "SMTP host cannot be empty")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}
	return errors
}

// ValidateWorker checks the settings the worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" && !c.ExportEnabled() {
		errors = append(errors, "worker has nothing to do: set AMQP_URL or GOOGLE_SPREADSHEET_ID")
	}
	if c.AMQPURL != "" {
		errors = append(errors, c.validateSMTP()...)
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func withSlash(u string) string {
	if u == "" || strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
