package backend

import (
	"context"

	"mywallet/internal/mail"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// MailerResult contains the mailer instance and optional cleanup function
type MailerResult struct {
	Mailer  mail.Mailer
	Cleanup CleanupFunc
}

// Factory creates mail backends based on configuration
type Factory interface {
	CreateMailer(ctx context.Context, config Config) (*MailerResult, error)
}

// Config holds configuration for mailer creation
type Config struct {
	Type BackendType

	// SMTP specific
	SMTPHost string
	SMTPPort int
	Username string
	Password string

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of mail backend
type BackendType string

const (
	SMTPBackend BackendType = "smtp"
	AMQPBackend BackendType = "amqp"
	LogBackend  BackendType = "log"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SMTPBackend, AMQPBackend, LogBackend:
		return true
	default:
		return false
	}
}
