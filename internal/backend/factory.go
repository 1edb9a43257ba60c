package backend

import (
	"context"
	"fmt"

	"mywallet/internal/amqp"
	"mywallet/internal/log"
	"mywallet/internal/mail"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new mail backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateMailer implements Factory.CreateMailer
func (f *DefaultFactory) CreateMailer(ctx context.Context, config Config) (*MailerResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SMTPBackend:
		return f.createSMTPMailer(ctx, config)
	case AMQPBackend:
		return f.createQueueMailer(ctx, config)
	case LogBackend:
		return f.createLogMailer(ctx)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSMTPMailer(ctx context.Context, config Config) (*MailerResult, error) {
	m, err := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     config.SMTPHost,
		Port:     config.SMTPPort,
		Username: config.Username,
		Password: config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SMTP mailer: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SMTP mail backend",
		"host", config.SMTPHost,
		"port", config.SMTPPort)

	return &MailerResult{Mailer: m}, nil
}

func (f *DefaultFactory) createQueueMailer(ctx context.Context, config Config) (*MailerResult, error) {
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized AMQP mail backend",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	return &MailerResult{
		Mailer:  mail.NewQueueMailer(client),
		Cleanup: client.Close,
	}, nil
}

func (f *DefaultFactory) createLogMailer(ctx context.Context) (*MailerResult, error) {
	f.logger.WarnContext(ctx, "Mail is logged, not delivered")

	return &MailerResult{Mailer: mail.NewLogMailer(f.logger)}, nil
}
