package backend

import (
	"fmt"

	"mywallet/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.MailBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid mail backend in config: %s", appConfig.MailBackend)
	}

	return Config{
		Type: backendType,

		SMTPHost: appConfig.SMTPHost,
		SMTPPort: appConfig.SMTPPort,
		Username: appConfig.AuthEmail,
		Password: appConfig.AuthPass,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// SMTPConfig returns the SMTP part of c, also used by the worker to deliver
// queued mail.
func (c Config) SMTPConfig() Config {
	return Config{
		Type:     SMTPBackend,
		SMTPHost: c.SMTPHost,
		SMTPPort: c.SMTPPort,
		Username: c.Username,
		Password: c.Password,
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SMTPBackend:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required for smtp backend")
		}
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("SMTP credentials are required for smtp backend")
		}
	case AMQPBackend:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP URL is required for amqp backend")
		}
		if c.AMQPExchange == "" || c.AMQPQueue == "" {
			return fmt.Errorf("AMQP exchange and queue are required for amqp backend")
		}
	case LogBackend:
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{SMTPBackend, AMQPBackend, LogBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
