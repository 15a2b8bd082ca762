package config

import (
	"github.com/tendant/simple-signup/pkg/notification"
)

// EmailConfig holds SMTP email configuration
type EmailConfig struct {
	Host     string `env:"EMAIL_HOST" env-default:"localhost"`
	Port     uint16 `env:"EMAIL_PORT" env-default:"1025"`
	Username string `env:"EMAIL_USERNAME" env-default:""`
	Password string `env:"EMAIL_PASSWORD" env-default:""`
	From     string `env:"EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool   `env:"EMAIL_TLS" env-default:"false"`

	// InsecureSkipVerify disables certificate verification for servers
	// with self-signed certificates. Leave off in production.
	InsecureSkipVerify bool `env:"EMAIL_INSECURE_SKIP_VERIFY" env-default:"false"`
}

// ToSMTPConfig converts the config to a notification.SMTPConfig
func (e EmailConfig) ToSMTPConfig() notification.SMTPConfig {
	return notification.SMTPConfig{
		Host:               e.Host,
		Port:               int(e.Port),
		Username:           e.Username,
		Password:           e.Password,
		From:               e.From,
		TLS:                e.TLS,
		InsecureSkipVerify: e.InsecureSkipVerify,
	}
}

// NewEmailConfigFromEnv creates an EmailConfig from environment variables
func NewEmailConfigFromEnv() EmailConfig {
	return EmailConfig{
		Host:               GetEnvOrDefault("EMAIL_HOST", "localhost"),
		Port:               GetEnvUint16("EMAIL_PORT", 1025),
		Username:           GetEnv("EMAIL_USERNAME"),
		Password:           GetEnv("EMAIL_PASSWORD"),
		From:               GetEnvOrDefault("EMAIL_FROM", "noreply@example.com"),
		TLS:                GetEnvBool("EMAIL_TLS", false),
		InsecureSkipVerify: GetEnvBool("EMAIL_INSECURE_SKIP_VERIFY", false),
	}
}
