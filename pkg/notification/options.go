package notification

import (
	"embed"
	"log/slog"
)

//go:embed templates/*
var templateFiles embed.FS

func loadTemplate(filename string) string {
	content, err := templateFiles.ReadFile(filename)
	if err != nil {
		slog.Error("Error reading template file!", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// ManagerOption is a function that configures a Manager
type ManagerOption func(*Manager) error

// WithSMTP adds an email notifier with the provided SMTP configuration
func WithSMTP(config SMTPConfig) ManagerOption {
	return func(m *Manager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		m.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithEmailVerificationTemplate registers the email verification template
func WithEmailVerificationTemplate() ManagerOption {
	return func(m *Manager) error {
		return m.RegisterNotification(EmailVerificationNotice, EmailSystem, NoticeTemplate{
			Subject: "Verify Your Email Address",
			Html:    loadTemplate("templates/email/email_verification.html"),
		})
	}
}

// WithPasswordResetTemplate registers the password reset template
func WithPasswordResetTemplate() ManagerOption {
	return func(m *Manager) error {
		return m.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{
			Subject: "Password Reset Request",
			Html:    loadTemplate("templates/email/password_reset.html"),
		})
	}
}

// WithDefaultTemplates registers all default notification templates
func WithDefaultTemplates() ManagerOption {
	return func(m *Manager) error {
		options := []ManagerOption{
			WithEmailVerificationTemplate(),
			WithPasswordResetTemplate(),
		}

		for _, opt := range options {
			if err := opt(m); err != nil {
				return err
			}
		}

		return nil
	}
}

// NewManagerWithOptions creates a new notification manager with the
// provided options
func NewManagerWithOptions(opts ...ManagerOption) (*Manager, error) {
	manager := NewManager()

	for _, opt := range opts {
		if err := opt(manager); err != nil {
			return nil, err
		}
	}

	return manager, nil
}
