package notification

import (
	"fmt"
)

// NotificationSystem represents a delivery transport (e.g., email).
type NotificationSystem string

// NoticeType represents a kind of notification (e.g., "email_verification").
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	// EmailVerificationNotice carries the verify-your-address link
	EmailVerificationNotice NoticeType = "email_verification"

	// PasswordResetNotice carries the password reset link
	PasswordResetNotice NoticeType = "password_reset"
)

// Manager routes notices to registered notifiers using registered
// templates.
type Manager struct {
	notifiers map[NotificationSystem]Notifier
	registry  map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewManager creates and returns a new Manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make(map[NotificationSystem]Notifier),
		registry:  make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
}

// RegisterNotifier registers a notifier for a delivery system
func (m *Manager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	m.notifiers[system] = notifier
}

// RegisterNotification adds a notice template to the registry
func (m *Manager) RegisterNotification(noticeType NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if noticeType == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}

	if _, exists := m.registry[noticeType]; !exists {
		m.registry[noticeType] = make(map[NotificationSystem]NoticeTemplate)
	}

	m.registry[noticeType][system] = template
	return nil
}

// Send delivers the notice through every system it is registered for. The
// first delivery failure is returned; the caller decides whether it is
// fatal.
func (m *Manager) Send(noticeType NoticeType, notification NotificationData) error {
	systemTemplates, exists := m.registry[noticeType]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", noticeType)
	}

	sent := false
	for system, template := range systemTemplates {
		notifier, exists := m.notifiers[system]
		if !exists {
			continue
		}

		if err := notifier.Send(noticeType, notification, template); err != nil {
			return fmt.Errorf("failed to send %s via %s: %w", noticeType, system, err)
		}
		sent = true
	}

	if !sent {
		return fmt.Errorf("no notifier registered for notice type: %s", noticeType)
	}
	return nil
}
