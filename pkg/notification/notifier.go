package notification

// NotificationData carries the per-send fields for a notification.
type NotificationData struct {
	To      string            // Recipient identifier (e.g., email address)
	Subject string            // Optional override for the template subject
	Body    string            // Optional pre-rendered content
	Data    map[string]string // Template data (e.g., VerificationLink)
}

// NoticeTemplate holds the renderable content registered for a notice.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notice through one transport. Delivery is
// best-effort, a single attempt per call.
type Notifier interface {
	Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error
}
