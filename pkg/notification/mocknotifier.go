package notification

// MockNotifier records sends for tests. When Err is set, Send fails with it
// while still recording the attempt.
type MockNotifier struct {
	SentNotifications []NotificationData
	SentNoticeTypes   []NoticeType
	Err               error
}

func (m *MockNotifier) Send(noticeType NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.SentNotifications = append(m.SentNotifications, notification)
	m.SentNoticeTypes = append(m.SentNoticeTypes, noticeType)
	return m.Err
}
