package notification

import "sync"

// SentNotification records one delivery captured by the MockNotifier.
type SentNotification struct {
	Notice   NoticeType
	Data     NotificationData
	Template NoticeTemplate
}

// MockNotifier captures notifications for tests instead of delivering them.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification

	// FailWith, when set, is returned from every Send call.
	FailWith error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the notification.
func (m *MockNotifier) Send(notice NoticeType, notification NotificationData, template NoticeTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, SentNotification{
		Notice:   notice,
		Data:     notification,
		Template: template,
	})
	return nil
}

// SentCount returns how many notifications have been captured.
func (m *MockNotifier) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// LastSent returns the most recently captured notification, or false when
// nothing has been sent.
func (m *MockNotifier) LastSent() (SentNotification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return SentNotification{}, false
	}
	return m.Sent[len(m.Sent)-1], true
}
