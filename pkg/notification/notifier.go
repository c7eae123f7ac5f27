package notification

// NotificationSystem represents a delivery channel (email, SMS, ...).
type NotificationSystem string

// NoticeType represents a kind of notification (device verification,
// password reset, ...).
type NoticeType string

const (
	EmailSystem NotificationSystem = "email"

	// DeviceVerificationNotice is the out-of-band security email sent when
	// an unrecognized device attempts a login. It carries both the approve
	// and the secure-account links.
	DeviceVerificationNotice NoticeType = "device_verification"

	// SignupVerificationNotice confirms a new account's email address.
	SignupVerificationNotice NoticeType = "signup_verification"

	// PasswordResetNotice carries a password recovery link.
	PasswordResetNotice NoticeType = "password_reset"
)

// NotificationData is the payload for one outgoing notification.
type NotificationData struct {
	To      string            // Recipient identifier (email address)
	Subject string            // Optional subject override
	Data    map[string]string // Template data
}

// NoticeTemplate holds the subject and body templates for one notice on one
// system.
type NoticeTemplate struct {
	Subject string
	Text    string
	Html    string
}

// Notifier delivers a rendered notification over one system.
type Notifier interface {
	Send(notice NoticeType, notification NotificationData, template NoticeTemplate) error
}
