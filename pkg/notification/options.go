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
		slog.Error("Error reading template file", "err", err, "filename", filename)
		return ""
	}
	return string(content)
}

// NotificationManagerOption configures a NotificationManager.
type NotificationManagerOption func(*NotificationManager) error

// WithSMTP adds an email notifier with the provided SMTP configuration.
func WithSMTP(config SMTPConfig) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		emailNotifier, err := NewEmailNotifier(config)
		if err != nil {
			return err
		}
		nm.RegisterNotifier(EmailSystem, emailNotifier)
		return nil
	}
}

// WithNotifier registers an arbitrary notifier for a system. Tests use this
// with a MockNotifier.
func WithNotifier(system NotificationSystem, notifier Notifier) NotificationManagerOption {
	return func(nm *NotificationManager) error {
		nm.RegisterNotifier(system, notifier)
		return nil
	}
}

// WithDeviceVerificationTemplate registers the new-device security email.
func WithDeviceVerificationTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(DeviceVerificationNotice, EmailSystem, NoticeTemplate{
			Subject: "New device sign-in request",
			Html:    loadTemplate("templates/email/device_verification.html"),
		})
	}
}

// WithSignupVerificationTemplate registers the signup confirmation email.
func WithSignupVerificationTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(SignupVerificationNotice, EmailSystem, NoticeTemplate{
			Subject: "Confirm your email address",
			Html:    loadTemplate("templates/email/signup_verification.html"),
		})
	}
}

// WithPasswordResetTemplate registers the password reset email.
func WithPasswordResetTemplate() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		return nm.RegisterNotification(PasswordResetNotice, EmailSystem, NoticeTemplate{
			Subject: "Password Reset Request",
			Html:    loadTemplate("templates/email/password_reset.html"),
		})
	}
}

// WithAllTemplates registers every built-in email template.
func WithAllTemplates() NotificationManagerOption {
	return func(nm *NotificationManager) error {
		for _, opt := range []NotificationManagerOption{
			WithDeviceVerificationTemplate(),
			WithSignupVerificationTemplate(),
			WithPasswordResetTemplate(),
		} {
			if err := opt(nm); err != nil {
				return err
			}
		}
		return nil
	}
}
