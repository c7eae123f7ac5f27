package notification

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"log/slog"
	texttemplate "text/template"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the SMTP connection settings for the email notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

// EmailNotifier delivers notifications as transactional email over SMTP.
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

// NewEmailNotifier creates an email notifier from SMTP configuration.
func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30),
	}

	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		slog.Info("Using NoTLS policy for SMTP")
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "host", config.Host, "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

// Send renders the notice template and delivers the email.
func (e *EmailNotifier) Send(notice NoticeType, notification NotificationData, noticeTemplate NoticeTemplate) error {
	if notification.To == "" {
		return fmt.Errorf("email notification requires 'To' address")
	}

	var textBody string
	if noticeTemplate.Text != "" {
		tmpl, err := texttemplate.New("text").Parse(noticeTemplate.Text)
		if err != nil {
			slog.Error("Failed to parse text template", "notice", notice, "err", err)
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			slog.Error("Failed to execute text template", "notice", notice, "err", err)
			return err
		}
		textBody = buf.String()
	}

	var htmlBody string
	if noticeTemplate.Html != "" {
		tmpl, err := template.New("html").Parse(noticeTemplate.Html)
		if err != nil {
			slog.Error("Failed to parse HTML template", "notice", notice, "err", err)
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, notification.Data); err != nil {
			slog.Error("Failed to execute HTML template", "notice", notice, "err", err)
			return err
		}
		htmlBody = buf.String()
	}

	subject := noticeTemplate.Subject
	if notification.Subject != "" {
		subject = notification.Subject
	}

	msg := mail.NewMsg()
	if err := msg.From(e.SMTPConfig.From); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return err
	}
	if err := msg.To(notification.To); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return err
	}
	msg.Subject(subject)

	if textBody != "" {
		msg.SetBodyString(mail.TypeTextPlain, textBody)
	}
	if htmlBody != "" {
		if textBody != "" {
			msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
		} else {
			msg.SetBodyString(mail.TypeTextHTML, htmlBody)
		}
	}

	if err := e.client.DialAndSend(msg); err != nil {
		slog.Error("Failed to send email", "notice", notice, "err", err)
		return err
	}

	slog.Info("Email sent", "notice", notice, "to", notification.To, "host", e.SMTPConfig.Host)
	return nil
}
