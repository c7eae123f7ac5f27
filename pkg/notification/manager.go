package notification

import (
	"fmt"
)

// NotificationManager routes notifications to the registered notifier for
// each system, using the template registered for the notice type.
type NotificationManager struct {
	notifiers map[NotificationSystem]Notifier
	registry  map[NoticeType]map[NotificationSystem]NoticeTemplate
}

// NewNotificationManager creates a manager and applies the given options.
func NewNotificationManager(opts ...NotificationManagerOption) (*NotificationManager, error) {
	nm := &NotificationManager{
		notifiers: make(map[NotificationSystem]Notifier),
		registry:  make(map[NoticeType]map[NotificationSystem]NoticeTemplate),
	}
	for _, opt := range opts {
		if err := opt(nm); err != nil {
			return nil, err
		}
	}
	return nm, nil
}

// RegisterNotifier registers a notifier for a delivery system.
func (nm *NotificationManager) RegisterNotifier(system NotificationSystem, notifier Notifier) {
	nm.notifiers[system] = notifier
}

// RegisterNotification adds a template for a (notice type, system) pair.
func (nm *NotificationManager) RegisterNotification(notice NoticeType, system NotificationSystem, template NoticeTemplate) error {
	if notice == "" || system == "" {
		return fmt.Errorf("invalid input: notice type and system cannot be empty")
	}
	if template.Html == "" && template.Text == "" {
		return fmt.Errorf("no body template provided for notice type: %s", notice)
	}

	if _, exists := nm.registry[notice]; !exists {
		nm.registry[notice] = make(map[NotificationSystem]NoticeTemplate)
	}
	nm.registry[notice][system] = template
	return nil
}

// Send dispatches a notification over every system that has a template
// registered for the notice type.
func (nm *NotificationManager) Send(notice NoticeType, notification NotificationData) error {
	systemTemplates, exists := nm.registry[notice]
	if !exists {
		return fmt.Errorf("no templates registered for notice type: %s", notice)
	}

	var sent bool
	for system, template := range systemTemplates {
		notifier, exists := nm.notifiers[system]
		if !exists {
			continue
		}
		if err := notifier.Send(notice, notification, template); err != nil {
			return err
		}
		sent = true
	}

	if !sent {
		return fmt.Errorf("no notifier registered for notice type: %s", notice)
	}
	return nil
}
